// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hooks dispatches protocol events and outgoing commands to scripts.
//
// A script may implement any subset of four hooks. Inbound events
// (OnConnect, OnMessage, OnJoin) are broadcast to every enabled script and
// their return values are ignored. Outgoing commands run through the
// OnCommand chain: each enabled script sees the text as rewritten by the
// scripts before it, and the first cancellation stops the chain.
//
// Scripts run in registration order. A panicking hook is recorded against
// its script and the dispatch continues with the next one.
//
// # Key Types
//
//   - Hooks: the optional hook functions of one script
//   - Result: an OnCommand verdict (pass, replace, cancel)
//   - Binding: a script's hooks plus its call guard
//   - Provider: source of enabled bindings and sink for hook errors
//   - Dispatcher: runs broadcasts and the command chain
//   - Outcome: final text and cancellation state of a chain
//
// # Usage
//
//	d := hooks.NewDispatcher(registry, hooks.WithLogger(logger))
//	d.Connect("libera")
//	out, err := d.Command(ctx, "/say hi", tab)
//	if out.Cancelled {
//		fmt.Println("blocked by", out.CancelledBy, out.Reason)
//	}
package hooks
