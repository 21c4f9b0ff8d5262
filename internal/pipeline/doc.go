// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline turns submitted input into outgoing IRC commands.
//
// A submission moves through Received, Expanded and HookChain and ends as
// either Dispatched or Cancelled. Blank input is ignored. The leading token
// is expanded once against the alias store, then the OnCommand hook chain
// may rewrite or cancel the result. Dispatched commands are appended to the
// history and forwarded to the transport.
//
// Submissions on one Pipeline are serialized: the next one starts only after
// the previous chain and send have finished.
//
// # Key Types
//
//   - Pipeline: the orchestrator
//   - Result: what happened to one submission
//   - Status: Ignored, Dispatched or Cancelled
//   - Chain: the OnCommand dispatcher the pipeline runs
//
// # Usage
//
//	p := pipeline.New(aliases, hist, dispatcher,
//		pipeline.WithSender(sender),
//		pipeline.WithNickSource(sess),
//	)
//	res, err := p.Submit(ctx, "/hello", model.ChannelTab("libera", "#go"))
//	if res.Status == pipeline.StatusCancelled {
//		fmt.Println("cancelled:", res.Reason)
//	}
package pipeline
