// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package alias holds user-defined command shorthands.
//
// An alias maps a trigger ("hello") to an expansion ("/say Hello there!").
// Typing "/hello" in the input line runs the expansion instead. Triggers
// are unique within a store and compared with Unicode case folding.
//
// # Key Types
//
//   - Alias: trigger, expansion and optional description
//   - Store: mutex-protected set of aliases, optionally persisted
//   - Context: destination data used to fill expansion placeholders
//
// # Placeholders
//
// Expansions may contain {channel} (or {chan}), {nick}, {me}, {network}
// and {args}. {args} receives whatever followed the trigger; when the
// expansion has no {args} the remaining text is appended instead.
//
// # Usage
//
//	aliases := alias.NewStore(alias.WithPersistence(kv, logger))
//	_ = aliases.Set(alias.Alias{Trigger: "whois", Expansion: "/whois {nick}"})
//
//	text, a, ok := aliases.Expand("/whois", alias.Context{Tab: tab, Nick: "me"})
package alias
