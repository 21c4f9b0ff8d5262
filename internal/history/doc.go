// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps the bounded log of submitted commands.
//
// Entries are kept in submission order. When the store is full the oldest
// entry is evicted. Recent returns entries newest first, which is the order
// the suggestion engine consumes them in.
//
// # Usage
//
//	h := history.NewStore(history.WithMaxEntries(500), history.WithPersistence(kv))
//	h.Append("/say Hello there!")
//	latest := h.Recent(30)
package history
