// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value persistence used by ircpipe.
//
// The alias store, the command history and the script registry each save a
// JSON document under their own key. Storage is a collaborator, not a source
// of truth: every failure is logged and treated as "nothing stored" so that a
// broken database resets settings to defaults instead of crashing the client.
//
// # Key Types
//
//   - Store: Get/Set/Close contract implemented by every backend
//   - SQLiteStore: single-table key-value store on modernc.org/sqlite
//   - FileStore: one JSON file per key, written atomically
//   - MemoryStore: in-process map, used in tests and with backend = "memory"
//   - StorageError: wraps backend failures (matches ErrStorage)
//
// # Usage
//
//	store, err := storage.Open("sqlite", "~/.ircpipe/state.db")
//	var aliases []alias.Alias
//	storage.LoadJSON(store, storage.KeyAliases, &aliases, logger)
//	storage.SaveJSON(store, storage.KeyAliases, aliases, logger)
package storage
