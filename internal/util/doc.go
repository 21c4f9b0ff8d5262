// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the ircpipe packages.
//
// # Key Functions
//
// Display:
//   - TruncateWidth: width-aware truncation with an ellipsis (CJK safe)
//   - PadRight: pads a cell to a display width for aligned tables
//   - StringWidth: terminal column count of a string
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//
// # Usage
//
//	// Align the trigger column of an alias listing
//	fmt.Println(util.PadRight("/whois", 12) + expansion)
//
//	// Persist state without leaving a half-written file behind
//	err := util.AtomicWriteFile(path, data, 0600)
package util
