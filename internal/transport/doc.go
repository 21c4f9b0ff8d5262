// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport is the boundary between the command pipeline and the
// network. The pipeline hands over finalized command text; sockets, TLS
// and reconnects live behind the Sender interface.
//
// # Key Types
//
//   - Sender: accepts a finalized command for a network and target
//   - WriterSender: renders commands as raw IRC lines onto an io.Writer
//   - Recorder: keeps sent commands in memory for tests and dry runs
//
// # Usage
//
//	raw, err := transport.Format("#go-nuts", "/me waves")
//	// raw == "PRIVMSG #go-nuts :\x01ACTION waves\x01"
package transport
