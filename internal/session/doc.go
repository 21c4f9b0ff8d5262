// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the client's live IRC state and exposes it to
// scripts.
//
// The Manager records, per network, the current nick, whether the network
// is connected and which channels are joined, plus the active tab and
// activity timestamps. The Gateway adapts a Manager and a transport.Sender
// into the script capability host; it is the only code through which a
// script reaches the network.
//
// # Key Types
//
//   - Manager: mutex-protected session state
//   - Network: snapshot of one network's state
//   - Status: summary for the REPL status line
//   - Gateway: script.Host implementation
//
// # Usage
//
//	sess := session.NewManager(session.Config{Nick: "gopher", Network: "libera"})
//	sess.Connect("libera", "gopher")
//	sess.Join("libera", "#go-nuts")
//
//	gw := session.NewGateway(sess, sender)
//	registry.SetHost(gw)
package session
