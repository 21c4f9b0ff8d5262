// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package script manages user automation scripts.
//
// Scripts are small Go programs (package main) interpreted with yaegi.
// Each script gets its own interpreter with a restricted standard library
// and an "irc" package exposing exactly five capabilities:
//
//	irc.Log(text)                             append to the script's own log
//	irc.SendMessage(channel, text, network...) send a message, no aliases/hooks
//	irc.SendCommand(command, network...)       send a raw command, no aliases/hooks
//	irc.UserNick(network...)                   current nickname
//	irc.GetConfig()                            the script's decoded config value
//
// A script exports any subset of OnConnect, OnMessage, OnJoin and OnCommand:
//
//	package main
//
//	import (
//		"strings"
//
//		"irc"
//	)
//
//	func OnCommand(text string, tab irc.Tab) irc.Result {
//		if strings.Contains(text, "password") {
//			return irc.Cancel("looks like a secret")
//		}
//		return irc.Pass()
//	}
//
// # Key Types
//
//   - Registry: installed scripts in registration order; implements hooks.Provider
//   - Script: metadata snapshot of one installed script
//   - Host: the transport/session adapter behind the irc capabilities
//   - Diagnostic: a lint or load finding with position
//   - DirWatcher: keeps a directory of *.go scripts installed
//
// New scripts start disabled. Enabling and disabling never recompiles.
package script
