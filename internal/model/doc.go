// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain types shared by the command pipeline.
//
// These types cross package boundaries: the suggestion engine ranks against a
// Tab, the hook dispatcher hands Tab and Message values to scripts, and the
// pipeline stamps every submission with the Tab it was typed into.
//
// # Key Types
//
//   - Tab: destination of a submission (network, kind, name)
//   - TabType: channel, query, server or notice
//   - Message: an inbound chat line as seen by scripts
//
// # Usage
//
//	tab := model.ChannelTab("libera", "#go-nuts")
//	if tab.IsChannel() {
//	    // bias ranking toward channel aliases
//	}
//
// Case-insensitive comparisons go through Fold so that triggers and input are
// compared with full Unicode case folding:
//
//	model.HasPrefixFold("/WHOIS", "/who") // true
package model
