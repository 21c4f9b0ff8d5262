// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is an inbound chat line delivered to scripts.
type Message struct {
	NetworkID string    `json:"network_id"`
	From      string    `json:"from"`
	Target    string    `json:"target"` // channel name, or our nick for a private message
	Text      string    `json:"text"`
	Command   string    `json:"command,omitempty"` // PRIVMSG, NOTICE, JOIN...
	Time      time.Time `json:"time"`
}

// IsPrivate reports whether the message was addressed to a nick rather than a channel.
func (m Message) IsPrivate() bool {
	return m.Target != "" && !strings.HasPrefix(m.Target, "#") && !strings.HasPrefix(m.Target, "&")
}

// IsAction reports whether the message is a CTCP ACTION (/me).
func (m Message) IsAction() bool {
	return strings.HasPrefix(m.Text, "\x01ACTION ") && strings.HasSuffix(m.Text, "\x01")
}
