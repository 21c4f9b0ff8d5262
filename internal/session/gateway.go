// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"time"

	"github.com/jeranaias/ircpipe/internal/transport"
)

// DefaultSendTimeout bounds a single script send.
const DefaultSendTimeout = 5 * time.Second

// Gateway carries out script capabilities. Sends go straight to the
// transport and never pass through aliases or hooks.
type Gateway struct {
	session *Manager
	sender  transport.Sender
	timeout time.Duration
}

// NewGateway creates a gateway over session and sender.
func NewGateway(session *Manager, sender transport.Sender) *Gateway {
	return &Gateway{session: session, sender: sender, timeout: DefaultSendTimeout}
}

// SendMessage sends text to channel (or nick) on networkID.
func (g *Gateway) SendMessage(networkID, channel, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	return g.sender.Send(ctx, networkID, channel, "/msg "+channel+" "+text)
}

// SendCommand sends a raw command on networkID. A command without a
// leading slash is sent verbatim as "/quote".
func (g *Gateway) SendCommand(networkID, command string) error {
	command = strings.TrimSpace(command)
	if !strings.HasPrefix(command, "/") {
		command = "/quote " + command
	}

	target := ""
	if tab := g.session.ActiveTab(); tab.NetworkID == networkID && !tab.IsServerLike() {
		target = tab.Name
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	return g.sender.Send(ctx, networkID, target, command)
}

// UserNick returns the nick on networkID.
func (g *Gateway) UserNick(networkID string) string {
	return g.session.Nick(networkID)
}

// DefaultNetwork returns the active network.
func (g *Gateway) DefaultNetwork() string {
	return g.session.DefaultNetwork()
}
