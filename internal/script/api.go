// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package script

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"

	"github.com/traefik/yaegi/interp"

	"github.com/jeranaias/ircpipe/internal/hooks"
	"github.com/jeranaias/ircpipe/internal/model"
)

// apiImportPath is what scripts import to reach their capabilities.
const apiImportPath = "irc"

// Host carries out script capabilities against the live session. It is
// the only path from a script to the transport.
type Host interface {
	SendMessage(networkID, channel, text string) error
	SendCommand(networkID, command string) error
	UserNick(networkID string) string
	DefaultNetwork() string
}

// capabilities is the per-script view of the host.
type capabilities interface {
	Log(text string)
	SendMessage(channel, text string, networkID ...string) error
	SendCommand(command string, networkID ...string) error
	UserNick(networkID ...string) string
	GetConfig() any
}

// apiExports builds the "irc" package for one script.
func apiExports(c capabilities) interp.Exports {
	return interp.Exports{
		apiImportPath + "/" + apiImportPath: {
			// Capabilities
			"Log":         reflect.ValueOf(c.Log),
			"SendMessage": reflect.ValueOf(c.SendMessage),
			"SendCommand": reflect.ValueOf(c.SendCommand),
			"UserNick":    reflect.ValueOf(c.UserNick),
			"GetConfig":   reflect.ValueOf(c.GetConfig),

			// Types
			"Tab":     reflect.ValueOf((*model.Tab)(nil)),
			"TabType": reflect.ValueOf((*model.TabType)(nil)),
			"Message": reflect.ValueOf((*model.Message)(nil)),
			"Result":  reflect.ValueOf((*hooks.Result)(nil)),
			"Action":  reflect.ValueOf((*hooks.Action)(nil)),

			// Results
			"Pass":          reflect.ValueOf(hooks.Pass),
			"Replace":       reflect.ValueOf(hooks.Replace),
			"Cancel":        reflect.ValueOf(hooks.Cancel),
			"ActionPass":    reflect.ValueOf(hooks.ActionPass),
			"ActionReplace": reflect.ValueOf(hooks.ActionReplace),
			"ActionCancel":  reflect.ValueOf(hooks.ActionCancel),

			// Tab types
			"TabChannel": reflect.ValueOf(model.TabChannel),
			"TabQuery":   reflect.ValueOf(model.TabQuery),
			"TabServer":  reflect.ValueOf(model.TabServer),
			"TabNotice":  reflect.ValueOf(model.TabNotice),

			// Helpers
			"EqualFold": reflect.ValueOf(model.EqualFold),
		},
	}
}

// =============================================================================
// PER-SCRIPT CAPABILITIES
// =============================================================================

// scriptAPI binds the capabilities to one registry entry.
type scriptAPI struct {
	r  *Registry
	id string

	// boot holds what top-level initializers see before the script is
	// registered.
	boot *bootLog
}

// bootLog collects log lines written while a script is being compiled
// for the first time.
type bootLog struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	config json.RawMessage
}

func newBootLog(config json.RawMessage) *bootLog {
	return &bootLog{config: cloneRaw(config)}
}

func (b *bootLog) append(line string) {
	b.mu.Lock()
	if !b.closed {
		b.lines = append(b.lines, line)
	}
	b.mu.Unlock()
}

// drainInto moves the collected lines into l and stops collecting.
func (b *bootLog) drainInto(l *ringLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, line := range b.lines {
		l.append(line)
	}
	b.lines = nil
	b.closed = true
}

func (a scriptAPI) Log(text string) {
	err := a.r.AppendLog(a.id, text)
	var nf *NotFoundError
	if a.boot != nil && errors.As(err, &nf) {
		a.boot.append(text)
	}
}

func (a scriptAPI) SendMessage(channel, text string, networkID ...string) error {
	host, network, err := a.r.beginSend(a.id, networkID)
	if err != nil {
		return err
	}
	return host.SendMessage(network, channel, text)
}

func (a scriptAPI) SendCommand(command string, networkID ...string) error {
	host, network, err := a.r.beginSend(a.id, networkID)
	if err != nil {
		return err
	}
	return host.SendCommand(network, command)
}

func (a scriptAPI) UserNick(networkID ...string) string {
	host := a.r.currentHost()
	if host == nil {
		return ""
	}
	network := host.DefaultNetwork()
	if len(networkID) > 0 && networkID[0] != "" {
		network = networkID[0]
	}
	return host.UserNick(network)
}

func (a scriptAPI) GetConfig() any {
	raw, ok := a.r.configOf(a.id)
	if !ok && a.boot != nil {
		raw = a.boot.config
	}
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// nopAPI backs the irc package during Lint, where nothing may run.
type nopAPI struct{}

func (nopAPI) Log(string) {}
func (nopAPI) SendMessage(string, string, ...string) error { return ErrNoHost }
func (nopAPI) SendCommand(string, ...string) error { return ErrNoHost }
func (nopAPI) UserNick(...string) string { return "" }
func (nopAPI) GetConfig() any { return nil }
