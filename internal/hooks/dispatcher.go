// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/jeranaias/ircpipe/internal/model"
)

// Outcome is the result of an OnCommand chain.
type Outcome struct {
	// Text is the command after every rewrite that ran. On cancellation it
	// still holds the rewrites of scripts before the cancelling one.
	Text string

	Cancelled   bool
	Reason      string
	CancelledBy string

	// RewrittenBy lists the scripts that replaced the text, in order.
	RewrittenBy []string
}

// Dispatcher fans events out to the provider's enabled scripts.
// Iteration for one event is sequential; separate events may be dispatched
// from different goroutines.
type Dispatcher struct {
	provider Provider
	logger   *slog.Logger
	slowHook time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSlowHookWarning logs a warning for hooks running longer than d.
// Zero disables the warning.
func WithSlowHookWarning(threshold time.Duration) Option {
	return func(d *Dispatcher) { d.slowHook = threshold }
}

// NewDispatcher creates a dispatcher over p.
func NewDispatcher(p Provider, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		provider: p,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// =============================================================================
// BROADCASTS
// =============================================================================

// Connect notifies scripts that networkID finished registration.
func (d *Dispatcher) Connect(networkID string) {
	for _, b := range d.provider.Bindings() {
		if fn := b.Hooks.OnConnect; fn != nil {
			d.invoke(b, HookConnect, func() { fn(networkID) })
		}
	}
}

// Message notifies scripts of an inbound message.
func (d *Dispatcher) Message(msg model.Message) {
	for _, b := range d.provider.Bindings() {
		if fn := b.Hooks.OnMessage; fn != nil {
			d.invoke(b, HookMessage, func() { fn(msg) })
		}
	}
}

// Join notifies scripts that nick joined channel.
func (d *Dispatcher) Join(channel, nick string, msg model.Message) {
	for _, b := range d.provider.Bindings() {
		if fn := b.Hooks.OnJoin; fn != nil {
			d.invoke(b, HookJoin, func() { fn(channel, nick, msg) })
		}
	}
}

// =============================================================================
// COMMAND CHAIN
// =============================================================================

// Command folds text through every enabled OnCommand hook. The only error
// is ctx's, checked between scripts; the Outcome then holds the text as far
// as the chain got.
func (d *Dispatcher) Command(ctx context.Context, text string, tab model.Tab) (Outcome, error) {
	out := Outcome{Text: text}
	for _, b := range d.provider.Bindings() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		fn := b.Hooks.OnCommand
		if fn == nil {
			continue
		}

		var res Result
		current := out.Text
		if !d.invoke(b, HookCommand, func() { res = fn(current, tab) }) {
			continue
		}

		switch res.Action {
		case ActionReplace:
			if res.Text != out.Text {
				d.logger.Debug("command rewritten", "script", b.ScriptID, "from", out.Text, "to", res.Text)
				out.RewrittenBy = append(out.RewrittenBy, b.ScriptID)
			}
			out.Text = res.Text
		case ActionCancel:
			out.Cancelled = true
			out.Reason = res.Reason
			out.CancelledBy = b.ScriptID
			d.logger.Info("command cancelled", "script", b.ScriptID, "reason", res.Reason)
			return out, nil
		}
	}
	return out, nil
}

// =============================================================================
// INVOCATION
// =============================================================================

// invoke runs call under the binding's guard. It reports false when the
// script was skipped or panicked.
func (d *Dispatcher) invoke(b Binding, hook string, call func()) (ok bool) {
	if b.Guard != nil {
		b.Guard.Lock()
		defer b.Guard.Unlock()
	}
	if !b.active() {
		return false
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := &HookRuntimeError{ScriptID: b.ScriptID, Hook: hook, Value: r}
			d.logger.Warn("script hook failed", "script", b.ScriptID, "hook", hook, "error", err)
			d.provider.RecordError(b.ScriptID, err)
			ok = false
		}
		if elapsed := time.Since(start); d.slowHook > 0 && elapsed > d.slowHook {
			d.logger.Warn("slow script hook", "script", b.ScriptID, "hook", hook, "elapsed", elapsed)
		}
	}()

	call()
	return true
}
