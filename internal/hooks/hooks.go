// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hooks

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/ircpipe/internal/model"
)

// =============================================================================
// HOOK NAMES
// =============================================================================

// Recognized hook names as exported by scripts.
const (
	HookConnect = "OnConnect"
	HookMessage = "OnMessage"
	HookJoin    = "OnJoin"
	HookCommand = "OnCommand"
)

// Names lists the recognized hooks in dispatch documentation order.
var Names = []string{HookConnect, HookMessage, HookJoin, HookCommand}

// =============================================================================
// RESULT
// =============================================================================

// Action is the verdict of a single OnCommand call.
type Action int

const (
	// ActionPass leaves the command unchanged.
	ActionPass Action = iota
	// ActionReplace substitutes Result.Text for the command.
	ActionReplace
	// ActionCancel stops the chain; the command is not sent.
	ActionCancel
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionPass:
		return "pass"
	case ActionReplace:
		return "replace"
	case ActionCancel:
		return "cancel"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Result is what a script's OnCommand returns. The zero value passes.
type Result struct {
	Action Action
	Text   string
	Reason string
}

// Pass returns a no-opinion result.
func Pass() Result { return Result{Action: ActionPass} }

// Replace returns a result that rewrites the command to text.
func Replace(text string) Result { return Result{Action: ActionReplace, Text: text} }

// Cancel returns a result that vetoes the command.
func Cancel(reason string) Result { return Result{Action: ActionCancel, Reason: reason} }

// FromString adapts a string-returning OnCommand: "" passes, anything else
// replaces.
func FromString(text string) Result {
	if text == "" {
		return Pass()
	}
	return Replace(text)
}

// =============================================================================
// HOOKS AND BINDINGS
// =============================================================================

// Hooks holds the hook functions one script provides. Nil fields are
// hooks the script does not implement.
type Hooks struct {
	OnConnect func(networkID string)
	OnMessage func(msg model.Message)
	OnJoin    func(channel, nick string, msg model.Message)
	OnCommand func(text string, tab model.Tab) Result
}

// Names returns the names of the implemented hooks.
func (h Hooks) Names() []string {
	var out []string
	if h.OnConnect != nil {
		out = append(out, HookConnect)
	}
	if h.OnMessage != nil {
		out = append(out, HookMessage)
	}
	if h.OnJoin != nil {
		out = append(out, HookJoin)
	}
	if h.OnCommand != nil {
		out = append(out, HookCommand)
	}
	return out
}

// Empty reports whether no hook is implemented.
func (h Hooks) Empty() bool {
	return h.OnConnect == nil && h.OnMessage == nil && h.OnJoin == nil && h.OnCommand == nil
}

// Binding ties a script's hooks to its identity for one dispatch.
type Binding struct {
	ScriptID string
	Hooks    Hooks

	// Guard serializes calls into the same script. An interpreter instance
	// must not be entered by two goroutines at once. Optional.
	Guard sync.Locker

	// Enabled is re-checked before every call so a script disabled mid
	// dispatch receives nothing further. Optional.
	Enabled func() bool
}

func (b Binding) active() bool {
	return b.Enabled == nil || b.Enabled()
}

// Provider supplies the enabled scripts and records their failures.
type Provider interface {
	// Bindings returns the enabled scripts in registration order.
	Bindings() []Binding

	// RecordError stores a hook failure on the script (last error + log).
	RecordError(scriptID string, err error)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrHookRuntime matches every *HookRuntimeError.
var ErrHookRuntime = errors.New("hook runtime error")

// HookRuntimeError is a panic raised by a script hook. It is contained by
// the dispatcher and never returned to pipeline callers.
type HookRuntimeError struct {
	ScriptID string
	Hook     string
	Value    any
}

func (e *HookRuntimeError) Error() string {
	return fmt.Sprintf("script %s: %s panicked: %v", e.ScriptID, e.Hook, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *HookRuntimeError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is matches ErrHookRuntime.
func (e *HookRuntimeError) Is(target error) bool {
	return target == ErrHookRuntime
}
