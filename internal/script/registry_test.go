// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traefik/yaegi/interp"

	"github.com/jeranaias/ircpipe/internal/hooks"
	"github.com/jeranaias/ircpipe/internal/model"
	"github.com/jeranaias/ircpipe/internal/storage"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCompiler maps source text to hook builders and counts compilations.
// Source "bad" fails to compile.
type fakeCompiler struct {
	calls    atomic.Int32
	mu       sync.Mutex
	builders map[string]func(api interp.Exports) hooks.Hooks
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{builders: map[string]func(interp.Exports) hooks.Hooks{}}
}

func (f *fakeCompiler) define(source string, build func(api interp.Exports) hooks.Hooks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[source] = build
}

func (f *fakeCompiler) compile(source string, api interp.Exports) (hooks.Hooks, error) {
	f.calls.Add(1)
	if source == "bad" {
		return hooks.Hooks{}, &ParseError{Diagnostics: []Diagnostic{{Line: 1, Column: 1, Severity: SeverityError, Message: "bad"}}}
	}
	f.mu.Lock()
	build := f.builders[source]
	f.mu.Unlock()
	if build != nil {
		return build(api), nil
	}
	return hooks.Hooks{OnCommand: func(string, model.Tab) hooks.Result { return hooks.Pass() }}, nil
}

// capability fetches one irc function from the exports handed to a compiler.
func capability[T any](api interp.Exports, name string) T {
	return api[apiImportPath+"/"+apiImportPath][name].Interface().(T)
}

type sent struct {
	network, target, text string
}

// fakeHost records sends.
type fakeHost struct {
	mu   sync.Mutex
	sent []sent
	fail error
}

func (h *fakeHost) SendMessage(network, channel, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sent{network, channel, text})
	return h.fail
}

func (h *fakeHost) SendCommand(network, command string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sent{network, "", command})
	return h.fail
}

func (h *fakeHost) UserNick(network string) string { return "gopher@" + network }
func (h *fakeHost) DefaultNetwork() string { return "libera" }

func newRegistry(t *testing.T, fc *fakeCompiler, opts ...Option) *Registry {
	t.Helper()
	base := []Option{WithCompiler(fc.compile), WithLogger(quietLogger())}
	return NewRegistry(append(base, opts...)...)
}

func bindingIDs(r *Registry) []string {
	var ids []string
	for _, b := range r.Bindings() {
		ids = append(ids, b.ScriptID)
	}
	return ids
}

// =============================================================================
// INSTALL TESTS
// =============================================================================

func TestInstall_StartsDisabled(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())

	s, err := r.Install("ok", json.RawMessage(`{"limit":3}`))
	require.NoError(t, err)
	_, err = uuid.Parse(s.ID)
	assert.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.Equal(t, []string{hooks.HookCommand}, s.Hooks)
	assert.JSONEq(t, `{"limit":3}`, string(s.Config))
	assert.Empty(t, r.Bindings())
}

func TestInstall_ParseErrorRegistersNothing(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())

	_, err := r.Install("bad", nil)
	require.ErrorIs(t, err, ErrParse)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Diagnostics[0].Line)
	assert.Equal(t, 0, r.Len())
}

func TestInstall_InvalidConfig(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())
	_, err := r.Install("ok", json.RawMessage(`{nope`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInstallNamed_DuplicateID(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())
	_, err := r.InstallNamed("greeter", "greeter.go", "ok", nil)
	require.NoError(t, err)

	_, err = r.InstallNamed("greeter", "greeter.go", "ok", nil)
	assert.ErrorIs(t, err, ErrExists)

	_, err = r.InstallNamed("  ", "", "ok", nil)
	assert.ErrorIs(t, err, ErrInvalidID)
}

// =============================================================================
// ENABLE / DISABLE TESTS
// =============================================================================

func TestSetEnabled_UnknownID(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())
	err := r.SetEnabled("missing", true)

	require.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
}

func TestSetEnabled_Idempotent(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())
	s, err := r.Install("ok", nil)
	require.NoError(t, err)

	require.NoError(t, r.SetEnabled(s.ID, true))
	require.NoError(t, r.SetEnabled(s.ID, true))
	assert.Equal(t, []string{s.ID}, bindingIDs(r))

	require.NoError(t, r.SetEnabled(s.ID, false))
	require.NoError(t, r.SetEnabled(s.ID, false))
	assert.Empty(t, bindingIDs(r))
}

func TestSetEnabled_ReenableDoesNotRecompile(t *testing.T) {
	fc := newFakeCompiler()
	var calls atomic.Int32
	fc.define("counter", func(interp.Exports) hooks.Hooks {
		return hooks.Hooks{OnConnect: func(string) { calls.Add(1) }}
	})
	r := newRegistry(t, fc)
	d := hooks.NewDispatcher(r, hooks.WithLogger(quietLogger()))

	s, err := r.Install("counter", nil)
	require.NoError(t, err)
	require.NoError(t, r.SetEnabled(s.ID, true))
	d.Connect("libera")

	require.NoError(t, r.SetEnabled(s.ID, false))
	d.Connect("libera")

	require.NoError(t, r.SetEnabled(s.ID, true))
	d.Connect("libera")

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), fc.calls.Load())
}

func TestBindings_RegistrationOrder(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())
	var ids []string
	for i := 0; i < 4; i++ {
		s, err := r.InstallNamed(fmt.Sprintf("s%d", i), "", "ok", nil)
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	for _, id := range []string{"s3", "s0", "s2"} {
		require.NoError(t, r.SetEnabled(id, true))
	}

	assert.Equal(t, []string{"s0", "s2", "s3"}, bindingIDs(r))

	var listed []string
	for _, s := range r.List() {
		listed = append(listed, s.ID)
	}
	assert.Equal(t, ids, listed)
}

// =============================================================================
// LOG TESTS
// =============================================================================

func TestLogs_BoundedAndIndependent(t *testing.T) {
	r := newRegistry(t, newFakeCompiler(), WithLogBufferSize(3))
	a, err := r.Install("ok", nil)
	require.NoError(t, err)
	b, err := r.Install("ok", nil)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, r.AppendLog(a.ID, fmt.Sprintf("a%d", i)))
	}
	require.NoError(t, r.AppendLog(b.ID, "b1"))

	logs, err := r.Logs(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a4", "a5"}, logs)

	logs, err = r.Logs(b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, logs)

	assert.ErrorIs(t, r.AppendLog("missing", "x"), ErrNotFound)
}

func TestRingLog(t *testing.T) {
	l := newRingLog(2)
	assert.Empty(t, l.snapshot())
	l.append("one")
	l.append("two")
	l.append("three")
	assert.Equal(t, []string{"two", "three"}, l.snapshot())

	assert.Len(t, newRingLog(0).lines, DefaultLogBufferSize)
}

func TestRecordError(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())
	s, err := r.Install("ok", nil)
	require.NoError(t, err)

	r.RecordError(s.ID, &hooks.HookRuntimeError{ScriptID: s.ID, Hook: hooks.HookJoin, Value: "boom"})
	r.RecordError("missing", errors.New("ignored"))

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Contains(t, got.LastError, "OnJoin panicked: boom")
	logs, _ := r.Logs(s.ID)
	require.Len(t, logs, 1)
	assert.True(t, strings.HasPrefix(logs[0], "error: "))
}

// =============================================================================
// REMOVE / REPLACE TESTS
// =============================================================================

func TestRemove(t *testing.T) {
	r := newRegistry(t, newFakeCompiler())
	s, err := r.Install("ok", nil)
	require.NoError(t, err)
	require.NoError(t, r.SetEnabled(s.ID, true))
	require.NoError(t, r.AppendLog(s.ID, "hello"))

	require.NoError(t, r.Remove(s.ID))
	assert.Empty(t, r.Bindings())
	_, err = r.Logs(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Remove(s.ID), ErrNotFound)
}

func TestReplace_KeepsStateAndSwapsHooks(t *testing.T) {
	fc := newFakeCompiler()
	fc.define("v1", func(interp.Exports) hooks.Hooks {
		return hooks.Hooks{OnCommand: func(string, model.Tab) hooks.Result { return hooks.Replace("/v1") }}
	})
	fc.define("v2", func(interp.Exports) hooks.Hooks {
		return hooks.Hooks{OnCommand: func(string, model.Tab) hooks.Result { return hooks.Replace("/v2") }}
	})
	r := newRegistry(t, fc)
	s, err := r.Install("v1", json.RawMessage(`"cfg"`))
	require.NoError(t, err)
	require.NoError(t, r.SetEnabled(s.ID, true))
	require.NoError(t, r.AppendLog(s.ID, "before"))

	_, err = r.Replace(s.ID, "bad")
	require.ErrorIs(t, err, ErrParse)
	assert.Equal(t, "/v1", r.Bindings()[0].Hooks.OnCommand("", model.Tab{}).Text)

	got, err := r.Replace(s.ID, "v2")
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.JSONEq(t, `"cfg"`, string(got.Config))
	assert.Equal(t, "/v2", r.Bindings()[0].Hooks.OnCommand("", model.Tab{}).Text)

	logs, _ := r.Logs(s.ID)
	assert.Equal(t, []string{"before", "reloaded"}, logs)

	_, err = r.Replace("missing", "v2")
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// CAPABILITY TESTS
// =============================================================================

func TestCapabilities(t *testing.T) {
	fc := newFakeCompiler()
	var api interp.Exports
	fc.define("api", func(ex interp.Exports) hooks.Hooks {
		api = ex
		return hooks.Hooks{OnConnect: func(string) {}}
	})
	host := &fakeHost{}
	r := newRegistry(t, fc, WithHost(host))
	s, err := r.Install("api", json.RawMessage(`{"greeting":"hi","n":2}`))
	require.NoError(t, err)

	capability[func(string)](api, "Log")("from script")
	logs, _ := r.Logs(s.ID)
	assert.Equal(t, []string{"from script"}, logs)

	send := capability[func(string, string, ...string) error](api, "SendMessage")
	require.NoError(t, send("#go", "hello"))
	require.NoError(t, send("#rust", "hola", "oftc"))
	cmd := capability[func(string, ...string) error](api, "SendCommand")
	require.NoError(t, cmd("WHOIS alice"))
	assert.Equal(t, []sent{
		{"libera", "#go", "hello"},
		{"oftc", "#rust", "hola"},
		{"libera", "", "WHOIS alice"},
	}, host.sent)

	nick := capability[func(...string) string](api, "UserNick")
	assert.Equal(t, "gopher@libera", nick())
	assert.Equal(t, "gopher@oftc", nick("oftc"))

	cfg := capability[func() any](api, "GetConfig")()
	assert.Equal(t, map[string]any{"greeting": "hi", "n": float64(2)}, cfg)

	require.NoError(t, r.SetConfig(s.ID, nil))
	assert.Nil(t, capability[func() any](api, "GetConfig")())
	assert.ErrorIs(t, r.SetConfig(s.ID, json.RawMessage("{")), ErrInvalidConfig)
}

func TestCapabilities_DuringFirstCompile(t *testing.T) {
	fc := newFakeCompiler()
	var seenConfig any
	fc.define("boot", func(api interp.Exports) hooks.Hooks {
		capability[func(string)](api, "Log")("booting")
		seenConfig = capability[func() any](api, "GetConfig")()
		return hooks.Hooks{OnConnect: func(string) {}}
	})
	kv := storage.NewMemoryStore()
	r := newRegistry(t, fc, WithPersistence(kv))

	s, err := r.Install("boot", json.RawMessage(`{"mode":"quiet"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mode": "quiet"}, seenConfig)
	logs, err := r.Logs(s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"booting"}, logs)

	// Restoring compiles again and keeps the init lines too.
	restored := newRegistry(t, fc, WithPersistence(kv))
	logs, err = restored.Logs(s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"booting"}, logs)
}

func TestCapabilities_NoHost(t *testing.T) {
	fc := newFakeCompiler()
	var api interp.Exports
	fc.define("api", func(ex interp.Exports) hooks.Hooks { api = ex; return hooks.Hooks{} })
	r := newRegistry(t, fc)
	_, err := r.Install("api", nil)
	require.NoError(t, err)

	err = capability[func(string, string, ...string) error](api, "SendMessage")("#go", "x")
	assert.ErrorIs(t, err, ErrNoHost)
	assert.Equal(t, "", capability[func(...string) string](api, "UserNick")())
}

func TestCapabilities_SpamKill(t *testing.T) {
	fc := newFakeCompiler()
	var api interp.Exports
	fc.define("spammer", func(ex interp.Exports) hooks.Hooks {
		api = ex
		return hooks.Hooks{OnConnect: func(string) {}}
	})
	host := &fakeHost{}
	r := newRegistry(t, fc, WithHost(host), WithSendLimit(0.001, 2, true))
	s, err := r.Install("spammer", nil)
	require.NoError(t, err)
	require.NoError(t, r.SetEnabled(s.ID, true))

	send := capability[func(string, ...string) error](api, "SendCommand")
	require.NoError(t, send("PING a"))
	require.NoError(t, send("PING b"))
	assert.ErrorIs(t, send("PING c"), ErrRateLimited)

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Contains(t, got.LastError, "rate")
	assert.Len(t, host.sent, 2)
	assert.Empty(t, r.Bindings())
}

// =============================================================================
// PERSISTENCE TESTS
// =============================================================================

func TestPersistence_RestoresScripts(t *testing.T) {
	kv := storage.NewMemoryStore()
	fc := newFakeCompiler()
	r := newRegistry(t, fc, WithPersistence(kv))

	a, err := r.InstallNamed("a", "a.go", "ok", json.RawMessage(`[1,2]`))
	require.NoError(t, err)
	_, err = r.InstallNamed("b", "b.go", "ok", nil)
	require.NoError(t, err)
	require.NoError(t, r.SetEnabled(a.ID, true))
	require.NoError(t, r.AppendLog(a.ID, "transient"))

	restored := newRegistry(t, fc, WithPersistence(kv))
	list := restored.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.True(t, list[0].Enabled)
	assert.JSONEq(t, `[1,2]`, string(list[0].Config))
	assert.Equal(t, "b", list[1].ID)
	assert.False(t, list[1].Enabled)
	assert.Equal(t, []string{"a"}, bindingIDs(restored))

	logs, err := restored.Logs("a")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestPersistence_BrokenStoredScriptIsDisabled(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(storage.KeyScripts,
		[]byte(`[{"id":"x","source":"bad","enabled":true,"installed_at":"2025-01-01T00:00:00Z"}]`)))

	r := newRegistry(t, newFakeCompiler(), WithPersistence(kv))
	s, err := r.Get("x")
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.Contains(t, s.LastError, "bad")
	assert.Empty(t, r.Bindings())
}

func TestPersistence_CorruptStateFailsOpen(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(storage.KeyScripts, []byte(`{{{`)))

	r := newRegistry(t, newFakeCompiler(), WithPersistence(kv))
	assert.Equal(t, 0, r.Len())
}
