// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ircpipe/internal/model"
)

// fakeProvider is an in-memory Provider.
type fakeProvider struct {
	mu       sync.Mutex
	bindings []Binding
	errs     map[string][]error
}

func (p *fakeProvider) add(id string, h Hooks) {
	p.bindings = append(p.bindings, Binding{ScriptID: id, Hooks: h, Guard: &sync.Mutex{}})
}

func (p *fakeProvider) Bindings() []Binding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Binding(nil), p.bindings...)
}

func (p *fakeProvider) RecordError(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.errs == nil {
		p.errs = map[string][]error{}
	}
	p.errs[id] = append(p.errs[id], err)
}

func newDispatcher(p Provider) *Dispatcher {
	return NewDispatcher(p, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

var tab = model.ChannelTab("libera", "#go-nuts")

// =============================================================================
// RESULT TESTS
// =============================================================================

func TestResultConstructors(t *testing.T) {
	assert.Equal(t, Result{}, Pass())
	assert.Equal(t, ActionReplace, Replace("x").Action)
	assert.Equal(t, "spam", Cancel("spam").Reason)
	assert.Equal(t, Pass(), FromString(""))
	assert.Equal(t, Replace("/say x"), FromString("/say x"))
	assert.Equal(t, "cancel", ActionCancel.String())
}

func TestHooks_Names(t *testing.T) {
	h := Hooks{
		OnJoin:    func(string, string, model.Message) {},
		OnCommand: func(string, model.Tab) Result { return Pass() },
	}
	assert.Equal(t, []string{HookJoin, HookCommand}, h.Names())
	assert.False(t, h.Empty())
	assert.True(t, Hooks{}.Empty())
}

// =============================================================================
// COMMAND CHAIN TESTS
// =============================================================================

func TestCommand_NoScripts(t *testing.T) {
	out, err := newDispatcher(&fakeProvider{}).Command(context.Background(), "/say hi", tab)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Text: "/say hi"}, out)
}

func TestCommand_ChainedRewrites(t *testing.T) {
	p := &fakeProvider{}
	p.add("upper", Hooks{OnCommand: func(text string, _ model.Tab) Result {
		return Replace(strings.ToUpper(text))
	}})
	p.add("passive", Hooks{OnCommand: func(string, model.Tab) Result { return Pass() }})
	p.add("suffix", Hooks{OnCommand: func(text string, _ model.Tab) Result {
		return Replace(text + "!")
	}})

	out, err := newDispatcher(p).Command(context.Background(), "/say hi", tab)
	require.NoError(t, err)
	assert.Equal(t, "/SAY HI!", out.Text)
	assert.False(t, out.Cancelled)
	assert.Equal(t, []string{"upper", "suffix"}, out.RewrittenBy)
}

func TestCommand_CancelShortCircuits(t *testing.T) {
	var s3Calls int32
	p := &fakeProvider{}
	p.add("s1", Hooks{OnCommand: func(text string, _ model.Tab) Result {
		return Replace(text + " [s1]")
	}})
	p.add("s2", Hooks{OnCommand: func(string, model.Tab) Result {
		return Cancel("blocked")
	}})
	p.add("s3", Hooks{OnCommand: func(text string, _ model.Tab) Result {
		atomic.AddInt32(&s3Calls, 1)
		return Replace("/say s3 was here")
	}})

	out, err := newDispatcher(p).Command(context.Background(), "/say hi", tab)
	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	assert.Equal(t, "/say hi [s1]", out.Text)
	assert.Equal(t, "s2", out.CancelledBy)
	assert.Equal(t, "blocked", out.Reason)
	assert.Zero(t, atomic.LoadInt32(&s3Calls))
}

func TestCommand_PanicPassesThrough(t *testing.T) {
	p := &fakeProvider{}
	p.add("bad", Hooks{OnCommand: func(string, model.Tab) Result { panic("boom") }})
	p.add("good", Hooks{OnCommand: func(text string, _ model.Tab) Result {
		return Replace(text + " ok")
	}})

	out, err := newDispatcher(p).Command(context.Background(), "/say hi", tab)
	require.NoError(t, err)
	assert.Equal(t, "/say hi ok", out.Text)

	require.Len(t, p.errs["bad"], 1)
	var hre *HookRuntimeError
	require.ErrorAs(t, p.errs["bad"][0], &hre)
	assert.Equal(t, HookCommand, hre.Hook)
	assert.Equal(t, "boom", hre.Value)
	assert.ErrorIs(t, hre, ErrHookRuntime)
	assert.Empty(t, p.errs["good"])
}

func TestCommand_ReceivesTab(t *testing.T) {
	var got model.Tab
	p := &fakeProvider{}
	p.add("s", Hooks{OnCommand: func(_ string, tb model.Tab) Result { got = tb; return Pass() }})

	_, err := newDispatcher(p).Command(context.Background(), "/x", tab)
	require.NoError(t, err)
	assert.Equal(t, tab, got)
}

func TestCommand_ContextCancelled(t *testing.T) {
	p := &fakeProvider{}
	p.add("s", Hooks{OnCommand: func(string, model.Tab) Result { return Replace("/changed") }})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := newDispatcher(p).Command(ctx, "/x", tab)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "/x", out.Text)
}

func TestCommand_SkipsDisabledMidChain(t *testing.T) {
	var enabled atomic.Bool
	enabled.Store(true)
	p := &fakeProvider{}
	p.add("killer", Hooks{OnCommand: func(string, model.Tab) Result {
		enabled.Store(false)
		return Pass()
	}})
	p.bindings = append(p.bindings, Binding{
		ScriptID: "victim",
		Hooks:    Hooks{OnCommand: func(string, model.Tab) Result { return Cancel("should not run") }},
		Enabled:  enabled.Load,
	})

	out, err := newDispatcher(p).Command(context.Background(), "/x", tab)
	require.NoError(t, err)
	assert.False(t, out.Cancelled)
}

// =============================================================================
// BROADCAST TESTS
// =============================================================================

func TestBroadcasts_RegistrationOrderAndIsolation(t *testing.T) {
	var order []string
	p := &fakeProvider{}
	p.add("a", Hooks{
		OnConnect: func(net string) { order = append(order, "a:connect:"+net) },
		OnJoin:    func(ch, nick string, _ model.Message) { order = append(order, "a:join:"+ch+":"+nick) },
	})
	p.add("b", Hooks{
		OnConnect: func(string) { panic(errors.New("b failed")) },
		OnMessage: func(m model.Message) { order = append(order, "b:msg:"+m.Text) },
	})
	p.add("c", Hooks{
		OnConnect: func(net string) { order = append(order, "c:connect:"+net) },
	})

	d := newDispatcher(p)
	d.Connect("libera")
	d.Message(model.Message{NetworkID: "libera", From: "alice", Target: "#go", Text: "hi"})
	d.Join("#go", "bob", model.Message{Command: "JOIN"})

	assert.Equal(t, []string{
		"a:connect:libera",
		"c:connect:libera",
		"b:msg:hi",
		"a:join:#go:bob",
	}, order)

	require.Len(t, p.errs["b"], 1)
	assert.EqualError(t, errors.Unwrap(p.errs["b"][0]), "b failed")
}

func TestBroadcasts_GuardSerializesScript(t *testing.T) {
	var inside, maxInside int32
	p := &fakeProvider{}
	p.add("s", Hooks{
		OnMessage: func(model.Message) {
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			atomic.AddInt32(&inside, -1)
		},
		OnCommand: func(text string, _ model.Tab) Result {
			atomic.AddInt32(&inside, 1)
			defer atomic.AddInt32(&inside, -1)
			return Pass()
		},
	})

	d := newDispatcher(p)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); d.Message(model.Message{Text: "x"}) }()
		go func() { defer wg.Done(); _, _ = d.Command(context.Background(), "/x", tab) }()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}
