// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package alias

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ircpipe/internal/model"
	"github.com/jeranaias/ircpipe/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestStore_SetGetCaseInsensitive(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set(Alias{Trigger: "/WhoIs", Expansion: "/whois {nick}"}))

	a, ok := s.Get("whois")
	require.True(t, ok)
	assert.Equal(t, "WhoIs", a.Trigger)
	assert.Equal(t, "/WhoIs", a.Command())

	_, ok = s.Get("/WHOIS")
	assert.True(t, ok)
}

func TestStore_TriggersAreUnique(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set(Alias{Trigger: "hello", Expansion: "/say hi"}))
	require.NoError(t, s.Set(Alias{Trigger: "HELLO", Expansion: "/say Hello there!"}))

	require.Equal(t, 1, s.Len())
	a, _ := s.Get("hello")
	assert.Equal(t, "/say Hello there!", a.Expansion)
}

func TestStore_SetRejectsInvalid(t *testing.T) {
	s := NewStore()
	tests := []struct {
		name string
		in   Alias
		want error
	}{
		{"empty trigger", Alias{Trigger: "  ", Expansion: "/x"}, ErrInvalidTrigger},
		{"bare slash", Alias{Trigger: "/", Expansion: "/x"}, ErrInvalidTrigger},
		{"space in trigger", Alias{Trigger: "two words", Expansion: "/x"}, ErrInvalidTrigger},
		{"empty expansion", Alias{Trigger: "x", Expansion: " "}, ErrEmptyExpansion},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Set(tc.in), tc.want)
		})
	}
	assert.Equal(t, 0, s.Len())
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set(Alias{Trigger: "j", Expansion: "/join {args}"}))

	require.NoError(t, s.Remove("/J"))
	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.Remove("j"), ErrNotFound)
}

func TestStore_ListSorted(t *testing.T) {
	s := NewStore()
	for _, trig := range []string{"wi", "hello", "brb"} {
		require.NoError(t, s.Set(Alias{Trigger: trig, Expansion: "/say " + trig}))
	}

	var got []string
	for _, a := range s.List() {
		got = append(got, a.Trigger)
	}
	assert.Equal(t, []string{"brb", "hello", "wi"}, got)
}

func TestStore_Persistence(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewStore(WithPersistence(kv), WithLogger(quietLogger()))
	require.NoError(t, s.Set(Alias{Trigger: "hello", Expansion: "/say Hello there!", Description: "greet"}))
	require.NoError(t, s.Set(Alias{Trigger: "brb", Expansion: "/away brb"}))
	require.NoError(t, s.Remove("brb"))

	reloaded := NewStore(WithPersistence(kv), WithLogger(quietLogger()))
	require.Equal(t, 1, reloaded.Len())
	a, ok := reloaded.Get("hello")
	require.True(t, ok)
	assert.Equal(t, "greet", a.Description)
}

func TestStore_CorruptStateFailsOpen(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(storage.KeyAliases, []byte("{not json")))

	s := NewStore(WithPersistence(kv), WithLogger(quietLogger()))
	assert.Equal(t, 0, s.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(Alias{Trigger: "a", Expansion: "/say x"})
			_ = s.List()
			_, _, _ = s.Expand("/a", Context{})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestAlias_References(t *testing.T) {
	tests := []struct {
		expansion   string
		wantChannel bool
		wantNick    bool
	}{
		{"/whois {nick}", false, true},
		{"/msg NickServ identify", false, true},
		{"/CTCP {args} VERSION", false, true},
		{"/topic {channel} {args}", true, false},
		{"/mode {chan} +i", true, false},
		{"/join #go-nuts", true, false},
		{"/away brb", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.expansion, func(t *testing.T) {
			a := Alias{Trigger: "x", Expansion: tc.expansion}
			assert.Equal(t, tc.wantChannel, a.ReferencesChannel())
			assert.Equal(t, tc.wantNick, a.ReferencesNick())
		})
	}
}

// =============================================================================
// EXPANSION TESTS
// =============================================================================

func TestStore_Expand(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set(Alias{Trigger: "hello", Expansion: "/say Hello there!"}))
	require.NoError(t, s.Set(Alias{Trigger: "whois", Expansion: "/whois {nick}"}))
	require.NoError(t, s.Set(Alias{Trigger: "t", Expansion: "/topic {channel} {args}"}))
	require.NoError(t, s.Set(Alias{Trigger: "slap", Expansion: "/me slaps {args} around ({me} on {network})"}))

	channel := Context{Tab: model.ChannelTab("libera", "#go-nuts"), Nick: "gopher"}
	query := Context{Tab: model.QueryTab("libera", "alice"), Nick: "gopher"}

	tests := []struct {
		name  string
		input string
		ctx   Context
		want  string
		ok    bool
	}{
		{"plain", "/hello", channel, "/say Hello there!", true},
		{"case insensitive", "/HELLO", channel, "/say Hello there!", true},
		{"appends remaining text", "/hello  friends ", channel, "/say Hello there! friends", true},
		{"nick from query tab", "/whois", query, "/whois alice", true},
		{"channel and args", "/t new topic", channel, "/topic #go-nuts new topic", true},
		{"me and network", "/slap bob", channel, "/me slaps bob around (gopher on libera)", true},
		{"args are not rescanned", "/t {nick}", channel, "/topic #go-nuts {nick}", true},
		{"not an alias", "/join #go", channel, "/join #go", false},
		{"needs slash", "hello", channel, "hello", false},
		{"must be leading token", "say /hello", channel, "say /hello", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _, ok := s.Expand(tc.input, tc.ctx)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStore_ExpandSinglePass(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set(Alias{Trigger: "a", Expansion: "/b"}))
	require.NoError(t, s.Set(Alias{Trigger: "b", Expansion: "/say from b"}))
	require.NoError(t, s.Set(Alias{Trigger: "loop", Expansion: "/loop"}))

	got, a, ok := s.Expand("/a", Context{})
	require.True(t, ok)
	assert.Equal(t, "a", a.Trigger)
	assert.Equal(t, "/b", got)

	got, _, ok = s.Expand("/loop", Context{})
	require.True(t, ok)
	assert.Equal(t, "/loop", got)
}
