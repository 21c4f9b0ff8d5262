// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ircpipe/internal/alias"
	"github.com/jeranaias/ircpipe/internal/model"
	"github.com/jeranaias/ircpipe/internal/transport"
)

func runREPL(t *testing.T, app *App, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := NewPlainReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, NewREPL(app, in, &out, true).Run(context.Background()))
	return out.String()
}

func TestREPL_SubmitsThroughPipeline(t *testing.T) {
	app, rec := newTestApp(t)
	require.NoError(t, app.Aliases.Set(alias.Alias{Trigger: "hi", Expansion: "/say hello {channel}"}))

	runREPL(t, app, "/hi", "plain text", "   ", "/join #rust")

	assert.Equal(t, []string{"/say hello #go", "plain text", "/join #rust"}, rec.Lines())
	assert.Equal(t, 3, app.History.Len())
	assert.True(t, app.Session.InChannel("libera", "#rust"), "dispatched /join is tracked")
}

func TestREPL_ShowsCancellation(t *testing.T) {
	app, rec := newTestApp(t)
	installEnabled(t, app, "guard", guardScript)

	out := runREPL(t, app, "/msg nickserv identify hunter2")

	assert.Empty(t, rec.Lines())
	assert.Contains(t, out, "[command cancelled by guard: looks like a password]")
	assert.Equal(t, 0, app.History.Len())
}

func TestREPL_QuitStopsReading(t *testing.T) {
	app, rec := newTestApp(t)

	runREPL(t, app, "first", ":q", "never sent")

	assert.Equal(t, []string{"first"}, rec.Lines())
}

func TestREPL_InboundEventsReachScripts(t *testing.T) {
	app, rec := newTestApp(t)
	installEnabled(t, app, "greeter", greeterScript)

	out := runREPL(t, app,
		":connect libera",
		":join #go",
		":join #go alice",
		":recv alice #go hi all",
	)

	assert.Contains(t, out, "<alice> hi all")
	// our own join is ignored by the script
	assert.Equal(t, []string{"/msg #go welcome, alice"}, rec.Lines())
	assert.True(t, app.Session.Connected("libera"))
	assert.Equal(t, model.ChannelTab("libera", "#go"), app.Session.ActiveTab())

	logs, err := app.Scripts.Logs("greeter")
	require.NoError(t, err)
	joined := strings.Join(logs, "\n")
	assert.Contains(t, joined, "connected to libera")
	assert.Contains(t, joined, "heard alice: hi all")
}

func TestREPL_MetaCommands(t *testing.T) {
	app, rec := newTestApp(t)

	out := runREPL(t, app,
		":alias w /whois",
		":tab oftc/alice",
		"/w bob",
		":aliases",
		":unalias w",
		":history",
		":nick gopher_",
		":status",
		":scripts",
	)

	assert.Equal(t, []transport.Sent{{NetworkID: "oftc", Target: "alice", Line: "/whois bob"}}, rec.Sent())
	assert.Equal(t, 0, app.Aliases.Len())
	// meta commands act on the active tab's network
	assert.Equal(t, "gopher_", app.Session.Nick("oftc"))
	assert.Equal(t, "gopher", app.Session.Nick("libera"))
	assert.Contains(t, out, "/w")
	assert.Contains(t, out, "/whois bob")
	assert.Contains(t, out, "no scripts installed")
}

func TestREPL_MetaErrors(t *testing.T) {
	app, _ := newTestApp(t)

	out := runREPL(t, app, ":jion #go", ":frobnicate", ":", ":enable nope", ":recv alice")

	assert.Contains(t, out, "did you mean :join?")
	assert.Contains(t, out, "unknown meta command :frobnicate, try :help")
	assert.Contains(t, out, "empty meta command")
	assert.Contains(t, out, `script "nope" not found`)
	assert.Contains(t, out, "usage: :recv")
}

func TestREPL_InstallFromFile(t *testing.T) {
	app, _ := newTestApp(t)
	path := writeFile(t, "guard.go", guardScript)

	out := runREPL(t, app, ":install "+path+" password guard")

	require.Equal(t, 1, app.Scripts.Len())
	s := app.Scripts.List()[0]
	assert.Equal(t, "password guard", s.Name)
	assert.False(t, s.Enabled)
	assert.Contains(t, out, ":enable "+s.ID)

	bad := writeFile(t, "bad.go", "package main\n\nfunc OnJoin(channel string) {}\n")
	out = runREPL(t, app, ":install "+bad)
	assert.Contains(t, out, "3:6: error: OnJoin has signature")
	assert.Equal(t, 1, app.Scripts.Len())
}

func TestREPL_Complete(t *testing.T) {
	app, _ := newTestApp(t)
	require.NoError(t, app.Aliases.Set(alias.Alias{Trigger: "whois", Expansion: "/quote WHOIS {args}"}))
	r := NewREPL(app, NewPlainReader(strings.NewReader("")), &bytes.Buffer{}, true)

	assert.Contains(t, r.complete("/wh"), "/whois")
	assert.Equal(t, []string{":help "}, r.complete(":he"))
	assert.ElementsMatch(t, []string{":disable ", ":disconnect "}, r.complete(":dis"))
}

func TestSplitCommand(t *testing.T) {
	cmd, rest := splitCommand("/JOIN #go key")
	assert.Equal(t, "join", cmd)
	assert.Equal(t, "#go key", rest)

	cmd, rest = splitCommand("hello there")
	assert.Equal(t, "hello", cmd)
	assert.Equal(t, "there", rest)
}
