// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ircpipe/internal/alias"
	"github.com/jeranaias/ircpipe/internal/config"
	"github.com/jeranaias/ircpipe/internal/script"
	"github.com/jeranaias/ircpipe/internal/storage"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"list", "--limit", "50"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "50", p.Flag("limit"))
				assert.Equal(t, 50, p.FlagIntOrDefault("limit", 20))
				assert.Equal(t, 1, p.PositionalCount())
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"set", "--desc=greet people"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "greet people", p.Flag("desc"))
			},
		},
		{
			name:    "trailing boolean flag",
			args:    []string{"install", "guard.go", "--enable"},
			wantSub: "install",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("enable"))
				assert.Equal(t, "guard.go", p.Positional(1))
			},
		},
		{
			name:    "declared boolean never takes a value",
			args:    []string{"install", "--enable", "guard.go"},
			bools:   []string{"enable"},
			wantSub: "install",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("enable"))
				assert.Equal(t, "guard.go", p.Positional(1))
				assert.Empty(t, p.Flag("enable"))
			},
		},
		{
			name:    "slash commands are positional",
			args:    []string{"set", "w", "/whois", "{1}"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "/whois {1}", JoinPositionalArgs(p, 2))
			},
		},
		{
			name:    "negative numbers are values",
			args:    []string{"list", "--limit", "-1"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, -1, p.FlagIntOrDefault("limit", 20))
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"set", "neg", "--", "--not-a-flag", "x"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, []string{"neg", "--not-a-flag", "x"}, p.PositionalFrom(1)[0:3])
				assert.False(t, p.HasFlag("not-a-flag"))
			},
		},
		{
			name:    "no arguments",
			args:    nil,
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "", p.Positional(0))
				assert.Empty(t, p.PositionalFrom(3))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "on", "1"} {
		b, err := ParseBoolString(s)
		assert.NoError(t, err, s)
		assert.True(t, b, s)
	}
	for _, s := range []string{"false", "no", "OFF", "0"} {
		b, err := ParseBoolString(s)
		assert.NoError(t, err, s)
		assert.False(t, b, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		argv    []string
		want    Command
		wantRaw []string
	}{
		{nil, CmdChat, nil},
		{[]string{"chat"}, CmdChat, []string{}},
		{[]string{"repl"}, CmdChat, []string{}},
		{[]string{"complete", "/wh"}, CmdSuggest, []string{"/wh"}},
		{[]string{"aliases", "list"}, CmdAlias, []string{"list"}},
		{[]string{"hist", "clear"}, CmdHistory, []string{"clear"}},
		{[]string{"scripts"}, CmdScript, []string{}},
		{[]string{"config", "get", "identity.nick"}, CmdConfig, []string{"get", "identity.nick"}},
		{[]string{"info"}, CmdStatus, []string{}},
		{[]string{"--version"}, CmdVersion, []string{}},
		{[]string{"-h"}, CmdHelp, []string{}},
		{[]string{"alais"}, CmdUnknown, []string{}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, "_"), func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.want, cmd)
			if tt.wantRaw != nil {
				assert.Equal(t, tt.wantRaw, args.Raw)
			}
		})
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	cmd, args := Parse([]string{"--json", "-q", "--config", "/tmp/x.toml", "--nick=gopher", "--network", "oftc", "alias", "set", "w", "/whois", "--json"})

	assert.Equal(t, CmdAlias, cmd)
	assert.True(t, args.JSON)
	assert.True(t, args.Quiet)
	assert.Equal(t, "/tmp/x.toml", args.ConfigPath)
	assert.Equal(t, "gopher", args.Nick)
	assert.Equal(t, "oftc", args.Network)
	// flags after the command word belong to the command
	assert.Equal(t, []string{"set", "w", "/whois", "--json"}, args.Raw)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "chat", CmdChat.String())
	assert.Equal(t, "status", CmdStatus.String())
	assert.Equal(t, "unknown", Command(99).String())
}

func TestSuggestCommand(t *testing.T) {
	tests := map[string]string{
		"alais":   "alias",
		"hepl":    "help",
		"hlep":    "help",
		"stauts":  "status",
		"cofnig":  "config",
		"scirpt":  "script",
		"histroy": "history",
		"SUGEST":  "suggest",
		"alias":   "",
		"x":       "",
		"zzzzzz":  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SuggestCommand(in), in)
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"help", "help", 0},
		{"hepl", "help", 1},
		{"hepl", "repl", 1},
		{"abcd", "badc", 2},
		{"kitten", "sitting", 3},
		{"ca", "abc", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistance(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
	}
}

func TestHandleUnknown(t *testing.T) {
	err := HandleUnknown(Args{Name: "scirpt"})

	var v *ValidationError
	assert.True(t, errors.As(err, &v))
	assert.Contains(t, err.Error(), `did you mean "script"?`)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestPrintUsageAndVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "ircpipe script install")

	buf.Reset()
	assert.NoError(t, HandleVersion(&buf, Args{JSON: true}))
	assert.Contains(t, buf.String(), `"version": "`+Version+`"`)
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", ErrMissingArgument("id", "x"), ExitUsageError},
		{"bad trigger", fmt.Errorf("set: %w", alias.ErrInvalidTrigger), ExitUsageError},
		{"bad script config", script.ErrInvalidConfig, ExitUsageError},
		{"config", config.ValidateErrors{{Field: "storage.backend", Message: "unknown"}}, ExitConfigError},
		{"storage", &storage.StorageError{Op: "get", Key: "aliases", Err: errors.New("locked")}, ExitStorageError},
		{"parse", &script.ParseError{}, ExitScriptError},
		{"script missing", &script.NotFoundError{ID: "x"}, ExitNotFoundError},
		{"alias missing", alias.ErrNotFound, ExitNotFoundError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	perr := &script.ParseError{Diagnostics: []script.Diagnostic{
		{Line: 3, Column: 6, Severity: script.SeverityError, Message: "undefined: missing"},
	}}

	var buf bytes.Buffer
	DisplayError(&buf, perr, false)
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "3:6: error: undefined: missing")

	buf.Reset()
	DisplayError(&buf, ErrMissingArgument("id", "ircpipe script rm <id>"), true)
	assert.Contains(t, buf.String(), `"error_type": "validation_error"`)
	assert.Contains(t, buf.String(), `"example": "ircpipe script rm <id>"`)

	buf.Reset()
	DisplayError(&buf, nil, false)
	assert.Empty(t, buf.String())
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ctx"))
	err := WrapError(alias.ErrNotFound, "remove")
	assert.ErrorIs(t, err, alias.ErrNotFound)
	assert.Equal(t, "remove: alias not found", err.Error())
}

func TestJSONResponse_KeepsAngleBrackets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONResponse("alias", map[string]string{"usage": "ircpipe alias rm <trigger> && retry"}).Print(&buf))
	assert.Contains(t, buf.String(), `"usage": "ircpipe alias rm <trigger> && retry"`)
	assert.NotContains(t, buf.String(), `\u003c`)

	buf.Reset()
	require.NoError(t, NewJSONErrorResponse("script", errors.New("expected <id>")).Print(&buf))
	assert.Contains(t, buf.String(), `"error": "expected <id>"`)
}
