// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and top-level command routing for ircpipe.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdSuggest
	CmdAlias
	CmdHistory
	CmdScript
	CmdConfig
	CmdStatus
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdChat:
		return "chat"
	case CmdSuggest:
		return "suggest"
	case CmdAlias:
		return "alias"
	case CmdHistory:
		return "history"
	case CmdScript:
		return "script"
	case CmdConfig:
		return "config"
	case CmdStatus:
		return "status"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool
	ConfigPath string
	Nick       string
	Network    string

	// Name is the command word as typed, kept for "did you mean".
	Name string

	// Raw holds the arguments after the command word.
	Raw []string
}

const usageText = `ircpipe - IRC command pipeline with aliases, suggestions and script hooks

Usage:
  ircpipe [global flags] <command> [args]

Commands:
  chat                          Interactive session (default)
  suggest <input> [--tab T]     Show ranked suggestions for partial input
  alias [list|set|rm]           Manage command aliases
  history [list|clear]          Show or clear submitted commands
  script <subcommand>           Manage hook scripts
  config [show|get|set|keys]    Show or change configuration
  status                        Summarize state and scripts
  version                       Show version
  help                          Show this help

Alias commands:
  ircpipe alias list
  ircpipe alias set <trigger> <expansion...> [--desc TEXT]
  ircpipe alias rm <trigger>

Script commands:
  ircpipe script list
  ircpipe script show <id>
  ircpipe script install <file.go> [--name N] [--config JSON] [--enable]
  ircpipe script replace <id> <file.go>
  ircpipe script lint <file.go>
  ircpipe script enable|disable|rm <id>
  ircpipe script logs <id>
  ircpipe script config <id> <json>
  ircpipe script api

Global flags:
  -c, --config PATH     Use a specific config file
  --nick NICK           Override identity.nick
  --network ID          Override identity.network
  --json                JSON output
  -q, --quiet           Minimal output
  -v, --verbose         Debug logging

Chat meta commands start with ':' (type :help in a session).
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "ircpipe %s (commit %s, built %s, %s)\n", Version, GitCommit, BuildDate, runtime.Version())
}

// Parse parses argv (without the program name).
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdChat, args
	}

	args.Name = strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch args.Name {
	case "chat", "repl":
		return CmdChat, args
	case "suggest", "complete":
		return CmdSuggest, args
	case "alias", "aliases":
		return CmdAlias, args
	case "history", "hist":
		return CmdHistory, args
	case "script", "scripts":
		return CmdScript, args
	case "config":
		return CmdConfig, args
	case "status", "s", "info":
		return CmdStatus, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

// parseGlobalFlags extracts global flags that appear before the command.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args

	i := 0
	for ; i < len(argv); i++ {
		arg := argv[i]
		name, value, hasValue := strings.Cut(arg, "=")

		takeValue := func() string {
			if hasValue {
				return value
			}
			if i+1 < len(argv) {
				i++
				return argv[i]
			}
			return ""
		}

		switch name {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "-c", "--config":
			args.ConfigPath = takeValue()
		case "--nick":
			args.Nick = takeValue()
		case "--network":
			args.Network = takeValue()
		default:
			return argv[i:], args
		}
	}
	return nil, args
}

// =============================================================================
// VERSION
// =============================================================================

// VersionData is the JSON form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(w)
	}
	PrintVersion(w)
	return nil
}

// HandleUnknown reports an unknown command with a suggestion.
func HandleUnknown(args Args) error {
	msg := "no such command"
	if s := SuggestCommand(args.Name); s != "" {
		msg += fmt.Sprintf(", did you mean %q?", s)
	}
	return &ValidationError{Field: "command", Value: args.Name, Reason: msg, Example: "ircpipe help"}
}
