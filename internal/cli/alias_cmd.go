// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// alias_cmd.go - Alias command implementation for ircpipe.
//
// Command: alias [subcommand]
// Short:   Manage command aliases
// Aliases: aliases
//
// Subcommands:
//   list (default)                       List aliases
//   set <trigger> <expansion...>         Add or replace an alias
//   rm <trigger>                         Remove an alias
//
// Flags:
//   --desc TEXT         Description shown in suggestions (set)
//
// Examples:
//   ircpipe alias set w /whois
//   ircpipe alias set hi "/say hello {channel}" --desc "greet the channel"
//   ircpipe alias rm w
//   ircpipe --json alias list
package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/ircpipe/internal/alias"
)

const aliasUsage = "ircpipe alias [list|set <trigger> <expansion...> [--desc TEXT]|rm <trigger>]"

// HandleAlias handles the "alias" command.
func HandleAlias(w io.Writer, app *App, args Args) error {
	p := NewArgParser(args.Raw)

	switch sub := p.Subcommand(); sub {
	case "", "list", "ls":
		return OutputJSON(w, args.JSON, "alias list", func() (interface{}, error) {
			list := app.Aliases.List()
			if !args.JSON {
				renderAliases(w, list)
			}
			return list, nil
		})

	case "set", "add":
		if p.PositionalCount() < 3 {
			return ErrMissingArgument("trigger and expansion", `ircpipe alias set w /whois`)
		}
		a := alias.Alias{
			Trigger:     p.Positional(1),
			Expansion:   JoinPositionalArgs(p, 2),
			Description: p.Flag("desc"),
		}
		return OutputJSON(w, args.JSON, "alias set", func() (interface{}, error) {
			if err := app.Aliases.Set(a); err != nil {
				return nil, err
			}
			stored, _ := app.Aliases.Get(a.Trigger)
			if !args.JSON && !args.Quiet {
				fmt.Fprintf(w, "%s %s -> %s\n", SuccessStyle.Render("set"), stored.Command(), stored.Expansion)
			}
			return stored, nil
		})

	case "rm", "remove", "delete":
		trigger := p.Positional(1)
		if trigger == "" {
			return ErrMissingArgument("trigger", "ircpipe alias rm w")
		}
		return OutputJSON(w, args.JSON, "alias rm", func() (interface{}, error) {
			if err := app.Aliases.Remove(trigger); err != nil {
				return nil, err
			}
			if !args.JSON && !args.Quiet {
				fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("removed"), trigger)
			}
			return map[string]string{"removed": trigger}, nil
		})

	default:
		return ErrUnknownSubcommand("alias", sub, aliasUsage)
	}
}
