// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - History command implementation for ircpipe.
//
// Command: history [subcommand]
// Short:   Show or clear submitted commands
// Aliases: hist
//
// Subcommands:
//   list (default)      Show recent commands, oldest first
//   clear               Forget every entry
//
// Flags:
//   -n, --limit N       Number of entries (default 20, 0 for all)
package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/jeranaias/ircpipe/internal/history"
)

const historyUsage = "ircpipe history [list [--limit N]|clear]"

// HistoryData is the JSON payload of "history list".
type HistoryData struct {
	Entries []history.Entry `json:"entries"`
	Total   int             `json:"total"`
	Max     int             `json:"max"`
}

// HandleHistory handles the "history" command.
func HandleHistory(w io.Writer, app *App, args Args) error {
	p := NewArgParser(args.Raw)

	switch sub := p.Subcommand(); sub {
	case "", "list", "ls":
		limit := p.FlagIntOrDefault("limit", p.FlagIntOrDefault("n", 20))
		if limit < 0 {
			return &ValidationError{Field: "limit", Value: p.Flag("limit"), Reason: "must not be negative"}
		}
		return OutputJSON(w, args.JSON, "history list", func() (interface{}, error) {
			entries := app.History.Recent(limit)
			slices.Reverse(entries)
			if !args.JSON {
				renderHistory(w, entries)
			}
			return HistoryData{Entries: entries, Total: app.History.Len(), Max: app.History.Max()}, nil
		})

	case "clear":
		return OutputJSON(w, args.JSON, "history clear", func() (interface{}, error) {
			n := app.History.Len()
			app.History.Clear()
			if !args.JSON && !args.Quiet {
				fmt.Fprintf(w, "%s %d entries\n", SuccessStyle.Render("cleared"), n)
			}
			return map[string]int{"cleared": n}, nil
		})

	default:
		return ErrUnknownSubcommand("history", sub, historyUsage)
	}
}
