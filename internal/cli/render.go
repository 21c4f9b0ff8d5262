// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Table output shared by subcommands and chat meta commands.

package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jeranaias/ircpipe/internal/alias"
	"github.com/jeranaias/ircpipe/internal/history"
	"github.com/jeranaias/ircpipe/internal/script"
	"github.com/jeranaias/ircpipe/internal/suggest"
	"github.com/jeranaias/ircpipe/internal/util"
)

// column widths
const (
	textColumn  = 28
	idColumn    = 24
	timeLayout  = "2006-01-02 15:04:05"
	descPadding = 4
)

// descWidth is the room left for a description after the fixed columns.
func descWidth(used int) int {
	w := GetTerminalWidth() - used - descPadding
	if w < 10 {
		w = 10
	}
	return w
}

func renderCandidates(w io.Writer, cands []suggest.Candidate) {
	if len(cands) == 0 {
		fmt.Fprintln(w, DimStyle.Render("no suggestions"))
		return
	}
	for _, c := range cands {
		source := util.PadRight(string(c.Source), 8)
		text := util.PadRight(util.TruncateWidth(c.Text, textColumn), textColumn)
		if c.Source == suggest.SourceAlias {
			source = HighlightStyle.Render(source)
		} else {
			source = DimStyle.Render(source)
		}
		line := fmt.Sprintf("%s %s %s", source, text, strconv.Itoa(c.Score))
		if c.Description != "" {
			line += "  " + DimStyle.Render(util.TruncateWidth(util.FirstLine(c.Description), descWidth(textColumn+12)))
		}
		fmt.Fprintln(w, line)
	}
}

func renderAliases(w io.Writer, aliases []alias.Alias) {
	if len(aliases) == 0 {
		fmt.Fprintln(w, DimStyle.Render("no aliases"))
		return
	}
	for _, a := range aliases {
		cmd := util.PadRight(util.TruncateWidth(a.Command(), 16), 16)
		line := fmt.Sprintf("%s %s", HighlightStyle.Render(cmd), util.TruncateWidth(a.Expansion, descWidth(17)))
		fmt.Fprintln(w, line)
		if a.Description != "" {
			fmt.Fprintf(w, "%s %s\n", util.PadRight("", 16), DimStyle.Render(util.FirstLine(a.Description)))
		}
	}
}

func renderScripts(w io.Writer, scripts []script.Script) {
	if len(scripts) == 0 {
		fmt.Fprintln(w, DimStyle.Render("no scripts installed"))
		return
	}
	for _, s := range scripts {
		state := "disabled"
		if s.Enabled {
			state = "enabled"
		}
		id := util.PadRight(util.TruncateWidth(s.ID, idColumn), idColumn)
		fmt.Fprintf(w, "%s %s %s", id, RenderStatus(state), s.DisplayName())
		if len(s.Hooks) > 0 {
			fmt.Fprintf(w, " %s", DimStyle.Render(fmt.Sprint(s.Hooks)))
		}
		fmt.Fprintln(w)
		if s.LastError != "" {
			fmt.Fprintf(w, "%s %s\n", util.PadRight("", idColumn), ErrorStyle.Render(util.TruncateWidth(util.FirstLine(s.LastError), descWidth(idColumn+1))))
		}
	}
}

func renderHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, DimStyle.Render("history is empty"))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s\n", DimStyle.Render(e.Timestamp.Local().Format(timeLayout)), e.Command)
	}
}

func renderDiagnostics(w io.Writer, diags []script.Diagnostic) {
	if len(diags) == 0 {
		fmt.Fprintln(w, SuccessStyle.Render("no problems found"))
		return
	}
	for _, d := range diags {
		style := WarningStyle
		if d.Severity == script.SeverityError {
			style = ErrorStyle
		}
		fmt.Fprintln(w, style.Render(d.String()))
	}
}
