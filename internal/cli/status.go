// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation for ircpipe.
//
// Command: status
// Short:   Summarize identity, storage, aliases, history and scripts
// Aliases: s, info
//
// Examples:
//   ircpipe status
//   ircpipe --json status
//
// Status Sections:
//   Identity:  Nick, network and default channel
//   Storage:   Backend and state file
//   Pipeline:  Alias and history counts
//   Scripts:   Installed, enabled and failing scripts
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ircpipe/internal/config"
)

var sectionStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	MarginTop(1)

// StatusData is the JSON payload of "status".
type StatusData struct {
	Identity StatusIdentityInfo `json:"identity"`
	Storage  StatusStorageInfo  `json:"storage"`
	Pipeline StatusPipelineInfo `json:"pipeline"`
	Scripts  StatusScriptsInfo  `json:"scripts"`
}

// StatusIdentityInfo describes who the session speaks as.
type StatusIdentityInfo struct {
	Nick    string `json:"nick"`
	Network string `json:"network"`
	Channel string `json:"channel,omitempty"`
}

// StatusStorageInfo describes where state is kept.
type StatusStorageInfo struct {
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"`
	Exists  bool   `json:"exists"`
	Error   string `json:"error,omitempty"`
}

// StatusPipelineInfo counts aliases and history.
type StatusPipelineInfo struct {
	Aliases        int `json:"aliases"`
	HistoryEntries int `json:"history_entries"`
	HistoryMax     int `json:"history_max"`
}

// StatusScriptsInfo counts scripts.
type StatusScriptsInfo struct {
	Dir       string `json:"dir,omitempty"`
	Installed int    `json:"installed"`
	Enabled   int    `json:"enabled"`
	Failing   int    `json:"failing"`
}

// HandleStatus handles the "status" command.
func HandleStatus(ctx context.Context, w io.Writer, app *App, args Args) error {
	if err := app.LoadScripts(ctx, false); err != nil {
		app.Logger.Warn("scripts directory not loaded", "error", err)
	}
	return OutputJSON(w, args.JSON, "status", func() (interface{}, error) {
		data := collectStatus(app)
		if !args.JSON {
			printStatus(w, data)
		}
		return data, nil
	})
}

func collectStatus(app *App) StatusData {
	cfg := app.Config
	data := StatusData{
		Identity: StatusIdentityInfo{
			Nick:    cfg.Identity.Nick,
			Network: cfg.Identity.Network,
			Channel: cfg.Identity.Channel,
		},
		Storage: StatusStorageInfo{Backend: cfg.Storage.Backend},
		Pipeline: StatusPipelineInfo{
			Aliases:        app.Aliases.Len(),
			HistoryEntries: app.History.Len(),
			HistoryMax:     app.History.Max(),
		},
		Scripts: StatusScriptsInfo{Dir: cfg.Scripts.Dir},
	}

	if cfg.Storage.Backend != "memory" {
		data.Storage.Path = config.ExpandPath(cfg.Storage.Path)
		_, err := os.Stat(data.Storage.Path)
		data.Storage.Exists = err == nil
	}
	if app.StorageErr != nil {
		data.Storage.Error = app.StorageErr.Error()
	}

	for _, s := range app.Scripts.List() {
		data.Scripts.Installed++
		if s.Enabled {
			data.Scripts.Enabled++
		}
		if s.LastError != "" {
			data.Scripts.Failing++
		}
	}
	return data
}

func printStatus(w io.Writer, d StatusData) {
	fmt.Fprintln(w, TitleStyle.Render("ircpipe status"))
	fmt.Fprintln(w, RenderSeparator(41))

	row := func(label, value string) {
		fmt.Fprintf(w, "  %s%s\n", RenderLabel(label, 14), ValueStyle.Render(value))
	}

	fmt.Fprintln(w, sectionStyle.Render("Identity"))
	row("Nick", d.Identity.Nick)
	row("Network", d.Identity.Network)
	if d.Identity.Channel != "" {
		row("Channel", d.Identity.Channel)
	}

	fmt.Fprintln(w, sectionStyle.Render("Storage"))
	row("Backend", d.Storage.Backend)
	if d.Storage.Path != "" {
		state := "not created yet"
		if d.Storage.Exists {
			state = "present"
		}
		row("Path", d.Storage.Path+" "+DimStyle.Render("("+state+")"))
	}
	if d.Storage.Error != "" {
		fmt.Fprintf(w, "  %s%s\n", RenderLabel("Error", 14), ErrorStyle.Render(d.Storage.Error))
		row("Fallback", "memory (changes are not saved)")
	}

	fmt.Fprintln(w, sectionStyle.Render("Pipeline"))
	row("Aliases", strconv.Itoa(d.Pipeline.Aliases))
	row("History", fmt.Sprintf("%d / %d", d.Pipeline.HistoryEntries, d.Pipeline.HistoryMax))

	fmt.Fprintln(w, sectionStyle.Render("Scripts"))
	if d.Scripts.Dir != "" {
		row("Directory", d.Scripts.Dir)
	}
	row("Installed", strconv.Itoa(d.Scripts.Installed))
	row("Enabled", strconv.Itoa(d.Scripts.Enabled))
	if d.Scripts.Failing > 0 {
		fmt.Fprintf(w, "  %s%s\n", RenderLabel("Failing", 14), ErrorStyle.Render(strconv.Itoa(d.Scripts.Failing)))
	}
}
