// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest_cmd.go - Suggest command implementation for ircpipe.
//
// Command: suggest <input...>
// Short:   Show ranked completions for partial input
// Aliases: complete
//
// Flags:
//   --tab [NETWORK/]TARGET   Tab the suggestions are for (default: identity)
//
// Examples:
//   ircpipe suggest /wh
//   ircpipe suggest "/join #g" --tab libera/#go-nuts
//   ircpipe --json suggest /
package cli

import (
	"io"
	"strings"

	"github.com/jeranaias/ircpipe/internal/model"
	"github.com/jeranaias/ircpipe/internal/suggest"
)

// SuggestData is the JSON payload of "suggest".
type SuggestData struct {
	Input      string              `json:"input"`
	Tab        string              `json:"tab"`
	Candidates []suggest.Candidate `json:"candidates"`
}

// HandleSuggest handles the "suggest" command.
func HandleSuggest(w io.Writer, app *App, args Args) error {
	p := NewArgParser(args.Raw)
	input := strings.Join(p.PositionalFrom(0), " ")
	if input == "" {
		return ErrMissingArgument("input", "ircpipe suggest /wh")
	}

	tab := app.Session.ActiveTab()
	if t := p.Flag("tab"); t != "" {
		tab = parseTab(t, app.Session.DefaultNetwork())
	}

	return OutputJSON(w, args.JSON, "suggest", func() (interface{}, error) {
		cands := app.Suggest.Suggest(input, tab)
		if !args.JSON {
			renderCandidates(w, cands)
		}
		if cands == nil {
			cands = []suggest.Candidate{}
		}
		return SuggestData{Input: input, Tab: tab.String(), Candidates: cands}, nil
	})
}

// parseTab reads "network/target" or "target". A bare network name, or a
// target equal to its network, selects the server tab.
func parseTab(s, defaultNetwork string) model.Tab {
	network, target := defaultNetwork, s
	if n, t, ok := strings.Cut(s, "/"); ok {
		network, target = n, t
	}
	if target == "" || target == network {
		return model.ServerTab(network)
	}
	return model.InferTab(network, target)
}
