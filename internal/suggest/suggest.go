// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package suggest

import (
	"sort"
	"strings"

	"github.com/jeranaias/ircpipe/internal/alias"
	"github.com/jeranaias/ircpipe/internal/history"
	"github.com/jeranaias/ircpipe/internal/model"
)

// =============================================================================
// TYPES
// =============================================================================

// Source identifies where a candidate came from.
type Source string

const (
	SourceAlias   Source = "alias"
	SourceHistory Source = "history"
)

// Candidate is a single completion. Candidates are recomputed per request
// and never stored.
type Candidate struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
	Source      Source `json:"source"`
	Score       int    `json:"score"`
}

// AliasSource lists the aliases available for completion.
type AliasSource interface {
	List() []alias.Alias
}

// HistorySource returns up to n history entries, newest first.
type HistorySource interface {
	Recent(n int) []history.Entry
}

// Limits caps the size of each stage.
type Limits struct {
	MaxAliases    int
	HistoryWindow int
	MaxHistory    int
	MaxResults    int
}

// DefaultLimits returns the standard caps.
func DefaultLimits() Limits {
	return Limits{
		MaxAliases:    6,
		HistoryWindow: 30,
		MaxHistory:    6,
		MaxResults:    8,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxAliases <= 0 {
		l.MaxAliases = d.MaxAliases
	}
	if l.HistoryWindow <= 0 {
		l.HistoryWindow = d.HistoryWindow
	}
	if l.MaxHistory <= 0 {
		l.MaxHistory = d.MaxHistory
	}
	if l.MaxResults <= 0 {
		l.MaxResults = d.MaxResults
	}
	return l
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes suggestions. It holds no state of its own and only reads
// from its sources, so it can be called from any goroutine.
type Engine struct {
	aliases AliasSource
	history HistorySource
	limits  Limits
}

// NewEngine creates an engine with DefaultLimits. Either source may be nil.
func NewEngine(aliases AliasSource, hist HistorySource) *Engine {
	return &Engine{aliases: aliases, history: hist, limits: DefaultLimits()}
}

// WithLimits returns a copy of the engine using limits. Zero fields keep
// their defaults.
func (e *Engine) WithLimits(limits Limits) *Engine {
	cp := *e
	cp.limits = limits.withDefaults()
	return &cp
}

// Limits returns the caps in effect.
func (e *Engine) Limits() Limits {
	return e.limits
}

// Suggest returns ranked candidates for input in the context of tab.
// Blank input yields an empty, non-nil slice.
func (e *Engine) Suggest(input string, tab model.Tab) []Candidate {
	prefix := Normalize(input)
	if prefix == "" {
		return []Candidate{}
	}
	folded := model.Fold(prefix)

	aliases := e.matchAliases(folded, tab)
	hist := e.matchHistory(folded)
	return merge(e.limits.MaxResults, aliases, hist)
}

// Normalize trims input and gives it a leading slash.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !strings.HasPrefix(input, "/") {
		input = "/" + input
	}
	return input
}

func (e *Engine) matchAliases(folded string, tab model.Tab) []Candidate {
	if e.aliases == nil {
		return nil
	}
	var out []Candidate
	for _, a := range e.aliases.List() {
		if !strings.HasPrefix(model.Fold(a.Command()), folded) {
			continue
		}
		out = append(out, Candidate{
			Text:        a.Command(),
			Description: describe(a),
			Source:      SourceAlias,
			Score:       Score(a, tab),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > e.limits.MaxAliases {
		out = out[:e.limits.MaxAliases]
	}
	return out
}

func (e *Engine) matchHistory(folded string) []Candidate {
	if e.history == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []Candidate
	for _, entry := range e.history.Recent(e.limits.HistoryWindow) {
		if seen[entry.Command] {
			continue
		}
		seen[entry.Command] = true
		if !strings.HasPrefix(model.Fold(entry.Command), folded) {
			continue
		}
		out = append(out, Candidate{Text: entry.Command, Source: SourceHistory})
		if len(out) == e.limits.MaxHistory {
			break
		}
	}
	return out
}

// merge concatenates the lists, drops case-insensitive duplicates keeping
// the first occurrence, and truncates to max.
func merge(max int, lists ...[]Candidate) []Candidate {
	out := make([]Candidate, 0, max)
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, c := range list {
			key := model.Fold(c.Text)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
			if len(out) == max {
				return out
			}
		}
	}
	return out
}

// =============================================================================
// SCORING
// =============================================================================

// Score rates how well a fits the destination tab:
//
//	channel tab, expansion names a channel       → 2
//	query tab, expansion names a nick or /msg    → 2
//	server/notice tab, expansion names neither   → 1
//	anything else                                → 0
func Score(a alias.Alias, tab model.Tab) int {
	switch {
	case tab.IsChannel() && a.ReferencesChannel():
		return 2
	case tab.IsQuery() && a.ReferencesNick():
		return 2
	case tab.IsServerLike() && !a.ReferencesChannel() && !a.ReferencesNick():
		return 1
	}
	return 0
}

func describe(a alias.Alias) string {
	if a.Description != "" {
		return a.Description
	}
	return a.Expansion
}
