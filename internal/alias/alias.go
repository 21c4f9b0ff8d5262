// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package alias

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/jeranaias/ircpipe/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when removing a trigger that does not exist.
	ErrNotFound = errors.New("alias not found")

	// ErrInvalidTrigger is returned for empty triggers or triggers with spaces.
	ErrInvalidTrigger = errors.New("invalid alias trigger")

	// ErrEmptyExpansion is returned when an alias would expand to nothing.
	ErrEmptyExpansion = errors.New("alias expansion is empty")
)

// =============================================================================
// ALIAS
// =============================================================================

// Alias is a single trigger → expansion mapping.
type Alias struct {
	// Trigger is stored without the leading slash ("whois").
	Trigger string `json:"trigger"`

	// Expansion is the command text that replaces "/trigger".
	Expansion string `json:"expansion"`

	// Description is shown next to the alias in suggestion lists.
	Description string `json:"description,omitempty"`
}

// Command returns the trigger as typed on the input line ("/whois").
func (a Alias) Command() string {
	return "/" + a.Trigger
}

// ReferencesChannel reports whether the expansion targets a channel,
// either through a {channel}/{chan} placeholder or a literal '#'.
func (a Alias) ReferencesChannel() bool {
	return strings.Contains(a.Expansion, "{channel}") ||
		strings.Contains(a.Expansion, "{chan}") ||
		strings.Contains(a.Expansion, "#")
}

// privateDirectives are the commands that address a single user.
var privateDirectives = map[string]bool{
	"/msg":    true,
	"/query":  true,
	"/notice": true,
	"/ctcp":   true,
}

// ReferencesNick reports whether the expansion targets a user, either
// through a {nick} placeholder or a private-message directive.
func (a Alias) ReferencesNick() bool {
	if strings.Contains(a.Expansion, "{nick}") {
		return true
	}
	for _, field := range strings.Fields(a.Expansion) {
		if privateDirectives[strings.ToLower(field)] {
			return true
		}
	}
	return false
}

// normalizeTrigger trims the trigger and drops one leading slash.
func normalizeTrigger(trigger string) (string, error) {
	trigger = strings.TrimPrefix(strings.TrimSpace(trigger), "/")
	if trigger == "" {
		return "", ErrInvalidTrigger
	}
	if strings.IndexFunc(trigger, unicode.IsSpace) >= 0 || strings.Contains(trigger, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, trigger)
	}
	return trigger, nil
}

// =============================================================================
// EXPANSION
// =============================================================================

// Context carries the destination data used to fill placeholders.
type Context struct {
	Tab  model.Tab
	Nick string
}

// fill substitutes placeholders in a single pass. Text coming from args is
// never re-scanned, so "{nick}" typed by the user stays literal.
func fill(expansion, args string, ctx Context) string {
	var channel, nick string
	switch {
	case ctx.Tab.IsChannel():
		channel = ctx.Tab.Name
	case ctx.Tab.IsQuery():
		nick = ctx.Tab.Name
	}

	out := strings.NewReplacer(
		"{channel}", channel,
		"{chan}", channel,
		"{nick}", nick,
		"{me}", ctx.Nick,
		"{network}", ctx.Tab.NetworkID,
		"{args}", args,
	).Replace(expansion)

	if args != "" && !strings.Contains(expansion, "{args}") {
		out = strings.TrimRight(out, " ") + " " + args
	}
	return strings.TrimSpace(out)
}

// splitLeading returns the first whitespace-delimited token of text and the
// trimmed remainder.
func splitLeading(text string) (token, rest string) {
	text = strings.TrimSpace(text)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}
