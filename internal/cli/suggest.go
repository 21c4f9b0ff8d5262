// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - Command suggestion for typo correction.

package cli

import (
	"strings"
)

// validCommands is the list of all valid ircpipe commands and aliases.
var validCommands = []string{
	"chat",
	"repl",
	"suggest",
	"complete",
	"alias",
	"aliases",
	"history",
	"hist",
	"script",
	"scripts",
	"config",
	"status",
	"info",
	"version",
	"help",
}

// SuggestCommand returns the valid command closest to a mistyped one, or
// "" when nothing is close enough.
func SuggestCommand(input string) string {
	return closest(strings.ToLower(input), validCommands)
}

// closest returns the candidate with the smallest edit distance to input
// within a length-dependent threshold. Ties go to a candidate sharing the
// first letter of input, then to the earlier candidate.
func closest(input string, candidates []string) string {
	in := []rune(input)
	n := len(in)
	if n < 2 {
		return ""
	}

	// Allowed edits grow with length.
	maxDistance := 1
	if n >= 4 {
		maxDistance = 2
	}
	if n > 8 {
		maxDistance = 3
	}

	sameStart := func(c string) bool {
		r := []rune(c)
		return len(r) > 0 && r[0] == in[0]
	}

	best, bestDistance := "", maxDistance+1
	for _, c := range candidates {
		d := editDistance(input, c)
		if d == 0 {
			return ""
		}
		if d < bestDistance || (d == bestDistance && best != "" && !sameStart(best) && sameStart(c)) {
			best, bestDistance = c, d
		}
	}
	return best
}

// editDistance is the optimal string alignment distance between a and b:
// single-rune insertions, deletions and substitutions, plus swaps of two
// adjacent runes, each cost 1. "hepl" is one edit from "help".
func editDistance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	d := make([][]int, len(s1)+1)
	for i := range d {
		d[i] = make([]int, len(s2)+1)
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && s1[i-1] == s2[j-2] && s1[i-2] == s2[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[len(s1)][len(s2)]
}
