// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package suggest ranks command completions for the input line.
//
// Candidates come from two sources. Aliases are scored by how well their
// expansion fits the destination tab (a channel-oriented alias ranks higher
// in a channel). History entries are matched by prefix in recency order.
// Alias matches always precede history matches and the merged list is
// deduplicated case-insensitively.
//
// # Key Types
//
//   - Engine: computes suggestions from an alias and a history source
//   - Candidate: one ranked completion
//   - Limits: result caps (6 aliases, 30-entry history window, 6 history
//     matches, 8 total by default)
//
// # Usage
//
//	engine := suggest.NewEngine(aliases, hist)
//	for _, c := range engine.Suggest("/w", model.QueryTab("libera", "alice")) {
//		fmt.Println(c.Text, c.Score)
//	}
package suggest
