// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package script

// DefaultLogBufferSize is the per-script log capacity when none is configured.
const DefaultLogBufferSize = 200

// ringLog is a fixed-capacity log that evicts its oldest line.
// It is not synchronized; the registry lock covers it.
type ringLog struct {
	lines []string
	start int
	size  int
}

func newRingLog(capacity int) *ringLog {
	if capacity <= 0 {
		capacity = DefaultLogBufferSize
	}
	return &ringLog{lines: make([]string, capacity)}
}

func (l *ringLog) append(line string) {
	c := len(l.lines)
	if l.size < c {
		l.lines[(l.start+l.size)%c] = line
		l.size++
		return
	}
	l.lines[l.start] = line
	l.start = (l.start + 1) % c
}

// snapshot returns the lines oldest first.
func (l *ringLog) snapshot() []string {
	out := make([]string, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.lines[(l.start+i)%len(l.lines)]
	}
	return out
}
