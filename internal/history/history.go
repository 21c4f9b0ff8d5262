// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/ircpipe/internal/storage"
)

// DefaultMaxEntries is used when no limit is configured.
const DefaultMaxEntries = 500

// Entry is one submitted command.
type Entry struct {
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a bounded, FIFO-evicting command log.
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry // oldest first
	max     int

	kv     storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries bounds the log. Values <= 0 select DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithPersistence loads history from kv and saves it after every append.
func WithPersistence(kv storage.Store) Option {
	return func(s *Store) { s.kv = kv }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store, loading saved entries when persistence is set.
func NewStore(opts ...Option) *Store {
	s := &Store{
		max:    DefaultMaxEntries,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var saved []Entry
	if storage.LoadJSON(s.kv, storage.KeyHistory, &saved, s.logger) {
		for _, e := range saved {
			if strings.TrimSpace(e.Command) != "" {
				s.entries = append(s.entries, e)
			}
		}
		s.evictLocked()
	}
	return s
}

// Append records command and returns the stored entry.
// Blank commands are ignored and return a zero Entry.
func (s *Store) Append(command string) Entry {
	if strings.TrimSpace(command) == "" {
		return Entry{}
	}
	e := Entry{Command: command, Timestamp: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	s.evictLocked()
	s.persistLocked()
	return e
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Entries returns every entry in submission order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Contains reports whether command was ever recorded and not yet evicted.
func (s *Store) Contains(command string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Command == command {
			return true
		}
	}
	return false
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Max returns the configured bound.
func (s *Store) Max() int {
	return s.max
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.persistLocked()
}

func (s *Store) evictLocked() {
	if over := len(s.entries) - s.max; over > 0 {
		// Copy so the evicted prefix can be collected.
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
}

func (s *Store) persistLocked() {
	if s.kv == nil {
		return
	}
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	_ = storage.SaveJSON(s.kv, storage.KeyHistory, entries, s.logger)
}
