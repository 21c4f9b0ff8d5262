// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package alias

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jeranaias/ircpipe/internal/model"
	"github.com/jeranaias/ircpipe/internal/storage"
)

// Store is a set of aliases keyed by case-folded trigger.
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	aliases map[string]Alias

	kv     storage.Store
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersistence loads aliases from kv and saves every mutation back to it.
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

// NewStore creates a store. With persistence configured, previously saved
// aliases are loaded; unreadable state is logged and ignored.
func NewStore(opts ...Option) *Store {
	s := &Store{
		aliases: make(map[string]Alias),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var saved []Alias
	if storage.LoadJSON(s.kv, storage.KeyAliases, &saved, s.logger) {
		for _, a := range saved {
			trigger, err := normalizeTrigger(a.Trigger)
			if err != nil || strings.TrimSpace(a.Expansion) == "" {
				s.logger.Warn("skipping stored alias", "trigger", a.Trigger)
				continue
			}
			a.Trigger = trigger
			s.aliases[model.Fold(trigger)] = a
		}
	}
	return s
}

// Set adds a or replaces the alias with the same (case-insensitive) trigger.
func (s *Store) Set(a Alias) error {
	trigger, err := normalizeTrigger(a.Trigger)
	if err != nil {
		return err
	}
	a.Trigger = trigger
	a.Expansion = strings.TrimSpace(a.Expansion)
	a.Description = strings.TrimSpace(a.Description)
	if a.Expansion == "" {
		return ErrEmptyExpansion
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[model.Fold(trigger)] = a
	s.persistLocked()
	return nil
}

// Get returns the alias for trigger. A leading slash is accepted.
func (s *Store) Get(trigger string) (Alias, bool) {
	trigger, err := normalizeTrigger(trigger)
	if err != nil {
		return Alias{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.aliases[model.Fold(trigger)]
	return a, ok
}

// Remove deletes the alias for trigger.
func (s *Store) Remove(trigger string) error {
	norm, err := normalizeTrigger(trigger)
	if err != nil {
		return err
	}
	key := model.Fold(norm)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[key]; !ok {
		return ErrNotFound
	}
	delete(s.aliases, key)
	s.persistLocked()
	return nil
}

// List returns all aliases sorted by trigger.
func (s *Store) List() []Alias {
	s.mu.RLock()
	out := make([]Alias, 0, len(s.aliases))
	for _, a := range s.aliases {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Trigger < out[j].Trigger })
	return out
}

// Len returns the number of aliases.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.aliases)
}

// Match returns the alias whose "/trigger" equals token, ignoring case.
// Tokens without a leading slash never match.
func (s *Store) Match(token string) (Alias, bool) {
	if !strings.HasPrefix(token, "/") {
		return Alias{}, false
	}
	return s.Get(token)
}

// Expand replaces a leading "/trigger" token in text with its expansion.
// Expansion is single-pass: the result is never matched again, even when it
// starts with another alias trigger.
func (s *Store) Expand(text string, ctx Context) (string, Alias, bool) {
	token, rest := splitLeading(text)
	a, ok := s.Match(token)
	if !ok {
		return strings.TrimSpace(text), Alias{}, false
	}
	return fill(a.Expansion, rest, ctx), a, true
}

func (s *Store) persistLocked() {
	if s.kv == nil {
		return
	}
	out := make([]Alias, 0, len(s.aliases))
	for _, a := range s.aliases {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Trigger < out[j].Trigger })
	// Failures are logged by SaveJSON; the in-memory set stays authoritative.
	_ = storage.SaveJSON(s.kv, storage.KeyAliases, out, s.logger)
}
