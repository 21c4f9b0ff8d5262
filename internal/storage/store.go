// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrStorage        = errors.New("storage error")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// StorageError describes a failed read or write.
type StorageError struct {
	Op  string // "get", "set", "open", "decode", "encode"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes every StorageError match ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Well-known keys.
const (
	KeyAliases = "aliases"
	KeyHistory = "history"
	KeyScripts = "scripts"
)

// Store is a minimal key-value store.
type Store interface {
	// Get returns the value for key. ok is false when nothing is stored.
	Get(key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Close releases backend resources.
	Close() error
}

// Open creates a store for the named backend ("sqlite", "file" or "memory").
// A leading "~" in path is expanded to the home directory.
func Open(backend, path string) (Store, error) {
	path = expandHome(path)
	switch strings.ToLower(backend) {
	case "sqlite", "":
		return OpenSQLite(path)
	case "file", "json":
		return NewFileStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// =============================================================================
// FAIL-OPEN JSON HELPERS
// =============================================================================

// LoadJSON decodes the value stored under key into v.
// It returns false when nothing usable is stored; failures are logged, never
// returned, and leave v untouched.
func LoadJSON(s Store, key string, v any, logger *slog.Logger) bool {
	if s == nil {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}

	data, ok, err := s.Get(key)
	if err != nil {
		logger.Warn("storage read failed, using defaults", "key", key, "error", err)
		return false
	}
	if !ok || len(data) == 0 {
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("stored value is corrupt, using defaults", "key", key,
			"error", &StorageError{Op: "decode", Key: key, Err: err})
		return false
	}
	return true
}

// SaveJSON encodes v and stores it under key.
// Failures are logged and returned so callers may surface them; callers on
// the hot path ignore the result.
func SaveJSON(s Store, key string, v any, logger *slog.Logger) error {
	if s == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	data, err := json.Marshal(v)
	if err != nil {
		serr := &StorageError{Op: "encode", Key: key, Err: err}
		logger.Error("storage encode failed", "key", key, "error", serr)
		return serr
	}
	if err := s.Set(key, data); err != nil {
		logger.Error("storage write failed", "key", key, "error", err)
		return err
	}
	return nil
}
