// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/ircpipe/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists each key as <BaseDir>/<key>.json.
type FileStore struct {
	// BaseDir is the directory holding one file per key
	// Default: ~/.ircpipe/state/
	BaseDir string

	mu sync.Mutex
}

// NewFileStore creates a file store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return &FileStore{BaseDir: baseDir}, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StorageError{Op: "get", Key: key, Err: err}
	}
	return data, true, nil
}

// Set implements Store.
func (s *FileStore) Set(key string, value []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := util.AtomicWriteFile(path, value, 0600); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// pathFor rejects keys that would escape BaseDir.
func (s *FileStore) pathFor(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", &StorageError{Op: "get", Key: key, Err: fmt.Errorf("invalid key")}
	}
	return filepath.Join(s.BaseDir, key+".json"), nil
}
