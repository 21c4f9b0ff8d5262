// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backends returns a fresh instance of every backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	stores := map[string]Store{
		"sqlite": sqliteStore,
		"file":   fileStore,
		"memory": NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

// =============================================================================
// BACKEND CONTRACT TESTS
// =============================================================================

func TestStore_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := s.Get("nothing")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(KeyAliases, []byte(`[1]`)))
			require.NoError(t, s.Set(KeyAliases, []byte(`[2]`)))

			v, ok, err := s.Get(KeyAliases)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `[2]`, string(v))
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyHistory, []byte(`["/join #go"]`)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(KeyHistory)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["/join #go"]`, string(v))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyHistory}, keys)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	err = s.Set("../escape", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", "")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

// =============================================================================
// FAIL-OPEN HELPER TESTS
// =============================================================================

type brokenStore struct{}

func (brokenStore) Get(key string) ([]byte, bool, error) {
	return nil, false, &StorageError{Op: "get", Key: key, Err: os.ErrPermission}
}
func (brokenStore) Set(key string, value []byte) error {
	return &StorageError{Op: "set", Key: key, Err: os.ErrPermission}
}
func (brokenStore) Close() error { return nil }

func TestLoadJSON_FailOpen(t *testing.T) {
	var v []string
	assert.False(t, LoadJSON(brokenStore{}, KeyHistory, &v, quietLogger()))
	assert.Nil(t, v)

	mem := NewMemoryStore()
	require.NoError(t, mem.Set(KeyHistory, []byte("{not json")))
	assert.False(t, LoadJSON(mem, KeyHistory, &v, quietLogger()))
	assert.Nil(t, v)

	assert.False(t, LoadJSON(nil, KeyHistory, &v, quietLogger()))
}

func TestSaveJSON_RoundTrip(t *testing.T) {
	mem := NewMemoryStore()
	require.NoError(t, SaveJSON(mem, KeyAliases, map[string]string{"hi": "/say hi"}, quietLogger()))

	var got map[string]string
	require.True(t, LoadJSON(mem, KeyAliases, &got, quietLogger()))
	assert.Equal(t, "/say hi", got["hi"])
}

func TestSaveJSON_ReportsStorageError(t *testing.T) {
	err := SaveJSON(brokenStore{}, KeyAliases, []int{1}, quietLogger())
	assert.ErrorIs(t, err, ErrStorage)

	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "set", serr.Op)
}
