// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("IRCPIPE_HOME", dir)
	for _, k := range []string{
		"IRCPIPE_NICK", "IRCPIPE_NETWORK", "IRCPIPE_STORAGE",
		"IRCPIPE_STATE_PATH", "IRCPIPE_SCRIPTS_DIR", "IRCPIPE_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	if v, ok := os.LookupEnv("NO_COLOR"); ok {
		t.Setenv("NO_COLOR", v)
		require.NoError(t, os.Unsetenv("NO_COLOR"))
	}
	return dir
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// safely called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Identity.Nick = "writer"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, Global())
		}()
	}
	wg.Wait()
}

// TestConfig_ConcurrentReload tests concurrent ReloadGlobal and Global calls.
func TestConfig_ConcurrentReload(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()
	_ = Global()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, Global())
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	c := Default()
	c.Identity.Nick = "custom"
	SetGlobal(c)
	assert.Equal(t, "custom", Global().Identity.Nick)
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 500, cfg.History.MaxEntries)
	assert.Equal(t, 8, cfg.Suggest.MaxResults)
	assert.Equal(t, 6, cfg.Suggest.MaxAliases)
	assert.Equal(t, 30, cfg.Suggest.HistoryWindow)
	assert.False(t, cfg.Scripts.AutoEnable)
	assert.Equal(t, 200, cfg.Scripts.LogBufferSize)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty nick", func(c *Config) { c.Identity.Nick = " " }, "identity.nick"},
		{"nick with space", func(c *Config) { c.Identity.Nick = "a b" }, "identity.nick"},
		{"empty network", func(c *Config) { c.Identity.Network = "" }, "identity.network"},
		{"bad channel", func(c *Config) { c.Identity.Channel = "go" }, "identity.channel"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"missing path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"history zero", func(c *Config) { c.History.MaxEntries = 0 }, "history.max_entries"},
		{"negative suggest", func(c *Config) { c.Suggest.MaxResults = -1 }, "suggest.max_results"},
		{"log buffer", func(c *Config) { c.Scripts.LogBufferSize = 0 }, "scripts.log_buffer_size"},
		{"send rate", func(c *Config) { c.Scripts.SendRate = 0 }, "scripts.send_rate"},
		{"send burst", func(c *Config) { c.Scripts.SendBurst = 0 }, "scripts.send_burst"},
		{"watch without dir", func(c *Config) { c.Scripts.Dir = "" }, "scripts.watch"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"color", func(c *Config) { c.UI.Color = "rainbow" }, "ui.color"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}

	memory := Default()
	memory.Storage = StorageConfig{Backend: "memory"}
	assert.NoError(t, memory.Validate())
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Backend: "file"}}
	cfg.SetDefaults()

	assert.Equal(t, "ircpipe", cfg.Identity.Nick)
	assert.Equal(t, "~/.ircpipe/state", cfg.Storage.Path)
	assert.Equal(t, 500, cfg.History.MaxEntries)
	assert.Equal(t, 0, cfg.Suggest.MaxResults)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Migrate(t *testing.T) {
	cfg := Default()
	cfg.Version = ""
	cfg.Storage.Backend = "json"
	require.NoError(t, cfg.Migrate())
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "file", cfg.Storage.Backend)

	cfg.Version = "99"
	assert.Error(t, cfg.Migrate())
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Identity, cfg.Identity)
}

func TestLoad_TOMLThenJSON(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"identity": {"nick": "fromjson", "network": "oftc"}}`), 0600))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fromjson", cfg.Identity.Nick)
	assert.Equal(t, 500, cfg.History.MaxEntries)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[identity]
nick = "fromtoml"

[scripts]
autoenable = true
send_rate = 2.5
`), 0600))
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "fromtoml", cfg.Identity.Nick)
	assert.Equal(t, "libera", cfg.Identity.Network)
	assert.True(t, cfg.Scripts.AutoEnable)
	assert.Equal(t, 2.5, cfg.Scripts.SendRate)
}

func TestLoad_BrokenFileFallsBackWithError(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[identity\n"), 0600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "ircpipe", cfg.Identity.Nick)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("IRCPIPE_NICK", "envnick")
	t.Setenv("IRCPIPE_NETWORK", "oftc")
	t.Setenv("IRCPIPE_STORAGE", "memory")
	t.Setenv("IRCPIPE_SCRIPTS_DIR", "/tmp/scripts")
	t.Setenv("IRCPIPE_LOG_LEVEL", "debug")
	t.Setenv("NO_COLOR", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "envnick", cfg.Identity.Nick)
	assert.Equal(t, "oftc", cfg.Identity.Network)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/scripts", cfg.Scripts.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "never", cfg.UI.Color)
}

func TestSaveAndLoadFromPath(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg := Default()
	cfg.Identity.Nick = "saved"
	cfg.Scripts.SpamKill = false
	cfg.Suggest.MaxResults = 5

	tomlPath := filepath.Join(dir, "nested", "config.toml")
	require.NoError(t, SaveTOML(cfg, tomlPath))
	loaded, err := LoadFromPath(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	info, err := os.Stat(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, SaveJSON(cfg, jsonPath))
	loaded, err = LoadFromPath(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = LoadFromPath(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

// =============================================================================
// GET / SET
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("identity.nick")
	require.NoError(t, err)
	assert.Equal(t, "ircpipe", v)

	require.NoError(t, cfg.Set("identity.nick", "gopher"))
	require.NoError(t, cfg.Set("history.max_entries", "42"))
	require.NoError(t, cfg.Set("scripts.send_rate", "1.5"))
	require.NoError(t, cfg.Set("scripts.spam_kill", "no"))
	require.NoError(t, cfg.Set("scripts.log_buffer_size", 64))

	assert.Equal(t, "gopher", cfg.Identity.Nick)
	assert.Equal(t, 42, cfg.History.MaxEntries)
	assert.Equal(t, 1.5, cfg.Scripts.SendRate)
	assert.False(t, cfg.Scripts.SpamKill)
	assert.Equal(t, 64, cfg.Scripts.LogBufferSize)

	_, err = cfg.Get("identity.missing")
	assert.Error(t, err)
	_, err = cfg.Get("identity")
	assert.Error(t, err)
	_, err = cfg.Get("")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("history.max_entries", "many"))
	assert.Error(t, cfg.Set("identity.nick.first", "x"))
}

func TestGetAllKeys(t *testing.T) {
	cfg := Default()
	keys := GetAllKeys()
	assert.Contains(t, keys, "version")
	assert.Contains(t, keys, "scripts.autoenable")
	assert.Contains(t, keys, "suggest.history_window")
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Identity.Nick = "other"
	assert.Equal(t, "ircpipe", cfg.Identity.Nick)
	assert.Contains(t, cfg.String(), `"nick": "ircpipe"`)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[storage]\nbackend = \"floppy\"\n"), 0600))

	cfg, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
	require.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}
