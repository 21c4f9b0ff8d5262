// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ircpipe/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the main configuration structure for ircpipe.
type Config struct {
	// Version is the config file schema version.
	Version string `toml:"version" json:"version"`

	Identity IdentityConfig `toml:"identity" json:"identity"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	History  HistoryConfig  `toml:"history" json:"history"`
	Suggest  SuggestConfig  `toml:"suggest" json:"suggest"`
	Scripts  ScriptsConfig  `toml:"scripts" json:"scripts"`
	Log      LogConfig      `toml:"log" json:"log"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// IdentityConfig holds who the user is and where commands go by default.
type IdentityConfig struct {
	// Nick is used until a network reports a different one.
	Nick string `toml:"nick" json:"nick"`

	// Network is the default network id.
	Network string `toml:"network" json:"network"`

	// Channel is the tab the REPL opens on. Empty opens the server tab.
	Channel string `toml:"channel" json:"channel"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "sqlite", "file" or "memory".
	Backend string `toml:"backend" json:"backend"`

	// Path is the database or JSON file. "~" is expanded.
	Path string `toml:"path" json:"path"`
}

// HistoryConfig bounds the command history.
type HistoryConfig struct {
	MaxEntries int `toml:"max_entries" json:"max_entries"`
}

// SuggestConfig holds the suggestion caps.
type SuggestConfig struct {
	MaxAliases    int `toml:"max_aliases" json:"max_aliases"`
	HistoryWindow int `toml:"history_window" json:"history_window"`
	MaxHistory    int `toml:"max_history" json:"max_history"`
	MaxResults    int `toml:"max_results" json:"max_results"`
}

// ScriptsConfig controls script loading and the capability limits.
type ScriptsConfig struct {
	// Dir is watched for *.go scripts. Empty disables directory loading.
	Dir string `toml:"dir" json:"dir"`

	// Watch reloads scripts when files in Dir change.
	Watch bool `toml:"watch" json:"watch"`

	// AutoEnable enables scripts loaded from Dir. Scripts installed by
	// other means always start disabled.
	AutoEnable bool `toml:"autoenable" json:"autoenable"`

	// LogBufferSize caps each script's log.
	LogBufferSize int `toml:"log_buffer_size" json:"log_buffer_size"`

	// SendRate and SendBurst limit SendMessage/SendCommand per script.
	SendRate  float64 `toml:"send_rate" json:"send_rate"`
	SendBurst int     `toml:"send_burst" json:"send_burst"`

	// SpamKill disables a script that exceeds its send limit.
	SpamKill bool `toml:"spam_kill" json:"spam_kill"`

	// SlowHookWarnMs logs hooks slower than this. Zero disables.
	SlowHookWarnMs int `toml:"slow_hook_warn_ms" json:"slow_hook_warn_ms"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	File   string `toml:"file" json:"file"`
}

// UIConfig holds REPL display settings.
type UIConfig struct {
	// Color is "auto", "always" or "never".
	Color string `toml:"color" json:"color"`

	// HistoryFile keeps the REPL's line-editing history. Empty disables it.
	HistoryFile string `toml:"history_file" json:"history_file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a new Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Identity: IdentityConfig{
			Nick:    "ircpipe",
			Network: "libera",
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "~/.ircpipe/state.db",
		},
		History: HistoryConfig{
			MaxEntries: 500,
		},
		Suggest: SuggestConfig{
			MaxAliases:    6,
			HistoryWindow: 30,
			MaxHistory:    6,
			MaxResults:    8,
		},
		Scripts: ScriptsConfig{
			Dir:            "~/.ircpipe/scripts",
			Watch:          true,
			LogBufferSize:  200,
			SendRate:       5,
			SendBurst:      10,
			SpamKill:       true,
			SlowHookWarnMs: 250,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		UI: UIConfig{
			Color:       "auto",
			HistoryFile: "~/.ircpipe/repl_history",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ircpipe configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("IRCPIPE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ircpipe"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands a leading "~" to the home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	var loadErr error

	candidates := []struct {
		path func() (string, error)
		load func(*Config, string) error
		kind string
	}{
		{ConfigPathTOML, LoadTOML, "TOML"},
		{ConfigPathJSON, LoadJSON, "JSON"},
	}
	for _, c := range candidates {
		path, err := c.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg := Default()
		if err := c.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s config: %w", c.kind, err)
			continue
		}
		finished, err := finish(cfg)
		if err != nil {
			loadErr = fmt.Errorf("failed to load %s config: %w", c.kind, err)
			continue
		}
		return finished, nil
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finish applies env overrides, migration, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Keys absent from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# ircpipe configuration file\n")
	b.WriteString("# Generated by ircpipe - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Identity
	if strings.TrimSpace(c.Identity.Nick) == "" {
		add("identity.nick", "must not be empty")
	} else if strings.ContainsAny(c.Identity.Nick, " ,*?!@") {
		add("identity.nick", "invalid nick '%s'", c.Identity.Nick)
	}
	if strings.TrimSpace(c.Identity.Network) == "" {
		add("identity.network", "must not be empty")
	}
	if ch := c.Identity.Channel; ch != "" && !strings.HasPrefix(ch, "#") && !strings.HasPrefix(ch, "&") {
		add("identity.channel", "invalid channel '%s', must start with # or &", ch)
	}

	// Storage
	if !oneOf(c.Storage.Backend, "sqlite", "file", "memory") {
		add("storage.backend", "invalid backend '%s', must be one of: sqlite, file, memory", c.Storage.Backend)
	}
	if !strings.EqualFold(c.Storage.Backend, "memory") && c.Storage.Path == "" {
		add("storage.path", "required for backend '%s'", c.Storage.Backend)
	}

	// History
	if c.History.MaxEntries < 1 || c.History.MaxEntries > 100000 {
		add("history.max_entries", "must be between 1 and 100000, got %d", c.History.MaxEntries)
	}

	// Suggest
	for field, v := range map[string]int{
		"suggest.max_aliases":    c.Suggest.MaxAliases,
		"suggest.history_window": c.Suggest.HistoryWindow,
		"suggest.max_history":    c.Suggest.MaxHistory,
		"suggest.max_results":    c.Suggest.MaxResults,
	} {
		if v < 0 {
			add(field, "must not be negative, got %d", v)
		}
	}

	// Scripts
	if c.Scripts.LogBufferSize < 1 {
		add("scripts.log_buffer_size", "must be positive, got %d", c.Scripts.LogBufferSize)
	}
	if c.Scripts.SendRate <= 0 {
		add("scripts.send_rate", "must be positive, got %g", c.Scripts.SendRate)
	}
	if c.Scripts.SendBurst < 1 {
		add("scripts.send_burst", "must be at least 1, got %d", c.Scripts.SendBurst)
	}
	if c.Scripts.SlowHookWarnMs < 0 {
		add("scripts.slow_hook_warn_ms", "must not be negative, got %d", c.Scripts.SlowHookWarnMs)
	}
	if c.Scripts.Watch && c.Scripts.Dir == "" {
		add("scripts.watch", "requires scripts.dir")
	}

	// Log
	if !oneOf(c.Log.Level, "debug", "info", "warn", "warning", "error") {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	if !oneOf(c.Log.Format, "text", "json") {
		add("log.format", "invalid format '%s', must be one of: text, json", c.Log.Format)
	}

	// UI
	if !oneOf(c.UI.Color, "auto", "always", "never") {
		add("ui.color", "invalid color mode '%s', must be one of: auto, always, never", c.UI.Color)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills unset values. Fields where zero is meaningful
// (booleans, suggest caps, slow_hook_warn_ms) are left alone.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Identity.Nick == "" {
		c.Identity.Nick = d.Identity.Nick
	}
	if c.Identity.Network == "" {
		c.Identity.Network = d.Identity.Network
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Path == "" {
		switch strings.ToLower(c.Storage.Backend) {
		case "sqlite":
			c.Storage.Path = d.Storage.Path
		case "file":
			c.Storage.Path = "~/.ircpipe/state"
		}
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = d.History.MaxEntries
	}
	if c.Scripts.LogBufferSize == 0 {
		c.Scripts.LogBufferSize = d.Scripts.LogBufferSize
	}
	if c.Scripts.SendRate == 0 {
		c.Scripts.SendRate = d.Scripts.SendRate
	}
	if c.Scripts.SendBurst == 0 {
		c.Scripts.SendBurst = d.Scripts.SendBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.UI.Color == "" {
		c.UI.Color = d.UI.Color
	}
}

// Migrate upgrades older config files to the current schema.
func (c *Config) Migrate() error {
	switch c.Version {
	case "", "0":
		// Version 0 called the file backend "json".
		if strings.EqualFold(c.Storage.Backend, "json") {
			c.Storage.Backend = "file"
		}
		c.Version = CurrentVersion
	case CurrentVersion:
	default:
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - IRCPIPE_NICK: overrides identity.nick
//   - IRCPIPE_NETWORK: overrides identity.network
//   - IRCPIPE_STORAGE: overrides storage.backend
//   - IRCPIPE_STATE_PATH: overrides storage.path
//   - IRCPIPE_SCRIPTS_DIR: overrides scripts.dir
//   - IRCPIPE_LOG_LEVEL: overrides log.level
//   - NO_COLOR: forces ui.color to "never"
func (c *Config) ApplyEnvOverrides() {
	if nick := os.Getenv("IRCPIPE_NICK"); nick != "" {
		c.Identity.Nick = nick
	}
	if network := os.Getenv("IRCPIPE_NETWORK"); network != "" {
		c.Identity.Network = network
	}
	if backend := os.Getenv("IRCPIPE_STORAGE"); backend != "" {
		c.Storage.Backend = backend
	}
	if path := os.Getenv("IRCPIPE_STATE_PATH"); path != "" {
		c.Storage.Path = path
	}
	if dir := os.Getenv("IRCPIPE_SCRIPTS_DIR"); dir != "" {
		c.Scripts.Dir = dir
	}
	if level := os.Getenv("IRCPIPE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.UI.Color = "never"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "scripts.send_rate").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "identity.nick").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		name := section.Tag.Get("toml")
		if section.Type.Kind() != reflect.Struct {
			keys = append(keys, name)
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, name+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone creates a copy of the configuration. Config holds no reference
// types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
