// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// ircpipe.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - IdentityConfig: Nick and default network
//   - StorageConfig: Persistence backend for aliases, history and scripts
//   - ScriptsConfig: Script directory, send limits and hook warnings
//   - LogConfig: Structured logging level, format and file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (IRCPIPE_*)
//   - ~/.ircpipe/config.toml
//   - ~/.ircpipe/config.json
//   - Built-in defaults
//
// IRCPIPE_HOME replaces ~/.ircpipe as the configuration directory.
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	nick := cfg.Identity.Nick
//	limit := cfg.Scripts.SendRate
package config
