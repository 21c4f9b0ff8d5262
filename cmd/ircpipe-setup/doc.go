// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Command ircpipe-setup writes a first config for ircpipe.

# Overview

A full-screen Bubble Tea wizard walks through a system check, the default
identity (nick, network and channel) and the storage backend, then writes
config.toml and a scripts/ directory holding an example hook script. A
plain prompt mode is available for terminals that cannot host the wizard.

# Command Line Options

	--text, -t       Plain prompts (copy/paste friendly, no TUI)
	--dir, -d PATH   Target directory (default $IRCPIPE_HOME or ~/.ircpipe)
	--help, -h       Show help information
	--version, -v    Show version number

# Files Created

	~/.ircpipe/
	    config.toml            # Main configuration file
	    config.toml.bak        # Previous config, when one existed
	    state.db               # sqlite backend (or state/ for the file backend)
	    repl_history           # Line editor history
	    scripts/
	        identify_guard.go  # Example script, installed disabled

# Architecture

  - main.go: flag parsing and terminal detection
  - wizard.go: TUI model with phases (welcome, checks, identity, storage, complete)
  - text.go: plain prompt mode
  - setup.go: answers, system checks and Apply, shared by both modes
*/
package main
