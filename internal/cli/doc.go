// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for ircpipe.
//
// It wires the alias store, history, suggestion engine, script registry,
// hook dispatcher and command pipeline into an App, then drives it either
// through an interactive session or through one-shot subcommands.
//
// # Key Types
//
//   - Command: Enumeration of the top-level commands
//   - Args: Global flags plus the raw arguments after the command word
//   - ArgParser: Flag and positional parsing for subcommands
//   - App: The wired components of one process
//   - REPL: Interactive session with line editing and meta commands
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	app, err := cli.NewApp(cfg, cli.WithAppLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer app.Close()
//	switch cmd {
//	case cli.CmdChat:
//	    return cli.HandleChat(ctx, app, args)
//	case cli.CmdAlias:
//	    return cli.HandleAlias(os.Stdout, app, args)
//	// ...
//	}
//
// Every subcommand accepts the global --json flag and then prints a
// JSONResponse envelope instead of styled text.
package cli
