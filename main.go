// ircpipe - An IRC command pipeline with aliases, suggestions and script hooks.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/ircpipe/internal/cli"
	"github.com/jeranaias/ircpipe/internal/config"
	"github.com/jeranaias/ircpipe/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	if err := run(cmd, args); err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(cmd cli.Command, args cli.Args) error {
	// Commands that need no state
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	case cli.CmdVersion:
		return cli.HandleVersion(os.Stdout, args)
	case cli.CmdUnknown:
		return cli.HandleUnknown(args)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if cmd == cli.CmdConfig {
		return cli.HandleConfig(os.Stdout, cfg, args)
	}

	logger, closer, err := setupLogging(cfg, args)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)
	cli.ApplyColorMode(cfg.UI.Color)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(cfg, cli.WithAppLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	switch cmd {
	case cli.CmdChat:
		return cli.HandleChat(ctx, app, args)
	case cli.CmdSuggest:
		return cli.HandleSuggest(os.Stdout, app, args)
	case cli.CmdAlias:
		return cli.HandleAlias(os.Stdout, app, args)
	case cli.CmdHistory:
		return cli.HandleHistory(os.Stdout, app, args)
	case cli.CmdScript:
		return cli.HandleScript(ctx, os.Stdout, app, args)
	case cli.CmdStatus:
		return cli.HandleStatus(ctx, os.Stdout, app, args)
	default:
		return fmt.Errorf("unhandled command %s", cmd)
	}
}

// loadConfig loads --config or the default files, then applies the
// identity flags. A broken default config file is reported and replaced by
// defaults so the user can still run "config set" to repair it.
func loadConfig(args cli.Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(config.ExpandPath(args.ConfigPath))
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
	}

	if args.Nick != "" {
		cfg.Identity.Nick = args.Nick
	}
	if args.Network != "" {
		cfg.Identity.Network = args.Network
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, args cli.Args) (*slog.Logger, io.Closer, error) {
	opts := logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   config.ExpandPath(cfg.Log.File),
		Output: os.Stderr,
	}
	if args.Quiet {
		opts.Output = io.Discard
	}
	return logging.Setup(opts)
}
