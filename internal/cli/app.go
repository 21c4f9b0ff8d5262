// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Component wiring shared by every ircpipe command.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jeranaias/ircpipe/internal/alias"
	"github.com/jeranaias/ircpipe/internal/config"
	"github.com/jeranaias/ircpipe/internal/history"
	"github.com/jeranaias/ircpipe/internal/hooks"
	"github.com/jeranaias/ircpipe/internal/model"
	"github.com/jeranaias/ircpipe/internal/pipeline"
	"github.com/jeranaias/ircpipe/internal/script"
	"github.com/jeranaias/ircpipe/internal/session"
	"github.com/jeranaias/ircpipe/internal/storage"
	"github.com/jeranaias/ircpipe/internal/suggest"
	"github.com/jeranaias/ircpipe/internal/transport"
)

// App holds the wired components of one ircpipe process.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store    storage.Store
	Aliases  *alias.Store
	History  *history.Store
	Suggest  *suggest.Engine
	Session  *session.Manager
	Sender   transport.Sender
	Scripts  *script.Registry
	Hooks    *hooks.Dispatcher
	Pipeline *pipeline.Pipeline
	Watcher  *script.DirWatcher

	// StorageErr is set when the configured backend could not be opened
	// and state is kept in memory instead.
	StorageErr error

	wg       sync.WaitGroup
	stopWait context.CancelFunc
}

type appOptions struct {
	logger *slog.Logger
	store  storage.Store
	sender transport.Sender
	wire   io.Writer
}

// AppOption configures NewApp.
type AppOption func(*appOptions)

// WithAppLogger sets the logger every component uses.
func WithAppLogger(logger *slog.Logger) AppOption {
	return func(o *appOptions) { o.logger = logger }
}

// WithStore uses kv instead of opening the configured backend.
func WithStore(kv storage.Store) AppOption {
	return func(o *appOptions) { o.store = kv }
}

// WithSender replaces the default transport.
func WithSender(s transport.Sender) AppOption {
	return func(o *appOptions) { o.sender = s }
}

// WithWireOutput sets where the default transport writes raw IRC lines.
// Defaults to stdout.
func WithWireOutput(w io.Writer) AppOption {
	return func(o *appOptions) { o.wire = w }
}

// NewApp builds every component from cfg.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	o := appOptions{logger: slog.Default(), wire: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	kv := o.store
	var storageErr error
	if kv == nil {
		var err error
		kv, err = storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
		if err != nil {
			var se *storage.StorageError
			if !errors.As(err, &se) {
				err = &storage.StorageError{Op: "open", Err: err}
			}
			o.logger.Warn("storage unavailable, state will not be saved",
				"backend", cfg.Storage.Backend, "path", cfg.Storage.Path, "error", err)
			storageErr = err
			kv = storage.NewMemoryStore()
		}
	}

	sender := o.sender
	if sender == nil {
		sender = transport.NewWriterSender(o.wire, transport.WithNetworkTag())
	}

	a := &App{
		Config: cfg,
		Logger: o.logger,
		Store:  kv,
		Sender: sender,

		StorageErr: storageErr,
	}

	a.Aliases = alias.NewStore(
		alias.WithPersistence(kv),
		alias.WithLogger(o.logger),
	)
	a.History = history.NewStore(
		history.WithMaxEntries(cfg.History.MaxEntries),
		history.WithPersistence(kv),
		history.WithLogger(o.logger),
	)
	a.Suggest = suggest.NewEngine(a.Aliases, a.History).WithLimits(suggest.Limits{
		MaxAliases:    cfg.Suggest.MaxAliases,
		HistoryWindow: cfg.Suggest.HistoryWindow,
		MaxHistory:    cfg.Suggest.MaxHistory,
		MaxResults:    cfg.Suggest.MaxResults,
	})

	a.Session = session.NewManager(session.Config{
		Nick:    cfg.Identity.Nick,
		Network: cfg.Identity.Network,
	})
	if cfg.Identity.Channel != "" {
		a.Session.SetActiveTab(model.ChannelTab(cfg.Identity.Network, cfg.Identity.Channel))
	}

	a.Scripts = script.NewRegistry(
		script.WithHost(session.NewGateway(a.Session, sender)),
		script.WithLogBufferSize(cfg.Scripts.LogBufferSize),
		script.WithSendLimit(cfg.Scripts.SendRate, cfg.Scripts.SendBurst, cfg.Scripts.SpamKill),
		script.WithPersistence(kv),
		script.WithLogger(o.logger),
	)
	a.Hooks = hooks.NewDispatcher(a.Scripts,
		hooks.WithLogger(o.logger),
		hooks.WithSlowHookWarning(time.Duration(cfg.Scripts.SlowHookWarnMs)*time.Millisecond),
	)
	a.Pipeline = pipeline.New(a.Aliases, a.History, a.Hooks,
		pipeline.WithSender(sender),
		pipeline.WithNickSource(a.Session),
		pipeline.WithLogger(o.logger),
	)

	if cfg.Scripts.Dir != "" {
		a.Watcher = script.NewDirWatcher(config.ExpandPath(cfg.Scripts.Dir), a.Scripts,
			script.WithAutoEnable(cfg.Scripts.AutoEnable),
			script.WithWatcherLogger(o.logger),
		)
	}
	return a, nil
}

// LoadScripts loads the scripts directory. With follow set, and
// scripts.watch enabled, it keeps watching until Close.
func (a *App) LoadScripts(ctx context.Context, follow bool) error {
	if a.Watcher == nil {
		return nil
	}
	if !follow || !a.Config.Scripts.Watch {
		return a.Watcher.Sync()
	}

	ctx, cancel := context.WithCancel(ctx)
	a.stopWait = cancel
	errc := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.Watcher.Run(ctx); err != nil {
			a.Logger.Warn("script watcher stopped", "error", err)
			errc <- err
		}
	}()

	// Surface immediate startup failures such as an unreadable directory.
	select {
	case err := <-errc:
		return err
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Close stops the watcher and releases storage.
func (a *App) Close() error {
	if a.stopWait != nil {
		a.stopWait()
	}
	a.wg.Wait()

	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
