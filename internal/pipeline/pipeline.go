// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jeranaias/ircpipe/internal/alias"
	"github.com/jeranaias/ircpipe/internal/history"
	"github.com/jeranaias/ircpipe/internal/hooks"
	"github.com/jeranaias/ircpipe/internal/model"
	"github.com/jeranaias/ircpipe/internal/transport"
)

// =============================================================================
// TYPES
// =============================================================================

// Status is the terminal state of a submission.
type Status int

const (
	// StatusIgnored means nothing was dispatched and nothing was recorded.
	StatusIgnored Status = iota

	// StatusDispatched means the command was recorded and handed to the
	// transport.
	StatusDispatched

	// StatusCancelled means a script vetoed the command.
	StatusCancelled
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusIgnored:
		return "ignored"
	case StatusDispatched:
		return "dispatched"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result describes one submission.
type Result struct {
	Status Status

	// Input is the trimmed submitted text.
	Input string

	// Expanded is the text after alias expansion, before hooks.
	Expanded string

	// Alias is the trigger that matched, if any.
	Alias string

	// Text is the final command. For a cancelled submission it holds the
	// rewrites made before the cancelling script.
	Text string

	Reason      string
	CancelledBy string
	RewrittenBy []string
}

// Chain runs the OnCommand hooks. *hooks.Dispatcher implements it.
type Chain interface {
	Command(ctx context.Context, text string, tab model.Tab) (hooks.Outcome, error)
}

// NickSource reports the current nick on a network. *session.Manager
// implements it.
type NickSource interface {
	Nick(networkID string) string
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline orchestrates alias expansion, the hook chain and dispatch.
type Pipeline struct {
	mu sync.Mutex

	aliases *alias.Store
	history *history.Store
	chain   Chain
	sender  transport.Sender
	nicks   NickSource
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSender forwards dispatched commands to s. Without a sender the
// caller is responsible for delivering Result.Text.
func WithSender(s transport.Sender) Option {
	return func(p *Pipeline) { p.sender = s }
}

// WithNickSource supplies the {me} placeholder.
func WithNickSource(n NickSource) Option {
	return func(p *Pipeline) { p.nicks = n }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pipeline. Any of aliases, hist and chain may be nil, in
// which case that stage is skipped.
func New(aliases *alias.Store, hist *history.Store, chain Chain, opts ...Option) *Pipeline {
	p := &Pipeline{
		aliases: aliases,
		history: hist,
		chain:   chain,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit processes one line of user input typed into tab.
//
// The returned error is non-nil only when ctx is cancelled during the hook
// chain or the transport rejects the command. In the latter case the
// Result is still StatusDispatched and the command is in history.
func (p *Pipeline) Submit(ctx context.Context, raw string, tab model.Tab) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := Result{Input: strings.TrimSpace(raw)}
	if res.Input == "" {
		return res, nil
	}

	// Expanded
	res.Expanded = res.Input
	if p.aliases != nil {
		text, a, ok := p.aliases.Expand(res.Input, p.aliasContext(tab))
		if ok {
			res.Expanded = text
			res.Alias = a.Trigger
			p.logger.Debug("alias expanded", "alias", a.Trigger, "text", text)
		}
	}

	// HookChain
	res.Text = res.Expanded
	if p.chain != nil {
		out, err := p.chain.Command(ctx, res.Expanded, tab)
		if err != nil {
			return Result{Input: res.Input}, fmt.Errorf("command chain: %w", err)
		}
		res.Text = out.Text
		res.RewrittenBy = out.RewrittenBy
		if out.Cancelled {
			res.Status = StatusCancelled
			res.Reason = out.Reason
			res.CancelledBy = out.CancelledBy
			p.logger.Debug("submission cancelled", "input", res.Input, "tab", tab.String())
			return res, nil
		}
	}

	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		p.logger.Debug("command emptied by hooks", "input", res.Input)
		return res, nil
	}

	// Dispatched
	res.Status = StatusDispatched
	if p.history != nil {
		p.history.Append(res.Text)
	}
	if p.sender != nil {
		if err := p.sender.Send(ctx, tab.NetworkID, target(tab), res.Text); err != nil {
			p.logger.Warn("send failed", "tab", tab.String(), "error", err)
			return res, fmt.Errorf("send: %w", err)
		}
	}
	p.logger.Debug("command dispatched", "tab", tab.String(), "text", res.Text)
	return res, nil
}

// target is the default recipient of plain text typed into tab.
func target(tab model.Tab) string {
	if tab.IsServerLike() {
		return ""
	}
	return tab.Name
}

func (p *Pipeline) aliasContext(tab model.Tab) alias.Context {
	ctx := alias.Context{Tab: tab}
	if p.nicks != nil {
		ctx.Nick = p.nicks.Nick(tab.NetworkID)
	}
	return ctx
}
