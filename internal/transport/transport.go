// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Sender delivers a finalized command. target is the destination tab name
// (channel or nick) used when the command does not name one itself.
type Sender interface {
	Send(ctx context.Context, networkID, target, line string) error
}

var (
	// ErrNoTarget is returned for plain text with nowhere to go.
	ErrNoTarget = errors.New("no target for message")

	// ErrInvalidLine is returned for commands containing CR or LF.
	ErrInvalidLine = errors.New("command contains a line break")

	// ErrLineTooLong is returned when the raw line exceeds the IRC limit.
	ErrLineTooLong = errors.New("command exceeds 510 bytes")

	// ErrUsage is returned when a known command is missing arguments.
	ErrUsage = errors.New("missing command arguments")
)

// MaxLineLength is the IRC line limit without the trailing CRLF.
const MaxLineLength = 510

// =============================================================================
// FORMATTING
// =============================================================================

// Format renders a client command as a raw IRC line. Plain text and
// "//text" become a PRIVMSG to target. An empty result means the command
// produces no traffic (for example "/query nick" with no text).
func Format(target, line string) (string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return "", ErrInvalidLine
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}

	var raw string
	var err error
	switch {
	case strings.HasPrefix(line, "//"):
		raw, err = privmsg(target, line[1:])
	case strings.HasPrefix(line, "/"):
		raw, err = formatCommand(target, line[1:])
	default:
		raw, err = privmsg(target, line)
	}
	if err != nil {
		return "", err
	}
	if len(raw) > MaxLineLength {
		return "", fmt.Errorf("%w: %d bytes", ErrLineTooLong, len(raw))
	}
	return raw, nil
}

func formatCommand(target, body string) (string, error) {
	name, rest := cut(body)
	verb := strings.ToLower(name)

	switch verb {
	case "say":
		return privmsg(target, rest)
	case "msg", "privmsg":
		to, text := cut(rest)
		if to == "" || text == "" {
			return "", fmt.Errorf("%w: /%s <target> <text>", ErrUsage, verb)
		}
		return privmsg(to, text)
	case "query":
		to, text := cut(rest)
		if to == "" {
			return "", fmt.Errorf("%w: /query <nick> [text]", ErrUsage)
		}
		if text == "" {
			return "", nil
		}
		return privmsg(to, text)
	case "me", "action":
		if rest == "" {
			return "", fmt.Errorf("%w: /me <action>", ErrUsage)
		}
		return privmsg(target, ctcp("ACTION", rest))
	case "ctcp":
		to, req := cut(rest)
		cmd, args := cut(req)
		if to == "" || cmd == "" {
			return "", fmt.Errorf("%w: /ctcp <target> <command> [args]", ErrUsage)
		}
		return privmsg(to, ctcp(strings.ToUpper(cmd), args))
	case "notice":
		to, text := cut(rest)
		if to == "" || text == "" {
			return "", fmt.Errorf("%w: /notice <target> <text>", ErrUsage)
		}
		return "NOTICE " + to + " :" + text, nil
	case "join", "j":
		if rest == "" {
			return "", fmt.Errorf("%w: /join <channel> [key]", ErrUsage)
		}
		return "JOIN " + rest, nil
	case "part", "leave":
		ch, reason := target, rest
		if first, tail := cut(rest); isChannel(first) {
			ch, reason = first, tail
		}
		if ch == "" {
			return "", fmt.Errorf("%w: /part [channel] [reason]", ErrUsage)
		}
		return withTrailing("PART "+ch, reason), nil
	case "topic":
		ch, text := target, rest
		if first, tail := cut(rest); isChannel(first) {
			ch, text = first, tail
		}
		if ch == "" {
			return "", fmt.Errorf("%w: /topic [channel] [text]", ErrUsage)
		}
		return withTrailing("TOPIC "+ch, text), nil
	case "away", "quit":
		return withTrailing(strings.ToUpper(verb), rest), nil
	case "quote", "raw":
		if rest == "" {
			return "", fmt.Errorf("%w: /%s <line>", ErrUsage, verb)
		}
		return rest, nil
	default:
		if rest == "" {
			return strings.ToUpper(name), nil
		}
		return strings.ToUpper(name) + " " + rest, nil
	}
}

func privmsg(target, text string) (string, error) {
	if target == "" {
		return "", ErrNoTarget
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty message", ErrUsage)
	}
	return "PRIVMSG " + target + " :" + text, nil
}

func ctcp(cmd, args string) string {
	if args == "" {
		return "\x01" + cmd + "\x01"
	}
	return "\x01" + cmd + " " + args + "\x01"
}

func withTrailing(prefix, trailing string) string {
	if trailing == "" {
		return prefix
	}
	return prefix + " :" + trailing
}

func cut(s string) (head, tail string) {
	s = strings.TrimSpace(s)
	head, tail, _ = strings.Cut(s, " ")
	return head, strings.TrimSpace(tail)
}

func isChannel(s string) bool {
	return strings.HasPrefix(s, "#") || strings.HasPrefix(s, "&")
}

// =============================================================================
// WRITER SENDER
// =============================================================================

// WriterSender writes each command as a raw IRC line terminated by CRLF.
type WriterSender struct {
	mu         sync.Mutex
	w          io.Writer
	tagNetwork bool
}

// WriterOption configures a WriterSender.
type WriterOption func(*WriterSender)

// WithNetworkTag prefixes each line with "[network] ", for shared outputs
// such as a terminal.
func WithNetworkTag() WriterOption {
	return func(s *WriterSender) { s.tagNetwork = true }
}

// NewWriterSender creates a sender writing to w.
func NewWriterSender(w io.Writer, opts ...WriterOption) *WriterSender {
	s := &WriterSender{w: w}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send formats line and writes it.
func (s *WriterSender) Send(ctx context.Context, networkID, target, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := Format(target, line)
	if err != nil || raw == "" {
		return err
	}
	if s.tagNetwork {
		raw = "[" + networkID + "] " + raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, raw+"\r\n"); err != nil {
		return fmt.Errorf("write to %s: %w", networkID, err)
	}
	return nil
}

// =============================================================================
// RECORDER
// =============================================================================

// Sent is one command accepted by a Recorder.
type Sent struct {
	NetworkID string
	Target    string
	Line      string
}

// Recorder keeps every command it is given. Err, when set, is returned
// from Send after recording.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

// Send records the command.
func (r *Recorder) Send(ctx context.Context, networkID, target, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{NetworkID: networkID, Target: target, Line: line})
	return r.Err
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Lines returns the recorded command texts.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, s := range r.sent {
		out[i] = s.Line
	}
	return out
}
