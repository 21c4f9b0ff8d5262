// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SCRIPT
// =============================================================================

// Script is a snapshot of an installed script.
type Script struct {
	ID      string          `json:"id"`
	Name    string          `json:"name,omitempty"`
	Source  string          `json:"source"`
	Enabled bool            `json:"enabled"`
	Config  json.RawMessage `json:"config,omitempty"`

	// LastError is the most recent hook failure or load error.
	LastError string `json:"last_error,omitempty"`

	// Hooks lists the recognized hooks the script implements.
	Hooks []string `json:"hooks,omitempty"`

	InstalledAt time.Time `json:"installed_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName returns Name, falling back to the ID.
func (s Script) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("script parse error")

	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("script not found")

	// ErrInvalidID is returned for a blank script id.
	ErrInvalidID = errors.New("invalid script id")

	// ErrExists is returned by InstallNamed for an id already in use.
	ErrExists = errors.New("script already installed")

	// ErrInvalidConfig is returned when a config value is not valid JSON.
	ErrInvalidConfig = errors.New("script config is not valid JSON")

	// ErrNoHost is returned by send capabilities when no transport is attached.
	ErrNoHost = errors.New("no transport attached")

	// ErrRateLimited is returned when a script sends faster than allowed.
	ErrRateLimited = errors.New("script send rate exceeded")
)

// ParseError reports a script that could not be loaded.
type ParseError struct {
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	errs := e.errors()
	switch len(errs) {
	case 0:
		return ErrParse.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrParse, errs[0])
	default:
		return fmt.Sprintf("%s: %s (and %d more)", ErrParse, errs[0], len(errs)-1)
	}
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range e.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// NotFoundError reports an operation on an unknown script id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("script %q not found", e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one finding about a script source. Line and Column are
// 1-based; zero means the position is unknown.
type Diagnostic struct {
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Line > 0 {
		fmt.Fprintf(&b, "%d:%d: ", d.Line, d.Column)
	}
	b.WriteString(string(d.Severity))
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
