// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for ircpipe commands.
//
// Handlers always return errors; main decides how to display them and
// which exit code to use.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ircpipe/internal/alias"
	"github.com/jeranaias/ircpipe/internal/config"
	"github.com/jeranaias/ircpipe/internal/script"
	"github.com/jeranaias/ircpipe/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitStorageError  = 4
	ExitScriptError   = 5
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "script")
	Action  string // Action being performed (e.g., "install")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrUnknownSubcommand creates an error for an unknown subcommand.
func ErrUnknownSubcommand(command, sub, usage string) error {
	return &ValidationError{Field: command + " subcommand", Value: sub, Reason: "unknown subcommand", Example: usage}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err in a consistent format.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())

	var perr *script.ParseError
	if errors.As(err, &perr) {
		for _, d := range perr.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d.String())
		}
	}
}

// DisplayErrorJSON writes err as a JSON object.
func DisplayErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"error":      err.Error(),
		"success":    false,
		"error_type": errorType(err),
	}

	var cmdErr *CommandError
	var valErr *ValidationError
	var parseErr *script.ParseError
	switch {
	case errors.As(err, &parseErr):
		output["diagnostics"] = parseErr.Diagnostics
	case errors.As(err, &valErr):
		output["field"] = valErr.Field
		output["value"] = valErr.Value
		if valErr.Example != "" {
			output["example"] = valErr.Example
		}
	case errors.As(err, &cmdErr):
		output["command"] = cmdErr.Command
		output["action"] = cmdErr.Action
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(output)
}

func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "validation_error"
	case ExitConfigError:
		return "config_error"
	case ExitStorageError:
		return "storage_error"
	case ExitScriptError:
		return "script_error"
	case ExitNotFoundError:
		return "not_found_error"
	default:
		return "generic_error"
	}
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErrs config.ValidateErrors
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, alias.ErrInvalidTrigger),
		errors.Is(err, alias.ErrEmptyExpansion),
		errors.Is(err, script.ErrInvalidConfig):
		return ExitUsageError
	case errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, storage.ErrStorage), errors.Is(err, storage.ErrUnknownBackend):
		return ExitStorageError
	case errors.Is(err, script.ErrParse):
		return ExitScriptError
	case errors.Is(err, script.ErrNotFound), errors.Is(err, alias.ErrNotFound):
		return ExitNotFoundError
	default:
		return ExitGeneralError
	}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
