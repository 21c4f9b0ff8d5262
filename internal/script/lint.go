// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package script

import (
	"fmt"
	"strings"

	"github.com/jeranaias/ircpipe/internal/hooks"
)

// Lint checks source without executing it: syntax, package clause, hook
// signatures, then an interpreter type check. Top-level initializers do
// not run. It is only called on request, never before dispatch.
func Lint(source string) (diags []Diagnostic) {
	src := stripBuildConstraints(source)
	parsed, diags := parseSource(src)
	if parsed == nil {
		return diags
	}

	if len(parsed.declaredHooks()) == 0 {
		diags = append(diags, Diagnostic{
			Line: 1, Column: 1, Severity: SeverityWarning,
			Message: "script declares none of " + strings.Join(hooks.Names, ", "),
		})
	}
	if HasErrors(diags) {
		return diags
	}

	i, err := newInterpreter(apiExports(nopAPI{}))
	if err != nil {
		return append(diags, Diagnostic{Severity: SeverityError, Message: err.Error()})
	}
	defer func() {
		if r := recover(); r != nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("type check failed: %v", r),
			})
		}
	}()
	if _, err := i.Compile(src); err != nil {
		diags = append(diags, diagnosticsFromError(err)...)
	}
	return diags
}
