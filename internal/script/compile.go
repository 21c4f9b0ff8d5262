// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package script

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/jeranaias/ircpipe/internal/hooks"
	"github.com/jeranaias/ircpipe/internal/model"
)

// Compiler turns script source into hook functions bound to api.
// Compile is the interpreter-backed default; tests substitute their own.
type Compiler func(source string, api interp.Exports) (hooks.Hooks, error)

// =============================================================================
// RESTRICTED STDLIB
// =============================================================================

// allowedPackages is the stdlib surface visible to scripts. No os, net,
// io/ioutil, syscall, unsafe or reflect.
var allowedPackages = []string{
	"bytes/bytes",
	"encoding/json/json",
	"errors/errors",
	"fmt/fmt",
	"math/math",
	"regexp/regexp",
	"sort/sort",
	"strconv/strconv",
	"strings/strings",
	"time/time",
	"unicode/unicode",
	"unicode/utf8/utf8",
}

var restrictedStdlib = sync.OnceValue(func() interp.Exports {
	restricted := interp.Exports{}
	for _, key := range allowedPackages {
		if syms, ok := stdlib.Symbols[key]; ok {
			restricted[key] = syms
		}
	}
	return restricted
})

func newInterpreter(api interp.Exports) (*interp.Interpreter, error) {
	// Interpreter panics surface as hook errors on the script, not on the
	// terminal.
	i := interp.New(interp.Options{Stdout: io.Discard, Stderr: io.Discard})
	if err := i.Use(restrictedStdlib()); err != nil {
		return nil, fmt.Errorf("load script stdlib: %w", err)
	}
	if err := i.Use(api); err != nil {
		return nil, fmt.Errorf("load irc api: %w", err)
	}
	return i, nil
}

// =============================================================================
// COMPILE
// =============================================================================

// Compile loads source in a fresh interpreter and extracts its hooks.
// Top-level declarations run once here. Failures are *ParseError.
func Compile(source string, api interp.Exports) (h hooks.Hooks, err error) {
	src := stripBuildConstraints(source)
	parsed, diags := parseSource(src)
	if HasErrors(diags) {
		return h, &ParseError{Diagnostics: diags}
	}
	declared := parsed.declaredHooks()

	i, err := newInterpreter(api)
	if err != nil {
		return h, err
	}

	defer func() {
		if r := recover(); r != nil {
			h = hooks.Hooks{}
			err = &ParseError{Diagnostics: []Diagnostic{{
				Severity: SeverityError,
				Message:  fmt.Sprintf("script panicked while loading: %v", r),
			}}}
		}
	}()

	if _, err := i.Eval(src); err != nil {
		return h, &ParseError{Diagnostics: diagnosticsFromError(err)}
	}

	for _, name := range hooks.Names {
		pos, ok := declared[name]
		if !ok {
			continue
		}
		v, err := i.Eval(name)
		if err != nil {
			return hooks.Hooks{}, &ParseError{Diagnostics: diagnosticsFromError(err)}
		}
		if err := bindHook(&h, name, v); err != nil {
			return hooks.Hooks{}, &ParseError{Diagnostics: []Diagnostic{{
				Line: pos.Line, Column: pos.Column, Severity: SeverityError, Message: err.Error(),
			}}}
		}
	}
	return h, nil
}

// wantSignatures documents the accepted hook shapes.
var wantSignatures = map[string]string{
	hooks.HookConnect: "func(networkID string)",
	hooks.HookMessage: "func(msg irc.Message)",
	hooks.HookJoin:    "func(channel, nick string, msg irc.Message)",
	hooks.HookCommand: "func(text string, tab irc.Tab) irc.Result (or string)",
}

func bindHook(h *hooks.Hooks, name string, v reflect.Value) error {
	if !v.IsValid() || !v.CanInterface() {
		return fmt.Errorf("%s is not a function", name)
	}
	fn := v.Interface()
	mismatch := fmt.Errorf("%s has type %T, want %s", name, fn, wantSignatures[name])

	switch name {
	case hooks.HookConnect:
		f, ok := fn.(func(string))
		if !ok {
			return mismatch
		}
		h.OnConnect = f
	case hooks.HookMessage:
		f, ok := fn.(func(model.Message))
		if !ok {
			return mismatch
		}
		h.OnMessage = f
	case hooks.HookJoin:
		f, ok := fn.(func(string, string, model.Message))
		if !ok {
			return mismatch
		}
		h.OnJoin = f
	case hooks.HookCommand:
		switch f := fn.(type) {
		case func(string, model.Tab) hooks.Result:
			h.OnCommand = f
		case func(string, model.Tab) string:
			h.OnCommand = func(text string, tab model.Tab) hooks.Result {
				return hooks.FromString(f(text, tab))
			}
		default:
			return mismatch
		}
	}
	return nil
}

// =============================================================================
// SOURCE HANDLING
// =============================================================================

// stripBuildConstraints blanks //go:build and // +build lines ahead of the
// package clause. Lines are blanked, not removed, so positions still match
// the user's file.
func stripBuildConstraints(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "package ") {
			break
		}
		if strings.HasPrefix(l, "//go:build") || strings.HasPrefix(l, "// +build") {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// parsedScript is a syntactically valid script source.
type parsedScript struct {
	fset *token.FileSet
	file *ast.File
}

// parseSource parses src and checks the package clause and hook
// signatures. The result is nil when parsing failed.
func parseSource(src string) (*parsedScript, []Diagnostic) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "script.go", src, parser.AllErrors)
	if err != nil {
		return nil, diagnosticsFromError(err)
	}

	var diags []Diagnostic
	if file.Name.Name != "main" {
		pos := fset.Position(file.Name.Pos())
		diags = append(diags, Diagnostic{
			Line: pos.Line, Column: pos.Column, Severity: SeverityError,
			Message: fmt.Sprintf("scripts must be package main, found package %s", file.Name.Name),
		})
	}
	diags = append(diags, checkSignatures(fset, file)...)
	return &parsedScript{fset: fset, file: file}, diags
}

// declaredHooks maps each recognized hook declared at top level, as a
// function or a variable, to its position.
func (p *parsedScript) declaredHooks() map[string]token.Position {
	out := make(map[string]token.Position)
	recognized := make(map[string]bool, len(hooks.Names))
	for _, n := range hooks.Names {
		recognized[n] = true
	}

	for _, decl := range p.file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && recognized[d.Name.Name] {
				out[d.Name.Name] = p.fset.Position(d.Name.Pos())
			}
		case *ast.GenDecl:
			if d.Tok != token.VAR {
				continue
			}
			for _, spec := range d.Specs {
				for _, id := range spec.(*ast.ValueSpec).Names {
					if recognized[id.Name] {
						out[id.Name] = p.fset.Position(id.Pos())
					}
				}
			}
		}
	}
	return out
}

// checkSignatures validates the static shape of declared hook functions.
func checkSignatures(fset *token.FileSet, file *ast.File) []Diagnostic {
	pkg := ircImportName(file)
	tab, msg, res := pkg+".Tab", pkg+".Message", pkg+".Result"
	want := map[string][][]string{
		hooks.HookConnect: {{"string"}, {}},
		hooks.HookMessage: {{msg}, {}},
		hooks.HookJoin:    {{"string", "string", msg}, {}},
		hooks.HookCommand: {{"string", tab}, {res}},
	}

	var diags []Diagnostic
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv != nil {
			continue
		}
		shape, ok := want[fd.Name.Name]
		if !ok {
			continue
		}
		params, results := fieldTypes(fd.Type.Params), fieldTypes(fd.Type.Results)
		if equalTypes(params, shape[0]) && (equalTypes(results, shape[1]) ||
			fd.Name.Name == hooks.HookCommand && equalTypes(results, []string{"string"})) {
			continue
		}
		pos := fset.Position(fd.Name.Pos())
		diags = append(diags, Diagnostic{
			Line: pos.Line, Column: pos.Column, Severity: SeverityError,
			Message: fmt.Sprintf("%s has signature func(%s)%s, want %s",
				fd.Name.Name, strings.Join(params, ", "), formatResults(results),
				wantSignatures[fd.Name.Name]),
		})
	}
	return diags
}

// ircImportName returns the local name of the "irc" import.
func ircImportName(file *ast.File) string {
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || path != apiImportPath {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
	}
	return apiImportPath
}

func fieldTypes(fl *ast.FieldList) []string {
	if fl == nil {
		return []string{}
	}
	out := []string{}
	for _, f := range fl.List {
		typ := types.ExprString(f.Type)
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, typ)
		}
	}
	return out
}

func equalTypes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatResults(results []string) string {
	switch len(results) {
	case 0:
		return ""
	case 1:
		return " " + results[0]
	default:
		return " (" + strings.Join(results, ", ") + ")"
	}
}

// =============================================================================
// ERROR POSITIONS
// =============================================================================

var positionPattern = regexp.MustCompile(`(?:^|[^\d])(\d+):(\d+):\s*(.+)$`)

// diagnosticsFromError converts parser and interpreter errors into
// diagnostics, keeping positions where the error text carries them.
func diagnosticsFromError(err error) []Diagnostic {
	var list scanner.ErrorList
	if errors.As(err, &list) {
		out := make([]Diagnostic, 0, len(list))
		for _, e := range list {
			out = append(out, Diagnostic{
				Line: e.Pos.Line, Column: e.Pos.Column, Severity: SeverityError, Message: e.Msg,
			})
		}
		return out
	}

	var out []Diagnostic
	for _, line := range strings.Split(strings.TrimSpace(err.Error()), "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		d := Diagnostic{Severity: SeverityError, Message: line}
		if m := positionPattern.FindStringSubmatch(line); m != nil {
			d.Line, _ = strconv.Atoi(m[1])
			d.Column, _ = strconv.Atoi(m[2])
			d.Message = m[3]
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		out = append(out, Diagnostic{Severity: SeverityError, Message: err.Error()})
	}
	return out
}
