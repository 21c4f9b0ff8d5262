// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// =============================================================================
// TEXT MODE SETUP (Copy/Paste Friendly)
// =============================================================================

// errCancelled is returned when the user quits at a prompt.
var errCancelled = errors.New("setup cancelled")

// prompter reads one answer per call.
type prompter interface {
	Prompt(prompt string) (string, error)
}

type linerPrompter struct{ *liner.State }

func (p linerPrompter) Prompt(prompt string) (string, error) {
	line, err := p.State.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errCancelled
	}
	return line, err
}

type scanPrompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (p scanPrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.sc.Text(), nil
}

// runText runs setup with plain prompts. Line editing is used when stdin
// is a terminal.
func runText(in io.Reader, out io.Writer, dir string, defaults Answers) error {
	var p prompter
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		l := liner.NewLiner()
		defer l.Close()
		l.SetCtrlCAborts(true)
		p = linerPrompter{l}
	} else {
		p = scanPrompter{sc: bufio.NewScanner(in), out: out}
	}
	_, err := textSetup(p, out, dir, defaults)
	return err
}

func textSetup(p prompter, out io.Writer, dir string, defaults Answers) (Result, error) {
	rule := strings.Repeat("-", 80)

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintln(out, "                                 IRCPIPE SETUP")
	fmt.Fprintln(out, "          "+tagline)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintln(out)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "                                 SYSTEM CHECK")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
	failed := false
	for idx := range checkNames {
		c := runCheck(idx, dir)
		tag := map[string]string{"pass": "[OK]", "warn": "[!!]", "fail": "[FAIL]"}[c.Status]
		fmt.Fprintf(out, "  %s %s: %s\n", tag, c.Name, c.Message)
		if c.Fix != "" {
			fmt.Fprintf(out, "       -> %s\n", c.Fix)
		}
		if c.Status == "fail" {
			failed = true
		}
	}
	fmt.Fprintln(out)
	if failed {
		return Result{}, errors.New("system check failed")
	}

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "                                   IDENTITY")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	a := defaults
	for {
		var err error
		if a.Nick, err = ask(p, "Nick", a.Nick); err != nil {
			return Result{}, err
		}
		if a.Network, err = ask(p, "Network", a.Network); err != nil {
			return Result{}, err
		}
		if a.Channel, err = ask(p, "Channel", a.Channel); err != nil {
			return Result{}, err
		}
		a = a.Normalize()
		check := a
		check.Backend = backends[0]
		if err := check.Validate(); err != nil {
			fmt.Fprintf(out, "  %v\n\n", err)
			continue
		}
		break
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "                                    STORAGE")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
	def := 1
	for idx, b := range backends {
		fmt.Fprintf(out, "  [%d] %-8s %s\n", idx+1, b, backendHelp[b])
		if b == defaults.Backend {
			def = idx + 1
		}
	}
	fmt.Fprintln(out)
	for {
		choice, err := ask(p, fmt.Sprintf("Enter choice [1-%d]", len(backends)), strconv.Itoa(def))
		if err != nil {
			return Result{}, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(choice))
		if err != nil || n < 1 || n > len(backends) {
			fmt.Fprintf(out, "  choose a number from 1 to %d\n", len(backends))
			continue
		}
		a.Backend = backends[n-1]
		break
	}
	fmt.Fprintln(out)

	res, err := Apply(dir, a)
	if err != nil {
		return Result{}, err
	}

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "                                     DONE")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Config:  %s\n", res.ConfigPath)
	if res.BackupPath != "" {
		fmt.Fprintf(out, "  Backup:  %s\n", res.BackupPath)
	}
	fmt.Fprintf(out, "  Scripts: %s\n", res.ScriptsDir)
	fmt.Fprintln(out)
	for _, tip := range tips {
		fmt.Fprintf(out, "  %-26s %s\n", tip.Title, tip.Example)
	}
	fmt.Fprintln(out)
	return res, nil
}

// ask prompts with a default shown in brackets. A "q" answer cancels.
func ask(p prompter, label, def string) (string, error) {
	prompt := label + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, def)
	}
	line, err := p.Prompt("  " + prompt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", errCancelled
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	switch {
	case line == "q":
		return "", errCancelled
	case line == "":
		return def, nil
	}
	return line, nil
}
