// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/ircpipe/internal/config"
)

const version = "1.0.0"

func main() {
	textMode := false
	dir := ""

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--text", "-t", "--simple":
			textMode = true
		case "--dir", "-d":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--dir needs a value")
				os.Exit(2)
			}
			i++
			dir = args[i]
		case "--help", "-h":
			printHelp()
			return
		case "--version", "-v":
			fmt.Printf("ircpipe setup v%s\n", version)
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown option %q, try --help\n", args[i])
			os.Exit(2)
		}
	}

	if dir == "" {
		d, err := config.ConfigDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		dir = d
	}
	dir = config.ExpandPath(dir)

	if textMode {
		if err := runText(os.Stdin, os.Stdout, dir, DefaultAnswers()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !isTerminal() {
		fmt.Println("ircpipe setup needs an interactive terminal.")
		fmt.Println("Run with --text for plain prompts.")
		os.Exit(1)
	}

	p := tea.NewProgram(NewWizard(dir, DefaultAnswers()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running setup: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`ircpipe setup v` + version + `

Usage: ircpipe-setup [OPTIONS]

Options:
  --text, -t       Plain prompts instead of the full-screen wizard
  --dir, -d PATH   Directory to write config.toml and scripts/ into
                   (default: $IRCPIPE_HOME or ~/.ircpipe)
  --help, -h       Show this help
  --version, -v    Show version`)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
