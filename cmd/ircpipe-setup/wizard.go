// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	brandPrimary   = lipgloss.Color("#7C3AED") // Purple
	brandSecondary = lipgloss.Color("#06B6D4") // Cyan
	brandAccent    = lipgloss.Color("#10B981") // Emerald
	brandWarning   = lipgloss.Color("#F59E0B") // Amber
	brandError     = lipgloss.Color("#EF4444") // Red
	textMuted      = lipgloss.Color("#6B7280") // Gray

	titleStyle = lipgloss.NewStyle().
			Foreground(brandPrimary).
			Bold(true).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(textMuted).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(brandAccent).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(brandError).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(brandWarning)

	highlightStyle = lipgloss.NewStyle().
			Foreground(brandSecondary).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(textMuted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brandPrimary).
			Padding(1, 2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(brandPrimary).
			Bold(true)

	unselectedStyle = lipgloss.NewStyle().
			Foreground(textMuted)
)

const logo = `
  _                _
 (_)_ __ ___ _ __ (_)_ __   ___
 | | '__/ __| '_ \| | '_ \ / _ \
 | | | | (__| |_) | | |_) |  __/
 |_|_|  \___| .__/|_| .__/ \___|
            |_|     |_|
`

const tagline = "aliases, suggestions and script hooks for your IRC commands"

// =============================================================================
// WIZARD MODEL
// =============================================================================

// Phase is the current wizard screen.
type Phase int

const (
	PhaseWelcome Phase = iota
	PhaseSystemCheck
	PhaseIdentity
	PhaseStorage
	PhaseWriting
	PhaseComplete
)

// Identity input order.
const (
	fieldNick = iota
	fieldNetwork
	fieldChannel
)

// Tip is one hint shown after setup.
type Tip struct {
	Title   string
	Example string
}

var tips = []Tip{
	{"Start a session", "ircpipe"},
	{"Add an alias", ":alias w /whois"},
	{"Complete with Tab", "/w<Tab>"},
	{"Enable the example script", "ircpipe script enable file:identify_guard"},
	{"Read the script API", "ircpipe script api"},
}

// Wizard is the interactive setup model.
type Wizard struct {
	phase   Phase
	width   int
	height  int
	dir     string
	spinner spinner.Model

	checks       []CheckResult
	currentCheck int

	inputs  []textinput.Model
	focus   int
	backend int

	result Result
	err    string
}

// NewWizard creates a wizard that writes into dir, pre-filled with defaults.
func NewWizard(dir string, defaults Answers) *Wizard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(brandPrimary)

	placeholders := []string{"nick", "network id, e.g. libera", "#channel (optional)"}
	values := []string{defaults.Nick, defaults.Network, defaults.Channel}
	inputs := make([]textinput.Model, len(placeholders))
	for idx := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[idx]
		ti.SetValue(values[idx])
		ti.CharLimit = 64
		ti.Width = 32
		inputs[idx] = ti
	}

	w := &Wizard{
		phase:   PhaseWelcome,
		dir:     dir,
		spinner: s,
		inputs:  inputs,
	}
	for _, name := range checkNames {
		w.checks = append(w.checks, CheckResult{Name: name, Status: "checking"})
	}
	for idx, b := range backends {
		if b == defaults.Backend {
			w.backend = idx
		}
	}
	return w
}

// Init starts the spinner.
func (w *Wizard) Init() tea.Cmd {
	return w.spinner.Tick
}

// Answers returns the current choices.
func (w *Wizard) Answers() Answers {
	return Answers{
		Nick:    w.inputs[fieldNick].Value(),
		Network: w.inputs[fieldNetwork].Value(),
		Channel: w.inputs[fieldChannel].Value(),
		Backend: backends[w.backend],
	}.Normalize()
}

// Result returns what setup wrote. It is zero until PhaseComplete.
func (w *Wizard) Result() Result {
	return w.result
}

// =============================================================================
// UPDATE
// =============================================================================

// checkCompleteMsg signals a check is complete.
type checkCompleteMsg struct {
	index  int
	result CheckResult
}

// applyCompleteMsg signals the files are written.
type applyCompleteMsg struct {
	result Result
	err    error
}

// Update handles messages.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return w.handleKey(msg)

	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		boxWidth := min(max(msg.Width-16, 40), 70)
		boxStyle = boxStyle.Width(boxWidth)
		return w, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd

	case checkCompleteMsg:
		w.checks[msg.index] = msg.result
		w.currentCheck++
		if w.currentCheck < len(w.checks) {
			return w, w.runCheck(w.currentCheck)
		}
		return w, nil

	case applyCompleteMsg:
		if msg.err != nil {
			w.err = msg.err.Error()
			w.phase = PhaseStorage
			return w, nil
		}
		w.result = msg.result
		w.phase = PhaseComplete
		return w, nil
	}

	return w, nil
}

func (w *Wizard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return w, tea.Quit
	}

	switch w.phase {
	case PhaseWelcome:
		switch msg.String() {
		case "q":
			return w, tea.Quit
		case "enter", " ":
			w.phase = PhaseSystemCheck
			return w, w.runCheck(0)
		}

	case PhaseSystemCheck:
		switch msg.String() {
		case "q":
			return w, tea.Quit
		case "enter", " ":
			if w.pending() || w.blocked() {
				return w, nil
			}
			w.phase = PhaseIdentity
			return w, w.focusInput(fieldNick)
		}

	case PhaseIdentity:
		return w.updateIdentity(msg)

	case PhaseStorage:
		switch msg.String() {
		case "up", "k":
			if w.backend > 0 {
				w.backend--
			}
		case "down", "j", "tab":
			w.backend = (w.backend + 1) % len(backends)
		case "shift+tab", "backspace":
			w.phase = PhaseIdentity
			return w, w.focusInput(fieldChannel)
		case "enter":
			w.err = ""
			w.phase = PhaseWriting
			return w, w.apply()
		}

	case PhaseComplete:
		switch msg.String() {
		case "enter", "q", " ":
			return w, tea.Quit
		}
	}
	return w, nil
}

func (w *Wizard) updateIdentity(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return w, w.focusInput((w.focus + 1) % len(w.inputs))
	case "shift+tab", "up":
		return w, w.focusInput((w.focus + len(w.inputs) - 1) % len(w.inputs))
	case "enter":
		if w.focus < len(w.inputs)-1 {
			return w, w.focusInput(w.focus + 1)
		}
		a := w.Answers()
		a.Backend = backends[0]
		if err := a.Validate(); err != nil {
			w.err = err.Error()
			return w, nil
		}
		w.err = ""
		w.inputs[w.focus].Blur()
		w.phase = PhaseStorage
		return w, nil
	}

	var cmd tea.Cmd
	w.inputs[w.focus], cmd = w.inputs[w.focus].Update(msg)
	return w, cmd
}

func (w *Wizard) focusInput(idx int) tea.Cmd {
	for i := range w.inputs {
		w.inputs[i].Blur()
	}
	w.focus = idx
	return w.inputs[idx].Focus()
}

// blocked reports whether a failed check prevents continuing.
func (w *Wizard) blocked() bool {
	for _, c := range w.checks {
		if c.Status == "fail" {
			return true
		}
	}
	return false
}

// pending reports whether a check or the config write is in flight.
func (w *Wizard) pending() bool {
	switch w.phase {
	case PhaseSystemCheck:
		return w.currentCheck < len(w.checks)
	case PhaseWriting:
		return true
	}
	return false
}

// =============================================================================
// COMMANDS
// =============================================================================

func (w *Wizard) runCheck(index int) tea.Cmd {
	dir := w.dir
	return func() tea.Msg {
		start := time.Now()
		result := runCheck(index, dir)
		// Keep each row on screen long enough to read.
		if d := 150*time.Millisecond - time.Since(start); d > 0 {
			time.Sleep(d)
		}
		return checkCompleteMsg{index: index, result: result}
	}
}

func (w *Wizard) apply() tea.Cmd {
	dir, answers := w.dir, w.Answers()
	return func() tea.Msg {
		res, err := Apply(dir, answers)
		return applyCompleteMsg{result: res, err: err}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the wizard.
func (w *Wizard) View() string {
	switch w.phase {
	case PhaseWelcome:
		return w.viewWelcome()
	case PhaseSystemCheck:
		return w.viewSystemCheck()
	case PhaseIdentity:
		return w.viewIdentity()
	case PhaseStorage:
		return w.viewStorage()
	case PhaseWriting:
		return w.center(fmt.Sprintf("\n  %s Writing configuration...\n", w.spinner.View()))
	case PhaseComplete:
		return w.viewComplete()
	}
	return ""
}

func (w *Wizard) viewWelcome() string {
	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Foreground(brandPrimary).Bold(true).Render(logo))
	s.WriteString("\n")
	s.WriteString(subtitleStyle.Render("  " + tagline))
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render(fmt.Sprintf("  Version %s", version)))
	s.WriteString("\n\n")

	text := `
This setup will:

  * Check that the config directory is usable
  * Ask for your nick, network and default channel
  * Pick where aliases, history and scripts are kept
  * Write config.toml and an example script

`
	s.WriteString(boxStyle.Render(text))
	s.WriteString("\n\n")
	s.WriteString(highlightStyle.Render("  Press ENTER to begin"))
	s.WriteString(dimStyle.Render("  |  Press Q to quit"))
	return w.center(s.String())
}

func (w *Wizard) viewSystemCheck() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("  System Check"))
	s.WriteString("\n\n")

	for idx, check := range w.checks {
		var icon, status string
		var style lipgloss.Style

		switch check.Status {
		case "checking":
			if idx == w.currentCheck {
				icon = w.spinner.View()
			} else {
				icon = "[ ]"
			}
			status = "Checking..."
			style = dimStyle
		case "pass":
			icon, status, style = "[OK]", check.Message, successStyle
		case "fail":
			icon, status, style = "[FAIL]", check.Message, errorStyle
		case "warn":
			icon, status, style = "[!!]", check.Message, warningStyle
		}

		s.WriteString(fmt.Sprintf("  %s %s", style.Render(icon), check.Name))
		s.WriteString(dimStyle.Render(" - " + status))
		s.WriteString("\n")
		if check.Fix != "" {
			s.WriteString(dimStyle.Render("      -> " + check.Fix))
			s.WriteString("\n")
		}
	}
	s.WriteString("\n")

	if w.currentCheck >= len(w.checks) {
		if w.blocked() {
			s.WriteString(errorStyle.Render("  Setup cannot continue"))
			s.WriteString("\n\n")
			s.WriteString(dimStyle.Render("  Press Q to quit"))
		} else {
			s.WriteString(successStyle.Render("  Ready"))
			s.WriteString("\n\n")
			s.WriteString(highlightStyle.Render("  Press ENTER to continue"))
		}
	}
	return w.center(s.String())
}

func (w *Wizard) viewIdentity() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("  Identity"))
	s.WriteString("\n\n")

	labels := []string{"Nick", "Network", "Channel"}
	for idx, in := range w.inputs {
		label := unselectedStyle.Render(fmt.Sprintf("  %-9s", labels[idx]))
		if idx == w.focus {
			label = selectedStyle.Render(fmt.Sprintf("> %-9s", labels[idx]))
		}
		s.WriteString(label + in.View() + "\n")
	}
	s.WriteString("\n")
	if w.err != "" {
		s.WriteString(errorStyle.Render("  " + w.err))
		s.WriteString("\n\n")
	}
	s.WriteString(dimStyle.Render("  Tab/Up/Down to move  |  Enter to continue  |  Esc to quit"))
	return w.center(s.String())
}

func (w *Wizard) viewStorage() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("  Storage"))
	s.WriteString("\n\n")

	for idx, b := range backends {
		line := fmt.Sprintf("%-8s %s", b, backendHelp[b])
		if idx == w.backend {
			s.WriteString(selectedStyle.Render("  > " + line))
		} else {
			s.WriteString(unselectedStyle.Render("    " + line))
		}
		s.WriteString("\n")
	}
	s.WriteString("\n")
	if w.err != "" {
		s.WriteString(errorStyle.Render("  " + w.err))
		s.WriteString("\n\n")
	}
	s.WriteString(dimStyle.Render("  Up/Down to select  |  Enter to write config  |  Shift+Tab to go back"))
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("  Directory: " + w.dir))
	return w.center(s.String())
}

func (w *Wizard) viewComplete() string {
	var s strings.Builder
	s.WriteString(successStyle.Render("  Setup complete"))
	s.WriteString("\n\n")

	var body strings.Builder
	fmt.Fprintf(&body, "Config:  %s\n", w.result.ConfigPath)
	if w.result.BackupPath != "" {
		fmt.Fprintf(&body, "Backup:  %s\n", w.result.BackupPath)
	}
	fmt.Fprintf(&body, "Scripts: %s\n", w.result.ScriptsDir)
	body.WriteString("\n")
	for _, tip := range tips {
		fmt.Fprintf(&body, "%-26s %s\n", tip.Title, highlightStyle.Render(tip.Example))
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(body.String(), "\n")))
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("  Press ENTER to exit"))
	return w.center(s.String())
}

// center pads content down a third of the screen.
func (w *Wizard) center(content string) string {
	if w.width == 0 || w.height == 0 {
		return content
	}
	lines := strings.Count(content, "\n") + 1
	top := max((w.height-lines)/3, 0)
	return strings.Repeat("\n", top) + content
}
