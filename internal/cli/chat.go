// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive session for ircpipe.
//
// Lines are submitted through the command pipeline into the active tab.
// Lines starting with ':' are meta commands that manage the session and
// simulate inbound IRC events, which are broadcast to scripts.
//
// Examples:
//   ircpipe chat
//   ircpipe --nick gopher --network libera chat
//
// Keys:
//   Tab       Complete from aliases and history
//   Up/Down   Line history
//   Ctrl+C    Exit
//   Ctrl+D    Exit

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/jeranaias/ircpipe/internal/alias"
	"github.com/jeranaias/ircpipe/internal/config"
	"github.com/jeranaias/ircpipe/internal/model"
	"github.com/jeranaias/ircpipe/internal/pipeline"
	"github.com/jeranaias/ircpipe/internal/script"
	"github.com/jeranaias/ircpipe/internal/session"
)

// =============================================================================
// INPUT
// =============================================================================

// LineReader reads one line of input at a time.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// linerReader provides line editing, history and tab completion.
type linerReader struct {
	line        *liner.State
	historyFile string
}

// newLinerReader creates a terminal reader. complete supplies tab
// completions for the current line.
func newLinerReader(historyFile string, complete func(string) []string) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(complete)

	r := &linerReader{line: line, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	return r.line.Prompt(prompt)
}

func (r *linerReader) AppendHistory(line string) {
	r.line.AppendHistory(line)
}

// Close saves line history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	if r.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
			if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				_, _ = r.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return r.line.Close()
}

// plainReader reads lines from a non-terminal input without prompting.
type plainReader struct {
	sc *bufio.Scanner
}

// NewPlainReader reads lines from r.
func NewPlainReader(r io.Reader) LineReader {
	return &plainReader{sc: bufio.NewScanner(r)}
}

func (r *plainReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *plainReader) AppendHistory(string) {}

func (r *plainReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

// REPL is an interactive session over an App.
type REPL struct {
	app   *App
	in    LineReader
	out   io.Writer
	quiet bool
	now   func() time.Time
}

// NewREPL creates a session reading from in and writing to out.
func NewREPL(app *App, in LineReader, out io.Writer, quiet bool) *REPL {
	return &REPL{app: app, in: in, out: out, quiet: quiet, now: time.Now}
}

// Run reads and handles lines until EOF, interrupt or :quit.
func (r *REPL) Run(ctx context.Context) error {
	defer r.in.Close()

	if !r.quiet {
		r.printWelcome()
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.in.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				r.printExit()
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			r.in.AppendHistory(line)
		}
		if quit := r.Handle(ctx, line); quit {
			r.printExit()
			return nil
		}
	}
}

func (r *REPL) prompt() string {
	tab := r.app.Session.ActiveTab()
	return PromptStyle.Render(tab.String()+">") + " "
}

// Handle processes one input line. It reports true when the session
// should end.
func (r *REPL) Handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	r.app.Session.RecordActivity()

	if strings.HasPrefix(trimmed, ":") {
		quit, err := r.meta(ctx, trimmed[1:])
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[error]"), err)
		}
		return quit
	}

	r.submit(ctx, line)
	return false
}

func (r *REPL) submit(ctx context.Context, line string) {
	tab := r.app.Session.ActiveTab()
	res, err := r.app.Pipeline.Submit(ctx, line, tab)
	if err != nil {
		fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[error]"), err)
		return
	}

	switch res.Status {
	case pipeline.StatusCancelled:
		msg := "command cancelled by " + res.CancelledBy
		if res.Reason != "" {
			msg += ": " + res.Reason
		}
		fmt.Fprintln(r.out, WarningStyle.Render("["+msg+"]"))
	case pipeline.StatusDispatched:
		if res.Alias != "" && !r.quiet {
			fmt.Fprintln(r.out, DimStyle.Render("/"+res.Alias+" -> "+res.Expanded))
		}
		r.track(tab, res.Text)
	}
}

// track mirrors dispatched commands that change local session state.
func (r *REPL) track(tab model.Tab, text string) {
	cmd, rest := splitCommand(text)
	switch cmd {
	case "join", "j":
		if ch, _ := splitCommand(rest); ch != "" {
			r.app.Session.Join(tab.NetworkID, ch)
		}
	case "part", "leave":
		ch, _ := splitCommand(rest)
		if ch == "" && tab.IsChannel() {
			ch = tab.Name
		}
		if ch != "" {
			r.app.Session.Part(tab.NetworkID, ch)
		}
	case "nick":
		if n, _ := splitCommand(rest); n != "" {
			r.app.Session.SetNick(tab.NetworkID, n)
		}
	}
}

// splitCommand returns the lowercased command word without its slash and
// the rest. For non-command text it returns "" and text.
func splitCommand(text string) (cmd, rest string) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		word, rest, _ := strings.Cut(text[1:], " ")
		return strings.ToLower(word), strings.TrimSpace(rest)
	}
	word, rest, _ := strings.Cut(text, " ")
	return word, strings.TrimSpace(rest)
}

// complete returns tab completions for line.
func (r *REPL) complete(line string) []string {
	if strings.HasPrefix(line, ":") {
		var out []string
		for _, m := range metaCommands {
			if strings.HasPrefix(":"+m.name, line) {
				out = append(out, ":"+m.name+" ")
			}
		}
		return out
	}
	cands := r.app.Suggest.Suggest(line, r.app.Session.ActiveTab())
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Text
	}
	return out
}

// =============================================================================
// META COMMANDS
// =============================================================================

type metaCommand struct {
	name  string
	usage string
	help  string
	run   func(r *REPL, ctx context.Context, args []string) (bool, error)
}

var metaCommands []metaCommand

func init() {
	metaCommands = []metaCommand{
		{"help", "", "show meta commands", (*REPL).metaHelp},
		{"tab", "[network/]target", "switch the active tab", (*REPL).metaTab},
		{"nick", "<nick>", "set your nick on the active network", (*REPL).metaNick},
		{"connect", "[network] [nick]", "mark a network connected and run OnConnect", (*REPL).metaConnect},
		{"disconnect", "[network]", "mark a network disconnected", (*REPL).metaDisconnect},
		{"join", "<#channel> [nick]", "simulate a JOIN and run OnJoin", (*REPL).metaJoin},
		{"recv", "<from> <target> <text...>", "simulate an inbound message and run OnMessage", (*REPL).metaRecv},
		{"suggest", "<input>", "show ranked suggestions", (*REPL).metaSuggest},
		{"aliases", "", "list aliases", (*REPL).metaAliases},
		{"alias", "<trigger> <expansion...>", "add or replace an alias", (*REPL).metaAlias},
		{"unalias", "<trigger>", "remove an alias", (*REPL).metaUnalias},
		{"history", "[n]", "show recent commands", (*REPL).metaHistory},
		{"scripts", "", "list scripts", (*REPL).metaScripts},
		{"install", "<file.go> [name]", "install a script (disabled)", (*REPL).metaInstall},
		{"enable", "<id>", "enable a script", (*REPL).metaEnable},
		{"disable", "<id>", "disable a script", (*REPL).metaDisable},
		{"logs", "<id>", "show a script's log", (*REPL).metaLogs},
		{"status", "", "show session status", (*REPL).metaStatus},
		{"quit", "", "leave the session", (*REPL).metaQuit},
	}
}

func (r *REPL) meta(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, errors.New("empty meta command, try :help")
	}
	name := strings.ToLower(fields[0])
	switch name {
	case "q", "exit":
		name = "quit"
	case "h", "?":
		name = "help"
	}

	for _, m := range metaCommands {
		if m.name == name {
			return m.run(r, ctx, fields[1:])
		}
	}

	names := make([]string, len(metaCommands))
	for i, m := range metaCommands {
		names[i] = m.name
	}
	if s := closest(name, names); s != "" {
		return false, fmt.Errorf("unknown meta command :%s, did you mean :%s?", name, s)
	}
	return false, fmt.Errorf("unknown meta command :%s, try :help", name)
}

func (r *REPL) metaHelp(_ context.Context, _ []string) (bool, error) {
	fmt.Fprintln(r.out, TitleStyle.Render("Meta commands"))
	for _, m := range metaCommands {
		fmt.Fprintf(r.out, "  %s %s\n", RenderLabel(":"+m.name+" "+m.usage, 36), DimStyle.Render(m.help))
	}
	fmt.Fprintln(r.out, DimStyle.Render("Anything else is submitted to the active tab."))
	return false, nil
}

func (r *REPL) metaTab(_ context.Context, args []string) (bool, error) {
	if len(args) == 0 {
		fmt.Fprintln(r.out, r.app.Session.ActiveTab().String())
		return false, nil
	}
	network := r.app.Session.DefaultNetwork()
	target := args[0]
	if n, t, ok := strings.Cut(target, "/"); ok {
		network, target = n, t
	}
	if network == "" {
		return false, errors.New("no network given")
	}
	tab := model.InferTab(network, target)
	if target == network {
		tab = model.ServerTab(network)
	}
	r.app.Session.SetActiveTab(tab)
	return false, nil
}

func (r *REPL) metaNick(_ context.Context, args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: :nick <nick>")
	}
	r.app.Session.SetNick(r.app.Session.DefaultNetwork(), args[0])
	return false, nil
}

func (r *REPL) metaConnect(_ context.Context, args []string) (bool, error) {
	network := r.app.Session.DefaultNetwork()
	if len(args) > 0 {
		network = args[0]
	}
	nick := ""
	if len(args) > 1 {
		nick = args[1]
	}
	r.app.Session.Connect(network, nick)
	r.app.Hooks.Connect(network)
	if !r.quiet {
		fmt.Fprintln(r.out, SuccessStyle.Render("connected to "+network+" as "+r.app.Session.Nick(network)))
	}
	return false, nil
}

func (r *REPL) metaDisconnect(_ context.Context, args []string) (bool, error) {
	network := r.app.Session.DefaultNetwork()
	if len(args) > 0 {
		network = args[0]
	}
	r.app.Session.Disconnect(network)
	return false, nil
}

func (r *REPL) metaJoin(_ context.Context, args []string) (bool, error) {
	if len(args) == 0 {
		return false, errors.New("usage: :join <#channel> [nick]")
	}
	network := r.app.Session.DefaultNetwork()
	channel := args[0]
	me := r.app.Session.Nick(network)
	nick := me
	if len(args) > 1 {
		nick = args[1]
	}

	if model.EqualFold(nick, me) {
		r.app.Session.Join(network, channel)
		r.app.Session.SetActiveTab(model.ChannelTab(network, channel))
	}
	r.app.Hooks.Join(channel, nick, model.Message{
		NetworkID: network,
		From:      nick,
		Target:    channel,
		Command:   "JOIN",
		Time:      r.now(),
	})
	return false, nil
}

func (r *REPL) metaRecv(_ context.Context, args []string) (bool, error) {
	if len(args) < 3 {
		return false, errors.New("usage: :recv <from> <target> <text...>")
	}
	msg := model.Message{
		NetworkID: r.app.Session.DefaultNetwork(),
		From:      args[0],
		Target:    args[1],
		Text:      strings.Join(args[2:], " "),
		Command:   "PRIVMSG",
		Time:      r.now(),
	}
	fmt.Fprintf(r.out, "%s <%s> %s\n", DimStyle.Render(msg.Target), msg.From, msg.Text)
	r.app.Hooks.Message(msg)
	return false, nil
}

func (r *REPL) metaSuggest(_ context.Context, args []string) (bool, error) {
	renderCandidates(r.out, r.app.Suggest.Suggest(strings.Join(args, " "), r.app.Session.ActiveTab()))
	return false, nil
}

func (r *REPL) metaAliases(_ context.Context, _ []string) (bool, error) {
	renderAliases(r.out, r.app.Aliases.List())
	return false, nil
}

func (r *REPL) metaAlias(_ context.Context, args []string) (bool, error) {
	if len(args) < 2 {
		return false, errors.New("usage: :alias <trigger> <expansion...>")
	}
	return false, r.app.Aliases.Set(alias.Alias{Trigger: args[0], Expansion: strings.Join(args[1:], " ")})
}

func (r *REPL) metaUnalias(_ context.Context, args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: :unalias <trigger>")
	}
	return false, r.app.Aliases.Remove(args[0])
}

func (r *REPL) metaHistory(_ context.Context, args []string) (bool, error) {
	n := 20
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("invalid count %q", args[0])
		}
		n = v
	}
	entries := r.app.History.Recent(n)
	slices.Reverse(entries)
	renderHistory(r.out, entries)
	return false, nil
}

func (r *REPL) metaScripts(_ context.Context, _ []string) (bool, error) {
	renderScripts(r.out, r.app.Scripts.List())
	return false, nil
}

func (r *REPL) metaInstall(_ context.Context, args []string) (bool, error) {
	if len(args) == 0 {
		return false, errors.New("usage: :install <file.go> [name]")
	}
	src, err := os.ReadFile(config.ExpandPath(args[0]))
	if err != nil {
		return false, err
	}
	name := strings.Join(args[1:], " ")
	s, err := r.app.Scripts.InstallNamed(uuid.NewString(), name, string(src), nil)
	if err != nil {
		var perr *script.ParseError
		if errors.As(err, &perr) {
			renderDiagnostics(r.out, perr.Diagnostics)
		}
		return false, err
	}
	fmt.Fprintf(r.out, "installed %s (%s), disabled; :enable %s to activate\n", s.DisplayName(), s.ID, s.ID)
	return false, nil
}

func (r *REPL) metaEnable(_ context.Context, args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: :enable <id>")
	}
	return false, r.app.Scripts.SetEnabled(args[0], true)
}

func (r *REPL) metaDisable(_ context.Context, args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: :disable <id>")
	}
	return false, r.app.Scripts.SetEnabled(args[0], false)
}

func (r *REPL) metaLogs(_ context.Context, args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: :logs <id>")
	}
	lines, err := r.app.Scripts.Logs(args[0])
	if err != nil {
		return false, err
	}
	if len(lines) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("log is empty"))
	}
	for _, l := range lines {
		fmt.Fprintln(r.out, l)
	}
	return false, nil
}

func (r *REPL) metaStatus(_ context.Context, _ []string) (bool, error) {
	st := r.app.Session.GetStatus()
	fmt.Fprintln(r.out, st.String())
	for _, n := range r.app.Session.Networks() {
		state := "disconnected"
		if n.Connected {
			state = "connected"
		}
		fmt.Fprintf(r.out, "  %s %s as %s %s\n", RenderLabel(n.ID, 12), state, n.Nick, DimStyle.Render(strings.Join(n.Channels, " ")))
	}
	enabled := 0
	for _, s := range r.app.Scripts.List() {
		if s.Enabled {
			enabled++
		}
	}
	fmt.Fprintf(r.out, "  %d aliases, %d history entries, %d/%d scripts enabled\n",
		r.app.Aliases.Len(), r.app.History.Len(), enabled, r.app.Scripts.Len())
	return false, nil
}

func (r *REPL) metaQuit(_ context.Context, _ []string) (bool, error) {
	return true, nil
}

// =============================================================================
// BANNERS
// =============================================================================

func (r *REPL) printWelcome() {
	cfg := r.app.Config
	fmt.Fprintln(r.out, TitleStyle.Render("ircpipe "+Version))
	fmt.Fprintf(r.out, "%s as %s on %s. %s\n",
		DimStyle.Render("session "+r.app.Session.SessionID()),
		cfg.Identity.Nick, cfg.Identity.Network,
		DimStyle.Render("Type :help for meta commands, Tab to complete."))
}

func (r *REPL) printExit() {
	if r.quiet {
		return
	}
	st := r.app.Session.GetStatus()
	fmt.Fprintln(r.out, DimStyle.Render("session ended after "+session.FormatDuration(st.Duration)))
}

// =============================================================================
// COMMAND HANDLER
// =============================================================================

// HandleChat runs the interactive session on stdin/stdout.
func HandleChat(ctx context.Context, app *App, args Args) error {
	if err := app.LoadScripts(ctx, true); err != nil {
		app.Logger.Warn("scripts directory not loaded", "error", err)
	}

	var in LineReader
	r := NewREPL(app, nil, os.Stdout, args.Quiet)
	if IsTTY() {
		in = newLinerReader(config.ExpandPath(app.Config.UI.HistoryFile), r.complete)
	} else {
		in = NewPlainReader(os.Stdin)
	}
	r.in = in
	return r.Run(ctx)
}
