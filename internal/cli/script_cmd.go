// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// script_cmd.go - Script command implementation for ircpipe.
//
// Command: script [subcommand]
// Short:   Manage hook scripts
// Aliases: scripts
//
// Subcommands:
//   list (default)                 List installed scripts
//   show <id>                      Show one script with its source
//   install <file.go>              Install a script (disabled unless --enable)
//   replace <id> <file.go>         Recompile an installed script
//   lint <file.go>                 Check a script without installing it
//   enable <id>                    Enable a script
//   disable <id>                   Disable a script
//   rm <id>                        Remove a script
//   logs <id>                      Show a script's log
//   config <id> <json>             Replace a script's config
//   api                            Show the script API reference
//
// Flags:
//   --name NAME         Display name (install)
//   --config JSON       Config object (install)
//   --enable            Enable after install
//
// Examples:
//   ircpipe script install guard.go --name guard --enable
//   ircpipe script lint guard.go
//   ircpipe script config file:greeter '{"greeting": "hey"}'
//   ircpipe --json script list
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/ircpipe/internal/config"
	"github.com/jeranaias/ircpipe/internal/script"
)

const scriptUsage = "ircpipe script [list|show|install|replace|lint|enable|disable|rm|logs|config|api] ..."

// LintData is the JSON payload of "script lint".
type LintData struct {
	File        string              `json:"file"`
	OK          bool                `json:"ok"`
	Diagnostics []script.Diagnostic `json:"diagnostics"`
}

// ScriptLogData is the JSON payload of "script logs".
type ScriptLogData struct {
	ID    string   `json:"id"`
	Lines []string `json:"lines"`
}

// HandleScript handles the "script" command.
func HandleScript(ctx context.Context, w io.Writer, app *App, args Args) error {
	p := NewArgParser(args.Raw, "enable")
	sub := p.Subcommand()

	// lint and api never touch the registry
	if sub != "lint" && sub != "api" {
		if err := app.LoadScripts(ctx, false); err != nil {
			app.Logger.Warn("scripts directory not loaded", "error", err)
		}
	}

	switch sub {
	case "", "list", "ls":
		return OutputJSON(w, args.JSON, "script list", func() (interface{}, error) {
			list := app.Scripts.List()
			if !args.JSON {
				renderScripts(w, list)
			}
			return list, nil
		})

	case "show":
		id, err := requireID(p, "show")
		if err != nil {
			return err
		}
		return OutputJSON(w, args.JSON, "script show", func() (interface{}, error) {
			s, err := app.Scripts.Get(id)
			if err != nil {
				return nil, err
			}
			if !args.JSON {
				printScript(w, s)
			}
			return s, nil
		})

	case "install", "add":
		file := p.Positional(1)
		if file == "" {
			return ErrMissingArgument("file", "ircpipe script install guard.go")
		}
		cfg, err := scriptConfigArg(p.Flag("config"))
		if err != nil {
			return err
		}
		return OutputJSON(w, args.JSON, "script install", func() (interface{}, error) {
			src, err := readScriptFile(file)
			if err != nil {
				return nil, err
			}
			s, err := app.Scripts.InstallNamed(uuid.NewString(), p.Flag("name"), src, cfg)
			if err != nil {
				return nil, err
			}
			if p.BoolFlag("enable") {
				if err := app.Scripts.SetEnabled(s.ID, true); err != nil {
					return nil, err
				}
				s.Enabled = true
			}
			if !args.JSON && !args.Quiet {
				state := "disabled"
				if s.Enabled {
					state = "enabled"
				}
				fmt.Fprintf(w, "%s %s (%s) %s, hooks: %s\n", SuccessStyle.Render("installed"),
					s.DisplayName(), s.ID, RenderStatus(state), strings.Join(s.Hooks, ", "))
			}
			return s, nil
		})

	case "replace", "update":
		id, file := p.Positional(1), p.Positional(2)
		if id == "" || file == "" {
			return ErrMissingArgument("id and file", "ircpipe script replace <id> guard.go")
		}
		return OutputJSON(w, args.JSON, "script replace", func() (interface{}, error) {
			src, err := readScriptFile(file)
			if err != nil {
				return nil, err
			}
			s, err := app.Scripts.Replace(id, src)
			if err != nil {
				return nil, err
			}
			if !args.JSON && !args.Quiet {
				fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("replaced"), s.DisplayName())
			}
			return s, nil
		})

	case "lint", "check":
		file := p.Positional(1)
		if file == "" {
			return ErrMissingArgument("file", "ircpipe script lint guard.go")
		}
		src, err := readScriptFile(file)
		if err != nil {
			return err
		}
		diags := app.Scripts.Lint(src)
		var lintErr error
		for _, d := range diags {
			if d.Severity == script.SeverityError {
				lintErr = &script.ParseError{Diagnostics: diags}
				break
			}
		}
		if args.JSON {
			if diags == nil {
				diags = []script.Diagnostic{}
			}
			_ = NewJSONResponse("script lint", LintData{File: file, OK: lintErr == nil, Diagnostics: diags}).Print(w)
			return lintErr
		}
		renderDiagnostics(w, diags)
		return lintErr

	case "enable", "disable":
		id, err := requireID(p, sub)
		if err != nil {
			return err
		}
		return OutputJSON(w, args.JSON, "script "+sub, func() (interface{}, error) {
			if err := app.Scripts.SetEnabled(id, sub == "enable"); err != nil {
				return nil, err
			}
			if !args.JSON && !args.Quiet {
				fmt.Fprintf(w, "%s %s\n", RenderStatus(sub+"d"), id)
			}
			return map[string]interface{}{"id": id, "enabled": sub == "enable"}, nil
		})

	case "rm", "remove", "delete":
		id, err := requireID(p, "rm")
		if err != nil {
			return err
		}
		return OutputJSON(w, args.JSON, "script rm", func() (interface{}, error) {
			if err := app.Scripts.Remove(id); err != nil {
				return nil, err
			}
			if !args.JSON && !args.Quiet {
				fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("removed"), id)
			}
			return map[string]string{"removed": id}, nil
		})

	case "logs", "log":
		id, err := requireID(p, "logs")
		if err != nil {
			return err
		}
		return OutputJSON(w, args.JSON, "script logs", func() (interface{}, error) {
			lines, err := app.Scripts.Logs(id)
			if err != nil {
				return nil, err
			}
			if !args.JSON {
				for _, l := range lines {
					fmt.Fprintln(w, l)
				}
			}
			if lines == nil {
				lines = []string{}
			}
			return ScriptLogData{ID: id, Lines: lines}, nil
		})

	case "config":
		id := p.Positional(1)
		raw := JoinPositionalArgs(p, 2)
		if id == "" || raw == "" {
			return ErrMissingArgument("id and json", `ircpipe script config <id> '{"greeting": "hi"}'`)
		}
		cfg, err := scriptConfigArg(raw)
		if err != nil {
			return err
		}
		return OutputJSON(w, args.JSON, "script config", func() (interface{}, error) {
			if err := app.Scripts.SetConfig(id, cfg); err != nil {
				return nil, err
			}
			if !args.JSON && !args.Quiet {
				fmt.Fprintf(w, "%s config for %s\n", SuccessStyle.Render("updated"), id)
			}
			return map[string]interface{}{"id": id, "config": cfg}, nil
		})

	case "api", "docs":
		if args.JSON {
			return NewJSONResponse("script api", map[string]string{"markdown": scriptAPIReference}).Print(w)
		}
		fmt.Fprint(w, renderMarkdown(scriptAPIReference))
		return nil

	default:
		return ErrUnknownSubcommand("script", sub, scriptUsage)
	}
}

func requireID(p *ArgParser, sub string) (string, error) {
	id := p.Positional(1)
	if id == "" {
		return "", ErrMissingArgument("id", "ircpipe script "+sub+" <id>")
	}
	return id, nil
}

func readScriptFile(file string) (string, error) {
	data, err := os.ReadFile(config.ExpandPath(file))
	if err != nil {
		return "", NewCommandError("script", "read "+file, "could not read script file", err)
	}
	return string(data), nil
}

// scriptConfigArg checks a JSON config argument. Blank means no config.
func scriptConfigArg(raw string) (json.RawMessage, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, &ValidationError{Field: "config", Value: raw, Reason: "not valid JSON", Example: `'{"greeting": "hi"}'`}
	}
	return json.RawMessage(raw), nil
}

func printScript(w io.Writer, s script.Script) {
	state := "disabled"
	if s.Enabled {
		state = "enabled"
	}
	fmt.Fprintln(w, TitleStyle.Render(s.DisplayName()))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("id:", 12), s.ID)
	fmt.Fprintf(w, "%s%s\n", RenderLabel("state:", 12), RenderStatus(state))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("hooks:", 12), strings.Join(s.Hooks, ", "))
	if len(s.Config) > 0 {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("config:", 12), string(s.Config))
	}
	fmt.Fprintf(w, "%s%s\n", RenderLabel("updated:", 12), s.UpdatedAt.Local().Format(timeLayout))
	if s.LastError != "" {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("last error:", 12), ErrorStyle.Render(s.LastError))
	}
	fmt.Fprintln(w, RenderSeparator())
	fmt.Fprintln(w, strings.TrimRight(highlightGo(s.Source), "\n"))
}
