// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Config command implementation for ircpipe.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display current configuration
//   get <key>           Print one value
//   set <key> <value>   Set a value and save the file
//   keys                List every key
//   path                Show configuration file path
//
// Examples:
//   ircpipe config
//   ircpipe config get identity.nick
//   ircpipe config set identity.nick gopher
//   ircpipe config set scripts.send_rate 2.5
//   ircpipe config set storage.backend memory
//   ircpipe --json config show
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ircpipe/internal/config"
)

const configUsage = "ircpipe config [show|get <key>|set <key> <value>|keys|path]"

var (
	configSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("255")).
				MarginTop(1)

	configPathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

// ConfigPathData is the JSON payload of "config path".
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// ConfigValueData is the JSON payload of "config get" and "config set".
type ConfigValueData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// HandleConfig handles the "config" command.
func HandleConfig(w io.Writer, cfg *config.Config, args Args) error {
	p := NewArgParser(args.Raw)

	switch sub := p.Subcommand(); sub {
	case "", "show":
		return OutputJSON(w, args.JSON, "config show", func() (interface{}, error) {
			if !args.JSON {
				printConfig(w, cfg, configFilePath(args))
			}
			return cfg, nil
		})

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "ircpipe config get identity.nick")
		}
		return OutputJSON(w, args.JSON, "config get", func() (interface{}, error) {
			v, err := cfg.Get(key)
			if err != nil {
				return nil, configKeyError(key, err)
			}
			if !args.JSON {
				fmt.Fprintln(w, v)
			}
			return ConfigValueData{Key: key, Value: v}, nil
		})

	case "set":
		key, value := p.Positional(1), JoinPositionalArgs(p, 2)
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "ircpipe config set identity.nick gopher")
		}
		return OutputJSON(w, args.JSON, "config set", func() (interface{}, error) {
			return setConfigValue(w, cfg, args, key, value)
		})

	case "keys":
		return OutputJSON(w, args.JSON, "config keys", func() (interface{}, error) {
			keys := config.GetAllKeys()
			if !args.JSON {
				for _, k := range keys {
					fmt.Fprintln(w, k)
				}
			}
			return keys, nil
		})

	case "path":
		return OutputJSON(w, args.JSON, "config path", func() (interface{}, error) {
			path := configFilePath(args)
			_, err := os.Stat(path)
			data := ConfigPathData{Path: path, Exists: err == nil}
			if !args.JSON {
				fmt.Fprintln(w, path)
			}
			return data, nil
		})

	default:
		return ErrUnknownSubcommand("config", sub, configUsage)
	}
}

func setConfigValue(w io.Writer, cfg *config.Config, args Args, key, value string) (interface{}, error) {
	updated := cfg.Clone()
	if err := updated.Set(key, value); err != nil {
		return nil, configKeyError(key, err)
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	path := configFilePath(args)
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = config.SaveJSON(updated, path)
	} else {
		err = config.SaveTOML(updated, path)
	}
	if err != nil {
		return nil, NewCommandError("config set", "save "+path, "could not write config file", err)
	}

	*cfg = *updated
	v, _ := cfg.Get(key)
	if !args.JSON {
		fmt.Fprintf(w, "%s %s = %v\n", SuccessStyle.Render("set"), key, v)
	}
	return ConfigValueData{Key: key, Value: v}, nil
}

func configKeyError(key string, err error) error {
	v := &ValidationError{Field: "config key", Value: key, Reason: err.Error()}
	if s := closest(key, config.GetAllKeys()); s != "" {
		v.Example = s
	}
	return v
}

// configFilePath is the file "config set" writes: --config when given,
// otherwise the default TOML path.
func configFilePath(args Args) string {
	if args.ConfigPath != "" {
		return config.ExpandPath(args.ConfigPath)
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}

// printConfig prints each section with its keys in declaration order.
func printConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, TitleStyle.Render("ircpipe configuration"))
	fmt.Fprintln(w, RenderSeparator(41))

	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("toml")
		field := v.Field(i)
		if field.Kind() != reflect.Struct {
			fmt.Fprintf(w, "%s%s\n", RenderLabel(name+":", 22), ValueStyle.Render(fmt.Sprint(field.Interface())))
			continue
		}
		fmt.Fprintln(w, configSectionStyle.Render("["+name+"]"))
		for j := 0; j < field.NumField(); j++ {
			key := field.Type().Field(j).Tag.Get("toml")
			fmt.Fprintf(w, "  %s%s\n", RenderLabel(key+":", 20), ValueStyle.Render(fmt.Sprint(field.Field(j).Interface())))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, RenderSeparator(41))
	fmt.Fprintf(w, "Config file: %s\n", configPathStyle.Render(path))
}
