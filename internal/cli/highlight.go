// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// highlight.go - Syntax highlighting for script sources and markdown
// rendering for reference pages.

package cli

import (
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
)

// highlightGo colors Go source for the terminal. It returns code unchanged
// when colors are off or highlighting fails.
func highlightGo(code string) string {
	if !ColorsEnabled() {
		return code
	}

	lexer := lexers.Get("go")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

var (
	markdownOnce     sync.Once
	markdownRenderer *glamour.TermRenderer
)

// renderMarkdown renders markdown for the terminal, or returns it as-is
// when colors are off or the renderer is unavailable.
func renderMarkdown(content string) string {
	if !ColorsEnabled() {
		return content
	}
	markdownOnce.Do(func() {
		width := GetTerminalWidth()
		if width > 100 {
			width = 100
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width-4),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// scriptAPIReference documents what a script can see and do.
const scriptAPIReference = "# Script API\n\n" +
	"Scripts are Go files in `package main` that `import \"irc\"`. They run in an\n" +
	"interpreter with a restricted standard library: no `os`, `net`, `unsafe` or `syscall`.\n\n" +
	"## Hooks\n\n" +
	"Export any of these. Missing hooks are skipped.\n\n" +
	"| Hook | Called when |\n" +
	"|------|-------------|\n" +
	"| `func OnConnect(networkID string)` | a network finishes registration |\n" +
	"| `func OnMessage(msg irc.Message)` | a message arrives |\n" +
	"| `func OnJoin(channel, nick string, msg irc.Message)` | someone joins a channel |\n" +
	"| `func OnCommand(text string, tab irc.Tab) irc.Result` | you submit a line |\n\n" +
	"`OnCommand` may also return a `string`: empty passes, anything else replaces.\n" +
	"Enabled scripts see the command in install order; each one sees the text\n" +
	"as left by the previous script. The first `irc.Cancel` stops the chain.\n\n" +
	"## Results\n\n" +
	"- `irc.Pass()` leaves the command unchanged\n" +
	"- `irc.Replace(text)` rewrites it\n" +
	"- `irc.Cancel(reason)` drops it\n\n" +
	"## Capabilities\n\n" +
	"```go\n" +
	"irc.Log(text)                              // append to this script's log\n" +
	"irc.SendMessage(channel, text, network...) // bypasses aliases and hooks\n" +
	"irc.SendCommand(command, network...)       // raw command, /quote when no slash\n" +
	"irc.UserNick(network...)                   // current nick\n" +
	"irc.GetConfig()                            // decoded JSON config, or nil\n" +
	"```\n\n" +
	"Sends are rate limited per script. With `scripts.spam_kill` on, a script\n" +
	"that exceeds the limit is disabled.\n\n" +
	"## Types\n\n" +
	"- `irc.Tab{NetworkID, Type, Name}` with `IsChannel()`, `IsQuery()`, `IsServerLike()`\n" +
	"- `irc.Message{NetworkID, From, Target, Text, Command, Time}`\n" +
	"- `irc.TabChannel`, `irc.TabQuery`, `irc.TabServer`, `irc.TabNotice`\n" +
	"- `irc.EqualFold(a, b)` compares nicks and channels case-insensitively\n\n" +
	"## Example\n\n" +
	"```go\n" +
	"package main\n\n" +
	"import (\n\t\"strings\"\n\n\t\"irc\"\n)\n\n" +
	"func OnCommand(text string, tab irc.Tab) irc.Result {\n" +
	"\tif strings.Contains(text, \"password\") {\n" +
	"\t\treturn irc.Cancel(\"looks like a secret\")\n" +
	"\t}\n" +
	"\treturn irc.Pass()\n" +
	"}\n" +
	"```\n"
