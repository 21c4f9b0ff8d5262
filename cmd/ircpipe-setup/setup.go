// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/jeranaias/ircpipe/internal/config"
	"github.com/jeranaias/ircpipe/internal/script"
	"github.com/jeranaias/ircpipe/internal/util"
)

// minFreeSpace is the free space below which the disk check warns.
const minFreeSpace = 50 << 20

// backends lists the storage choices in menu order.
var backends = []string{"sqlite", "file", "memory"}

// backendHelp describes each storage choice.
var backendHelp = map[string]string{
	"sqlite": "single database file (recommended)",
	"file":   "one JSON file per store, easy to edit by hand",
	"memory": "nothing saved between runs",
}

// exampleScript is written to the scripts directory on first setup.
const exampleScript = `package main

import (
	"strings"

	"irc"
)

// OnCommand stops lines that look like they carry a password.
func OnCommand(text string, tab irc.Tab) irc.Result {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "identify ") && tab.IsChannel() {
		return irc.Cancel("identify belongs in a query with NickServ")
	}
	return irc.Pass()
}

// OnConnect notes each connection in the script log.
func OnConnect(networkID string) {
	irc.Log("connected to " + networkID + " as " + irc.UserNick(networkID))
}
`

// =============================================================================
// ANSWERS
// =============================================================================

// Answers are the choices collected by the wizard.
type Answers struct {
	Nick    string
	Network string
	Channel string
	Backend string
}

// DefaultAnswers seeds the wizard from an existing config when there is one.
func DefaultAnswers() Answers {
	cfg, err := config.Load()
	if cfg == nil || err != nil {
		cfg = config.Default()
	}
	return Answers{
		Nick:    cfg.Identity.Nick,
		Network: cfg.Identity.Network,
		Channel: cfg.Identity.Channel,
		Backend: cfg.Storage.Backend,
	}
}

// Normalize trims every field.
func (a Answers) Normalize() Answers {
	return Answers{
		Nick:    strings.TrimSpace(a.Nick),
		Network: strings.TrimSpace(a.Network),
		Channel: strings.TrimSpace(a.Channel),
		Backend: strings.ToLower(strings.TrimSpace(a.Backend)),
	}
}

// Validate reports the first problem with the answers.
func (a Answers) Validate() error {
	switch {
	case a.Nick == "":
		return errors.New("nick is required")
	case strings.ContainsAny(a.Nick, " ,!@#"):
		return fmt.Errorf("nick %q contains characters IRC does not allow", a.Nick)
	case a.Network == "":
		return errors.New("network is required")
	case strings.ContainsAny(a.Network, " /"):
		return fmt.Errorf("network %q must be a single word", a.Network)
	case a.Channel != "" && !strings.ContainsRune("#&", rune(a.Channel[0])):
		return fmt.Errorf("channel %q must start with # or &", a.Channel)
	case strings.ContainsAny(a.Channel, " ,"):
		return fmt.Errorf("channel %q contains spaces or commas", a.Channel)
	case !slices.Contains(backends, a.Backend):
		return fmt.Errorf("storage must be one of %s", strings.Join(backends, ", "))
	}
	return nil
}

// =============================================================================
// SYSTEM CHECKS
// =============================================================================

// CheckResult is the outcome of one system check.
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warn", "checking"
	Message string
	Fix     string
}

// checkNames lists the checks in the order they run.
var checkNames = []string{
	"Operating System",
	"Config Directory",
	"Disk Space",
	"Existing Config",
	"Script Interpreter",
}

// runCheck runs check index against dir.
func runCheck(index int, dir string) CheckResult {
	switch index {
	case 0:
		return checkOS()
	case 1:
		return checkDir(dir)
	case 2:
		return checkDisk(dir)
	case 3:
		return checkExisting(dir)
	default:
		return checkInterpreter()
	}
}

func checkOS() CheckResult {
	return CheckResult{
		Name:    checkNames[0],
		Status:  "pass",
		Message: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func checkDir(dir string) CheckResult {
	res := CheckResult{Name: checkNames[1]}
	if err := os.MkdirAll(dir, 0700); err != nil {
		res.Status, res.Message = "fail", err.Error()
		res.Fix = "Pick another directory with --dir or set IRCPIPE_HOME"
		return res
	}
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		res.Status, res.Message = "fail", "not writable: "+err.Error()
		res.Fix = "Check the permissions on " + dir
		return res
	}
	f.Close()
	os.Remove(f.Name())
	res.Status, res.Message = "pass", dir
	return res
}

func checkDisk(dir string) CheckResult {
	res := CheckResult{Name: checkNames[2]}
	free, err := getFreeDiskSpace(dir)
	switch {
	case err != nil:
		res.Status, res.Message = "warn", "could not read free space: "+err.Error()
	case free < minFreeSpace:
		res.Status, res.Message = "warn", formatBytes(free)+" free"
		res.Fix = "History and script logs need a little room; consider the memory backend"
	default:
		res.Status, res.Message = "pass", formatBytes(free)+" free"
	}
	return res
}

func checkExisting(dir string) CheckResult {
	res := CheckResult{Name: checkNames[3]}
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		res.Status = "warn"
		res.Message = "config.toml exists and will be replaced"
		res.Fix = "The old file is kept as config.toml.bak"
		return res
	}
	res.Status, res.Message = "pass", "none, a new one will be created"
	return res
}

func checkInterpreter() CheckResult {
	res := CheckResult{Name: checkNames[4]}
	for _, d := range script.Lint(exampleScript) {
		if d.Severity == script.SeverityError {
			res.Status, res.Message = "fail", d.String()
			return res
		}
	}
	res.Status, res.Message = "pass", "example script compiles"
	return res
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// =============================================================================
// APPLY
// =============================================================================

// Result describes what Apply wrote.
type Result struct {
	ConfigPath    string
	BackupPath    string
	ScriptsDir    string
	ExampleScript string
	Config        *config.Config
}

// buildConfig turns answers into a config rooted at dir.
func buildConfig(dir string, a Answers) (*config.Config, error) {
	cfg := config.Default()
	cfg.Identity.Nick = a.Nick
	cfg.Identity.Network = a.Network
	cfg.Identity.Channel = a.Channel
	cfg.Storage.Backend = a.Backend
	switch a.Backend {
	case "sqlite":
		cfg.Storage.Path = filepath.Join(dir, "state.db")
	case "file":
		cfg.Storage.Path = filepath.Join(dir, "state")
	default:
		cfg.Storage.Path = ""
	}
	cfg.Scripts.Dir = filepath.Join(dir, "scripts")
	cfg.UI.HistoryFile = filepath.Join(dir, "repl_history")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply writes config.toml and the scripts directory under dir. An
// existing config is backed up first; an existing example script is left
// alone.
func Apply(dir string, a Answers) (Result, error) {
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return Result{}, err
	}
	cfg, err := buildConfig(dir, a)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		ConfigPath: filepath.Join(dir, "config.toml"),
		ScriptsDir: cfg.Scripts.Dir,
		Config:     cfg,
	}

	if old, err := os.ReadFile(res.ConfigPath); err == nil {
		res.BackupPath = res.ConfigPath + ".bak"
		if err := util.AtomicWriteFile(res.BackupPath, old, 0600); err != nil {
			return Result{}, fmt.Errorf("back up config: %w", err)
		}
	}
	if err := config.SaveTOML(cfg, res.ConfigPath); err != nil {
		return Result{}, fmt.Errorf("write config: %w", err)
	}

	if err := os.MkdirAll(res.ScriptsDir, 0700); err != nil {
		return Result{}, fmt.Errorf("create scripts dir: %w", err)
	}
	example := filepath.Join(res.ScriptsDir, "identify_guard.go")
	if _, err := os.Stat(example); errors.Is(err, os.ErrNotExist) {
		if err := util.AtomicWriteFile(example, []byte(exampleScript), 0600); err != nil {
			return Result{}, fmt.Errorf("write example script: %w", err)
		}
		res.ExampleScript = example
	}
	return res, nil
}
