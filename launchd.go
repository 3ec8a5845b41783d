package svcmgr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"
)

const (
	// DefaultLaunchctlPath is the default path to the launchctl binary
	DefaultLaunchctlPath = "launchctl"

	// DefaultLaunchDaemonsDir holds system-level plists
	DefaultLaunchDaemonsDir = "/Library/LaunchDaemons"

	// launchctlNotFoundExitCode is returned by `launchctl print` for an unknown job
	launchctlNotFoundExitCode = 64
)

// Plist keys written and read by the launchd backend
const (
	plistLabel                = "Label"
	plistProgramArguments     = "ProgramArguments"
	plistKeepAlive            = "KeepAlive"
	plistSuccessfulExit       = "SuccessfulExit"
	plistUserName             = "UserName"
	plistWorkingDirectory     = "WorkingDirectory"
	plistEnvironmentVariables = "EnvironmentVariables"
	plistRunAtLoad            = "RunAtLoad"
	plistDisabled             = "Disabled"
)

// LaunchdInstallConfig holds launchd specific install options
type LaunchdInstallConfig struct {
	// KeepAlive, when set, overrides the KeepAlive derived from the restart policy
	KeepAlive *bool
}

// LaunchdConfig configures the launchd backend
type LaunchdConfig struct {
	Install LaunchdInstallConfig
	// DaemonDir is where system-level plists are written
	DaemonDir string
	// AgentDir is where user-level plists are written (default ~/Library/LaunchAgents)
	AgentDir string
	// LaunchctlPath is the path to launchctl
	LaunchctlPath string
}

// ConfigLaunchd returns the default launchd configuration
func ConfigLaunchd() LaunchdConfig {
	return LaunchdConfig{
		DaemonDir:     DefaultLaunchDaemonsDir,
		LaunchctlPath: DefaultLaunchctlPath,
	}
}

// LaunchdServiceManager manages launchd daemons and agents through launchctl
type LaunchdServiceManager struct {
	// User selects per-user agents instead of system daemons
	User   bool
	Config LaunchdConfig
	Runner Runner
	Logger *slog.Logger
}

// NewLaunchdServiceManager creates a system-level launchd manager
func NewLaunchdServiceManager() *LaunchdServiceManager {
	return &LaunchdServiceManager{Config: ConfigLaunchd()}
}

// WithConfig replaces the configuration
func (m *LaunchdServiceManager) WithConfig(cfg LaunchdConfig) *LaunchdServiceManager {
	m.Config = cfg
	return m
}

// WithRunner sets the command runner
func (m *LaunchdServiceManager) WithRunner(r Runner) *LaunchdServiceManager {
	m.Runner = r
	return m
}

// WithLogger sets the logger
func (m *LaunchdServiceManager) WithLogger(l *slog.Logger) *LaunchdServiceManager {
	m.Logger = l
	return m
}

func (m *LaunchdServiceManager) cmd() commandRunner {
	return commandRunner{runner: m.Runner, logger: m.Logger}
}

func (m *LaunchdServiceManager) launchctl() string {
	if m.Config.LaunchctlPath == "" {
		return DefaultLaunchctlPath
	}
	return m.Config.LaunchctlPath
}

// Available reports whether launchctl is on the PATH
func (m *LaunchdServiceManager) Available() (bool, error) {
	ok, err := lookPath(m.launchctl())
	return ok, wrapOp(KindLaunchd, OpAvailable, ServiceLabel{}, err)
}

// Level returns the current service level
func (m *LaunchdServiceManager) Level() ServiceLevel {
	if m.User {
		return LevelUser
	}
	return LevelSystem
}

// SetLevel switches between daemons (system) and agents (user)
func (m *LaunchdServiceManager) SetLevel(level ServiceLevel) error {
	m.User = level == LevelUser
	return nil
}

// plistDir returns the directory holding plists for the current level
func (m *LaunchdServiceManager) plistDir() (string, error) {
	if !m.User {
		if m.Config.DaemonDir == "" {
			return DefaultLaunchDaemonsDir, nil
		}
		return m.Config.DaemonDir, nil
	}
	if m.Config.AgentDir != "" {
		return m.Config.AgentDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve launch agents dir: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents"), nil
}

// PlistPath returns the plist path of a label at the current level
func (m *LaunchdServiceManager) PlistPath(label ServiceLabel) (string, error) {
	dir, err := m.plistDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, label.QualifiedName()+".plist"), nil
}

// Install writes the plist, unloading a previous definition first, and loads it
func (m *LaunchdServiceManager) Install(ctx context.Context, c InstallCtx) error {
	return wrapOp(KindLaunchd, OpInstall, c.Label, m.install(ctx, c))
}

func (m *LaunchdServiceManager) install(ctx context.Context, c InstallCtx) error {
	var data []byte
	if c.Contents != "" {
		data = []byte(c.Contents)
	} else {
		var err error
		if data, err = m.BuildPlist(c); err != nil {
			return err
		}
	}

	dir, err := m.plistDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return err
	}

	name := c.Label.QualifiedName()
	path := filepath.Join(dir, name+".plist")
	if _, err := os.Stat(path); err == nil {
		m.cmd().bestEffort(ctx, "", m.launchctl(), "remove", name)
	}

	if err := writeFile(path, data, FileMode); err != nil {
		return err
	}
	return m.cmd().check(ctx, "", m.launchctl(), "load", path)
}

// BuildPlist generates the property list for c
func (m *LaunchdServiceManager) BuildPlist(c InstallCtx) ([]byte, error) {
	log := m.cmd().log()
	dict := map[string]any{
		plistLabel:            c.Label.QualifiedName(),
		plistProgramArguments: c.Cmd(),
		plistRunAtLoad:        c.Autostart,
	}

	var keepAlive any
	switch c.RestartPolicy.Kind {
	case RestartAlways:
		keepAlive = true
	case RestartOnFailure:
		keepAlive = map[string]any{plistSuccessfulExit: false}
	case RestartOnSuccess:
		keepAlive = map[string]any{plistSuccessfulExit: true}
	}
	if c.RestartPolicy.Delay != nil && c.RestartPolicy.Kind != RestartNever {
		log.Warn("launchd does not support restart delays, ignoring",
			"label", c.Label.QualifiedName(), "delay", c.RestartPolicy.Delay.String())
	}
	if override := m.Config.Install.KeepAlive; override != nil {
		keepAlive = nil
		if *override {
			keepAlive = true
		}
	}
	if keepAlive != nil {
		dict[plistKeepAlive] = keepAlive
		// Loading a job with KeepAlive would launch it immediately; it
		// stays disabled until Start clears the flag.
		dict[plistDisabled] = true
	}

	if c.Username != "" {
		dict[plistUserName] = c.Username
	}
	if c.WorkingDirectory != "" {
		dict[plistWorkingDirectory] = c.WorkingDirectory
	}
	if len(c.Environment) > 0 {
		env := make(map[string]string, len(c.Environment))
		for _, e := range c.Environment {
			env[e.Name] = e.Value
		}
		dict[plistEnvironmentVariables] = env
	}

	data, err := plist.MarshalIndent(dict, plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("encode plist: %w", err)
	}
	return data, nil
}

// Uninstall removes the job and deletes its plist, tolerating either being gone
func (m *LaunchdServiceManager) Uninstall(ctx context.Context, c UninstallCtx) error {
	name := c.Label.QualifiedName()
	m.cmd().bestEffort(ctx, "", m.launchctl(), "remove", name)

	path, err := m.PlistPath(c.Label)
	if err != nil {
		return wrapOp(KindLaunchd, OpUninstall, c.Label, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.cmd().log().Debug("ignoring plist removal failure", "path", path, "error", err)
	}
	return nil
}

// Start starts the job. A plist still marked Disabled is re-enabled and
// reloaded instead, which starts it through KeepAlive.
func (m *LaunchdServiceManager) Start(ctx context.Context, c StartCtx) error {
	return wrapOp(KindLaunchd, OpStart, c.Label, m.start(ctx, c))
}

func (m *LaunchdServiceManager) start(ctx context.Context, c StartCtx) error {
	path, err := m.PlistPath(c.Label)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotInstalled, path)
		}
		return err
	}

	var dict map[string]any
	if _, err := plist.Unmarshal(data, &dict); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfiguration, path, err)
	}

	if disabled, _ := dict[plistDisabled].(bool); disabled {
		delete(dict, plistDisabled)
		data, err := plist.MarshalIndent(dict, plist.XMLFormat, "\t")
		if err != nil {
			return fmt.Errorf("encode plist: %w", err)
		}
		if err := writeFile(path, data, FileMode); err != nil {
			return err
		}
		m.cmd().bestEffort(ctx, "", m.launchctl(), "unload", path)
		return m.cmd().check(ctx, "", m.launchctl(), "load", path)
	}

	return m.cmd().check(ctx, "", m.launchctl(), "start", c.Label.QualifiedName())
}

// Stop stops the job
func (m *LaunchdServiceManager) Stop(ctx context.Context, c StopCtx) error {
	err := m.cmd().check(ctx, "", m.launchctl(), "stop", c.Label.QualifiedName())
	return wrapOp(KindLaunchd, OpStop, c.Label, err)
}

// Status queries `launchctl print`. When the label is unknown, the listing
// printed with the error is searched for a line naming it and that line is
// queried once more.
func (m *LaunchdServiceManager) Status(ctx context.Context, c StatusCtx) (Status, error) {
	st, err := m.status(ctx, c)
	return st, wrapOp(KindLaunchd, OpStatus, c.Label, err)
}

func (m *LaunchdServiceManager) status(ctx context.Context, c StatusCtx) (Status, error) {
	name := c.Label.QualifiedName()
	target := name

	for attempt := 0; attempt < 2; attempt++ {
		cmd, out, err := m.cmd().run(ctx, "", m.launchctl(), "print", target)
		if err != nil {
			return Status{}, err
		}
		if out.Success() {
			return Status{State: parseLaunchdState(string(out.Stdout))}, nil
		}
		if out.ExitCode != launchctlNotFoundExitCode || attempt > 0 {
			return Status{}, newCommandError(cmd, out)
		}

		resolved, ok := findLine(out.Message(), name)
		if !ok {
			return Status{State: StateNotInstalled}, nil
		}
		target = resolved
	}
	return Status{State: StateNotInstalled}, nil
}

// findLine returns the first trimmed line of text containing needle
func findLine(text, needle string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, needle) {
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}

// parseLaunchdState reports running when a "state" line says running
// and does not say "not running"
func parseLaunchdState(stdout string) State {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "state") {
			continue
		}
		if strings.Contains(line, "running") && !strings.Contains(line, "not running") {
			return StateRunning
		}
	}
	return StateStopped
}
