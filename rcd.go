package svcmgr

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultServicePath is the default path to the BSD service binary
	DefaultServicePath = "service"

	// DefaultRcdDir holds rc.d scripts
	DefaultRcdDir = "/etc/rc.d"
)

// RcdInstallConfig holds rc.d specific install options
type RcdInstallConfig struct {
	// Require lists the REQUIRE: dependencies (default LOGIN FILESYSTEMS)
	Require []string
	// Before lists the BEFORE: dependents
	Before []string
	// ScriptMode is the mode of the generated script (default 0555)
	ScriptMode fs.FileMode
}

// RcdConfig configures the rc.d backend
type RcdConfig struct {
	Install RcdInstallConfig
	// RcDir is where scripts are written
	RcDir string
	// ServicePath is the path to service(8)
	ServicePath string
}

// ConfigRcd returns the default rc.d configuration
func ConfigRcd() RcdConfig {
	return RcdConfig{
		Install: RcdInstallConfig{
			Require:    []string{"LOGIN", "FILESYSTEMS"},
			ScriptMode: RcdScriptMode,
		},
		RcDir:       DefaultRcdDir,
		ServicePath: DefaultServicePath,
	}
}

// RcdServiceManager manages rc.d scripts through service(8).
// It only supports system-level services.
type RcdServiceManager struct {
	Config RcdConfig
	Runner Runner
	Logger *slog.Logger
}

// NewRcdServiceManager creates an rc.d manager
func NewRcdServiceManager() *RcdServiceManager {
	return &RcdServiceManager{Config: ConfigRcd()}
}

// WithConfig replaces the configuration
func (m *RcdServiceManager) WithConfig(cfg RcdConfig) *RcdServiceManager {
	m.Config = cfg
	return m
}

// WithRunner sets the command runner
func (m *RcdServiceManager) WithRunner(r Runner) *RcdServiceManager {
	m.Runner = r
	return m
}

// WithLogger sets the logger
func (m *RcdServiceManager) WithLogger(l *slog.Logger) *RcdServiceManager {
	m.Logger = l
	return m
}

func (m *RcdServiceManager) cmd() commandRunner {
	return commandRunner{runner: m.Runner, logger: m.Logger}
}

func (m *RcdServiceManager) rcDir() string {
	return valueOr(m.Config.RcDir, DefaultRcdDir)
}

func (m *RcdServiceManager) servicePath() string {
	return valueOr(m.Config.ServicePath, DefaultServicePath)
}

// rcdName converts a script name into an rc.subr variable prefix. The
// script file and PROVIDE keep the hyphenated name.
func rcdName(label ServiceLabel) string {
	return strings.ReplaceAll(label.ScriptName(), "-", "_")
}

// ScriptPath returns the rc.d script path of a label
func (m *RcdServiceManager) ScriptPath(label ServiceLabel) string {
	return filepath.Join(m.rcDir(), label.ScriptName())
}

// Available reports whether the rc.d directory exists
func (m *RcdServiceManager) Available() (bool, error) {
	info, err := os.Stat(m.rcDir())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, wrapOp(KindRcd, OpAvailable, ServiceLabel{}, err)
	}
	return info.IsDir(), nil
}

// Level always returns LevelSystem
func (m *RcdServiceManager) Level() ServiceLevel {
	return LevelSystem
}

// SetLevel accepts only LevelSystem
func (m *RcdServiceManager) SetLevel(level ServiceLevel) error {
	if level != LevelSystem {
		return unsupportedLevel(KindRcd, level)
	}
	return nil
}

// Install writes a new rc.d script and enables it. An existing script is
// never overwritten.
func (m *RcdServiceManager) Install(ctx context.Context, c InstallCtx) error {
	return wrapOp(KindRcd, OpInstall, c.Label, m.install(ctx, c))
}

func (m *RcdServiceManager) install(ctx context.Context, c InstallCtx) error {
	if c.RestartPolicy.Kind != RestartNever {
		m.cmd().log().Warn("rc.d does not support restart policies, ignoring",
			"label", c.Label.QualifiedName(), "policy", c.RestartPolicy.Kind.String())
	}

	content := c.Contents
	if content == "" {
		content = m.BuildScript(c)
	}

	path := m.ScriptPath(c.Label)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrInvalidConfiguration, path)
	}

	mode := m.Config.Install.ScriptMode
	if mode == 0 {
		mode = RcdScriptMode
	}
	if err := os.MkdirAll(m.rcDir(), DirMode); err != nil {
		return err
	}
	if err := writeFile(path, []byte(content), mode); err != nil {
		return err
	}
	return m.cmd().check(ctx, "", m.servicePath(), c.Label.ScriptName(), "enable")
}

// BuildScript generates the rc.subr script for c. The program is run
// under daemon(8), which writes the pidfile and restarts nothing.
func (m *RcdServiceManager) BuildScript(c InstallCtx) string {
	name := rcdName(c.Label)
	require := m.Config.Install.Require
	if len(require) == 0 {
		require = []string{"LOGIN", "FILESYSTEMS"}
	}

	lines := []string{
		"#!/bin/sh",
		"#",
		"# PROVIDE: " + c.Label.ScriptName(),
		"# REQUIRE: " + strings.Join(require, " "),
	}
	if len(m.Config.Install.Before) > 0 {
		lines = append(lines, "# BEFORE: "+strings.Join(m.Config.Install.Before, " "))
	}
	lines = append(lines,
		"# KEYWORD: shutdown",
		"",
		". /etc/rc.subr",
		"",
		shellAssign("name", name),
		shellAssign("desc", c.Label.QualifiedName()),
		shellAssign("rcvar", name+"_enable"),
		"",
		"load_rc_config ${name}",
		"",
		": ${"+shellAssign(name+"_options", shellWords(c.Args))+"}",
	)
	if c.WorkingDirectory != "" {
		lines = append(lines, ": ${"+shellAssign(name+"_chdir", c.WorkingDirectory)+"}")
	}
	if len(c.Environment) > 0 {
		pairs := make([]string, len(c.Environment))
		for i, e := range c.Environment {
			pairs[i] = shellQuote(e.Name + "=" + e.Value)
		}
		lines = append(lines, ": ${"+shellAssign(name+"_env", strings.Join(pairs, " "))+"}")
	}

	daemonArgs := "-c -S -T ${name}"
	if c.Username != "" {
		daemonArgs += " -u " + doubleQuoteEscape(shellQuote(c.Username))
	}
	lines = append(lines,
		"",
		`pidfile="/var/run/${name}.pid"`,
		shellAssign("procname", c.Program),
		`command="/usr/sbin/daemon"`,
		`command_args="`+daemonArgs+` -p ${pidfile} ${procname} ${`+name+`_options}"`,
		"",
		`run_rc_command "$1"`,
		"",
	)
	return strings.Join(lines, "\n")
}

// Uninstall deletes the rc.conf entry and the script
func (m *RcdServiceManager) Uninstall(ctx context.Context, c UninstallCtx) error {
	return wrapOp(KindRcd, OpUninstall, c.Label, m.uninstall(ctx, c))
}

func (m *RcdServiceManager) uninstall(ctx context.Context, c UninstallCtx) error {
	if err := m.cmd().check(ctx, "", m.servicePath(), c.Label.ScriptName(), "delete"); err != nil {
		return err
	}
	return os.Remove(m.ScriptPath(c.Label))
}

// Start starts the service
func (m *RcdServiceManager) Start(ctx context.Context, c StartCtx) error {
	err := m.cmd().check(ctx, "", m.servicePath(), c.Label.ScriptName(), "start")
	return wrapOp(KindRcd, OpStart, c.Label, err)
}

// Stop stops the service
func (m *RcdServiceManager) Stop(ctx context.Context, c StopCtx) error {
	err := m.cmd().check(ctx, "", m.servicePath(), c.Label.ScriptName(), "stop")
	return wrapOp(KindRcd, OpStop, c.Label, err)
}

// Status maps the exit code of `service <name> status`
func (m *RcdServiceManager) Status(ctx context.Context, c StatusCtx) (Status, error) {
	st, err := m.status(ctx, c)
	return st, wrapOp(KindRcd, OpStatus, c.Label, err)
}

func (m *RcdServiceManager) status(ctx context.Context, c StatusCtx) (Status, error) {
	cmd, out, err := m.cmd().run(ctx, "", m.servicePath(), c.Label.ScriptName(), "status")
	if err != nil {
		return Status{}, err
	}
	switch out.ExitCode {
	case 0:
		return Status{State: StateRunning}, nil
	case 1:
		return Status{State: StateNotInstalled}, nil
	case 3:
		return Status{State: StateStopped}, nil
	default:
		return Status{}, newCommandError(cmd, out)
	}
}
