package svcmgr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultSystemctlPath is the default path to the systemctl binary
	DefaultSystemctlPath = "systemctl"

	// DefaultSystemdUnitDir holds system-level unit files
	DefaultSystemdUnitDir = "/etc/systemd/system"

	// systemctlStatusNotRunning is the `systemctl status` exit code for an inactive unit
	systemctlStatusNotRunning = 3

	// systemctlStatusNoSuchUnit is the `systemctl status` exit code for an unknown unit
	systemctlStatusNoSuchUnit = 4
)

// SystemdInstallConfig holds systemd specific install options
type SystemdInstallConfig struct {
	// StartLimitIntervalSec and StartLimitBurst rate-limit restarts in [Unit]
	StartLimitIntervalSec *uint32
	StartLimitBurst       *uint32
	// Restart overrides the Restart= value derived from the restart policy,
	// e.g. "on-abnormal" or "on-watchdog"
	Restart string
	// RestartSec overrides the delay of the restart policy
	RestartSec *uint32
}

// SystemdConfig configures the systemd backend
type SystemdConfig struct {
	Install SystemdInstallConfig
	// UnitDir is where system-level unit files are written
	UnitDir string
	// UserUnitDir is where user-level unit files are written
	// (default $XDG_CONFIG_HOME/systemd/user)
	UserUnitDir string
	// SystemctlPath is the path to systemctl
	SystemctlPath string
}

// ConfigSystemd returns the default systemd configuration
func ConfigSystemd() SystemdConfig {
	return SystemdConfig{
		UnitDir:       DefaultSystemdUnitDir,
		SystemctlPath: DefaultSystemctlPath,
	}
}

// SystemdServiceManager manages systemd units through systemctl
type SystemdServiceManager struct {
	// User selects user units (systemctl --user) instead of system units
	User   bool
	Config SystemdConfig
	Runner Runner
	Logger *slog.Logger
}

// NewSystemdServiceManager creates a system-level systemd manager
func NewSystemdServiceManager() *SystemdServiceManager {
	return &SystemdServiceManager{Config: ConfigSystemd()}
}

// WithConfig replaces the configuration
func (m *SystemdServiceManager) WithConfig(cfg SystemdConfig) *SystemdServiceManager {
	m.Config = cfg
	return m
}

// WithRunner sets the command runner
func (m *SystemdServiceManager) WithRunner(r Runner) *SystemdServiceManager {
	m.Runner = r
	return m
}

// WithLogger sets the logger
func (m *SystemdServiceManager) WithLogger(l *slog.Logger) *SystemdServiceManager {
	m.Logger = l
	return m
}

func (m *SystemdServiceManager) cmd() commandRunner {
	return commandRunner{runner: m.Runner, logger: m.Logger}
}

func (m *SystemdServiceManager) systemctlPath() string {
	if m.Config.SystemctlPath == "" {
		return DefaultSystemctlPath
	}
	return m.Config.SystemctlPath
}

// systemctl prefixes --user at user level
func (m *SystemdServiceManager) systemctlArgs(args ...string) []string {
	if m.User {
		return append([]string{"--user"}, args...)
	}
	return args
}

// Available reports whether systemctl is on the PATH
func (m *SystemdServiceManager) Available() (bool, error) {
	ok, err := lookPath(m.systemctlPath())
	return ok, wrapOp(KindSystemd, OpAvailable, ServiceLabel{}, err)
}

// Level returns the current service level
func (m *SystemdServiceManager) Level() ServiceLevel {
	if m.User {
		return LevelUser
	}
	return LevelSystem
}

// SetLevel switches between system units and user units
func (m *SystemdServiceManager) SetLevel(level ServiceLevel) error {
	m.User = level == LevelUser
	return nil
}

// unitDir returns the unit directory for the current level
func (m *SystemdServiceManager) unitDir() (string, error) {
	if !m.User {
		if m.Config.UnitDir == "" {
			return DefaultSystemdUnitDir, nil
		}
		return m.Config.UnitDir, nil
	}
	if m.Config.UserUnitDir != "" {
		return m.Config.UserUnitDir, nil
	}
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user unit dir: %w", err)
	}
	return filepath.Join(cfgDir, "systemd", "user"), nil
}

// UnitPath returns the unit file path of a label at the current level
func (m *SystemdServiceManager) UnitPath(label ServiceLabel) (string, error) {
	dir, err := m.unitDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, label.ScriptName()+".service"), nil
}

// Install writes the unit file and enables it by path
func (m *SystemdServiceManager) Install(ctx context.Context, c InstallCtx) error {
	return wrapOp(KindSystemd, OpInstall, c.Label, m.install(ctx, c))
}

func (m *SystemdServiceManager) install(ctx context.Context, c InstallCtx) error {
	content := c.Contents
	if content == "" {
		var err error
		if content, err = m.BuildUnit(c); err != nil {
			return err
		}
	}

	dir, err := m.unitDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return err
	}

	path := filepath.Join(dir, c.Label.ScriptName()+".service")
	if err := writeFile(path, []byte(content), FileMode); err != nil {
		return err
	}
	return m.cmd().check(ctx, "", m.systemctlPath(), m.systemctlArgs("enable", path)...)
}

// BuildUnit generates the unit file content for c
func (m *SystemdServiceManager) BuildUnit(c InstallCtx) (string, error) {
	if c.Program == "" {
		return "", fmt.Errorf("%w: program not specified", ErrInvalidConfiguration)
	}
	cfg := m.Config.Install

	var unit strings.Builder

	unit.WriteString("[Unit]\n")
	unit.WriteString(fmt.Sprintf("Description=%s\n", c.Label.ScriptName()))
	if cfg.StartLimitIntervalSec != nil {
		unit.WriteString(fmt.Sprintf("StartLimitIntervalSec=%d\n", *cfg.StartLimitIntervalSec))
	}
	if cfg.StartLimitBurst != nil {
		unit.WriteString(fmt.Sprintf("StartLimitBurst=%d\n", *cfg.StartLimitBurst))
	}
	unit.WriteString("\n")

	unit.WriteString("[Service]\n")
	unit.WriteString(fmt.Sprintf("ExecStart=%s\n", systemdCommandLine(c.Cmd())))
	if c.WorkingDirectory != "" {
		unit.WriteString(fmt.Sprintf("WorkingDirectory=%s\n", c.WorkingDirectory))
	}
	for _, e := range c.Environment {
		value := strings.ReplaceAll(e.Value, `"`, `\"`)
		unit.WriteString(fmt.Sprintf("Environment=\"%s=%s\"\n", e.Name, value))
	}
	if c.Username != "" {
		if m.User {
			m.cmd().log().Warn("user units cannot change user, ignoring username",
				"label", c.Label.QualifiedName(), "username", c.Username)
		} else {
			unit.WriteString(fmt.Sprintf("User=%s\n", c.Username))
		}
	}

	restart := systemdRestart(c.RestartPolicy.Kind)
	if cfg.Restart != "" {
		restart = cfg.Restart
	}
	if restart != "" {
		unit.WriteString(fmt.Sprintf("Restart=%s\n", restart))
		if cfg.RestartSec != nil {
			unit.WriteString(fmt.Sprintf("RestartSec=%d\n", *cfg.RestartSec))
		} else if secs, ok := c.RestartPolicy.DelaySeconds(); ok {
			unit.WriteString(fmt.Sprintf("RestartSec=%d\n", secs))
		}
	}
	unit.WriteString("\n")

	unit.WriteString("[Install]\n")
	if m.User {
		unit.WriteString("WantedBy=default.target\n")
	} else {
		unit.WriteString("WantedBy=multi-user.target\n")
	}

	return unit.String(), nil
}

// systemdRestart maps a restart kind onto Restart=; empty means no line
func systemdRestart(kind RestartKind) string {
	switch kind {
	case RestartAlways:
		return "always"
	case RestartOnFailure:
		return "on-failure"
	case RestartOnSuccess:
		return "on-success"
	default:
		return ""
	}
}

// systemdCommandLine joins a command, quoting words systemd would split
func systemdCommandLine(cmd []string) string {
	words := make([]string, len(cmd))
	for i, arg := range cmd {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\$") {
			arg = strconv.Quote(arg)
		}
		words[i] = arg
	}
	return strings.Join(words, " ")
}

// Uninstall disables the unit and removes its file
func (m *SystemdServiceManager) Uninstall(ctx context.Context, c UninstallCtx) error {
	return wrapOp(KindSystemd, OpUninstall, c.Label, m.uninstall(ctx, c))
}

func (m *SystemdServiceManager) uninstall(ctx context.Context, c UninstallCtx) error {
	path, err := m.UnitPath(c.Label)
	if err != nil {
		return err
	}
	if err := m.cmd().check(ctx, "", m.systemctlPath(), m.systemctlArgs("disable", path)...); err != nil {
		return err
	}
	return os.Remove(path)
}

// Start starts the unit
func (m *SystemdServiceManager) Start(ctx context.Context, c StartCtx) error {
	err := m.cmd().check(ctx, "", m.systemctlPath(), m.systemctlArgs("start", c.Label.ScriptName())...)
	return wrapOp(KindSystemd, OpStart, c.Label, err)
}

// Stop stops the unit
func (m *SystemdServiceManager) Stop(ctx context.Context, c StopCtx) error {
	err := m.cmd().check(ctx, "", m.systemctlPath(), m.systemctlArgs("stop", c.Label.ScriptName())...)
	return wrapOp(KindSystemd, OpStop, c.Label, err)
}

// Status queries `systemctl status` and reads its Active: line
func (m *SystemdServiceManager) Status(ctx context.Context, c StatusCtx) (Status, error) {
	st, err := m.status(ctx, c)
	return st, wrapOp(KindSystemd, OpStatus, c.Label, err)
}

func (m *SystemdServiceManager) status(ctx context.Context, c StatusCtx) (Status, error) {
	args := m.systemctlArgs("status", "--no-pager", c.Label.ScriptName()+".service")
	cmd, out, err := m.cmd().run(ctx, "", m.systemctlPath(), args...)
	if err != nil {
		return Status{}, err
	}

	switch out.ExitCode {
	case 0, systemctlStatusNotRunning:
		if strings.Contains(out.Message(), "could not be found") {
			return Status{State: StateNotInstalled}, nil
		}
		return parseSystemdStatus(string(out.Stdout), out.ExitCode == 0), nil
	case systemctlStatusNoSuchUnit:
		return Status{State: StateNotInstalled}, nil
	default:
		return Status{}, newCommandError(cmd, out)
	}
}

// parseSystemdStatus reads the Active: line of `systemctl status`,
// falling back to the exit code when there is none
func parseSystemdStatus(stdout string, active bool) Status {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		value, ok := strings.CutPrefix(line, "Active:")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if strings.Contains(value, "running") && !strings.Contains(value, "not running") {
			return Status{State: StateRunning}
		}
		if strings.HasPrefix(value, "failed") {
			return Status{State: StateStopped, Reason: value}
		}
		return Status{State: StateStopped}
	}
	if active {
		return Status{State: StateRunning}
	}
	return Status{State: StateStopped}
}
