package svcmgr

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultRCServicePath is the default path to the rc-service binary
	DefaultRCServicePath = "rc-service"

	// DefaultRCUpdatePath is the default path to the rc-update binary
	DefaultRCUpdatePath = "rc-update"

	// DefaultOpenRCInitDir holds OpenRC init scripts
	DefaultOpenRCInitDir = "/etc/init.d"

	// DefaultOpenRCRunlevel is the runlevel autostarted services are added to
	DefaultOpenRCRunlevel = "default"
)

// OpenRCConfig configures the OpenRC backend
type OpenRCConfig struct {
	// InitDir is where init scripts are written
	InitDir string
	// Runlevel is the runlevel autostarted services are added to
	Runlevel string
	// RCServicePath is the path to rc-service
	RCServicePath string
	// RCUpdatePath is the path to rc-update
	RCUpdatePath string
}

// ConfigOpenRC returns the default OpenRC configuration
func ConfigOpenRC() OpenRCConfig {
	return OpenRCConfig{
		InitDir:       DefaultOpenRCInitDir,
		Runlevel:      DefaultOpenRCRunlevel,
		RCServicePath: DefaultRCServicePath,
		RCUpdatePath:  DefaultRCUpdatePath,
	}
}

// OpenRCServiceManager manages OpenRC init scripts through rc-service and rc-update.
// It only supports system-level services.
type OpenRCServiceManager struct {
	Config OpenRCConfig
	Runner Runner
	Logger *slog.Logger
}

// NewOpenRCServiceManager creates an OpenRC manager
func NewOpenRCServiceManager() *OpenRCServiceManager {
	return &OpenRCServiceManager{Config: ConfigOpenRC()}
}

// WithConfig replaces the configuration
func (m *OpenRCServiceManager) WithConfig(cfg OpenRCConfig) *OpenRCServiceManager {
	m.Config = cfg
	return m
}

// WithRunner sets the command runner
func (m *OpenRCServiceManager) WithRunner(r Runner) *OpenRCServiceManager {
	m.Runner = r
	return m
}

// WithLogger sets the logger
func (m *OpenRCServiceManager) WithLogger(l *slog.Logger) *OpenRCServiceManager {
	m.Logger = l
	return m
}

func (m *OpenRCServiceManager) cmd() commandRunner {
	return commandRunner{runner: m.Runner, logger: m.Logger}
}

func (m *OpenRCServiceManager) rcService() string {
	return valueOr(m.Config.RCServicePath, DefaultRCServicePath)
}

func (m *OpenRCServiceManager) rcUpdate() string {
	return valueOr(m.Config.RCUpdatePath, DefaultRCUpdatePath)
}

func (m *OpenRCServiceManager) runlevel() string {
	return valueOr(m.Config.Runlevel, DefaultOpenRCRunlevel)
}

// ScriptPath returns the init script path of a label
func (m *OpenRCServiceManager) ScriptPath(label ServiceLabel) string {
	return filepath.Join(valueOr(m.Config.InitDir, DefaultOpenRCInitDir), label.ScriptName())
}

// Available reports whether rc-service is on the PATH
func (m *OpenRCServiceManager) Available() (bool, error) {
	ok, err := lookPath(m.rcService())
	return ok, wrapOp(KindOpenRC, OpAvailable, ServiceLabel{}, err)
}

// Level always returns LevelSystem
func (m *OpenRCServiceManager) Level() ServiceLevel {
	return LevelSystem
}

// SetLevel accepts only LevelSystem
func (m *OpenRCServiceManager) SetLevel(level ServiceLevel) error {
	if level != LevelSystem {
		return unsupportedLevel(KindOpenRC, level)
	}
	return nil
}

// Install writes the init script and, with Autostart, adds it to the runlevel
func (m *OpenRCServiceManager) Install(ctx context.Context, c InstallCtx) error {
	return wrapOp(KindOpenRC, OpInstall, c.Label, m.install(ctx, c))
}

func (m *OpenRCServiceManager) install(ctx context.Context, c InstallCtx) error {
	if c.RestartPolicy.Kind != RestartNever {
		m.cmd().log().Warn("openrc does not support restart policies, ignoring",
			"label", c.Label.QualifiedName(), "policy", c.RestartPolicy.Kind.String())
	}

	content := c.Contents
	if content == "" {
		content = m.BuildScript(c)
	}

	dir := valueOr(m.Config.InitDir, DefaultOpenRCInitDir)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return err
	}
	if err := writeFile(m.ScriptPath(c.Label), []byte(content), ExecMode); err != nil {
		return err
	}

	if c.Autostart {
		return m.cmd().check(ctx, "", m.rcUpdate(), "add", c.Label.ScriptName(), m.runlevel())
	}
	return nil
}

// BuildScript generates the openrc-run script for c
func (m *OpenRCServiceManager) BuildScript(c InstallCtx) string {
	name := c.Label.ScriptName()
	lines := []string{
		"#!/sbin/openrc-run",
		"",
		shellAssign("description", name),
		shellAssign("command", c.Program),
		shellAssign("command_args", shellWords(c.Args)),
	}
	if c.Username != "" {
		lines = append(lines, shellAssign("command_user", c.Username))
	}
	if c.WorkingDirectory != "" {
		lines = append(lines, shellAssign("directory", c.WorkingDirectory))
	}
	lines = append(lines,
		`pidfile="/run/${RC_SVCNAME}.pid"`,
		"command_background=true",
	)
	for _, e := range c.Environment {
		lines = append(lines, "export "+shellAssign(e.Name, e.Value))
	}
	lines = append(lines,
		"",
		"depend() {",
		"    provide "+name,
		"}",
		"",
	)
	return strings.Join(lines, "\n")
}

// Uninstall removes the service from its runlevel and deletes the script
func (m *OpenRCServiceManager) Uninstall(ctx context.Context, c UninstallCtx) error {
	m.cmd().bestEffort(ctx, "", m.rcUpdate(), "del", c.Label.ScriptName(), m.runlevel())
	return wrapOp(KindOpenRC, OpUninstall, c.Label, os.Remove(m.ScriptPath(c.Label)))
}

// Start starts the service
func (m *OpenRCServiceManager) Start(ctx context.Context, c StartCtx) error {
	err := m.cmd().check(ctx, "", m.rcService(), c.Label.ScriptName(), "start")
	return wrapOp(KindOpenRC, OpStart, c.Label, err)
}

// Stop stops the service
func (m *OpenRCServiceManager) Stop(ctx context.Context, c StopCtx) error {
	err := m.cmd().check(ctx, "", m.rcService(), c.Label.ScriptName(), "stop")
	return wrapOp(KindOpenRC, OpStop, c.Label, err)
}

// Status maps the exit code of `rc-service <name> status`
func (m *OpenRCServiceManager) Status(ctx context.Context, c StatusCtx) (Status, error) {
	st, err := m.status(ctx, c)
	return st, wrapOp(KindOpenRC, OpStatus, c.Label, err)
}

func (m *OpenRCServiceManager) status(ctx context.Context, c StatusCtx) (Status, error) {
	cmd, out, err := m.cmd().run(ctx, "", m.rcService(), c.Label.ScriptName(), "status")
	if err != nil {
		return Status{}, err
	}
	switch out.ExitCode {
	case 0:
		return Status{State: StateRunning}, nil
	case 3:
		return Status{State: StateStopped}, nil
	case 1:
		if strings.Contains(out.Message(), "does not exist") {
			return Status{State: StateNotInstalled}, nil
		}
	}
	return Status{}, newCommandError(cmd, out)
}
