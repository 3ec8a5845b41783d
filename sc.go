package svcmgr

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// DefaultScPath is the default path to sc.exe
	DefaultScPath = "sc.exe"

	// errorServiceDoesNotExist is the Win32 error sc.exe exits with for an unknown service
	errorServiceDoesNotExist = 1060
)

// WindowsServiceType is the type= value passed to sc.exe create
type WindowsServiceType int

const (
	// WindowsServiceOwn runs in its own process (the default)
	WindowsServiceOwn WindowsServiceType = iota
	// WindowsServiceShare shares a process with other services
	WindowsServiceShare
	// WindowsServiceKernel is a kernel driver
	WindowsServiceKernel
	// WindowsServiceFileSys is a file system driver
	WindowsServiceFileSys
	// WindowsServiceRec is a file system recognizer driver
	WindowsServiceRec
)

// String returns the sc.exe spelling of the service type
func (t WindowsServiceType) String() string {
	switch t {
	case WindowsServiceShare:
		return "share"
	case WindowsServiceKernel:
		return "kernel"
	case WindowsServiceFileSys:
		return "filesys"
	case WindowsServiceRec:
		return "rec"
	default:
		return "own"
	}
}

// WindowsStartType is the start= value passed to sc.exe create
type WindowsStartType int

const (
	// WindowsStartAuto starts at boot (the default)
	WindowsStartAuto WindowsStartType = iota
	// WindowsStartBoot is loaded by the boot loader
	WindowsStartBoot
	// WindowsStartSystem is started during kernel initialization
	WindowsStartSystem
	// WindowsStartDemand requires a manual start
	WindowsStartDemand
	// WindowsStartDisabled cannot be started
	WindowsStartDisabled
	// WindowsStartDelayedAuto starts shortly after boot
	WindowsStartDelayedAuto
)

// String returns the sc.exe spelling of the start type
func (t WindowsStartType) String() string {
	switch t {
	case WindowsStartBoot:
		return "boot"
	case WindowsStartSystem:
		return "system"
	case WindowsStartDemand:
		return "demand"
	case WindowsStartDisabled:
		return "disabled"
	case WindowsStartDelayedAuto:
		return "delayed-auto"
	default:
		return "auto"
	}
}

// WindowsErrorSeverity is the error= value passed to sc.exe create
type WindowsErrorSeverity int

const (
	// WindowsErrorNormal logs the error and continues booting (the default)
	WindowsErrorNormal WindowsErrorSeverity = iota
	// WindowsErrorSevere reboots with the last known good configuration
	WindowsErrorSevere
	// WindowsErrorCritical fails the boot after retrying last known good
	WindowsErrorCritical
	// WindowsErrorIgnore ignores the error
	WindowsErrorIgnore
)

// String returns the sc.exe spelling of the severity
func (s WindowsErrorSeverity) String() string {
	switch s {
	case WindowsErrorSevere:
		return "severe"
	case WindowsErrorCritical:
		return "critical"
	case WindowsErrorIgnore:
		return "ignore"
	default:
		return "normal"
	}
}

// ScInstallConfig holds sc.exe specific install options
type ScInstallConfig struct {
	ServiceType   WindowsServiceType
	StartType     WindowsStartType
	ErrorSeverity WindowsErrorSeverity
}

// ScConfig configures the sc.exe backend
type ScConfig struct {
	Install ScInstallConfig
	// ScPath is the path to sc.exe
	ScPath string
}

// ConfigSc returns the default sc.exe configuration
func ConfigSc() ScConfig {
	return ScConfig{ScPath: DefaultScPath}
}

// ScServiceManager manages Windows services by invoking sc.exe.
// It only supports system-level services.
type ScServiceManager struct {
	Config ScConfig
	Runner Runner
	Logger *slog.Logger
}

// NewScServiceManager creates an sc.exe manager
func NewScServiceManager() *ScServiceManager {
	return &ScServiceManager{Config: ConfigSc()}
}

// WithConfig replaces the configuration
func (m *ScServiceManager) WithConfig(cfg ScConfig) *ScServiceManager {
	m.Config = cfg
	return m
}

// WithRunner sets the command runner
func (m *ScServiceManager) WithRunner(r Runner) *ScServiceManager {
	m.Runner = r
	return m
}

// WithLogger sets the logger
func (m *ScServiceManager) WithLogger(l *slog.Logger) *ScServiceManager {
	m.Logger = l
	return m
}

func (m *ScServiceManager) cmd() commandRunner {
	return commandRunner{runner: m.Runner, logger: m.Logger}
}

func (m *ScServiceManager) scPath() string {
	return valueOr(m.Config.ScPath, DefaultScPath)
}

// Available reports whether sc.exe is on the PATH
func (m *ScServiceManager) Available() (bool, error) {
	ok, err := lookPath(m.scPath())
	return ok, wrapOp(KindSc, OpAvailable, ServiceLabel{}, err)
}

// Level always returns LevelSystem
func (m *ScServiceManager) Level() ServiceLevel {
	return LevelSystem
}

// SetLevel accepts only LevelSystem
func (m *ScServiceManager) SetLevel(level ServiceLevel) error {
	if level != LevelSystem {
		return unsupportedLevel(KindSc, level)
	}
	return nil
}

// Install runs `sc.exe create`
func (m *ScServiceManager) Install(ctx context.Context, c InstallCtx) error {
	err := m.cmd().check(ctx, "", m.scPath(), m.CreateArgs(c)...)
	return wrapOp(KindSc, OpInstall, c.Label, err)
}

// CreateArgs returns the sc.exe arguments that create the service. Every
// option keyword ("type=") and its value are separate arguments.
func (m *ScServiceManager) CreateArgs(c InstallCtx) []string {
	cfg := m.Config.Install
	if c.RestartPolicy.Kind != RestartNever {
		m.cmd().log().Warn("sc.exe create does not configure restarts, ignoring",
			"label", c.Label.QualifiedName(), "policy", c.RestartPolicy.Kind.String())
	}
	if c.WorkingDirectory != "" || len(c.Environment) > 0 {
		m.cmd().log().Warn("sc.exe cannot set a working directory or environment, ignoring",
			"label", c.Label.QualifiedName())
	}

	startType := cfg.StartType
	if c.Autostart {
		startType = WindowsStartAuto
	}

	binPath := make([]string, 0, len(c.Args)+1)
	for _, arg := range c.Cmd() {
		binPath = append(binPath, escapeArg(arg))
	}

	name := c.Label.QualifiedName()
	args := []string{
		"create", name,
		"type=", cfg.ServiceType.String(),
		"start=", startType.String(),
		"error=", cfg.ErrorSeverity.String(),
		"binpath=", strings.Join(binPath, " "),
		"displayname=", name,
	}
	if c.Username != "" {
		args = append(args, "obj=", c.Username)
	}
	return args
}

// Uninstall runs `sc.exe delete`
func (m *ScServiceManager) Uninstall(ctx context.Context, c UninstallCtx) error {
	err := m.cmd().check(ctx, "", m.scPath(), "delete", c.Label.QualifiedName())
	return wrapOp(KindSc, OpUninstall, c.Label, err)
}

// Start runs `sc.exe start`
func (m *ScServiceManager) Start(ctx context.Context, c StartCtx) error {
	err := m.cmd().check(ctx, "", m.scPath(), "start", c.Label.QualifiedName())
	return wrapOp(KindSc, OpStart, c.Label, err)
}

// Stop runs `sc.exe stop`
func (m *ScServiceManager) Stop(ctx context.Context, c StopCtx) error {
	err := m.cmd().check(ctx, "", m.scPath(), "stop", c.Label.QualifiedName())
	return wrapOp(KindSc, OpStop, c.Label, err)
}

// Status runs `sc.exe query` and reads its STATE line
func (m *ScServiceManager) Status(ctx context.Context, c StatusCtx) (Status, error) {
	st, err := m.status(ctx, c)
	return st, wrapOp(KindSc, OpStatus, c.Label, err)
}

func (m *ScServiceManager) status(ctx context.Context, c StatusCtx) (Status, error) {
	cmd, out, err := m.cmd().run(ctx, "", m.scPath(), "query", c.Label.QualifiedName())
	if err != nil {
		return Status{}, err
	}
	if out.ExitCode == errorServiceDoesNotExist {
		return Status{State: StateNotInstalled}, nil
	}
	if !out.Success() {
		return Status{}, newCommandError(cmd, out)
	}
	return Status{State: parseScState(string(out.Stdout))}, nil
}

// parseScState looks for "STATE : 4 RUNNING" in sc.exe query output
func parseScState(stdout string) State {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "STATE") {
			continue
		}
		if strings.Contains(line, "RUNNING") {
			return StateRunning
		}
	}
	return StateStopped
}
