package svcmgr

import (
	"context"
	"log/slog"
	"runtime"
)

// ScmServiceType mirrors the SERVICE_* type flags of CreateService
type ScmServiceType uint32

// Service types accepted by the Service Control Manager
const (
	ScmKernelDriver       ScmServiceType = 0x1
	ScmFileSystemDriver   ScmServiceType = 0x2
	ScmOwnProcess         ScmServiceType = 0x10
	ScmShareProcess       ScmServiceType = 0x20
	ScmUserOwnProcess     ScmServiceType = 0x50
	ScmUserShareProcess   ScmServiceType = 0x60
	ScmInteractiveProcess ScmServiceType = 0x100
)

// ScmStartType mirrors the SERVICE_*_START values of CreateService
type ScmStartType uint32

// Start types accepted by the Service Control Manager
const (
	ScmBootStart   ScmStartType = 0
	ScmSystemStart ScmStartType = 1
	ScmAutoStart   ScmStartType = 2
	ScmOnDemand    ScmStartType = 3
	ScmDisabled    ScmStartType = 4
)

// ScmErrorControl mirrors the SERVICE_ERROR_* values of CreateService
type ScmErrorControl uint32

// Error control levels accepted by the Service Control Manager
const (
	ScmErrorIgnore   ScmErrorControl = 0
	ScmErrorNormal   ScmErrorControl = 1
	ScmErrorSevere   ScmErrorControl = 2
	ScmErrorCritical ScmErrorControl = 3
)

// ScmInstallConfig holds Windows SCM specific install options
type ScmInstallConfig struct {
	Description  string
	Dependencies []string
	// DisplayName defaults to the qualified name
	DisplayName string
	// StartType overrides the start type derived from Autostart
	StartType        *ScmStartType
	ServiceType      ScmServiceType
	ErrorControl     ScmErrorControl
	DelayedAutostart bool
}

// ScmConfig configures the Windows SCM backend
type ScmConfig struct {
	Install ScmInstallConfig
}

// ConfigScm returns the default SCM configuration
func ConfigScm() ScmConfig {
	return ScmConfig{
		Install: ScmInstallConfig{
			ServiceType:  ScmOwnProcess,
			ErrorControl: ScmErrorNormal,
		},
	}
}

// ScmServiceManager manages Windows services through the Service Control
// Manager API. It only supports system-level services and is only
// available on Windows.
type ScmServiceManager struct {
	Config ScmConfig
	Logger *slog.Logger
}

// NewScmServiceManager creates a Windows SCM manager
func NewScmServiceManager() *ScmServiceManager {
	return &ScmServiceManager{Config: ConfigScm()}
}

// WithConfig replaces the configuration
func (m *ScmServiceManager) WithConfig(cfg ScmConfig) *ScmServiceManager {
	m.Config = cfg
	return m
}

// WithLogger sets the logger
func (m *ScmServiceManager) WithLogger(l *slog.Logger) *ScmServiceManager {
	m.Logger = l
	return m
}

func (m *ScmServiceManager) log() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// startType resolves the configured start type against Autostart
func (m *ScmServiceManager) startType(autostart bool) ScmStartType {
	if m.Config.Install.StartType != nil {
		return *m.Config.Install.StartType
	}
	if autostart {
		return ScmAutoStart
	}
	return ScmOnDemand
}

// serviceType defaults to an own-process service
func (m *ScmServiceManager) serviceType() ScmServiceType {
	if m.Config.Install.ServiceType == 0 {
		return ScmOwnProcess
	}
	return m.Config.Install.ServiceType
}

// Available reports whether this is a Windows host
func (m *ScmServiceManager) Available() (bool, error) {
	return runtime.GOOS == "windows", nil
}

// Level always returns LevelSystem
func (m *ScmServiceManager) Level() ServiceLevel {
	return LevelSystem
}

// SetLevel accepts only LevelSystem
func (m *ScmServiceManager) SetLevel(level ServiceLevel) error {
	if level != LevelSystem {
		return unsupportedLevel(KindScm, level)
	}
	return nil
}

// Install creates the service and applies its description, delayed
// autostart and recovery actions
func (m *ScmServiceManager) Install(ctx context.Context, c InstallCtx) error {
	return wrapOp(KindScm, OpInstall, c.Label, m.install(ctx, c))
}

// Uninstall marks the service for deletion
func (m *ScmServiceManager) Uninstall(ctx context.Context, c UninstallCtx) error {
	return wrapOp(KindScm, OpUninstall, c.Label, m.uninstall(ctx, c))
}

// Start asks the SCM to start the service
func (m *ScmServiceManager) Start(ctx context.Context, c StartCtx) error {
	return wrapOp(KindScm, OpStart, c.Label, m.start(ctx, c))
}

// Stop sends the stop control to the service
func (m *ScmServiceManager) Stop(ctx context.Context, c StopCtx) error {
	return wrapOp(KindScm, OpStop, c.Label, m.stop(ctx, c))
}

// Status queries the service state. A stopped service carries its exit
// code as the reason.
func (m *ScmServiceManager) Status(ctx context.Context, c StatusCtx) (Status, error) {
	st, err := m.status(ctx, c)
	return st, wrapOp(KindScm, OpStatus, c.Label, err)
}
