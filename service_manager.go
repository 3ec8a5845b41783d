package svcmgr

import (
	"context"
)

// ServiceManager is the interface every backend implements.
// It provides a unified API for installing and controlling services across
// different native service managers (launchd, systemd, OpenRC, rc.d, sc.exe,
// the Windows SCM and WinSW).
type ServiceManager interface {
	// Available reports whether the backend can be used on this host.
	// A missing tool is (false, nil); an error means the probe itself failed.
	Available() (bool, error)

	// Lifecycle operations
	Install(ctx context.Context, c InstallCtx) error
	Uninstall(ctx context.Context, c UninstallCtx) error
	Start(ctx context.Context, c StartCtx) error
	Stop(ctx context.Context, c StopCtx) error
	Status(ctx context.Context, c StatusCtx) (Status, error)

	// Level returns the current service level
	Level() ServiceLevel

	// SetLevel changes the service level. Backends without per-user
	// services return an error matching ErrUnsupported for LevelUser.
	SetLevel(level ServiceLevel) error
}
