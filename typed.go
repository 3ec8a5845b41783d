package svcmgr

import (
	"context"
	"fmt"
	"log/slog"
)

// TypedServiceManager is a ServiceManager for exactly one backend kind.
// It dispatches every call to the concrete manager it was built with;
// the concrete manager stays reachable through the kind's accessor.
type TypedServiceManager struct {
	kind    ServiceManagerKind
	launchd *LaunchdServiceManager
	openrc  *OpenRCServiceManager
	rcd     *RcdServiceManager
	sc      *ScServiceManager
	scm     *ScmServiceManager
	systemd *SystemdServiceManager
	winsw   *WinSWServiceManager
}

var _ ServiceManager = (*TypedServiceManager)(nil)

// Target returns a default-configured manager of the given kind
func Target(kind ServiceManagerKind) (*TypedServiceManager, error) {
	switch kind {
	case KindLaunchd:
		return &TypedServiceManager{kind: kind, launchd: NewLaunchdServiceManager()}, nil
	case KindOpenRC:
		return &TypedServiceManager{kind: kind, openrc: NewOpenRCServiceManager()}, nil
	case KindRcd:
		return &TypedServiceManager{kind: kind, rcd: NewRcdServiceManager()}, nil
	case KindSc:
		return &TypedServiceManager{kind: kind, sc: NewScServiceManager()}, nil
	case KindScm:
		return &TypedServiceManager{kind: kind, scm: NewScmServiceManager()}, nil
	case KindSystemd:
		return &TypedServiceManager{kind: kind, systemd: NewSystemdServiceManager()}, nil
	case KindWinSW:
		return &TypedServiceManager{kind: kind, winsw: NewWinSWServiceManager()}, nil
	default:
		return nil, fmt.Errorf("%w: unknown service manager kind %d", ErrUnsupported, int(kind))
	}
}

// TargetOrNative returns Target(kind), or Native when kind is KindUnknown
func TargetOrNative(kind ServiceManagerKind) (*TypedServiceManager, error) {
	if kind == KindUnknown {
		return Native()
	}
	return Target(kind)
}

// Native returns the manager for the host's native backend
func Native() (*TypedServiceManager, error) {
	kind, err := NativeKind()
	if err != nil {
		return nil, err
	}
	return Target(kind)
}

// NewTypedServiceManager wraps a concrete backend manager
func NewTypedServiceManager(m ServiceManager) (*TypedServiceManager, error) {
	switch v := m.(type) {
	case *TypedServiceManager:
		return v, nil
	case *LaunchdServiceManager:
		return &TypedServiceManager{kind: KindLaunchd, launchd: v}, nil
	case *OpenRCServiceManager:
		return &TypedServiceManager{kind: KindOpenRC, openrc: v}, nil
	case *RcdServiceManager:
		return &TypedServiceManager{kind: KindRcd, rcd: v}, nil
	case *ScServiceManager:
		return &TypedServiceManager{kind: KindSc, sc: v}, nil
	case *ScmServiceManager:
		return &TypedServiceManager{kind: KindScm, scm: v}, nil
	case *SystemdServiceManager:
		return &TypedServiceManager{kind: KindSystemd, systemd: v}, nil
	case *WinSWServiceManager:
		return &TypedServiceManager{kind: KindWinSW, winsw: v}, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a known service manager", ErrUnsupported, m)
	}
}

// Kind returns the backend kind
func (t *TypedServiceManager) Kind() ServiceManagerKind {
	return t.kind
}

// inner returns the concrete manager for the kind
func (t *TypedServiceManager) inner() ServiceManager {
	switch t.kind {
	case KindLaunchd:
		return t.launchd
	case KindOpenRC:
		return t.openrc
	case KindRcd:
		return t.rcd
	case KindSc:
		return t.sc
	case KindScm:
		return t.scm
	case KindSystemd:
		return t.systemd
	case KindWinSW:
		return t.winsw
	default:
		return nil
	}
}

var errNoManager = fmt.Errorf("%w: no service manager selected", ErrUnsupported)

// Available reports whether the backend can be used on this host
func (t *TypedServiceManager) Available() (bool, error) {
	m := t.inner()
	if m == nil {
		return false, errNoManager
	}
	return m.Available()
}

// Install installs the service
func (t *TypedServiceManager) Install(ctx context.Context, c InstallCtx) error {
	m := t.inner()
	if m == nil {
		return errNoManager
	}
	return m.Install(ctx, c)
}

// Uninstall uninstalls the service
func (t *TypedServiceManager) Uninstall(ctx context.Context, c UninstallCtx) error {
	m := t.inner()
	if m == nil {
		return errNoManager
	}
	return m.Uninstall(ctx, c)
}

// Start starts the service
func (t *TypedServiceManager) Start(ctx context.Context, c StartCtx) error {
	m := t.inner()
	if m == nil {
		return errNoManager
	}
	return m.Start(ctx, c)
}

// Stop stops the service
func (t *TypedServiceManager) Stop(ctx context.Context, c StopCtx) error {
	m := t.inner()
	if m == nil {
		return errNoManager
	}
	return m.Stop(ctx, c)
}

// Status queries the service
func (t *TypedServiceManager) Status(ctx context.Context, c StatusCtx) (Status, error) {
	m := t.inner()
	if m == nil {
		return Status{}, errNoManager
	}
	return m.Status(ctx, c)
}

// Level returns the current service level
func (t *TypedServiceManager) Level() ServiceLevel {
	m := t.inner()
	if m == nil {
		return LevelSystem
	}
	return m.Level()
}

// SetLevel changes the service level
func (t *TypedServiceManager) SetLevel(level ServiceLevel) error {
	m := t.inner()
	if m == nil {
		return errNoManager
	}
	return m.SetLevel(level)
}

// WithLogger sets the logger of the underlying manager
func (t *TypedServiceManager) WithLogger(l *slog.Logger) *TypedServiceManager {
	switch t.kind {
	case KindLaunchd:
		t.launchd.WithLogger(l)
	case KindOpenRC:
		t.openrc.WithLogger(l)
	case KindRcd:
		t.rcd.WithLogger(l)
	case KindSc:
		t.sc.WithLogger(l)
	case KindScm:
		t.scm.WithLogger(l)
	case KindSystemd:
		t.systemd.WithLogger(l)
	case KindWinSW:
		t.winsw.WithLogger(l)
	}
	return t
}

// Launchd returns the launchd manager when that is the kind
func (t *TypedServiceManager) Launchd() (*LaunchdServiceManager, bool) {
	return t.launchd, t.kind == KindLaunchd
}

// OpenRC returns the OpenRC manager when that is the kind
func (t *TypedServiceManager) OpenRC() (*OpenRCServiceManager, bool) {
	return t.openrc, t.kind == KindOpenRC
}

// Rcd returns the rc.d manager when that is the kind
func (t *TypedServiceManager) Rcd() (*RcdServiceManager, bool) {
	return t.rcd, t.kind == KindRcd
}

// Sc returns the sc.exe manager when that is the kind
func (t *TypedServiceManager) Sc() (*ScServiceManager, bool) {
	return t.sc, t.kind == KindSc
}

// Scm returns the Windows SCM manager when that is the kind
func (t *TypedServiceManager) Scm() (*ScmServiceManager, bool) {
	return t.scm, t.kind == KindScm
}

// Systemd returns the systemd manager when that is the kind
func (t *TypedServiceManager) Systemd() (*SystemdServiceManager, bool) {
	return t.systemd, t.kind == KindSystemd
}

// WinSW returns the WinSW manager when that is the kind
func (t *TypedServiceManager) WinSW() (*WinSWServiceManager, bool) {
	return t.winsw, t.kind == KindWinSW
}

// IsLaunchd reports whether the kind is launchd
func (t *TypedServiceManager) IsLaunchd() bool { return t.kind == KindLaunchd }

// IsOpenRC reports whether the kind is OpenRC
func (t *TypedServiceManager) IsOpenRC() bool { return t.kind == KindOpenRC }

// IsRcd reports whether the kind is rc.d
func (t *TypedServiceManager) IsRcd() bool { return t.kind == KindRcd }

// IsSc reports whether the kind is sc.exe
func (t *TypedServiceManager) IsSc() bool { return t.kind == KindSc }

// IsScm reports whether the kind is the Windows SCM
func (t *TypedServiceManager) IsScm() bool { return t.kind == KindScm }

// IsSystemd reports whether the kind is systemd
func (t *TypedServiceManager) IsSystemd() bool { return t.kind == KindSystemd }

// IsWinSW reports whether the kind is WinSW
func (t *TypedServiceManager) IsWinSW() bool { return t.kind == KindWinSW }

// Compile-time interface checks
var (
	_ ServiceManager = (*LaunchdServiceManager)(nil)
	_ ServiceManager = (*OpenRCServiceManager)(nil)
	_ ServiceManager = (*RcdServiceManager)(nil)
	_ ServiceManager = (*ScServiceManager)(nil)
	_ ServiceManager = (*ScmServiceManager)(nil)
	_ ServiceManager = (*SystemdServiceManager)(nil)
	_ ServiceManager = (*WinSWServiceManager)(nil)
)
