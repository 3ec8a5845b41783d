//go:build windows

package svcmgr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// accessDelete is the standard DELETE access right
const accessDelete = 0x00010000

// scmResetPeriod is how long, in seconds, before the failure count resets
const scmResetPeriod = 86400

// withService connects to the SCM and opens name with only the given access
func withService(name string, access uint32, fn func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	h, err := windows.OpenService(m.Handle, namePtr, access)
	if err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			return fmt.Errorf("%w: %s", ErrNotInstalled, name)
		}
		return fmt.Errorf("open service %s: %w", name, err)
	}
	s := &mgr.Service{Name: name, Handle: h}
	defer s.Close()

	return fn(s)
}

func (m *ScmServiceManager) install(_ context.Context, c InstallCtx) error {
	cfg := m.Config.Install
	name := c.Label.QualifiedName()

	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = name
	}

	if c.WorkingDirectory != "" || len(c.Environment) > 0 {
		m.log().Warn("the service control manager cannot set a working directory or environment, ignoring",
			"label", name)
	}

	sm, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer sm.Disconnect()

	s, err := sm.CreateService(name, c.Program, mgr.Config{
		ServiceType:      uint32(m.serviceType()),
		StartType:        uint32(m.startType(c.Autostart)),
		ErrorControl:     uint32(cfg.ErrorControl),
		Dependencies:     cfg.Dependencies,
		ServiceStartName: c.Username,
		DisplayName:      displayName,
		Description:      cfg.Description,
		DelayedAutoStart: cfg.DelayedAutostart,
	}, c.Args...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer s.Close()

	return m.applyRestartPolicy(s, c)
}

// applyRestartPolicy maps the restart policy onto SCM recovery actions
func (m *ScmServiceManager) applyRestartPolicy(s *mgr.Service, c InstallCtx) error {
	policy := c.RestartPolicy
	switch policy.Kind {
	case RestartNever:
		return nil
	case RestartOnSuccess:
		m.log().Warn("the service control manager cannot restart on success, ignoring",
			"label", c.Label.QualifiedName())
		return nil
	}

	var delay time.Duration
	if policy.Delay != nil {
		delay = *policy.Delay
	}
	actions := []mgr.RecoveryAction{
		{Type: mgr.ServiceRestart, Delay: delay},
		{Type: mgr.ServiceRestart, Delay: delay},
		{Type: mgr.ServiceRestart, Delay: delay},
	}
	if err := s.SetRecoveryActions(actions, scmResetPeriod); err != nil {
		return fmt.Errorf("set recovery actions: %w", err)
	}
	if policy.Kind == RestartAlways {
		if err := s.SetRecoveryActionsOnNonCrashFailures(true); err != nil {
			return fmt.Errorf("set non-crash recovery: %w", err)
		}
	}
	return nil
}

func (m *ScmServiceManager) uninstall(_ context.Context, c UninstallCtx) error {
	return withService(c.Label.QualifiedName(), accessDelete, func(s *mgr.Service) error {
		return s.Delete()
	})
}

func (m *ScmServiceManager) start(_ context.Context, c StartCtx) error {
	return withService(c.Label.QualifiedName(), windows.SERVICE_START, func(s *mgr.Service) error {
		return s.Start()
	})
}

func (m *ScmServiceManager) stop(_ context.Context, c StopCtx) error {
	return withService(c.Label.QualifiedName(), windows.SERVICE_STOP, func(s *mgr.Service) error {
		_, err := s.Control(svc.Stop)
		return err
	})
}

func (m *ScmServiceManager) status(_ context.Context, c StatusCtx) (Status, error) {
	var st Status
	err := withService(c.Label.QualifiedName(), windows.SERVICE_QUERY_STATUS, func(s *mgr.Service) error {
		q, err := s.Query()
		if err != nil {
			return err
		}
		st = scmStatus(q)
		return nil
	})
	if errors.Is(err, ErrNotInstalled) {
		return Status{State: StateNotInstalled}, nil
	}
	return st, err
}

// scmStatus reports every state other than stopped as running
func scmStatus(q svc.Status) Status {
	if q.State != svc.Stopped {
		return Status{State: StateRunning}
	}
	switch {
	case q.Win32ExitCode == uint32(windows.ERROR_SERVICE_SPECIFIC_ERROR):
		return Status{State: StateStopped, Reason: fmt.Sprintf("service specific error code: %x", q.ServiceSpecificExitCode)}
	case q.Win32ExitCode != 0:
		return Status{State: StateStopped, Reason: fmt.Sprintf("Win32 error code: %x", q.Win32ExitCode)}
	default:
		return Status{State: StateStopped}
	}
}
