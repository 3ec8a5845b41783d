package svcmgr

import (
	"time"
)

// ServiceLevel selects between system-wide and per-user services
type ServiceLevel int

const (
	// LevelSystem installs services for the whole machine (the default)
	LevelSystem ServiceLevel = iota
	// LevelUser installs services for the invoking user only
	LevelUser
)

// String returns the string representation of the level
func (l ServiceLevel) String() string {
	switch l {
	case LevelUser:
		return "user"
	default:
		return "system"
	}
}

// RestartKind enumerates the portable restart policies
type RestartKind int

const (
	// RestartNever never restarts the service after it exits
	RestartNever RestartKind = iota
	// RestartAlways restarts the service regardless of its exit status
	RestartAlways
	// RestartOnFailure restarts the service after a non-zero exit
	RestartOnFailure
	// RestartOnSuccess restarts the service after a zero exit
	RestartOnSuccess
)

// RestartKind string constants
const (
	restartNeverStr     = "never"
	restartAlwaysStr    = "always"
	restartOnFailureStr = "on-failure"
	restartOnSuccessStr = "on-success"
)

// String returns the string representation of the restart kind
func (k RestartKind) String() string {
	switch k {
	case RestartAlways:
		return restartAlwaysStr
	case RestartOnFailure:
		return restartOnFailureStr
	case RestartOnSuccess:
		return restartOnSuccessStr
	default:
		return restartNeverStr
	}
}

// ParseRestartKind converts a string such as "on-failure" to a RestartKind
func ParseRestartKind(s string) (RestartKind, bool) {
	switch s {
	case "", restartNeverStr:
		return RestartNever, true
	case restartAlwaysStr:
		return RestartAlways, true
	case restartOnFailureStr, "on_failure", "onfailure":
		return RestartOnFailure, true
	case restartOnSuccessStr, "on_success", "onsuccess":
		return RestartOnSuccess, true
	default:
		return RestartNever, false
	}
}

// RestartPolicy is the portable restart policy of an installed service.
// The zero value means RestartNever. Delay is ignored for RestartNever and
// by backends that cannot express it.
type RestartPolicy struct {
	Kind  RestartKind
	Delay *time.Duration
}

// WithDelay returns a copy of the policy with the given restart delay
func (p RestartPolicy) WithDelay(d time.Duration) RestartPolicy {
	p.Delay = &d
	return p
}

// DelaySeconds returns the delay in whole seconds, rounding up
func (p RestartPolicy) DelaySeconds() (uint64, bool) {
	if p.Delay == nil || p.Kind == RestartNever {
		return 0, false
	}
	d := *p.Delay
	if d <= 0 {
		return 0, true
	}
	secs := uint64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs, true
}

// EnvVar is a single environment variable; InstallCtx keeps them ordered
type EnvVar struct {
	Name  string
	Value string
}

// InstallCtx describes a service to install
type InstallCtx struct {
	// Label identifies the service
	Label ServiceLabel
	// Program is the path to the executable
	Program string
	// Args are passed to Program
	Args []string
	// Contents, when non-empty, is written verbatim instead of the
	// generated definition
	Contents string
	// Username runs the service as another user where the backend allows it
	Username string
	// WorkingDirectory is the working directory of the service process
	WorkingDirectory string
	// Environment is set for the service process
	Environment []EnvVar
	// Autostart starts the service at boot (or login for user services)
	Autostart bool
	// RestartPolicy controls whether the service is restarted after exit
	RestartPolicy RestartPolicy
}

// Cmd returns the program followed by its arguments
func (c InstallCtx) Cmd() []string {
	return append([]string{c.Program}, c.Args...)
}

// UninstallCtx describes a service to uninstall
type UninstallCtx struct {
	Label ServiceLabel
}

// StartCtx describes a service to start
type StartCtx struct {
	Label ServiceLabel
}

// StopCtx describes a service to stop
type StopCtx struct {
	Label ServiceLabel
}

// StatusCtx describes a service to query
type StatusCtx struct {
	Label ServiceLabel
}

// State is the coarse state of a service as reported by its manager
type State int

const (
	// StateUnknown is only returned together with an error
	StateUnknown State = iota
	// StateNotInstalled means the manager does not know the service
	StateNotInstalled
	// StateRunning means the service is active
	StateRunning
	// StateStopped means the service is installed but not running
	StateStopped
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateNotInstalled:
		return "not installed"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is the result of a status query. Reason is only ever set for
// StateStopped, when the backend can say why the service stopped.
type Status struct {
	State  State
	Reason string
}

// String returns a human readable status
func (s Status) String() string {
	if s.State == StateStopped && s.Reason != "" {
		return s.State.String() + " (" + s.Reason + ")"
	}
	return s.State.String()
}

// IsRunning reports whether the service is running
func (s Status) IsRunning() bool {
	return s.State == StateRunning
}
