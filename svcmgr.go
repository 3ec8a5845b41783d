package svcmgr

import (
	"io/fs"
)

// File modes
const (
	// DirMode is the default mode for created directories
	DirMode fs.FileMode = 0o755

	// FileMode is the default mode for generated definitions (plists, units, XML)
	FileMode fs.FileMode = 0o644

	// ExecMode is the mode for OpenRC init scripts
	ExecMode fs.FileMode = 0o755

	// RcdScriptMode is the default mode for rc.d scripts
	RcdScriptMode fs.FileMode = 0o555
)

// Operation represents a service manager operation type
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpAvailable probes whether the backend can be used on this host
	OpAvailable
	// OpInstall writes the service definition and registers it
	OpInstall
	// OpUninstall deregisters the service and removes its definition
	OpUninstall
	// OpStart starts the service
	OpStart
	// OpStop stops the service
	OpStop
	// OpStatus queries the service state
	OpStatus
	// OpSetLevel changes the service level of a manager
	OpSetLevel
)

// Operation string constants
const (
	opUnknownStr   = "unknown"
	opAvailableStr = "available"
	opInstallStr   = "install"
	opUninstallStr = "uninstall"
	opStartStr     = "start"
	opStopStr      = "stop"
	opStatusStr    = "status"
	opSetLevelStr  = "set-level"
)

// String returns the string representation of the operation
func (op Operation) String() string {
	switch op {
	case OpAvailable:
		return opAvailableStr
	case OpInstall:
		return opInstallStr
	case OpUninstall:
		return opUninstallStr
	case OpStart:
		return opStartStr
	case OpStop:
		return opStopStr
	case OpStatus:
		return opStatusStr
	case OpSetLevel:
		return opSetLevelStr
	default:
		return opUnknownStr
	}
}

// valueOr returns v, or def when v is empty
func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
