package svcmgr

import (
	"fmt"
	"runtime"
	"strings"
)

// ServiceManagerKind identifies a native service manager backend
type ServiceManagerKind int

const (
	// KindUnknown represents no particular backend
	KindUnknown ServiceManagerKind = iota
	// KindLaunchd is launchd on macOS
	KindLaunchd
	// KindOpenRC is OpenRC on Alpine, Gentoo and friends
	KindOpenRC
	// KindRcd is rc.d on FreeBSD
	KindRcd
	// KindSc is the sc.exe tool on Windows
	KindSc
	// KindScm is the Windows Service Control Manager API
	KindScm
	// KindSystemd is systemd on Linux
	KindSystemd
	// KindWinSW is the WinSW service wrapper on Windows
	KindWinSW
)

// ServiceManagerKind string constants
const (
	kindUnknownStr = "unknown"
	kindLaunchdStr = "launchd"
	kindOpenRCStr  = "openrc"
	kindRcdStr     = "rcd"
	kindScStr      = "sc"
	kindScmStr     = "scm"
	kindSystemdStr = "systemd"
	kindWinSWStr   = "winsw"
)

// String returns the string representation of the kind
func (k ServiceManagerKind) String() string {
	switch k {
	case KindLaunchd:
		return kindLaunchdStr
	case KindOpenRC:
		return kindOpenRCStr
	case KindRcd:
		return kindRcdStr
	case KindSc:
		return kindScStr
	case KindScm:
		return kindScmStr
	case KindSystemd:
		return kindSystemdStr
	case KindWinSW:
		return kindWinSWStr
	default:
		return kindUnknownStr
	}
}

// ParseServiceManagerKind converts a name such as "systemd" to a kind.
// Matching is case-insensitive and accepts "rc.d" and "sc.exe".
func ParseServiceManagerKind(s string) (ServiceManagerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case kindLaunchdStr:
		return KindLaunchd, nil
	case kindOpenRCStr:
		return KindOpenRC, nil
	case kindRcdStr, "rc.d":
		return KindRcd, nil
	case kindScStr, "sc.exe":
		return KindSc, nil
	case kindScmStr:
		return KindScm, nil
	case kindSystemdStr:
		return KindSystemd, nil
	case kindWinSWStr:
		return KindWinSW, nil
	default:
		return KindUnknown, fmt.Errorf("%w: unknown service manager kind %q", ErrUnsupported, s)
	}
}

// AllKinds returns every known backend kind
func AllKinds() []ServiceManagerKind {
	return []ServiceManagerKind{
		KindLaunchd,
		KindOpenRC,
		KindRcd,
		KindSc,
		KindScm,
		KindSystemd,
		KindWinSW,
	}
}

// NativeKind returns the backend that manages services on this host.
//
// macOS uses launchd and the BSDs rc.d. Windows prefers WinSW when its
// binary is available and otherwise sc.exe. Linux prefers systemd, then
// OpenRC; anything else is ErrUnsupported.
func NativeKind() (ServiceManagerKind, error) {
	return nativeKind(runtime.GOOS, probeAvailable)
}

// probeAvailable asks a default-configured manager of the given kind
func probeAvailable(kind ServiceManagerKind) (bool, error) {
	m, err := Target(kind)
	if err != nil {
		return false, err
	}
	return m.Available()
}

func nativeKind(goos string, available func(ServiceManagerKind) (bool, error)) (ServiceManagerKind, error) {
	switch goos {
	case "darwin", "ios":
		return KindLaunchd, nil
	case "freebsd", "dragonfly", "openbsd", "netbsd":
		return KindRcd, nil
	case "windows":
		if ok, err := available(KindWinSW); err == nil && ok {
			return KindWinSW, nil
		}
		return KindSc, nil
	case "linux", "android":
		if ok, err := available(KindSystemd); err == nil && ok {
			return KindSystemd, nil
		}
		if ok, err := available(KindOpenRC); err == nil && ok {
			return KindOpenRC, nil
		}
		return KindUnknown, fmt.Errorf("%w: only systemd and openrc are supported on linux", ErrUnsupported)
	default:
		return KindUnknown, fmt.Errorf("%w: no native service manager for %s", ErrUnsupported, goos)
	}
}
