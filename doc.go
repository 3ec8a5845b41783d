// Package svcmgr provides a uniform way to install, uninstall, start, stop
// and query services through the native service manager of the host:
// launchd on macOS, systemd or OpenRC on Linux, rc.d on the BSDs, and on
// Windows sc.exe, the Service Control Manager API or WinSW.
//
// Every backend implements the ServiceManager interface. The library
// translates a portable InstallCtx into the backend's native artifact
// (plist, unit file, init script, XML definition) and drives the backend's
// own tooling; it never supervises processes itself.
//
//	label, err := svcmgr.ParseServiceLabel("com.example.echo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	manager, err := svcmgr.Native()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = manager.Install(ctx, svcmgr.InstallCtx{
//	    Label:     label,
//	    Program:   "/usr/local/bin/echo-server",
//	    Args:      []string{"listen", "127.0.0.1:8080"},
//	    Autostart: true,
//	})
//
//	status, err := manager.Status(ctx, svcmgr.StatusCtx{Label: label})
//	fmt.Println(status)
//
// # Selecting a backend
//
// Native picks the backend for the running OS; Target and TargetOrNative
// select one explicitly. The returned TypedServiceManager dispatches to the
// concrete manager, which stays reachable through accessors such as
// Launchd or WinSW when backend specific configuration is needed.
//
// # Service levels
//
// Managers start at LevelSystem. SetLevel(LevelUser) switches launchd and
// systemd to per-user agents and units; every other backend rejects it with
// an error matching ErrUnsupported.
//
// # Errors
//
// Adapter failures are reported as *OpError values wrapping either a
// sentinel (ErrUnsupported, ErrInvalidConfiguration, ErrNotInstalled), a
// *CommandError describing a failed native command, or an I/O error.
package svcmgr
