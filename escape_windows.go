//go:build windows

package svcmgr

import (
	"golang.org/x/sys/windows"
)

// escapeArg quotes an argument the way CommandLineToArgvW parses it
func escapeArg(s string) string {
	return windows.EscapeArg(s)
}
