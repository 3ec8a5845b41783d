//go:build !windows

package svcmgr

// escapeArg returns s unchanged; sc.exe only runs on Windows
func escapeArg(s string) string {
	return s
}
