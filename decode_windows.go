//go:build windows

package svcmgr

import "golang.org/x/sys/windows"

// decodeOutput converts native tool output from the ANSI code page
func decodeOutput(b []byte) []byte {
	return decodeCodePage(b, windows.GetACP())
}
