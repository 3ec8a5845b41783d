//go:build !windows

package svcmgr

// decodeOutput returns b unchanged; native tools emit UTF-8 here
func decodeOutput(b []byte) []byte {
	return b
}
