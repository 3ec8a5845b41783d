//go:build !windows

package svcmgr

import (
	"io/fs"

	"github.com/google/renameio/v2"
)

// writeFile atomically replaces path with data: the content is written to a
// temporary file in the same directory, synced, and renamed into place.
func writeFile(path string, data []byte, mode fs.FileMode) error {
	return renameio.WriteFile(path, data, mode)
}
