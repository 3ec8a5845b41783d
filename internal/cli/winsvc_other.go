//go:build !windows

package cli

import (
	"context"
	"fmt"

	svcmgr "github.com/axondata/go-servicemanager"
)

func runWindowsService(_ string, _ func(ctx context.Context) error) error {
	return fmt.Errorf("%w: --run-as-windows-service requires windows", svcmgr.ErrUnsupported)
}
