//go:build !windows

package svcmgr

import (
	"context"
	"fmt"
)

var errScmUnsupported = fmt.Errorf("%w: the service control manager is only available on windows", ErrUnsupported)

func (m *ScmServiceManager) install(_ context.Context, _ InstallCtx) error {
	return errScmUnsupported
}

func (m *ScmServiceManager) uninstall(_ context.Context, _ UninstallCtx) error {
	return errScmUnsupported
}

func (m *ScmServiceManager) start(_ context.Context, _ StartCtx) error {
	return errScmUnsupported
}

func (m *ScmServiceManager) stop(_ context.Context, _ StopCtx) error {
	return errScmUnsupported
}

func (m *ScmServiceManager) status(_ context.Context, _ StatusCtx) (Status, error) {
	return Status{}, errScmUnsupported
}
