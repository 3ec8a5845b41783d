package svcmgr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		out  *Output
		want string
	}{
		{
			name: "stderr preferred",
			out:  exited(3, "stdout text", "  stderr text \n"),
			want: "systemctl start: command failed with exit code 3: stderr text",
		},
		{
			name: "stdout when stderr blank",
			out:  exited(1, "only stdout\n", "  \n"),
			want: "systemctl start: command failed with exit code 1: only stdout",
		},
		{
			name: "no output",
			out:  exited(5, "", ""),
			want: "systemctl start: command failed with exit code 5: failed to execute command with no output",
		},
	}

	cmd := Command{Name: "systemctl", Args: []string{"start", "example-echo"}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newCommandError(cmd, tt.out).Error())
		})
	}
}

func TestOpErrorUnwrap(t *testing.T) {
	err := wrapOp(KindLaunchd, OpStart, echoLabel, fmt.Errorf("%w: missing plist", ErrNotInstalled))
	require.Error(t, err)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, KindLaunchd, opErr.Kind)
	assert.Equal(t, OpStart, opErr.Op)
	assert.Equal(t, "com.example.echo", opErr.Label)
	assert.True(t, IsNotInstalled(err))
	assert.Equal(t, `launchd start "com.example.echo": svcmgr: service not installed: missing plist`, err.Error())
}

func TestWrapOpNil(t *testing.T) {
	assert.NoError(t, wrapOp(KindSystemd, OpStop, echoLabel, nil))
}

func TestUnsupportedLevel(t *testing.T) {
	err := unsupportedLevel(KindOpenRC, LevelUser)
	assert.True(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "user level is not supported")
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpAvailable, "available"},
		{OpInstall, "install"},
		{OpUninstall, "uninstall"},
		{OpStart, "start"},
		{OpStop, "stop"},
		{OpStatus, "status"},
		{OpSetLevel, "set-level"},
		{OpUnknown, "unknown"},
		{Operation(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Operation(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
