package svcmgr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRcd(t *testing.T, runner *fakeRunner) *RcdServiceManager {
	t.Helper()
	cfg := ConfigRcd()
	cfg.RcDir = filepath.Join(t.TempDir(), "rc.d")
	return NewRcdServiceManager().
		WithConfig(cfg).
		WithRunner(runner).
		WithLogger(quietLogger())
}

func TestRcdScript(t *testing.T) {
	m := newTestRcd(t, newFakeRunner())

	want := `#!/bin/sh
#
# PROVIDE: example-echo
# REQUIRE: LOGIN FILESYSTEMS
# KEYWORD: shutdown

. /etc/rc.subr

name="example_echo"
desc="com.example.echo"
rcvar="example_echo_enable"

load_rc_config ${name}

: ${example_echo_options="listen 127.0.0.1:8088"}

pidfile="/var/run/${name}.pid"
procname="/usr/local/bin/svcmgr"
command="/usr/sbin/daemon"
command_args="-c -S -T ${name} -p ${pidfile} ${procname} ${example_echo_options}"

run_rc_command "$1"
`
	assert.Equal(t, want, m.BuildScript(echoInstall()))
}

func TestRcdScriptOptions(t *testing.T) {
	m := newTestRcd(t, newFakeRunner())
	m.Config.Install.Require = []string{"NETWORKING"}
	m.Config.Install.Before = []string{"nginx"}
	c := echoInstall()
	c.WorkingDirectory = "/var/db/echo"
	c.Username = "www"
	c.Environment = []EnvVar{{Name: "A", Value: "1"}, {Name: "B", Value: "two words"}}

	script := m.BuildScript(c)
	assert.Contains(t, script, "# REQUIRE: NETWORKING\n# BEFORE: nginx\n")
	assert.Contains(t, script, `: ${example_echo_chdir="/var/db/echo"}`)
	assert.Contains(t, script, `: ${example_echo_env="A=1 'B=two words'"}`)
	assert.Contains(t, script, `command_args="-c -S -T ${name} -u www -p ${pidfile}`)
}

func TestRcdInstall(t *testing.T) {
	runner := newFakeRunner()
	m := newTestRcd(t, runner)
	ctx := context.Background()

	require.NoError(t, m.Install(ctx, echoInstall()))

	path := m.ScriptPath(echoLabel)
	assert.Equal(t, "example-echo", filepath.Base(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, RcdScriptMode, info.Mode().Perm())
	assert.Equal(t, [][]string{{"service", "example-echo", "enable"}}, runner.argv())

	// an existing script is never overwritten
	err = m.Install(ctx, echoInstall())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Len(t, runner.argv(), 1)
}

func TestRcdUninstall(t *testing.T) {
	runner := newFakeRunner()
	m := newTestRcd(t, runner)
	ctx := context.Background()
	require.NoError(t, m.Install(ctx, echoInstall()))

	require.NoError(t, m.Uninstall(ctx, UninstallCtx{Label: echoLabel}))
	_, err := os.Stat(m.ScriptPath(echoLabel))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []string{"service", "example-echo", "delete"}, runner.argv()[1])
}

func TestRcdStartStop(t *testing.T) {
	runner := newFakeRunner()
	m := newTestRcd(t, runner)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, StartCtx{Label: echoLabel}))
	require.NoError(t, m.Stop(ctx, StopCtx{Label: echoLabel}))
	assert.Equal(t, [][]string{
		{"service", "example-echo", "start"},
		{"service", "example-echo", "stop"},
	}, runner.argv())
}

func TestRcdStatus(t *testing.T) {
	tests := []struct {
		code    int
		want    State
		wantErr bool
	}{
		{0, StateRunning, false},
		{1, StateNotInstalled, false},
		{3, StateStopped, false},
		{2, StateUnknown, true},
	}

	for _, tt := range tests {
		runner := newFakeRunner(exited(tt.code, "", ""))
		m := newTestRcd(t, runner)

		st, err := m.Status(context.Background(), StatusCtx{Label: echoLabel})
		if tt.wantErr {
			assert.Error(t, err, "exit %d", tt.code)
			continue
		}
		require.NoError(t, err, "exit %d", tt.code)
		assert.Equal(t, tt.want, st.State, "exit %d", tt.code)
		assert.Equal(t, [][]string{{"service", "example-echo", "status"}}, runner.argv())
	}
}

func TestRcdAvailable(t *testing.T) {
	m := newTestRcd(t, newFakeRunner())

	ok, err := m.Available()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(m.Config.RcDir, DirMode))
	ok, err = m.Available()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRcdLevel(t *testing.T) {
	m := newTestRcd(t, newFakeRunner())
	assert.ErrorIs(t, m.SetLevel(LevelUser), ErrUnsupported)
	assert.NoError(t, m.SetLevel(LevelSystem))
}
