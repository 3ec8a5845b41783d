package svcmgr

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func newTestLaunchd(t *testing.T, runner *fakeRunner) *LaunchdServiceManager {
	t.Helper()
	cfg := ConfigLaunchd()
	cfg.DaemonDir = filepath.Join(t.TempDir(), "LaunchDaemons")
	cfg.AgentDir = filepath.Join(t.TempDir(), "LaunchAgents")
	return NewLaunchdServiceManager().
		WithConfig(cfg).
		WithRunner(runner).
		WithLogger(quietLogger())
}

func decodePlist(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var dict map[string]any
	_, err := plist.Unmarshal(data, &dict)
	require.NoError(t, err)
	return dict
}

func TestLaunchdPlistOnFailure(t *testing.T) {
	m := newTestLaunchd(t, newFakeRunner())
	c := echoInstall()
	c.RestartPolicy = RestartPolicy{Kind: RestartOnFailure}
	c.WorkingDirectory = "/var/lib/echo"
	c.Username = "nobody"
	c.Environment = []EnvVar{{Name: "RUST_LOG", Value: "debug"}}

	data, err := m.BuildPlist(c)
	require.NoError(t, err)
	dict := decodePlist(t, data)

	assert.Equal(t, "com.example.echo", dict["Label"])
	assert.Equal(t, []any{"/usr/local/bin/svcmgr", "listen", "127.0.0.1:8088"}, dict["ProgramArguments"])
	assert.Equal(t, map[string]any{"SuccessfulExit": false}, dict["KeepAlive"])
	assert.Equal(t, true, dict["Disabled"])
	assert.Equal(t, false, dict["RunAtLoad"])
	assert.Equal(t, "nobody", dict["UserName"])
	assert.Equal(t, "/var/lib/echo", dict["WorkingDirectory"])
	assert.Equal(t, map[string]any{"RUST_LOG": "debug"}, dict["EnvironmentVariables"])
}

func TestLaunchdPlistKeepAlive(t *testing.T) {
	keepAliveOn := true
	tests := []struct {
		name      string
		policy    RestartPolicy
		override  *bool
		keepAlive any
		disabled  bool
	}{
		{name: "never", policy: RestartPolicy{Kind: RestartNever}},
		{name: "always", policy: RestartPolicy{Kind: RestartAlways}, keepAlive: true, disabled: true},
		{name: "on success", policy: RestartPolicy{Kind: RestartOnSuccess}, keepAlive: map[string]any{"SuccessfulExit": true}, disabled: true},
		{name: "override false", policy: RestartPolicy{Kind: RestartAlways}, override: new(bool)},
		{name: "override true", policy: RestartPolicy{Kind: RestartNever}, override: &keepAliveOn, keepAlive: true, disabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestLaunchd(t, newFakeRunner())
			m.Config.Install.KeepAlive = tt.override
			c := echoInstall()
			c.RestartPolicy = tt.policy
			c.Autostart = true

			data, err := m.BuildPlist(c)
			require.NoError(t, err)
			dict := decodePlist(t, data)

			assert.Equal(t, true, dict["RunAtLoad"])
			if tt.keepAlive == nil {
				assert.NotContains(t, dict, "KeepAlive")
				assert.NotContains(t, dict, "Disabled")
				return
			}
			assert.Equal(t, tt.keepAlive, dict["KeepAlive"])
			assert.Equal(t, tt.disabled, dict["Disabled"])
		})
	}
}

func TestLaunchdPlistDelayWarns(t *testing.T) {
	var buf bytes.Buffer
	m := newTestLaunchd(t, newFakeRunner()).WithLogger(captureLogger(&buf))
	c := echoInstall()
	c.RestartPolicy = RestartPolicy{Kind: RestartAlways}.WithDelay(5 * time.Second)

	_, err := m.BuildPlist(c)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "restart delays")
}

func TestLaunchdInstall(t *testing.T) {
	runner := newFakeRunner()
	m := newTestLaunchd(t, runner)
	ctx := context.Background()

	require.NoError(t, m.Install(ctx, echoInstall()))

	path := filepath.Join(m.Config.DaemonDir, "com.example.echo.plist")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
	assert.Equal(t, [][]string{{"launchctl", "load", path}}, runner.argv())

	// reinstall removes the stale job first
	require.NoError(t, m.Install(ctx, echoInstall()))
	assert.Equal(t, [][]string{
		{"launchctl", "load", path},
		{"launchctl", "remove", "com.example.echo"},
		{"launchctl", "load", path},
	}, runner.argv())
}

func TestLaunchdInstallContentsOverride(t *testing.T) {
	m := newTestLaunchd(t, newFakeRunner())
	c := echoInstall()
	c.Contents = "<plist>custom</plist>"

	require.NoError(t, m.Install(context.Background(), c))
	data, err := os.ReadFile(filepath.Join(m.Config.DaemonDir, "com.example.echo.plist"))
	require.NoError(t, err)
	assert.Equal(t, c.Contents, string(data))
}

func TestLaunchdInstallLoadFailure(t *testing.T) {
	m := newTestLaunchd(t, newFakeRunner(exited(5, "", "Load failed: 5: Input/output error")))

	err := m.Install(context.Background(), echoInstall())
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 5, cmdErr.ExitCode)
	assert.Contains(t, err.Error(), "Input/output error")
}

func TestLaunchdStartEnablesDisabledJob(t *testing.T) {
	runner := newFakeRunner()
	m := newTestLaunchd(t, runner)
	ctx := context.Background()

	c := echoInstall()
	c.RestartPolicy = RestartPolicy{Kind: RestartAlways}
	require.NoError(t, m.Install(ctx, c))

	require.NoError(t, m.Start(ctx, StartCtx{Label: echoLabel}))

	path := filepath.Join(m.Config.DaemonDir, "com.example.echo.plist")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	dict := decodePlist(t, data)
	assert.NotContains(t, dict, "Disabled")
	assert.Equal(t, true, dict["KeepAlive"])

	assert.Equal(t, [][]string{
		{"launchctl", "load", path},
		{"launchctl", "unload", path},
		{"launchctl", "load", path},
	}, runner.argv())

	// second start goes through launchctl start
	require.NoError(t, m.Start(ctx, StartCtx{Label: echoLabel}))
	assert.Equal(t, []string{"launchctl", "start", "com.example.echo"}, runner.argv()[3])
}

func TestLaunchdStartWithKeepAliveOff(t *testing.T) {
	runner := newFakeRunner()
	m := newTestLaunchd(t, runner)
	m.Config.Install.KeepAlive = new(bool)
	ctx := context.Background()

	c := echoInstall()
	c.RestartPolicy = RestartPolicy{Kind: RestartAlways}
	require.NoError(t, m.Install(ctx, c))
	require.NoError(t, m.Start(ctx, StartCtx{Label: echoLabel}))

	path := filepath.Join(m.Config.DaemonDir, "com.example.echo.plist")
	assert.Equal(t, [][]string{
		{"launchctl", "load", path},
		{"launchctl", "start", "com.example.echo"},
	}, runner.argv())
}

func TestLaunchdStartNotInstalled(t *testing.T) {
	runner := newFakeRunner()
	m := newTestLaunchd(t, runner)

	err := m.Start(context.Background(), StartCtx{Label: echoLabel})
	assert.True(t, IsNotInstalled(err))
	assert.Empty(t, runner.argv())
}

func TestLaunchdStop(t *testing.T) {
	runner := newFakeRunner()
	m := newTestLaunchd(t, runner)

	require.NoError(t, m.Stop(context.Background(), StopCtx{Label: echoLabel}))
	assert.Equal(t, [][]string{{"launchctl", "stop", "com.example.echo"}}, runner.argv())
}

func TestLaunchdUninstall(t *testing.T) {
	runner := newFakeRunner(exited(3, "", "Boot-out failed"))
	m := newTestLaunchd(t, runner)
	ctx := context.Background()

	// neither a missing job nor a missing file is an error
	require.NoError(t, m.Uninstall(ctx, UninstallCtx{Label: echoLabel}))

	require.NoError(t, m.Install(ctx, echoInstall()))
	require.NoError(t, m.Uninstall(ctx, UninstallCtx{Label: echoLabel}))
	_, err := os.Stat(filepath.Join(m.Config.DaemonDir, "com.example.echo.plist"))
	assert.True(t, os.IsNotExist(err))
}

func TestLaunchdStatus(t *testing.T) {
	notFound := "Could not find service in domain for system\nservices = {\n\t  0  -  gui/501/com.example.echo\n}\n"

	tests := []struct {
		name    string
		outputs []*Output
		want    State
		calls   int
		wantErr bool
	}{
		{
			name:    "running",
			outputs: []*Output{exited(0, "com.example.echo = {\n\tstate = running\n\tpid = 42\n}\n", "")},
			want:    StateRunning,
			calls:   1,
		},
		{
			name:    "not running",
			outputs: []*Output{exited(0, "com.example.echo = {\n\tstate = not running\n}\n", "")},
			want:    StateStopped,
			calls:   1,
		},
		{
			name:    "no state line",
			outputs: []*Output{exited(0, "com.example.echo = {\n}\n", "")},
			want:    StateStopped,
			calls:   1,
		},
		{
			name:    "unknown label",
			outputs: []*Output{exited(64, "", "Could not find service\n")},
			want:    StateNotInstalled,
			calls:   1,
		},
		{
			name: "resolved on second pass",
			outputs: []*Output{
				exited(64, "", notFound),
				exited(0, "\tstate = running\n", ""),
			},
			want:  StateRunning,
			calls: 2,
		},
		{
			name: "second pass fails",
			outputs: []*Output{
				exited(64, notFound, ""),
				exited(64, "", "still missing"),
			},
			calls:   2,
			wantErr: true,
		},
		{
			name:    "other failure",
			outputs: []*Output{exited(5, "", "boom")},
			calls:   1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner(tt.outputs...)
			m := newTestLaunchd(t, runner)

			st, err := m.Status(context.Background(), StatusCtx{Label: echoLabel})
			calls := runner.argv()
			require.Len(t, calls, tt.calls)
			assert.Equal(t, []string{"launchctl", "print", "com.example.echo"}, calls[0])
			if tt.calls == 2 {
				assert.Equal(t, []string{"launchctl", "print", "0  -  gui/501/com.example.echo"}, calls[1])
			}
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.State)
		})
	}
}

func TestLaunchdLevel(t *testing.T) {
	m := newTestLaunchd(t, newFakeRunner())
	assert.Equal(t, LevelSystem, m.Level())

	require.NoError(t, m.SetLevel(LevelUser))
	assert.Equal(t, LevelUser, m.Level())

	path, err := m.PlistPath(echoLabel)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Config.AgentDir, "com.example.echo.plist"), path)
}

func TestLaunchdAvailable(t *testing.T) {
	m := newTestLaunchd(t, newFakeRunner())
	m.Config.LaunchctlPath = "svcmgr-definitely-missing-launchctl"

	ok, err := m.Available()
	require.NoError(t, err)
	assert.False(t, ok)
}
