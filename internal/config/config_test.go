package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	svcmgr "github.com/axondata/go-servicemanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_Defaults(t *testing.T) {
	def, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultLevel, def.Level)
	assert.Equal(t, DefaultRestart, def.Restart.Policy)
	assert.Equal(t, DefaultLogLevel, def.Log.Level)
	assert.Equal(t, DefaultLogMaxSizeMB, def.Log.MaxSizeMB)
	assert.Empty(t, def.Kind)
	assert.False(t, def.Autostart)
	assert.NoError(t, def.Validate())
}

func TestLoader_Load_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "echo.toml")

	content := `
kind = "systemd"
level = "user"
label = "com.example.echo"
program = "/usr/local/bin/svcmgr"
args = ["listen", "127.0.0.1:8088"]
working_directory = "/var/lib/echo"
environment = ["MODE=loud", "EMPTY="]
autostart = true

[restart]
policy = "on-failure"
delay = "5s"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	loader := NewLoader().WithConfigPath(configPath)
	def, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, configPath, loader.ConfigFileUsed())
	require.NoError(t, def.Validate())

	kind, err := def.ManagerKind()
	require.NoError(t, err)
	assert.Equal(t, svcmgr.KindSystemd, kind)

	level, err := def.ServiceLevel()
	require.NoError(t, err)
	assert.Equal(t, svcmgr.LevelUser, level)

	c, err := def.InstallCtx()
	require.NoError(t, err)
	assert.Equal(t, "com.example.echo", c.Label.QualifiedName())
	assert.Equal(t, []string{"/usr/local/bin/svcmgr", "listen", "127.0.0.1:8088"}, c.Cmd())
	assert.Equal(t, "/var/lib/echo", c.WorkingDirectory)
	assert.Equal(t, []svcmgr.EnvVar{{Name: "MODE", Value: "loud"}, {Name: "EMPTY", Value: ""}}, c.Environment)
	assert.True(t, c.Autostart)
	assert.Equal(t, svcmgr.RestartOnFailure, c.RestartPolicy.Kind)
	require.NotNil(t, c.RestartPolicy.Delay)
	assert.Equal(t, 5*time.Second, *c.RestartPolicy.Delay)
}

func TestLoader_Load_MissingFile(t *testing.T) {
	_, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "missing.toml")).Load()
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoader_Load_EnvOverrides(t *testing.T) {
	t.Setenv("SVCMGR_LABEL", "org.app")
	t.Setenv("SVCMGR_PROGRAM", "/bin/app")
	t.Setenv("SVCMGR_RESTART_POLICY", "always")
	t.Setenv("SVCMGR_LOG_LEVEL", "warn")

	def, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "org.app", def.Label)
	assert.Equal(t, "/bin/app", def.Program)
	assert.Equal(t, "always", def.Restart.Policy)
	assert.Equal(t, "warn", def.Log.Level)
}

func TestLoader_Set(t *testing.T) {
	t.Setenv("SVCMGR_LABEL", "from.env")

	loader := NewLoader()
	loader.Set("label", "from.flag")
	loader.Set("autostart", true)

	def, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "from.flag", def.Label)
	assert.True(t, def.Autostart)
}

func TestDefinition_Validate(t *testing.T) {
	valid := func() *Definition {
		return &Definition{Level: "system", Log: LogConfig{Level: "info"}}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("unknown kind", func(t *testing.T) {
		def := valid()
		def.Kind = "upstart"
		assert.ErrorIs(t, def.Validate(), svcmgr.ErrUnsupported)
	})

	t.Run("invalid level", func(t *testing.T) {
		def := valid()
		def.Level = "global"
		assert.ErrorContains(t, def.Validate(), "level must be one of")
	})

	t.Run("invalid log level", func(t *testing.T) {
		def := valid()
		def.Log.Level = "loud"
		assert.ErrorContains(t, def.Validate(), "log.level must be one of")
	})
}

func TestDefinition_InstallCtx(t *testing.T) {
	valid := func() *Definition {
		return &Definition{
			Label:   "com.example.echo",
			Program: "/usr/local/bin/svcmgr",
			Restart: RestartConfig{Policy: "never"},
		}
	}

	t.Run("missing label", func(t *testing.T) {
		def := valid()
		def.Label = ""
		_, err := def.InstallCtx()
		assert.ErrorContains(t, err, "label is required")
	})

	t.Run("invalid label", func(t *testing.T) {
		def := valid()
		def.Label = "com..echo"
		_, err := def.InstallCtx()
		assert.ErrorIs(t, err, svcmgr.ErrInvalidLabel)
	})

	t.Run("missing program", func(t *testing.T) {
		def := valid()
		def.Program = ""
		_, err := def.InstallCtx()
		assert.ErrorContains(t, err, "program is required")
	})

	t.Run("invalid restart policy", func(t *testing.T) {
		def := valid()
		def.Restart.Policy = "sometimes"
		_, err := def.InstallCtx()
		assert.ErrorContains(t, err, "restart.policy must be one of")
	})

	t.Run("negative delay", func(t *testing.T) {
		def := valid()
		def.Restart = RestartConfig{Policy: "always", Delay: -time.Second}
		_, err := def.InstallCtx()
		assert.ErrorContains(t, err, "restart.delay cannot be negative")
	})

	t.Run("malformed environment", func(t *testing.T) {
		def := valid()
		def.Environment = []string{"NOVALUE"}
		_, err := def.InstallCtx()
		assert.ErrorContains(t, err, "NAME=VALUE")
	})

	t.Run("contents file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "echo.service")
		require.NoError(t, os.WriteFile(path, []byte("[Unit]\n"), 0600))
		def := valid()
		def.ContentsFile = path

		c, err := def.InstallCtx()
		require.NoError(t, err)
		assert.Equal(t, "[Unit]\n", c.Contents)
	})

	t.Run("contents conflict", func(t *testing.T) {
		def := valid()
		def.Contents = "inline"
		def.ContentsFile = "/some/file"
		_, err := def.InstallCtx()
		assert.ErrorContains(t, err, "mutually exclusive")
	})

	t.Run("no delay", func(t *testing.T) {
		c, err := valid().InstallCtx()
		require.NoError(t, err)
		assert.Nil(t, c.RestartPolicy.Delay)
	})
}
