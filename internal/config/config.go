package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	svcmgr "github.com/axondata/go-servicemanager"
	"github.com/spf13/viper"
)

// Definition describes one service and the backend it is installed with.
type Definition struct {
	// Kind selects the backend; empty means the host's native one
	Kind             string        `mapstructure:"kind"`
	Level            string        `mapstructure:"level"`
	Label            string        `mapstructure:"label"`
	Program          string        `mapstructure:"program"`
	Args             []string      `mapstructure:"args"`
	Contents         string        `mapstructure:"contents"`
	ContentsFile     string        `mapstructure:"contents_file"`
	Username         string        `mapstructure:"username"`
	WorkingDirectory string        `mapstructure:"working_directory"`
	Environment      []string      `mapstructure:"environment"`
	Autostart        bool          `mapstructure:"autostart"`
	Restart          RestartConfig `mapstructure:"restart"`
	Log              LogConfig     `mapstructure:"log"`
}

// RestartConfig holds the restart policy of the service.
type RestartConfig struct {
	Policy string        `mapstructure:"policy"`
	Delay  time.Duration `mapstructure:"delay"`
}

// LogConfig holds logging configuration of the CLI itself.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// WithConfigPath sets a specific definition file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load reads the definition from all sources.
// Precedence (highest to lowest): CLI flags > environment > file > defaults.
func (l *Loader) Load() (*Definition, error) {
	l.setDefaults()
	l.setupEnvBindings()

	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	var def Definition
	if err := l.v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &def, nil
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("kind", "")
	l.v.SetDefault("level", DefaultLevel)
	l.v.SetDefault("label", "")
	l.v.SetDefault("program", "")
	l.v.SetDefault("args", []string{})
	l.v.SetDefault("contents", "")
	l.v.SetDefault("contents_file", "")
	l.v.SetDefault("username", "")
	l.v.SetDefault("working_directory", "")
	l.v.SetDefault("environment", []string{})
	l.v.SetDefault("autostart", false)

	l.v.SetDefault("restart.policy", DefaultRestart)
	l.v.SetDefault("restart.delay", time.Duration(0))

	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.output", "")
	l.v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
}

func (l *Loader) setupEnvBindings() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// loadConfigFile reads the definition file when one was given. Without a
// path the definition comes from flags and the environment alone.
func (l *Loader) loadConfigFile() error {
	if l.configPath == "" {
		return nil
	}
	l.v.SetConfigFile(l.configPath)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Set sets a configuration value (for CLI flag overrides).
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the path of the definition file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// ManagerKind resolves the configured backend; KindUnknown selects the
// native one.
func (d *Definition) ManagerKind() (svcmgr.ServiceManagerKind, error) {
	if d.Kind == "" {
		return svcmgr.KindUnknown, nil
	}
	return svcmgr.ParseServiceManagerKind(d.Kind)
}

// ServiceLevel resolves the configured level.
func (d *Definition) ServiceLevel() (svcmgr.ServiceLevel, error) {
	switch strings.ToLower(d.Level) {
	case "", "system":
		return svcmgr.LevelSystem, nil
	case "user":
		return svcmgr.LevelUser, nil
	default:
		return svcmgr.LevelSystem, fmt.Errorf("level must be one of system, user: got %q", d.Level)
	}
}

// ServiceLabel parses the configured label.
func (d *Definition) ServiceLabel() (svcmgr.ServiceLabel, error) {
	if d.Label == "" {
		return svcmgr.ServiceLabel{}, errors.New("label is required")
	}
	return svcmgr.ParseServiceLabel(d.Label)
}

// RestartPolicy resolves the configured restart policy.
func (d *Definition) RestartPolicy() (svcmgr.RestartPolicy, error) {
	kind, ok := svcmgr.ParseRestartKind(d.Restart.Policy)
	if !ok {
		return svcmgr.RestartPolicy{}, fmt.Errorf("restart.policy must be one of never, always, on-failure, on-success: got %q", d.Restart.Policy)
	}
	if d.Restart.Delay < 0 {
		return svcmgr.RestartPolicy{}, errors.New("restart.delay cannot be negative")
	}
	policy := svcmgr.RestartPolicy{Kind: kind}
	if d.Restart.Delay > 0 {
		policy = policy.WithDelay(d.Restart.Delay)
	}
	return policy, nil
}

// Validate checks the parts of the definition every command needs.
func (d *Definition) Validate() error {
	if _, err := d.ManagerKind(); err != nil {
		return err
	}
	if _, err := d.ServiceLevel(); err != nil {
		return err
	}
	switch strings.ToLower(d.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error: got %q", d.Log.Level)
	}
	return nil
}

// InstallCtx builds the install descriptor. Contents come from the file
// named by contents_file when set.
func (d *Definition) InstallCtx() (svcmgr.InstallCtx, error) {
	label, err := d.ServiceLabel()
	if err != nil {
		return svcmgr.InstallCtx{}, err
	}
	if d.Program == "" {
		return svcmgr.InstallCtx{}, errors.New("program is required")
	}
	policy, err := d.RestartPolicy()
	if err != nil {
		return svcmgr.InstallCtx{}, err
	}

	env := make([]svcmgr.EnvVar, 0, len(d.Environment))
	for _, kv := range d.Environment {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return svcmgr.InstallCtx{}, fmt.Errorf("environment entries must be NAME=VALUE: got %q", kv)
		}
		env = append(env, svcmgr.EnvVar{Name: name, Value: value})
	}

	contents := d.Contents
	if d.ContentsFile != "" {
		if contents != "" {
			return svcmgr.InstallCtx{}, errors.New("contents and contents_file are mutually exclusive")
		}
		data, err := os.ReadFile(d.ContentsFile)
		if err != nil {
			return svcmgr.InstallCtx{}, fmt.Errorf("failed to read contents_file: %w", err)
		}
		contents = string(data)
	}

	return svcmgr.InstallCtx{
		Label:            label,
		Program:          d.Program,
		Args:             d.Args,
		Contents:         contents,
		Username:         d.Username,
		WorkingDirectory: d.WorkingDirectory,
		Environment:      env,
		Autostart:        d.Autostart,
		RestartPolicy:    policy,
	}, nil
}
