// Package config loads the service definitions the svcmgr CLI installs.
package config

// Default configuration values.
const (
	DefaultLevel        = "system"
	DefaultRestart      = "never"
	DefaultLogLevel     = "info"
	DefaultLogMaxSizeMB = 10

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SVCMGR"
)
