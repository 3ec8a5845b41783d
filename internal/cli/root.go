// Package cli provides the svcmgr command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	svcmgr "github.com/axondata/go-servicemanager"
	"github.com/axondata/go-servicemanager/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile  string
	kindName string
	userMode bool
	logLevel string
	logFile  string
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "svcmgr",
		Short: "Manage services with the host's native service manager",
		Long: `svcmgr installs, starts, stops, queries and removes services through
launchd, systemd, OpenRC, rc.d, sc.exe, the Windows SCM or WinSW.

It also carries a small TCP echo server (listen/talk) used to verify a
backend end to end.`,
		Version: svcmgr.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogging()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "service definition file (toml, yaml or json)")
	rootCmd.PersistentFlags().StringVarP(&kindName, "kind", "k", "", "backend to use (launchd, systemd, openrc, rcd, sc, scm, winsw); default native")
	rootCmd.PersistentFlags().BoolVar(&userMode, "user", false, "manage a per-user service")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotated file instead of stderr")

	rootCmd.AddCommand(NewInstallCmd())
	rootCmd.AddCommand(NewUninstallCmd())
	rootCmd.AddCommand(NewStartCmd())
	rootCmd.AddCommand(NewStopCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewAvailableCmd())
	rootCmd.AddCommand(NewListenCmd())
	rootCmd.AddCommand(NewTalkCmd())
	rootCmd.AddCommand(NewWaitReadyCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// initLogging installs the default logger from the global flags. A
// definition file may refine it later through setupLogging.
func initLogging() error {
	level, ok := parseLevel(logLevel)
	if !ok {
		return fmt.Errorf("log level must be one of debug, info, warn, error: got %q", logLevel)
	}
	output, err := logOutput(logFile, config.DefaultLogMaxSizeMB)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})))
	return nil
}

// setupLogging applies the log section of a loaded definition. Flags win
// over the definition.
func setupLogging(def *config.Definition) (*slog.Logger, error) {
	levelName := def.Log.Level
	if logLevel != "" {
		levelName = logLevel
	}
	level, _ := parseLevel(levelName)

	path := def.Log.Output
	if logFile != "" {
		path = logFile
	}
	output, err := logOutput(path, def.Log.MaxSizeMB)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}

// logOutput returns stderr, or a lumberjack logger rotating path
func logOutput(path string, maxSizeMB int) (io.Writer, error) {
	if path == "" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}, nil
}
