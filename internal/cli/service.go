package cli

import (
	"context"
	"fmt"
	"time"

	svcmgr "github.com/axondata/go-servicemanager"
	"github.com/axondata/go-servicemanager/internal/config"
	"github.com/spf13/cobra"
)

var (
	installEnv          []string
	installWorkDir      string
	installUsername     string
	installAutostart    bool
	installRestart      string
	installRestartDelay time.Duration
	installContentsFile string
)

// loadDefinition merges the definition file, the environment and the
// command line, then validates the result. args[0], when present, is the
// label; for install the rest are the program and its arguments.
func loadDefinition(cmd *cobra.Command, args []string) (*config.Definition, error) {
	loader := config.NewLoader().WithConfigPath(cfgFile)

	flags := cmd.Flags()
	if flags.Changed("kind") {
		loader.Set("kind", kindName)
	}
	if flags.Changed("user") {
		level := svcmgr.LevelSystem
		if userMode {
			level = svcmgr.LevelUser
		}
		loader.Set("level", level.String())
	}
	if len(args) > 0 {
		loader.Set("label", args[0])
	}
	if len(args) > 1 {
		loader.Set("program", args[1])
		loader.Set("args", args[2:])
	}
	if flags.Lookup("env") != nil {
		if flags.Changed("env") {
			loader.Set("environment", installEnv)
		}
		if flags.Changed("workdir") {
			loader.Set("working_directory", installWorkDir)
		}
		if flags.Changed("username") {
			loader.Set("username", installUsername)
		}
		if flags.Changed("autostart") {
			loader.Set("autostart", installAutostart)
		}
		if flags.Changed("restart") {
			loader.Set("restart.policy", installRestart)
		}
		if flags.Changed("restart-delay") {
			loader.Set("restart.delay", installRestartDelay)
		}
		if flags.Changed("contents-file") {
			loader.Set("contents_file", installContentsFile)
		}
	}

	def, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	if _, err := setupLogging(def); err != nil {
		return nil, err
	}
	return def, nil
}

// newManager selects the configured backend at the configured level
func newManager(def *config.Definition) (*svcmgr.TypedServiceManager, error) {
	kind, err := def.ManagerKind()
	if err != nil {
		return nil, err
	}
	level, err := def.ServiceLevel()
	if err != nil {
		return nil, err
	}

	m, err := svcmgr.TargetOrNative(kind)
	if err != nil {
		return nil, err
	}
	if err := m.SetLevel(level); err != nil {
		return nil, err
	}
	return m, nil
}

// withService resolves the definition, manager and label for a lifecycle command
func withService(cmd *cobra.Command, args []string, fn func(ctx context.Context, m *svcmgr.TypedServiceManager, label svcmgr.ServiceLabel) error) error {
	def, err := loadDefinition(cmd, args)
	if err != nil {
		return err
	}
	label, err := def.ServiceLabel()
	if err != nil {
		return err
	}
	m, err := newManager(def)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), m, label)
}

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [label [program [args...]]]",
		Short: "Install a service",
		Long: `Install a service with the selected backend.

The label, program and arguments may come from the definition file given
with --config. Everything after the program is passed to it unparsed.`,
		RunE: runInstall,
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringArrayVarP(&installEnv, "env", "e", nil, "environment variable NAME=VALUE (repeatable)")
	cmd.Flags().StringVar(&installWorkDir, "workdir", "", "working directory of the service")
	cmd.Flags().StringVar(&installUsername, "username", "", "user to run the service as")
	cmd.Flags().BoolVar(&installAutostart, "autostart", false, "start the service at boot or login")
	cmd.Flags().StringVar(&installRestart, "restart", "", "restart policy (never, always, on-failure, on-success)")
	cmd.Flags().DurationVar(&installRestartDelay, "restart-delay", 0, "delay before a restart")
	cmd.Flags().StringVar(&installContentsFile, "contents-file", "", "install this file verbatim instead of a generated definition")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	def, err := loadDefinition(cmd, args)
	if err != nil {
		return err
	}
	c, err := def.InstallCtx()
	if err != nil {
		return err
	}
	m, err := newManager(def)
	if err != nil {
		return err
	}

	if err := m.Install(cmd.Context(), c); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Installed %s with %s.\n", c.Label, m.Kind())
	return nil
}

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall [label]",
		Short: "Remove an installed service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, args, func(ctx context.Context, m *svcmgr.TypedServiceManager, label svcmgr.ServiceLabel) error {
				if err := m.Uninstall(ctx, svcmgr.UninstallCtx{Label: label}); err != nil {
					return fmt.Errorf("failed to uninstall service: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s.\n", label)
				return nil
			})
		},
	}
}

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start [label]",
		Short: "Start an installed service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, args, func(ctx context.Context, m *svcmgr.TypedServiceManager, label svcmgr.ServiceLabel) error {
				if err := m.Start(ctx, svcmgr.StartCtx{Label: label}); err != nil {
					return fmt.Errorf("failed to start service: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started %s.\n", label)
				return nil
			})
		},
	}
}

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [label]",
		Short: "Stop a running service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, args, func(ctx context.Context, m *svcmgr.TypedServiceManager, label svcmgr.ServiceLabel) error {
				if err := m.Stop(ctx, svcmgr.StopCtx{Label: label}); err != nil {
					return fmt.Errorf("failed to stop service: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s.\n", label)
				return nil
			})
		},
	}
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [label]",
		Short: "Show service status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, args, func(ctx context.Context, m *svcmgr.TypedServiceManager, label svcmgr.ServiceLabel) error {
				status, err := m.Status(ctx, svcmgr.StatusCtx{Label: label})
				if err != nil {
					return fmt.Errorf("failed to get service status: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", label, status)
				return nil
			})
		},
	}
}

// NewAvailableCmd creates the available command.
func NewAvailableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "Report whether the backend can be used on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(cmd, nil)
			if err != nil {
				return err
			}
			m, err := newManager(def)
			if err != nil {
				return err
			}
			ok, err := m.Available()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %t\n", m.Kind(), ok)
			if !ok {
				return fmt.Errorf("%w: %s is not available", svcmgr.ErrUnsupported, m.Kind())
			}
			return nil
		},
	}
}
