package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axondata/go-servicemanager/internal/echo"
	"github.com/spf13/cobra"
)

// echoServiceName is reported to the SCM when listen runs as a Windows service
const echoServiceName = "svcmgr-echo"

var (
	runAsWindowsService bool
	talkTimeout         time.Duration
	waitTimeout         time.Duration
)

// NewListenCmd creates the listen command.
func NewListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen <addr>",
		Short: "Run a TCP echo server",
		Long: `Listen on addr and echo back anything received.

Once the server accepts connections it logs "` + echo.ReadyMessage + `", which
wait-ready looks for in the --log-file.`,
		Args: cobra.ExactArgs(1),
		RunE: runListen,
	}

	cmd.Flags().BoolVar(&runAsWindowsService, "run-as-windows-service", false, "report to the Windows service control manager (sc.exe and scm backends)")

	return cmd
}

func runListen(cmd *cobra.Command, args []string) error {
	addr := args[0]
	logger := slog.Default()

	if runAsWindowsService {
		return runWindowsService(echoServiceName, func(ctx context.Context) error {
			return echo.ListenAndServe(ctx, addr, logger)
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return echo.ListenAndServe(ctx, addr, logger)
}

// NewTalkCmd creates the talk command.
func NewTalkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "talk <addr> <msg>",
		Short: "Send a message to an echo server and print the reply",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), talkTimeout)
			defer cancel()

			reply, err := echo.Talk(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("no response from %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().DurationVar(&talkTimeout, "timeout", echo.DefaultTalkTimeout, "time to wait for the reply")

	return cmd
}

// NewWaitReadyCmd creates the wait-ready command.
func NewWaitReadyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait-ready <log-file>",
		Short: "Wait until an echo server logs that it is listening",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
			defer cancel()

			if err := echo.WaitReady(ctx, args[0]); err != nil {
				return fmt.Errorf("echo server not ready: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ready")
			return nil
		},
	}

	cmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Second, "time to wait for the server")

	return cmd
}
