package cli

import (
	"fmt"
	"strings"

	svcmgr "github.com/axondata/go-servicemanager"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and supported backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := svcmgr.GetVersion()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "svcmgr %s\n", info.Version)
			fmt.Fprintf(out, "backends: %s\n", strings.Join(info.Backends, ", "))
			return nil
		},
	}
}
