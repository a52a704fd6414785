package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/edith-sftp/edith/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "edith %s (built %s, %s/%s, %s)\n",
				version.Version, version.BuildTime, runtime.GOOS, runtime.GOARCH, runtime.Version())
		},
	}
}
