// Package cli implements the trainlog command tree. Commands are thin
// consumers of the public log API; none of the storage packages know the
// CLI exists.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/trainlog/trainlog/internal/applog"
)

func NewRoot() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "trainlog",
		Short: "Inspect and manage training log databases",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applog.Init(logLevel)
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log verbosity: debug, info, warn, or error")

	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newTimesCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newResumeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
