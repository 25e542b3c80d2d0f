package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResumeCmd() *cobra.Command {
	var flags storeFlags

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Mint a resumed identity for an existing run and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.id == "" {
				return fmt.Errorf("--id is required: resume continues an existing run")
			}
			log, err := flags.open()
			if err != nil {
				return err
			}
			defer log.Close()

			if err := log.Resume(cmd.Context()); err != nil {
				return fmt.Errorf("resume: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), log.Identity())
			return nil
		},
	}
	addStoreFlags(cmd, &flags)
	return cmd
}
