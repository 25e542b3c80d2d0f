package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTimesCmd() *cobra.Command {
	var flags storeFlags

	cmd := &cobra.Command{
		Use:   "times",
		Short: "List the times holding data, ascending",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.open()
			if err != nil {
				return err
			}
			defer log.Close()

			times, err := log.Times(cmd.Context())
			if err != nil {
				return fmt.Errorf("read times: %w", err)
			}
			for _, t := range times {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
	addStoreFlags(cmd, &flags)
	return cmd
}
