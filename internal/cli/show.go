package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/trainlog/trainlog"
)

func newShowCmd() *cobra.Command {
	var flags storeFlags
	var timeFlag int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one row's visible keys and values",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.open()
			if err != nil {
				return err
			}
			defer log.Close()
			return printRow(cmd.Context(), cmd.OutOrStdout(), log, timeFlag, jsonOutput)
		},
	}
	addStoreFlags(cmd, &flags)
	cmd.Flags().IntVar(&timeFlag, "time", 0, "Row time to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("time")
	return cmd
}

func printRow(ctx context.Context, w io.Writer, log trainlog.Log, t int, asJSON bool) error {
	row, err := log.Row(t)
	if err != nil {
		return err
	}
	items, err := row.Items(ctx)
	if err != nil {
		return fmt.Errorf("read row %d: %w", t, err)
	}

	if asJSON {
		b, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", t, err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	}

	for _, key := range sortedKeys(items) {
		fmt.Fprintf(w, "%s = %s\n", key, items[key])
	}
	return nil
}
