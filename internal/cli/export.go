package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/trainlog/trainlog"
)

func newExportCmd() *cobra.Command {
	var flags storeFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every row, keyed by time",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.open()
			if err != nil {
				return err
			}
			defer log.Close()
			return printExport(cmd.Context(), cmd.OutOrStdout(), log, jsonOutput)
		},
	}
	addStoreFlags(cmd, &flags)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output one JSON object keyed by time")
	return cmd
}

func printExport(ctx context.Context, w io.Writer, log trainlog.Log, asJSON bool) error {
	times, err := log.Times(ctx)
	if err != nil {
		return fmt.Errorf("read times: %w", err)
	}

	rows := make(map[int]map[string]trainlog.Value, len(times))
	for _, t := range times {
		row, err := log.Row(t)
		if err != nil {
			return err
		}
		items, err := row.Items(ctx)
		if err != nil {
			return fmt.Errorf("read row %d: %w", t, err)
		}
		rows[t] = items
	}

	if asJSON {
		indexed := make(map[string]map[string]trainlog.Value, len(rows))
		for t, items := range rows {
			indexed[strconv.Itoa(t)] = items
		}
		b, err := json.MarshalIndent(indexed, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal rows: %w", err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	}

	for _, t := range times {
		items := rows[t]
		for _, key := range sortedKeys(items) {
			fmt.Fprintf(w, "%d\t%s\t%s\n", t, key, items[key])
		}
	}
	return nil
}
