package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/trainlog/trainlog"
)

func newStatusCmd() *cobra.Command {
	var flags storeFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a log's status mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.open()
			if err != nil {
				return err
			}
			defer log.Close()
			return printStatus(cmd.Context(), cmd.OutOrStdout(), log, jsonOutput)
		},
	}
	addStoreFlags(cmd, &flags)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printStatus(ctx context.Context, w io.Writer, log trainlog.Log, asJSON bool) error {
	items, err := log.Status().Items(ctx)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	if asJSON {
		b, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal status: %w", err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	}

	fmt.Fprintf(w, "Identity: %s\n", log.Identity())
	for _, key := range sortedKeys(items) {
		fmt.Fprintf(w, "%s = %s\n", key, items[key])
	}
	return nil
}

func sortedKeys(items map[string]trainlog.Value) []string {
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
