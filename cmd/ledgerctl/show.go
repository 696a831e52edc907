package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newShowCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the last seen message id per conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeDB()

			entries, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading ledger: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "ledger is empty")
				return nil
			}

			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CONVERSATION\tLAST MESSAGE")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\n", k, entries[k])
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw map as JSON")
	return cmd
}
