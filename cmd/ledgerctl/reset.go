package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every conversation so all current messages are treated as new",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}

			store, closeDB, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeDB()

			entries, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading ledger: %w", err)
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clearing ledger: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d conversation(s)\n", len(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
