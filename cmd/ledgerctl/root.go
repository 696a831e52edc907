package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockedby/chat-observer/internal/config"
	"github.com/blockedby/chat-observer/internal/database"
	"github.com/blockedby/chat-observer/internal/ledger"
	"github.com/blockedby/chat-observer/internal/repository"
)

type options struct {
	databaseURL string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect or clear the observer's per-conversation ledger",
		Long: `ledgerctl reads the ledger the observer persists under the
"lastMessagePerChat" key: for every conversation, the id of the last
message that went through extraction.`,
		SilenceUsage: true,
	}

	defaultURL := ""
	if cfg, err := config.Load(); err == nil {
		defaultURL = cfg.DatabaseURL
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database", defaultURL, "Ledger database URL (sqlite:// or postgres://)")

	cmd.AddCommand(newShowCmd(opts), newResetCmd(opts))
	return cmd
}

// openStore opens the database behind the ledger. The returned func closes it.
func openStore(ctx context.Context, opts *options) (*ledger.KVStore, func(), error) {
	if opts.databaseURL == "" {
		return nil, nil, fmt.Errorf("--database is required")
	}

	db, err := database.New(ctx, opts.databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := repository.NewStateRepository(db.GORM)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrating state table: %w", err)
	}

	return ledger.NewKVStore(repo, repository.LedgerKey), db.Close, nil
}
