package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/va-pc/buildscout/internal/config"
	"github.com/va-pc/buildscout/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "buildscout",
	Short: "VK Market PC build ingest and comparison tool",
	Long:  "Fetches PC build listings from VK group markets, extracts CPU/GPU/RAM/case specs from listing text, and serves price and spec comparisons against competitor builds.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initStore opens the configured database backend and runs migrations.
func initStore(cmd *cobra.Command) (store.Store, error) {
	ctx := cmd.Context()

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
