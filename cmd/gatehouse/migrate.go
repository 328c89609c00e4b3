package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/config"
	dbpkg "github.com/BrandonDHaskell/Portunus/gatehouse/internal/db"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQLite migrations (or create MongoDB indexes) and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Store != config.StoreSQLite {
			be, err := openBackend(ctx, cfg, logger.NewNop())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store ready\n", cfg.Store)
			return be.Close(ctx)
		}

		db, err := dbpkg.Open(ctx, dbpkg.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := dbpkg.Applied(ctx, db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: applied migrations %v\n", cfg.DBPath, applied)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
