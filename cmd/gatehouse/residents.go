package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/residents"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

var residentsCmd = &cobra.Command{
	Use:   "residents",
	Short: "Resident directory maintenance",
}

var evictCmd = &cobra.Command{
	Use:   "evict RESIDENT_ID...",
	Short: "Drop residents from the Redis cache after the member roll changes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, ids []string) error {
		if cfg.RedisURL == "" {
			return errors.New("GATEHOUSE_REDIS_URL is not set; nothing is cached")
		}
		ctx := cmd.Context()

		client, err := residents.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		cache := residents.NewRedisCache(client, residents.NewStatic(), cfg.ResidentCacheTTL, logger.NewNop())
		for _, id := range ids {
			if err := cache.Invalidate(ctx, id); err != nil {
				return fmt.Errorf("evict %s: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "evicted", id)
		}
		return nil
	},
}

func init() {
	residentsCmd.AddCommand(evictCmd)
	rootCmd.AddCommand(residentsCmd)
}
