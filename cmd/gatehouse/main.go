package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "gatehouse",
	Short: "Access authorization and entry/exit tracking for the community gate",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = config.FromEnv()
		if s, _ := cmd.Flags().GetString("store"); s != "" {
			cfg.Store = config.StoreKind(s)
		}
		return cfg.Validate()
	},
	SilenceUsage: true,
}

var cfg config.Config

func init() {
	rootCmd.PersistentFlags().String("store", "", "storage backend (memory|sqlite|mongo), overrides GATEHOUSE_STORE")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
