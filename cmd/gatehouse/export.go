package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write requests as CSV to stdout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		resident, _ := cmd.Flags().GetString("resident")
		active, _ := cmd.Flags().GetBool("active")
		term, _ := cmd.Flags().GetString("search")

		log := logger.NewNop()
		be, err := openBackend(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = be.Close(ctx) }()

		dir, closeDir, err := openDirectory(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = closeDir() }()

		history := service.NewHistoryService(be.requests, dir, log)

		var reqs []types.AccessRequest
		switch {
		case resident != "":
			reqs, err = history.ListByResident(ctx, resident)
		case term != "":
			reqs, err = history.Search(ctx, term)
		case active:
			reqs, err = history.ListActive(ctx)
		default:
			return errors.New("one of --resident, --search or --active is required")
		}
		if err != nil {
			return err
		}

		out, err := history.Export(ctx, reqs)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	exportCmd.Flags().String("resident", "", "export every request of this resident")
	exportCmd.Flags().Bool("active", false, "export requests still inside the community")
	exportCmd.Flags().String("search", "", "export requests matching this term")
	rootCmd.AddCommand(exportCmd)
}
