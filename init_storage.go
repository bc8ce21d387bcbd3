package main

import (
	"errors"

	"github.com/spf13/cobra"

	"board-api/config"
	"board-api/storage"
)

var initStorageCmd = &cobra.Command{
	Use:   "init-storage",
	Short: "Create the snapshot table and events queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.StorageConnectionString == "" {
			return errors.New("missing STORAGE_CONNECTION_STRING")
		}
		logger := cfg.NewLogger()
		logger.Info("storage init starting")
		if err := storage.Provision(cmd.Context(), cfg.StorageConnectionString,
			[]string{cfg.SnapshotTable}, []string{cfg.EventsQueue}); err != nil {
			return err
		}
		logger.Info("storage init complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initStorageCmd)
}
