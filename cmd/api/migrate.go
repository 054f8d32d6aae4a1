package main

import (
	"log/slog"

	"Community_Feed/internal/config"
	"Community_Feed/internal/repository/store"

	"github.com/spf13/cobra"
)

func newMigrateCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := store.Migrate(db); err != nil {
				return err
			}
			slog.Info("migration complete", "dialect", db.Dialector.Name())
			return nil
		},
	}
}
