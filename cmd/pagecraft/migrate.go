// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"pagecraft/internal/config"
	"pagecraft/internal/database"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		if migrateDown {
			err = database.MigrateDown(db)
		} else {
			err = database.Migrate(db)
		}
		if err != nil {
			return err
		}
		version, err := database.Version(db)
		if err != nil {
			return err
		}
		slog.Info("database migrated", "version", version)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the most recent migration")
	rootCmd.AddCommand(migrateCmd)
}
