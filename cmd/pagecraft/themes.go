// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"pagecraft/internal/handlers"
	"pagecraft/internal/store"
	"pagecraft/internal/theme"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Manage installed themes",
}

var themesSyncCmd = &cobra.Command{
	Use:   "sync [slug...]",
	Short: "Register themes and their widget definitions from THEMES_DIR",
	Long: "Reads the manifests of the named themes, or of every theme directory " +
		"when none is named, and upserts the themes and their widget definitions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		provider := theme.NewDirProvider(cfg.ThemesDir)
		resolver := theme.NewResolver(provider, nil)
		site := handlers.NewSite(store.NewThemeStore(db), store.NewWidgetDefinitionStore(db), resolver, cfg.DefaultTheme, cfg.SiteName)

		slugs := args
		if len(slugs) == 0 {
			if slugs, err = provider.List(); err != nil {
				return err
			}
		}
		for _, slug := range slugs {
			n, err := site.SyncTheme(cmd.Context(), provider, slug)
			if err != nil {
				return fmt.Errorf("sync theme %s: %w", slug, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d widget definitions\n", slug, n)
		}
		return nil
	},
}

var themesActivateCmd = &cobra.Command{
	Use:   "activate <slug>",
	Short: "Make a registered theme the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := theme.NewDirProvider(cfg.ThemesDir).Catalog(args[0]); err != nil {
			return fmt.Errorf("load theme %s: %w", args[0], err)
		}
		if err := store.NewThemeStore(db).Activate(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("activate theme %s (run themes sync first): %w", args[0], err)
		}
		slog.Info("theme activated", "theme", args[0])
		return nil
	},
}

func init() {
	themesCmd.AddCommand(themesSyncCmd, themesActivateCmd)
	rootCmd.AddCommand(themesCmd)
}
