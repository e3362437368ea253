// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pagecraft/internal/binding"
	"pagecraft/internal/cache"
	"pagecraft/internal/database"
	"pagecraft/internal/engine"
	"pagecraft/internal/handlers"
	"pagecraft/internal/liveedit"
	"pagecraft/internal/middleware"
	"pagecraft/internal/router"
	"pagecraft/internal/store"
	"pagecraft/internal/theme"
	"pagecraft/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr(), "themes", cfg.ThemesDir)

	// Connect to Valkey, which holds the per-page save locks.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	// Initialize data stores.
	pageStore := store.NewPageStore(db)
	themeStore := store.NewThemeStore(db)
	definitionStore := store.NewWidgetDefinitionStore(db)
	contentStore := store.NewContentStore(db)

	provider := theme.NewDirProvider(cfg.ThemesDir)
	templates := theme.NewResolver(provider, nil)
	site := handlers.NewSite(themeStore, definitionStore, templates, cfg.DefaultTheme, cfg.SiteName)

	// In development the default theme is synced and sample data seeded
	// on every start (both are no-ops once done).
	if cfg.IsDev() {
		if _, err := site.SyncTheme(ctx, provider, cfg.DefaultTheme); err != nil {
			return err
		}
		if err := database.Seed(ctx, db); err != nil {
			return err
		}
	}

	eng := engine.New(templates, binding.NewResolver(contentStore))
	hub := liveedit.NewHub(handlers.SessionLoader(pageStore, site))
	defer hub.Close()

	public := handlers.NewPublic(pageStore, site, eng)
	editor := handlers.NewEditor(handlers.EditorDeps{
		Pages:       pageStore,
		Definitions: definitionStore,
		Themes:      themeStore,
		Content:     contentStore,
		Catalogs:    templates,
		Renderer:    eng,
		Locker:      cache.NewSaveLock(valkeyClient, cfg.SaveLockTTL),
		Site:        site,
		Hub:         hub,
	})

	writeLimiter := middleware.NewRateLimiter(120, time.Minute)
	defer writeLimiter.Stop()
	saveLimiter := middleware.NewRateLimiter(30, time.Minute).WithKey(router.SaveKey)
	defer saveLimiter.Stop()

	r := router.New(public, editor, router.Options{
		SecureCookies: !cfg.IsDev(),
		Static:        web.Static(),
		WriteLimiter:  writeLimiter,
		SaveLimiter:   saveLimiter,
	})

	// No WriteTimeout: live-edit websockets stay open for the whole
	// editing session.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
