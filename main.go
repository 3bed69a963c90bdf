package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreybb/versefeed/api"
	"github.com/coreybb/versefeed/config"
	"github.com/coreybb/versefeed/ebook"
	rh "github.com/coreybb/versefeed/route-handlers"
	"github.com/coreybb/versefeed/scheduler"
	"github.com/coreybb/versefeed/stream"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "versefeed",
	Short: "Infinite verse feed over a merged primary and translation source",
	Long: `versefeed merges a nested primary verse source with a flat translation
source and serves the result as an endless, per-session card feed.

Run without arguments to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		slog.SetLogLoggerLevel(cfg.Log.SlogLevel())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the sources and serve the feed over HTTP and websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// cfg is populated by the root command before any subcommand runs.
var cfg *config.Config

func init() {
	rootCmd.AddCommand(serveCmd, mergeCmd, resetProgressCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, kvFor, err := openSettings(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database setup failed: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	cache, fetcher, err := buildFetcher(cfg)
	if err != nil {
		return err
	}

	var handlers api.Handlers
	handlers.Assets = rh.NewAssetHandler(cache)

	// Scheduler only refreshes when the cache is on.
	var refresher scheduler.AssetRefresher
	if cache != nil {
		refresher = cache
	}
	assetScheduler := scheduler.New(refresher, cfg.Cache.RefreshInterval)
	handlers.Scheduler = assetScheduler
	go assetScheduler.Run(ctx)

	// A failed load leaves the server up so it can explain the failure.
	store, _, loadErr := loadVerseStore(ctx, cfg, fetcher)
	if loadErr != nil {
		log.Printf("ERROR: Verse sources failed to load, serving 503 on /api and /ws: %v", loadErr)
	} else {
		renderer := newRenderer(cfg)
		sessions := newRegistry(cfg, store, renderer, kvFor)

		handlers.Feed = rh.NewFeedHandler(sessions, cfg.Feed.ScrollThreshold)
		handlers.Settings = rh.NewSettingsHandler(sessions)
		handlers.Verses = rh.NewVerseHandler(store, renderer)
		handlers.Export = rh.NewExportHandler(store, ebook.NewGroupGenerator(), cfg.Export.Dir)
		handlers.Stream = stream.NewHandler(sessions, cfg.Feed.ScrollThreshold)
	}

	router := api.SetupRoutes(handlers, loadErr, cfg.Server.RequestTimeout)
	startServer(cfg.Server.Port, router, cfg.Server.ShutdownTimeout)
	return nil
}

func startServer(port string, router http.Handler, shutdownTimeout time.Duration) {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
