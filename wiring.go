package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/coreybb/versefeed/config"
	"github.com/coreybb/versefeed/datastore"
	"github.com/coreybb/versefeed/feed"
	"github.com/coreybb/versefeed/ingestion"
	"github.com/coreybb/versefeed/processing"
	"github.com/coreybb/versefeed/rendering"
	"github.com/coreybb/versefeed/storage"
)

const driverMemory = "memory"

// openSettings returns the per-session settings stores. The memory driver
// returns a nil *sql.DB.
func openSettings(ctx context.Context, cfg *config.Config) (*sql.DB, feed.KeyValueFactory, error) {
	if cfg.Database.Driver == driverMemory {
		log.Println("WARNING: Using in-memory settings; progress is lost on restart.")
		return nil, memoryKeyValueFactory(), nil
	}

	db, err := datastore.OpenDatabase(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo := datastore.NewSettingsRepository(db, cfg.Database.Driver)
	return db, func(sessionID string) feed.KeyValueStore {
		return repo.Scoped(sessionID)
	}, nil
}

func memoryKeyValueFactory() feed.KeyValueFactory {
	var mu sync.Mutex
	stores := make(map[string]*datastore.MemoryKeyValueStore)
	return func(sessionID string) feed.KeyValueStore {
		mu.Lock()
		defer mu.Unlock()
		kv, ok := stores[sessionID]
		if !ok {
			kv = datastore.NewMemoryKeyValueStore()
			stores[sessionID] = kv
		}
		return kv
	}
}

// buildFetcher puts the asset cache in front of the live fetcher when the
// cache is enabled. Both configured sources are always part of the manifest.
func buildFetcher(cfg *config.Config) (*storage.AssetCache, ingestion.Fetcher, error) {
	live := ingestion.NewLiveFetcher()
	if !cfg.Cache.Enabled {
		return nil, live, nil
	}

	manifest := storage.DefaultManifest(storage.OfflineAssets...)
	if cfg.Cache.Manifest != "" {
		m, err := storage.LoadManifest(cfg.Cache.Manifest)
		if err != nil {
			return nil, nil, err
		}
		manifest = m
	}
	manifest = manifest.With(cfg.Sources.Primary, cfg.Sources.Secondary)

	cache := storage.NewAssetCache(cfg.Cache.Dir, manifest, live)
	return cache, cache, nil
}

// loadVerseStore runs the all-or-nothing source load and the merge.
func loadVerseStore(ctx context.Context, cfg *config.Config, fetcher ingestion.Fetcher) (*datastore.VerseStore, processing.MergeReport, error) {
	provider := ingestion.NewJSONSourceProvider(fetcher, cfg.Sources.Primary, cfg.Sources.Secondary)
	sources, err := ingestion.Load(ctx, provider)
	if err != nil {
		return nil, processing.MergeReport{}, err
	}

	records, report := processing.MergeWithOptions(sources.Groups, sources.Flat, processing.MergeOptions{Strict: cfg.Sources.StrictMerge})
	if len(records) == 0 {
		return nil, report, fmt.Errorf("%w: merge produced no verses", ingestion.ErrLoadFailure)
	}
	if !report.Aligned() {
		log.Printf("WARN (Processing): Sources are not aligned: %d excess translations, %d verses without translation, %d mismatches",
			report.FlatExcess, report.MissingSecond, len(report.Mismatches))
	}
	log.Printf("INFO (Processing): Merged %d verses", len(records))
	return datastore.NewVerseStore(records), report, nil
}

func newRenderer(cfg *config.Config) *rendering.Renderer {
	return rendering.NewRenderer(rendering.Options{
		LongThreshold:     cfg.Feed.LongThreshold,
		ChunkLimit:        cfg.Feed.ChunkLimit,
		SecondaryFontHint: cfg.Feed.SecondaryFontHint,
	})
}

func newRegistry(cfg *config.Config, store *datastore.VerseStore, renderer *rendering.Renderer, kvFor feed.KeyValueFactory) *feed.Registry {
	return feed.NewRegistry(store, renderer, kvFor, feed.Options{}, cfg.Feed.MaxSessions)
}
