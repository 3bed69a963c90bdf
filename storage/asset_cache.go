package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/coreybb/versefeed/ingestion"
	"github.com/zeebo/blake3"
)

// outputDirForCache is the default cache root.
const outputDirForCache = "_cache"

// ContentHash returns the hex BLAKE3 digest of data.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AssetCache keeps manifest assets on local disk and serves them ahead of the
// network. It satisfies ingestion.Fetcher, so anything that reads sources can
// run against it or against the live fetcher with the same results.
type AssetCache struct {
	basePath string
	manifest Manifest
	live     ingestion.Fetcher
}

// NewAssetCache creates a cache rooted at basePath (default "_cache").
func NewAssetCache(basePath string, manifest Manifest, live ingestion.Fetcher) *AssetCache {
	if basePath == "" {
		basePath = outputDirForCache
	}
	return &AssetCache{
		basePath: basePath,
		manifest: manifest.normalized(),
		live:     live,
	}
}

func (c *AssetCache) Manifest() Manifest {
	return c.manifest
}

// blobPath lays blobs out as <basePath>/<cacheName>/<first2>/<digest>.
func (c *AssetCache) blobPath(ref string) string {
	key := ContentHash([]byte(ref))
	return filepath.Join(c.basePath, c.manifest.Name, key[:2], key)
}

// Lookup returns the cached bytes for ref without touching the network.
func (c *AssetCache) Lookup(ref string) ([]byte, bool) {
	data, err := os.ReadFile(c.blobPath(ref))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("WARN (AssetCache): Failed to read cached %s: %v", ref, err)
		}
		return nil, false
	}
	return data, true
}

// Fetch serves ref from the cache when present, otherwise fetches it live and
// stores the result.
func (c *AssetCache) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if data, ok := c.Lookup(ref); ok {
		return data, nil
	}
	data, err := c.live.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := c.store(ref, data); err != nil {
		log.Printf("WARN (AssetCache): %v", err)
	}
	return data, nil
}

// Prefetch fetches every manifest asset live and stores it, replacing older
// copies. Individual failures are logged and skipped; the count of stored
// assets is returned.
func (c *AssetCache) Prefetch(ctx context.Context) int {
	stored := 0
	for _, ref := range c.manifest.Assets {
		if ctx.Err() != nil {
			break
		}
		data, err := c.live.Fetch(ctx, ref)
		if err != nil {
			log.Printf("WARN (AssetCache): Failed to prefetch %s: %v", ref, err)
			continue
		}
		if err := c.store(ref, data); err != nil {
			log.Printf("WARN (AssetCache): %v", err)
			continue
		}
		stored++
	}
	log.Printf("INFO (AssetCache): Prefetched %d/%d assets into %s", stored, len(c.manifest.Assets), filepath.Join(c.basePath, c.manifest.Name))
	return stored
}

// store writes through a temp file so readers never see a partial blob.
func (c *AssetCache) store(ref string, data []byte) error {
	fullPath := c.blobPath(ref)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create cache directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", ref, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cached %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cached %s: %w", ref, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move cached %s into place: %w", ref, err)
	}
	return nil
}
