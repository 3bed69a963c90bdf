package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxSourceBytes      = 64 << 20
)

// Fetcher reads the raw bytes behind a reference: a local path or an
// http(s) URL.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// LiveFetcher reads references directly, without any caching.
type LiveFetcher struct {
	Client *http.Client
}

func NewLiveFetcher() *LiveFetcher {
	return &LiveFetcher{Client: &http.Client{Timeout: defaultFetchTimeout}}
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func (f *LiveFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty source reference")
	}
	if !isRemote(ref) {
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ref, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", ref, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s returned status %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", ref, err)
	}
	return data, nil
}

// decompress unpacks xz payloads; refs without the .xz suffix pass through.
func decompress(ref string, data []byte) ([]byte, error) {
	if !strings.HasSuffix(strings.ToLower(ref), ".xz") {
		return data, nil
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xz stream %s: %w", ref, err)
	}
	out, err := io.ReadAll(io.LimitReader(r, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", ref, err)
	}
	return out, nil
}
