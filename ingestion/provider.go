package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/coreybb/versefeed/models"
	"golang.org/x/sync/errgroup"
)

// ErrLoadFailure marks a startup load that could not produce both sources.
var ErrLoadFailure = errors.New("failed to load verse sources")

// Source names used in LoadFailure.
const (
	SourcePrimary   = "primary"
	SourceSecondary = "secondary"
)

// SourceProvider supplies the two raw datasets.
type SourceProvider interface {
	LoadGroups(ctx context.Context) ([]models.RawGroup, error)
	LoadFlat(ctx context.Context) ([]models.RawFlatItem, error)
}

// JSONSourceProvider reads both datasets as JSON (optionally xz-compressed)
// through a Fetcher.
type JSONSourceProvider struct {
	fetcher      Fetcher
	cleaner      *TextCleaner
	primaryRef   string
	secondaryRef string
}

func NewJSONSourceProvider(fetcher Fetcher, primaryRef, secondaryRef string) *JSONSourceProvider {
	return &JSONSourceProvider{
		fetcher:      fetcher,
		cleaner:      NewTextCleaner(),
		primaryRef:   primaryRef,
		secondaryRef: secondaryRef,
	}
}

func (p *JSONSourceProvider) read(ctx context.Context, ref string) ([]byte, error) {
	data, err := p.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	return decompress(ref, data)
}

func (p *JSONSourceProvider) LoadGroups(ctx context.Context) ([]models.RawGroup, error) {
	data, err := p.read(ctx, p.primaryRef)
	if err != nil {
		return nil, err
	}
	return DecodeGroups(data, p.cleaner)
}

func (p *JSONSourceProvider) LoadFlat(ctx context.Context) ([]models.RawFlatItem, error) {
	data, err := p.read(ctx, p.secondaryRef)
	if err != nil {
		return nil, err
	}
	return DecodeFlat(data, p.cleaner)
}

// LoadFailure reports which source broke the load and how to fix it.
type LoadFailure struct {
	Source string
	cause  error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("%s: %s source: %v", ErrLoadFailure.Error(), e.Source, e.cause)
}

func (e *LoadFailure) Unwrap() []error {
	return []error{ErrLoadFailure, e.cause}
}

// Remediation lists the steps a user can take; the load is never retried.
func (e *LoadFailure) Remediation() []string {
	return []string{
		"Download both source files (the nested primary source and the flat translation source).",
		"Place them at the configured SOURCES_PRIMARY and SOURCES_SECONDARY locations.",
		"Check the server log for the parse error and restart.",
	}
}

// UserMessage is the text shown to users instead of a feed.
func (e *LoadFailure) UserMessage() string {
	return "Error loading data. " + strings.Join(e.Remediation(), " ")
}

// Sources is the outcome of a successful load.
type Sources struct {
	Groups []models.RawGroup
	Flat   []models.RawFlatItem
}

// Load fetches both datasets concurrently and waits for both. Either failure
// aborts the whole load with a single *LoadFailure.
func Load(ctx context.Context, provider SourceProvider) (*Sources, error) {
	startTime := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	var out Sources
	g.Go(func() error {
		groups, err := provider.LoadGroups(gctx)
		if err != nil {
			return &LoadFailure{Source: SourcePrimary, cause: err}
		}
		out.Groups = groups
		return nil
	})
	g.Go(func() error {
		flat, err := provider.LoadFlat(gctx)
		if err != nil {
			return &LoadFailure{Source: SourceSecondary, cause: err}
		}
		out.Flat = flat
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("ERROR (Ingestion): %v", err)
		return nil, err
	}

	log.Printf("INFO (Ingestion): Loaded %d groups and %d flat items in %s", len(out.Groups), len(out.Flat), time.Since(startTime))
	return &out, nil
}
