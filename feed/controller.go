// Package feed drives the verse feed: which verse comes next, when another
// card is attached, and how settings changes restart the visible buffer.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/coreybb/versefeed/models"
	"github.com/google/uuid"
)

// ErrEmptyStore means a feed operation ran before any verse was loaded.
var ErrEmptyStore = errors.New("verse store is empty")

const (
	// InitialCards is the size of the buffer InitFeed prepares.
	InitialCards = 3
	// DefaultScrollThreshold is the distance from the bottom, in layout
	// units, at which another card is attached.
	DefaultScrollThreshold = 600.0
	// ResetAcknowledgement is returned by ResetProgress.
	ResetAcknowledgement = "Progress reset to start."

	subscriberBuffer = 64
)

// KeyValueStore persists settings outside the process.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// VerseSource is the read side of the verse store.
type VerseSource interface {
	Size() int
	At(index int) (models.VerseRecord, error)
}

// CardRenderer lays out one verse for a display language.
type CardRenderer interface {
	Render(verse models.VerseRecord, lang models.Language) models.RenderedCard
}

// Options tunes a Controller. Zero values take defaults.
type Options struct {
	// Rand drives random mode; nil uses the package-level generator.
	Rand *rand.Rand
	// NewID stamps attached cards; nil uses random UUIDs.
	NewID func() string
}

// ScrollSignal is what the presentation surface reports on scroll.
type ScrollSignal struct {
	DistanceFromBottom float64 `json:"distance_from_bottom"`
	ViewportHeight     float64 `json:"viewport_height"`
}

// Controller owns one session's FeedState and rendered cards. All methods
// are safe for concurrent use; a single mutex guards state and cards
// together, and a cursor update is persisted before the lock is released.
type Controller struct {
	mu       sync.Mutex
	store    VerseSource
	kv       KeyValueStore
	renderer CardRenderer

	state models.FeedState
	cards []models.RenderedCard

	rng   *rand.Rand
	newID func() string

	subs    map[int]chan Event
	nextSub int
}

func NewController(store VerseSource, kv KeyValueStore, renderer CardRenderer, opts Options) *Controller {
	c := &Controller{
		store:    store,
		kv:       kv,
		renderer: renderer,
		state:    models.DefaultFeedState(),
		rng:      opts.Rand,
		newID:    opts.NewID,
		subs:     make(map[int]chan Event),
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Load reads persisted settings. Missing or unreadable values fall back to
// defaults; a stored cursor is reduced modulo the store size.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := models.DefaultFeedState()

	if raw, ok := c.get(ctx, models.SettingMode); ok {
		if mode, err := models.ParseMode(raw); err == nil {
			state.Mode = mode
		} else {
			log.Printf("WARN (Feed): Ignoring stored mode: %v", err)
		}
	}
	if raw, ok := c.get(ctx, models.SettingLanguage); ok {
		if lang, err := models.ParseLanguage(raw); err == nil {
			state.Language = lang
		} else {
			log.Printf("WARN (Feed): Ignoring stored language: %v", err)
		}
	}
	if raw, ok := c.get(ctx, models.SettingResumeCursor); ok {
		if cursor, err := strconv.Atoi(raw); err == nil {
			state.ResumeCursor = normalizeCursor(cursor, c.store.Size())
		} else {
			log.Printf("WARN (Feed): Ignoring stored resume cursor %q: %v", raw, err)
		}
	}

	state.RenderedCount = len(c.cards)
	c.state = state
}

func normalizeCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	cursor %= size
	if cursor < 0 {
		cursor += size
	}
	return cursor
}

func (c *Controller) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		log.Printf("WARN (Feed): Failed to read setting %s: %v", key, err)
		return "", false
	}
	return v, ok
}

// persist is best-effort: a failed write only costs the value across restarts.
func (c *Controller) persist(ctx context.Context, key, value string) {
	if err := c.kv.Set(ctx, key, value); err != nil {
		log.Printf("WARN (Feed): Failed to persist setting %s: %v", key, err)
	}
}

// State returns a snapshot of the session state.
func (c *Controller) State() models.FeedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cards returns a copy of the rendered cards in attach order.
func (c *Controller) Cards() []models.RenderedCard {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.RenderedCard, len(c.cards))
	copy(out, c.cards)
	return out
}

// SelectNext picks the next verse. Random mode draws uniformly and leaves the
// cursor alone; sequential mode returns the verse at the cursor and advances
// it cyclically.
func (c *Controller) SelectNext(ctx context.Context) (models.VerseRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectNextLocked(ctx)
}

func (c *Controller) selectNextLocked(ctx context.Context) (models.VerseRecord, error) {
	size := c.store.Size()
	if size == 0 {
		log.Printf("ERROR (Feed): Verse selection attempted before any verse was loaded")
		return models.VerseRecord{}, ErrEmptyStore
	}

	var index int
	if c.state.Mode == models.ModeSequential {
		index = normalizeCursor(c.state.ResumeCursor, size)
		c.state.ResumeCursor = (index + 1) % size
		c.persist(ctx, models.SettingResumeCursor, strconv.Itoa(c.state.ResumeCursor))
	} else if c.rng != nil {
		index = c.rng.IntN(size)
	} else {
		index = rand.IntN(size)
	}

	verse, err := c.store.At(index)
	if err != nil {
		return models.VerseRecord{}, fmt.Errorf("failed to read selected verse: %w", err)
	}
	return verse, nil
}

func (c *Controller) appendLocked(ctx context.Context) (models.RenderedCard, error) {
	verse, err := c.selectNextLocked(ctx)
	if err != nil {
		return models.RenderedCard{}, err
	}
	card := c.renderer.Render(verse, c.state.Language)
	card.ID = c.newID()

	c.cards = append(c.cards, card)
	c.state.RenderedCount = len(c.cards)
	c.publishLocked(Event{Kind: EventCard, Card: &card})
	return card, nil
}

// AppendCard attaches exactly one more card.
func (c *Controller) AppendCard(ctx context.Context) (models.RenderedCard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(ctx)
}

// OnScrollProximity attaches one card when the surface is within threshold
// of its bottom edge. Every qualifying call attaches its own card; nil is
// returned when the signal is too far from the bottom.
func (c *Controller) OnScrollProximity(ctx context.Context, signal ScrollSignal, threshold float64) (*models.RenderedCard, error) {
	if signal.DistanceFromBottom > threshold {
		return nil, nil
	}
	card, err := c.AppendCard(ctx)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// InitFeed discards every rendered card and prepares a fresh buffer.
func (c *Controller) InitFeed(ctx context.Context) ([]models.RenderedCard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initFeedLocked(ctx)
}

func (c *Controller) initFeedLocked(ctx context.Context) ([]models.RenderedCard, error) {
	c.cards = nil
	c.state.RenderedCount = 0
	c.publishLocked(Event{Kind: EventReset})

	for i := 0; i < InitialCards; i++ {
		if _, err := c.appendLocked(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]models.RenderedCard, len(c.cards))
	copy(out, c.cards)
	return out, nil
}

// SetMode persists the mode and restarts the feed.
func (c *Controller) SetMode(ctx context.Context, mode models.Mode) ([]models.RenderedCard, error) {
	if _, err := models.ParseMode(string(mode)); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.persist(ctx, models.SettingMode, string(mode))
	c.state.Mode = mode
	return c.initFeedLocked(ctx)
}

// SetLanguage persists the display language and restarts the feed.
func (c *Controller) SetLanguage(ctx context.Context, lang models.Language) ([]models.RenderedCard, error) {
	if _, err := models.ParseLanguage(string(lang)); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.persist(ctx, models.SettingLanguage, string(lang))
	c.state.Language = lang
	return c.initFeedLocked(ctx)
}

// ResetProgress rewinds the sequential cursor. Rendered cards are left as
// they are.
func (c *Controller) ResetProgress(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.ResumeCursor = 0
	c.persist(ctx, models.SettingResumeCursor, "0")
	return ResetAcknowledgement
}
