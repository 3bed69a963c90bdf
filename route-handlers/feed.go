package routehandlers

import (
	"fmt"
	"net/http"

	"github.com/coreybb/versefeed/feed"
	"github.com/coreybb/versefeed/models"
	"github.com/coreybb/versefeed/webutil"
)

// Holds dependencies for feed route handlers.
type FeedHandler struct {
	Sessions        *feed.Registry
	ScrollThreshold float64
}

// Creates a new FeedHandler.
func NewFeedHandler(sessions *feed.Registry, scrollThreshold float64) *FeedHandler {
	return &FeedHandler{Sessions: sessions, ScrollThreshold: scrollThreshold}
}

type feedResponse struct {
	Session string                `json:"session"`
	State   models.FeedState      `json:"state"`
	Cards   []models.RenderedCard `json:"cards"`
}

type scrollResponse struct {
	Attached bool                `json:"attached"`
	Card     *models.RenderedCard `json:"card,omitempty"`
	State    models.FeedState     `json:"state"`
}

// controllerFor resolves the caller's session and its feed controller.
func controllerFor(w http.ResponseWriter, r *http.Request, sessions *feed.Registry) (*feed.Controller, string, error) {
	sessionID := webutil.SessionID(w, r)
	c, err := sessions.Get(r.Context(), sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open feed session: %w", err)
	}
	return c, sessionID, nil
}

func respondWithFeed(w http.ResponseWriter, sessionID string, c *feed.Controller, cards []models.RenderedCard) {
	if cards == nil {
		cards = []models.RenderedCard{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, feedResponse{Session: sessionID, State: c.State(), Cards: cards})
}

func (h *FeedHandler) HandleGetFeed(w http.ResponseWriter, r *http.Request) error {
	c, sessionID, err := controllerFor(w, r, h.Sessions)
	if err != nil {
		return err
	}
	respondWithFeed(w, sessionID, c, c.Cards())
	return nil
}

func (h *FeedHandler) HandleInitFeed(w http.ResponseWriter, r *http.Request) error {
	c, sessionID, err := controllerFor(w, r, h.Sessions)
	if err != nil {
		return err
	}
	cards, err := c.InitFeed(r.Context())
	if err != nil {
		return fmt.Errorf("failed to initialise feed: %w", err)
	}
	respondWithFeed(w, sessionID, c, cards)
	return nil
}

func (h *FeedHandler) HandleScroll(w http.ResponseWriter, r *http.Request) error {
	var signal feed.ScrollSignal
	if err := webutil.DecodeJSON(r, &signal); err != nil {
		return err
	}
	if signal.ViewportHeight < 0 {
		return webutil.ErrBadRequest("viewport_height cannot be negative")
	}

	c, _, err := controllerFor(w, r, h.Sessions)
	if err != nil {
		return err
	}
	card, err := c.OnScrollProximity(r.Context(), signal, h.ScrollThreshold)
	if err != nil {
		return fmt.Errorf("failed to attach card: %w", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, scrollResponse{Attached: card != nil, Card: card, State: c.State()})
	return nil
}
