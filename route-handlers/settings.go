package routehandlers

import (
	"fmt"
	"net/http"

	"github.com/coreybb/versefeed/feed"
	"github.com/coreybb/versefeed/models"
	"github.com/coreybb/versefeed/webutil"
)

// Holds dependencies for settings route handlers.
type SettingsHandler struct {
	Sessions *feed.Registry
}

func NewSettingsHandler(sessions *feed.Registry) *SettingsHandler {
	return &SettingsHandler{Sessions: sessions}
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

type setLanguageRequest struct {
	Language string `json:"language"`
}

type resetResponse struct {
	Message string           `json:"message"`
	State   models.FeedState `json:"state"`
}

func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) error {
	c, _, err := controllerFor(w, r, h.Sessions)
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, c.State())
	return nil
}

func (h *SettingsHandler) HandleSetMode(w http.ResponseWriter, r *http.Request) error {
	var req setModeRequest
	if err := webutil.DecodeJSON(r, &req); err != nil {
		return err
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		return webutil.ErrBadRequestWrap(err.Error(), err)
	}

	c, sessionID, err := controllerFor(w, r, h.Sessions)
	if err != nil {
		return err
	}
	cards, err := c.SetMode(r.Context(), mode)
	if err != nil {
		return fmt.Errorf("failed to switch mode to %s: %w", mode, err)
	}
	respondWithFeed(w, sessionID, c, cards)
	return nil
}

func (h *SettingsHandler) HandleSetLanguage(w http.ResponseWriter, r *http.Request) error {
	var req setLanguageRequest
	if err := webutil.DecodeJSON(r, &req); err != nil {
		return err
	}
	lang, err := models.ParseLanguage(req.Language)
	if err != nil {
		return webutil.ErrBadRequestWrap(err.Error(), err)
	}

	c, sessionID, err := controllerFor(w, r, h.Sessions)
	if err != nil {
		return err
	}
	cards, err := c.SetLanguage(r.Context(), lang)
	if err != nil {
		return fmt.Errorf("failed to switch language to %s: %w", lang, err)
	}
	respondWithFeed(w, sessionID, c, cards)
	return nil
}

func (h *SettingsHandler) HandleResetProgress(w http.ResponseWriter, r *http.Request) error {
	c, _, err := controllerFor(w, r, h.Sessions)
	if err != nil {
		return err
	}
	msg := c.ResetProgress(r.Context())
	webutil.RespondWithJSON(w, http.StatusOK, resetResponse{Message: msg, State: c.State()})
	return nil
}
