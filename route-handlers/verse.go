package routehandlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/coreybb/versefeed/datastore"
	"github.com/coreybb/versefeed/feed"
	"github.com/coreybb/versefeed/models"
	"github.com/coreybb/versefeed/webutil"
	"github.com/go-chi/chi/v5"
)

// Holds dependencies for verse route handlers.
type VerseHandler struct {
	Store    *datastore.VerseStore
	Renderer feed.CardRenderer
}

func NewVerseHandler(store *datastore.VerseStore, renderer feed.CardRenderer) *VerseHandler {
	return &VerseHandler{Store: store, Renderer: renderer}
}

type verseIndexResponse struct {
	Size   int                   `json:"size"`
	Groups []models.GroupSummary `json:"groups"`
}

type verseResponse struct {
	Index int                `json:"index"`
	Ref   string             `json:"ref"`
	Verse models.VerseRecord `json:"verse"`
}

func (h *VerseHandler) HandleGetVerses(w http.ResponseWriter, r *http.Request) error {
	groups := h.Store.Groups()
	if groups == nil {
		groups = []models.GroupSummary{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, verseIndexResponse{Size: h.Store.Size(), Groups: groups})
	return nil
}

// verseAt parses the {index} URL parameter and reads that verse.
func (h *VerseHandler) verseAt(r *http.Request) (int, models.VerseRecord, error) {
	raw := chi.URLParam(r, ParamIndex)
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.VerseRecord{}, webutil.ErrBadRequest("Invalid verse index format")
	}
	verse, err := h.Store.At(index)
	if err != nil {
		return 0, models.VerseRecord{}, fmt.Errorf("failed to read verse %d: %w", index, err)
	}
	return index, verse, nil
}

func (h *VerseHandler) HandleGetVerse(w http.ResponseWriter, r *http.Request) error {
	index, verse, err := h.verseAt(r)
	if err != nil {
		return err
	}
	return webutil.RespondWithETag(w, r, verseResponse{Index: index, Ref: verse.Ref(), Verse: verse})
}

// HandleGetVerseByRef resolves /groups/{ordinal}/verses/{verse} to the
// verse's position in the store.
func (h *VerseHandler) HandleGetVerseByRef(w http.ResponseWriter, r *http.Request) error {
	group, err := strconv.Atoi(chi.URLParam(r, ParamOrdinal))
	if err != nil {
		return webutil.ErrBadRequest("Invalid group ordinal format")
	}
	ordinal, err := strconv.Atoi(chi.URLParam(r, ParamVerse))
	if err != nil {
		return webutil.ErrBadRequest("Invalid verse ordinal format")
	}

	index, ok := h.Store.IndexOf(group, ordinal)
	if !ok {
		return webutil.ErrNotFound(fmt.Sprintf("Verse %d:%d not found", group, ordinal))
	}
	verse, err := h.Store.At(index)
	if err != nil {
		return fmt.Errorf("failed to read verse %d: %w", index, err)
	}
	return webutil.RespondWithETag(w, r, verseResponse{Index: index, Ref: verse.Ref(), Verse: verse})
}

func (h *VerseHandler) HandleGetVerseCard(w http.ResponseWriter, r *http.Request) error {
	lang, err := languageParam(r)
	if err != nil {
		return err
	}
	_, verse, err := h.verseAt(r)
	if err != nil {
		return err
	}
	card := h.Renderer.Render(verse, lang)
	card.ID = verse.Ref() + ":" + string(lang)
	return webutil.RespondWithETag(w, r, card)
}

// languageParam reads ?language=, defaulting to the primary translation.
func languageParam(r *http.Request) (models.Language, error) {
	raw := r.URL.Query().Get("language")
	if raw == "" {
		return models.LanguagePrimary, nil
	}
	lang, err := models.ParseLanguage(raw)
	if err != nil {
		return "", webutil.ErrBadRequestWrap(err.Error(), err)
	}
	return lang, nil
}
