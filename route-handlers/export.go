package routehandlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/coreybb/versefeed/datastore"
	"github.com/coreybb/versefeed/models"
	"github.com/coreybb/versefeed/webutil"
	"github.com/go-chi/chi/v5"
)

// GroupExporter renders one verse group into a downloadable file.
type GroupExporter interface {
	GenerateGroup(ctx context.Context, group models.GroupSummary, verses []models.VerseRecord, lang models.Language, outputDir string) (string, int64, error)
}

// Holds dependencies for export route handlers.
type ExportHandler struct {
	Store     *datastore.VerseStore
	Generator GroupExporter
	OutputDir string
}

func NewExportHandler(store *datastore.VerseStore, generator GroupExporter, outputDir string) *ExportHandler {
	return &ExportHandler{Store: store, Generator: generator, OutputDir: outputDir}
}

func (h *ExportHandler) HandleGetGroupEPUB(w http.ResponseWriter, r *http.Request) error {
	ordinal, err := strconv.Atoi(chi.URLParam(r, ParamOrdinal))
	if err != nil || ordinal < 1 {
		return webutil.ErrBadRequest("Invalid group ordinal format")
	}
	lang, err := languageParam(r)
	if err != nil {
		return err
	}

	group, verses, ok := h.Store.Group(ordinal)
	if !ok {
		return webutil.ErrNotFound(fmt.Sprintf("Group %d not found", ordinal))
	}

	path, _, err := h.Generator.GenerateGroup(r.Context(), group, verses, lang, h.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to generate EPUB for group %d: %w", ordinal, err)
	}

	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeEPUB)
	w.Header().Set(webutil.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filepath.Base(path)))
	http.ServeFile(w, r, path)
	return nil
}
