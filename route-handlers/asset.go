package routehandlers

import (
	"bytes"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/coreybb/versefeed/storage"
	"github.com/coreybb/versefeed/webutil"
	"github.com/go-chi/chi/v5"
)

// Holds dependencies for asset route handlers. A nil Cache means the offline
// cache is disabled.
type AssetHandler struct {
	Cache *storage.AssetCache
}

func NewAssetHandler(cache *storage.AssetCache) *AssetHandler {
	return &AssetHandler{Cache: cache}
}

func (h *AssetHandler) HandleGetAsset(w http.ResponseWriter, r *http.Request) error {
	if h.Cache == nil {
		return webutil.ErrNotFound("Asset cache is disabled")
	}
	name := chi.URLParam(r, "*")
	ref, ok := h.Cache.Manifest().Resolve(name)
	if !ok {
		return webutil.ErrNotFound("Asset not found")
	}

	data, err := h.Cache.Fetch(r.Context(), ref)
	if err != nil {
		return webutil.NewHTTPErrorWrap(http.StatusBadGateway, "Asset unavailable", err)
	}

	contentType := mime.TypeByExtension(path.Ext(ref))
	if contentType == "" {
		contentType = webutil.ContentTypeOctetStream
	}
	w.Header().Set(webutil.HeaderContentType, contentType)
	w.Header().Set(webutil.HeaderETag, `"`+webutil.GenerateHash(data)[:32]+`"`)
	http.ServeContent(w, r, path.Base(ref), time.Time{}, bytes.NewReader(data))
	return nil
}
