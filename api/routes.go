package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/coreybb/versefeed/route-handlers"
	"github.com/coreybb/versefeed/scheduler"
	"github.com/coreybb/versefeed/stream"
	"github.com/coreybb/versefeed/webutil"
)

const (
	apiBasePath      = "/api"
	feedBasePath     = "/feed"
	settingsBasePath = "/settings"
	versesBasePath   = "/verses"
	groupsBasePath   = "/groups"
	assetsBasePath   = "/assets"
	wsBasePath       = "/ws"
)

const (
	initSubPath     = "/init"
	scrollSubPath   = "/scroll"
	modeSubPath     = "/mode"
	languageSubPath = "/language"
	resetSubPath    = "/reset-progress"
	cardSubPath     = "/card"
	epubSubPath     = "/epub"
)

const defaultRequestTimeout = 60 * time.Second

// Handlers groups everything the router serves. When the verse sources
// failed to load only Assets and Scheduler need to be set.
type Handlers struct {
	Feed      *rh.FeedHandler
	Settings  *rh.SettingsHandler
	Verses    *rh.VerseHandler
	Export    *rh.ExportHandler
	Assets    *rh.AssetHandler
	Stream    *stream.Handler
	Scheduler *scheduler.Scheduler
}

// SetupRoutes builds the router. A non-nil loadErr puts every /api and /ws
// route into a 503 state that explains the failure.
func SetupRoutes(h Handlers, loadErr error, requestTimeout time.Duration) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Log every request
	r.Use(middleware.Recoverer) // Recover from panics

	// Long-lived websocket streams stay outside the request timeout.
	r.Route(wsBasePath, func(r chi.Router) {
		if loadErr != nil {
			r.Handle("/*", sourcesUnavailable(loadErr))
			return
		}
		r.Get(feedBasePath, webutil.MakeHandler(h.Stream.HandleStream))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))                                // Set a timeout context for requests
		r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8)) // Default Content-Type

		r.Route(apiBasePath, func(r chi.Router) {
			if loadErr != nil {
				r.Handle("/*", sourcesUnavailable(loadErr))
				return
			}
			configureFeedRoutes(r, h.Feed)
			configureSettingsRoutes(r, h.Settings)
			configureVerseRoutes(r, h.Verses)
			configureGroupRoutes(r, h.Export, h.Verses)
		})

		if h.Assets != nil {
			r.Get(assetsBasePath+"/*", webutil.MakeHandler(h.Assets.HandleGetAsset))
		}
		if h.Scheduler != nil {
			r.Post("/scheduler/tick", h.Scheduler.HandleTick)
		}

		// Health check endpoint
		r.Get("/healthz", handleHealthCheck)
	})

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- Feed Routes ---
func configureFeedRoutes(r chi.Router, handler *rh.FeedHandler) {
	r.Route(feedBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetFeed))
		r.Post(initSubPath, webutil.MakeHandler(handler.HandleInitFeed))
		r.Post(scrollSubPath, webutil.MakeHandler(handler.HandleScroll))
	})
}

// --- Settings Routes ---
func configureSettingsRoutes(r chi.Router, handler *rh.SettingsHandler) {
	r.Route(settingsBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetSettings))
		r.Put(modeSubPath, webutil.MakeHandler(handler.HandleSetMode))
		r.Put(languageSubPath, webutil.MakeHandler(handler.HandleSetLanguage))
		r.Post(resetSubPath, webutil.MakeHandler(handler.HandleResetProgress))
	})
}

// --- Verse Routes ---
func configureVerseRoutes(r chi.Router, handler *rh.VerseHandler) {
	specificVersePath := pathWithParam("", rh.ParamIndex) // e.g., "/{index}"

	r.Route(versesBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetVerses))
		r.Route(specificVersePath, func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(handler.HandleGetVerse))
			r.Get(cardSubPath, webutil.MakeHandler(handler.HandleGetVerseCard)) // GET /verses/{index}/card
		})
	})
}

// --- Group Export Routes ---
func configureGroupRoutes(r chi.Router, export *rh.ExportHandler, verses *rh.VerseHandler) {
	specificGroupPath := pathWithParam(groupsBasePath, rh.ParamOrdinal) // e.g., "/groups/{ordinal}"

	r.Route(specificGroupPath, func(r chi.Router) {
		// GET /groups/{ordinal}/epub
		r.Get(epubSubPath, webutil.MakeHandler(export.HandleGetGroupEPUB))
		// GET /groups/{ordinal}/verses/{verse}
		r.Get(pathWithParam(versesBasePath, rh.ParamVerse), webutil.MakeHandler(verses.HandleGetVerseByRef))
	})
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
