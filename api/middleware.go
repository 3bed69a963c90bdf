package api

import (
	"errors"
	"net/http"

	"github.com/coreybb/versefeed/ingestion"
	"github.com/coreybb/versefeed/webutil"
)

// SetHeader is a middleware to set a response header.
func SetHeader(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, value)
			next.ServeHTTP(w, r)
		})
	}
}

// sourcesUnavailable answers every request with 503 and the load failure's
// user-facing explanation.
func sourcesUnavailable(loadErr error) http.HandlerFunc {
	refusal := webutil.ErrServiceUnavailable(loadErr.Error(), loadErr)
	var failure *ingestion.LoadFailure
	if errors.As(loadErr, &failure) {
		refusal = webutil.ErrServiceUnavailable(failure.UserMessage(), loadErr, failure.Remediation()...)
	}
	return webutil.MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		return refusal
	})
}
