package webutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreybb/versefeed/storage"
)

// GenerateHash returns the hex BLAKE3 digest of data.
func GenerateHash(data []byte) string {
	return storage.ContentHash(data)
}

// ETag derives a strong entity tag from the JSON encoding of payload.
func ETag(payload any) (string, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal payload for etag: %w", err)
	}
	return `"` + GenerateHash(body)[:32] + `"`, body, nil
}

// RespondWithETag writes payload with an ETag header, answering 304 when the
// request's If-None-Match already names it.
func RespondWithETag(w http.ResponseWriter, r *http.Request, payload any) error {
	tag, body, err := ETag(payload)
	if err != nil {
		return err
	}
	w.Header().Set(HeaderETag, tag)
	if etagMatches(r.Header.Get(HeaderIfNoneMatch), tag) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return nil
}

func etagMatches(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == tag {
			return true
		}
	}
	return false
}
