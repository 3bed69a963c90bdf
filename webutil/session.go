package webutil

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const sessionCookieMaxAge = 365 * 24 * 60 * 60

// SessionID identifies the caller's feed session. The X-Feed-Session header
// wins over the cookie; when neither is present a new ID is minted and set
// as a cookie on w.
func SessionID(w http.ResponseWriter, r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderSession)); validSessionID(id) {
		return id
	}
	if cookie, err := r.Cookie(CookieSession); err == nil && validSessionID(cookie.Value) {
		return cookie.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieSession,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Session IDs are opaque but bounded so they stay usable as storage keys.
func validSessionID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
