package webutil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coreybb/versefeed/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "http error", err: ErrBadRequest("bad index"), wantCode: http.StatusBadRequest, wantBody: `{"error":"bad index"}`},
		{name: "wrapped out of range", err: fmt.Errorf("lookup: %w", datastore.ErrOutOfRange), wantCode: http.StatusNotFound, wantBody: `{"error":"Resource not found"}`},
		{name: "unknown", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantBody: `{"error":"Internal Server Error"}`},
		{name: "unavailable", err: ErrServiceUnavailable("sources missing", errors.New("open quran_en.json")), wantCode: http.StatusServiceUnavailable, wantBody: `{"error":"sources missing"}`},
		{
			name:     "unavailable with remediation",
			err:      ErrServiceUnavailable("", nil, "Check your connection.", "Reload the page."),
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"error":"Service Unavailable","remediation":["Check your connection.","Reload the page."]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := MakeHandler(func(w http.ResponseWriter, r *http.Request) error { return tt.err })
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestMakeHandler_ErrorAfterWrite(t *testing.T) {
	t.Parallel()
	h := MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		RespondWithJSON(w, http.StatusAccepted, map[string]string{"ok": "yes"})
		return errors.New("late failure")
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}

func TestRespondWithETag(t *testing.T) {
	t.Parallel()
	payload := map[string]int{"index": 4}

	rec := httptest.NewRecorder()
	require.NoError(t, RespondWithETag(rec, httptest.NewRequest(http.MethodGet, "/", nil), payload))
	assert.Equal(t, http.StatusOK, rec.Code)
	tag := rec.Header().Get(HeaderETag)
	require.NotEmpty(t, tag)
	assert.JSONEq(t, `{"index":4}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderIfNoneMatch, `"other", `+tag)
	rec = httptest.NewRecorder()
	require.NoError(t, RespondWithETag(rec, req, payload))
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGenerateHash_Deterministic(t *testing.T) {
	t.Parallel()
	a := GenerateHash([]byte("bismillah"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, GenerateHash([]byte("bismillah")))
	assert.NotEqual(t, a, GenerateHash([]byte("bismillah.")))
}

func TestSessionID(t *testing.T) {
	t.Parallel()

	t.Run("header wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderSession, "abc-123")
		req.AddCookie(&http.Cookie{Name: CookieSession, Value: "cookie-id"})
		rec := httptest.NewRecorder()
		assert.Equal(t, "abc-123", SessionID(rec, req))
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieSession, Value: "cookie-id"})
		assert.Equal(t, "cookie-id", SessionID(httptest.NewRecorder(), req))
	})

	t.Run("minted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderSession, "not valid!")
		rec := httptest.NewRecorder()
		id := SessionID(rec, req)
		require.NotEmpty(t, id)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieSession, cookies[0].Name)
		assert.Equal(t, id, cookies[0].Value)
	})
}
