package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreybb/versefeed/datastore"
	"github.com/coreybb/versefeed/feed"
	"github.com/coreybb/versefeed/models"
	"github.com/coreybb/versefeed/rendering"
	"github.com/coreybb/versefeed/webutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newRegistry(n int) *feed.Registry {
	records := make([]models.VerseRecord, n)
	for i := range records {
		records[i] = models.VerseRecord{
			GroupName: "G", GroupOrdinal: 1, VerseOrdinal: i + 1,
			PrimaryText: "text", PrimaryTranslation: "en", SecondaryTranslation: "fa",
		}
	}
	kvFor := func(string) feed.KeyValueStore { return datastore.NewMemoryKeyValueStore() }
	return feed.NewRegistry(datastore.NewVerseStore(records), rendering.NewRenderer(rendering.Options{}), kvFor, feed.Options{}, 4)
}

func dial(t *testing.T, srv *httptest.Server, session string) (*websocket.Conn, *http.Response) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if session != "" {
		header.Set(webutil.HeaderSession, session)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	return conn, resp
}

func read(t *testing.T, conn *websocket.Conn) ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f ServerFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func readCards(t *testing.T, conn *websocket.Conn, n int) []ServerFrame {
	t.Helper()
	out := make([]ServerFrame, 0, n)
	for i := 0; i < n; i++ {
		f := read(t, conn)
		require.Equal(t, FrameCard, f.Type)
		require.NotNil(t, f.Card)
		out = append(out, f)
	}
	return out
}

func TestStream_Session(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := NewHandler(newRegistry(6), feed.DefaultScrollThreshold)
	srv := httptest.NewServer(webutil.MakeHandler(h.HandleStream))
	defer srv.Close()

	conn, _ := dial(t, srv, "ws-1")
	defer conn.Close()

	// Snapshot of the initial buffer.
	assert.Equal(t, FrameReset, read(t, conn).Type)
	readCards(t, conn, feed.InitialCards)

	// Near the bottom: one card, then the ack.
	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameScroll, DistanceFromBottom: 120, ViewportHeight: 800}))
	readCards(t, conn, 1)
	ack := read(t, conn)
	assert.Equal(t, FrameAck, ack.Type)
	assert.Equal(t, FrameScroll, ack.Command)
	require.NotNil(t, ack.State)
	assert.Equal(t, 4, ack.State.RenderedCount)

	// Far from the bottom: ack only.
	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameScroll, DistanceFromBottom: 5000}))
	ack = read(t, conn)
	assert.Equal(t, FrameAck, ack.Type)
	assert.Equal(t, 4, ack.State.RenderedCount)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameSetLanguage, Language: "secondary"}))
	assert.Equal(t, FrameReset, read(t, conn).Type)
	for _, f := range readCards(t, conn, 3) {
		require.NotNil(t, f.Card.Pages[0].Translation)
		assert.True(t, f.Card.Pages[0].Translation.RTL)
	}
	ack = read(t, conn)
	assert.Equal(t, models.LanguageSecondary, ack.State.Language)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameSetMode, Mode: "shuffle"}))
	errFrame := read(t, conn)
	assert.Equal(t, FrameError, errFrame.Type)
	assert.Equal(t, FrameSetMode, errFrame.Command)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameResetProgress}))
	ack = read(t, conn)
	assert.Equal(t, feed.ResetAcknowledgement, ack.Message)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: "dance"}))
	assert.Equal(t, FrameError, read(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, FrameError, read(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}

func TestStream_IssuesSessionCookie(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := NewHandler(newRegistry(3), feed.DefaultScrollThreshold)
	srv := httptest.NewServer(webutil.MakeHandler(h.HandleStream))
	defer srv.Close()

	conn, resp := dial(t, srv, "")
	defer conn.Close()

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == webutil.CookieSession && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Equal(t, FrameReset, read(t, conn).Type)
}

func TestStream_EmptyStoreFailsBeforeUpgrade(t *testing.T) {
	h := NewHandler(newRegistry(0), feed.DefaultScrollThreshold)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/feed", nil)
	webutil.MakeHandler(h.HandleStream)(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStream_ConnectedSessionSurvivesEviction(t *testing.T) {
	defer goleak.VerifyNone(t)

	sessions := newRegistry(6)
	h := NewHandler(sessions, feed.DefaultScrollThreshold)
	srv := httptest.NewServer(webutil.MakeHandler(h.HandleStream))
	defer srv.Close()

	ctx := t.Context()
	held, err := sessions.Get(ctx, "ws-held")
	require.NoError(t, err)

	conn, _ := dial(t, srv, "ws-held")
	defer conn.Close()
	assert.Equal(t, FrameReset, read(t, conn).Type)
	readCards(t, conn, feed.InitialCards)

	// More idle sessions than the registry holds.
	for _, id := range []string{"h1", "h2", "h3", "h4", "h5"} {
		_, err := sessions.Get(ctx, id)
		require.NoError(t, err)
	}

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameScroll, DistanceFromBottom: 0}))
	readCards(t, conn, 1)
	ack := read(t, conn)
	require.Equal(t, FrameAck, ack.Type)

	again, err := sessions.Get(ctx, "ws-held")
	require.NoError(t, err)
	assert.Same(t, held, again)
	assert.Equal(t, ack.State.RenderedCount, again.State().RenderedCount)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}
