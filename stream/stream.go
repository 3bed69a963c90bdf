// Package stream serves a session's feed over a websocket. Client frames
// drive the controller; controller events and command results flow back as
// server frames.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coreybb/versefeed/feed"
	"github.com/coreybb/versefeed/models"
	"github.com/coreybb/versefeed/webutil"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	outboundBuffer = 16
)

// Client frame types.
const (
	FrameInit          = "init"
	FrameScroll        = "scroll"
	FrameSetMode       = "set_mode"
	FrameSetLanguage   = "set_language"
	FrameResetProgress = "reset_progress"
)

// Server frame types. Reset and card mirror feed.EventKind.
const (
	FrameReset = string(feed.EventReset)
	FrameCard  = string(feed.EventCard)
	FrameAck   = "ack"
	FrameError = "error"
)

// ClientFrame is one command sent by the browser.
type ClientFrame struct {
	Type               string  `json:"type"`
	DistanceFromBottom float64 `json:"distance_from_bottom,omitempty"`
	ViewportHeight     float64 `json:"viewport_height,omitempty"`
	Mode               string  `json:"mode,omitempty"`
	Language           string  `json:"language,omitempty"`
}

// ServerFrame is one message pushed to the browser.
type ServerFrame struct {
	Type    string               `json:"type"`
	Card    *models.RenderedCard `json:"card,omitempty"`
	Command string               `json:"command,omitempty"`
	Message string               `json:"message,omitempty"`
	State   *models.FeedState    `json:"state,omitempty"`
}

// Handler upgrades requests to websocket feed streams.
type Handler struct {
	Sessions        *feed.Registry
	ScrollThreshold float64
	upgrader        websocket.Upgrader
}

func NewHandler(sessions *feed.Registry, scrollThreshold float64) *Handler {
	return &Handler{
		Sessions:        sessions,
		ScrollThreshold: scrollThreshold,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleStream opens the session's controller, upgrades the connection and
// serves it until the client goes away. Errors before the upgrade are
// returned for the usual JSON error response.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) error {
	sessionID := webutil.SessionID(w, r)
	ctrl, err := h.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to open feed session: %w", err)
	}

	// Upgrade writes its own response, so a freshly minted cookie has to be
	// carried over explicitly.
	header := http.Header{}
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header["Set-Cookie"] = cookies
	}
	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Printf("WARN (Stream): Upgrade failed for session %s: %v", sessionID, err)
		return nil
	}

	log.Printf("INFO (Stream): Session %s connected", sessionID)
	h.serve(r.Context(), conn, sessionID, ctrl)
	log.Printf("INFO (Stream): Session %s disconnected", sessionID)
	return nil
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, sessionID string, ctrl *feed.Controller) {
	ctx, cancelCtx := context.WithCancel(ctx)
	defer cancelCtx()

	snapshot, events, unsubscribe := ctrl.SubscribeWithSnapshot()
	out := make(chan ServerFrame, outboundBuffer)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		defer conn.Close()
		writeLoop(conn, snapshot, events, out)
	}()

	h.readLoop(ctx, conn, sessionID, ctrl, out, writerDone)

	// Closing the subscription ends the writer.
	unsubscribe()
	<-writerDone
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string, ctrl *feed.Controller, out chan<- ServerFrame, writerDone <-chan struct{}) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if !send(out, writerDone, ServerFrame{Type: FrameError, Message: "malformed frame"}) {
					return
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARN (Stream): Read failed: %v", err)
			}
			return
		}
		h.Sessions.Touch(sessionID)
		if !send(out, writerDone, h.dispatch(ctx, ctrl, frame)) {
			return
		}
	}
}

// dispatch runs one client command. Cards it produces reach the client
// through the subscription; the returned frame reports the outcome.
func (h *Handler) dispatch(ctx context.Context, ctrl *feed.Controller, frame ClientFrame) ServerFrame {
	var err error
	var message string

	switch frame.Type {
	case FrameInit:
		_, err = ctrl.InitFeed(ctx)
	case FrameScroll:
		signal := feed.ScrollSignal{DistanceFromBottom: frame.DistanceFromBottom, ViewportHeight: frame.ViewportHeight}
		_, err = ctrl.OnScrollProximity(ctx, signal, h.ScrollThreshold)
	case FrameSetMode:
		var mode models.Mode
		if mode, err = models.ParseMode(frame.Mode); err == nil {
			_, err = ctrl.SetMode(ctx, mode)
		}
	case FrameSetLanguage:
		var lang models.Language
		if lang, err = models.ParseLanguage(frame.Language); err == nil {
			_, err = ctrl.SetLanguage(ctx, lang)
		}
	case FrameResetProgress:
		message = ctrl.ResetProgress(ctx)
	default:
		err = fmt.Errorf("unknown frame type %q", frame.Type)
	}

	if err != nil {
		return ServerFrame{Type: FrameError, Command: frame.Type, Message: err.Error()}
	}
	state := ctrl.State()
	return ServerFrame{Type: FrameAck, Command: frame.Type, Message: message, State: &state}
}

// send hands a frame to the writer unless the writer has already stopped.
func send(out chan<- ServerFrame, writerDone <-chan struct{}, frame ServerFrame) bool {
	select {
	case out <- frame:
		return true
	case <-writerDone:
		return false
	}
}

func eventFrame(ev feed.Event) ServerFrame {
	return ServerFrame{Type: string(ev.Kind), Card: ev.Card}
}

// writeLoop owns every write on conn. Pending controller events are flushed
// before a command result so the client sees a command's cards before its ack.
func writeLoop(conn *websocket.Conn, snapshot []models.RenderedCard, events <-chan feed.Event, out <-chan ServerFrame) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(frame ServerFrame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("WARN (Stream): Write failed: %v", err)
			return false
		}
		return true
	}
	drain := func() bool {
		for {
			select {
			case ev, ok := <-events:
				if !ok || !write(eventFrame(ev)) {
					return false
				}
			default:
				return true
			}
		}
	}

	if !write(ServerFrame{Type: FrameReset}) {
		return
	}
	for i := range snapshot {
		if !write(ServerFrame{Type: FrameCard, Card: &snapshot[i]}) {
			return
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			if !write(eventFrame(ev)) {
				return
			}
		case frame := <-out:
			if !drain() || !write(frame) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
