package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"ssmartr/internal/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 512
)

// Browsers on other origins are refused by the default origin check.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type streamMessage struct {
	Type     string       `json:"type"`
	Reason   string       `json:"reason"`
	Overview overviewView `json:"overview"`
}

// handleOverviewStream pushes a fresh overview on connect and after every
// change signal. Signals that arrive while a push is in flight are
// coalesced into the next one, so a slow client never falls behind by more
// than one overview.
func (s *Server) handleOverviewStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Updates == nil {
		writeError(w, r, http.StatusServiceUnavailable, "overview stream unavailable")
		return
	}
	select {
	case <-s.closing:
		writeError(w, r, http.StatusServiceUnavailable, "server shutting down")
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the client.
		s.logger.WarnContext(r.Context(), "Failed to upgrade overview stream", log.FieldError, err)
		return
	}
	s.streams.Add(1)
	defer s.streams.Done()
	defer conn.Close()

	// The request context ends with ServeHTTP's view of the connection,
	// which a hijacked connection no longer has.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	sub := s.deps.Updates.Subscribe()
	defer sub.Close()

	closed := make(chan struct{})
	go s.readPump(ctx, conn, closed)

	s.logger.InfoContext(ctx, "Overview stream opened", log.FieldClientIP, extractClientIP(r))
	defer s.logger.InfoContext(ctx, "Overview stream closed", log.FieldClientIP, extractClientIP(r))

	if err := s.pushOverview(ctx, conn, "initial"); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				closeStream(conn, websocket.CloseGoingAway, "updates ended")
				return
			}
			if err := s.pushOverview(ctx, conn, ev.Reason); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-s.closing:
			closeStream(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func (s *Server) pushOverview(ctx context.Context, conn *websocket.Conn, reason string) error {
	snap, err := s.deps.Overview.Snapshot(ctx)
	if err != nil {
		s.logger.LogError(ctx, "Failed to compute overview for stream", err, log.OpRecompute, nil)
		closeStream(conn, websocket.CloseInternalServerErr, "overview unavailable")
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(streamMessage{Type: "overview", Reason: reason, Overview: toOverviewView(snap)}); err != nil {
		s.logger.DebugContext(ctx, "Failed to write overview to stream", log.FieldError, err)
		return err
	}
	return nil
}

// readPump drains client frames so control frames are processed, and
// closes done when the client goes away.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxInboundSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.DebugContext(ctx, "Unexpected overview stream close", log.FieldError, err)
			}
			return
		}
	}
}

func closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
