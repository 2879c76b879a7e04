package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"picker/internal/api"
	"picker/internal/logging"
)

const (
	eventsWriteTimeout = 5 * time.Second
	eventsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browsers do not preflight websocket upgrades; accept any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents upgrades to a websocket and pushes one JSON message per
// applied batch. ?since=N replays buffered events after sequence N.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	feed := s.daemon.Feed()
	cursor := feed.Latest()
	if raw := r.URL.Query().Get("since"); raw != "" {
		if since, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cursor = since
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reading is required to process control frames and notice a close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingInterval)
	defer ping.Stop()

	events := make(chan api.BatchEvent)
	go func() {
		defer close(events)
		for {
			batch, next, err := feed.Wait(ctx, cursor)
			if err != nil {
				return
			}
			cursor = next
			for _, evt := range batch {
				select {
				case events <- api.FromBatchEvent(evt):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.closeSocket(conn)
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteTimeout)); err != nil {
				return
			}
		case evt, ok := <-events:
			if !ok {
				s.closeSocket(conn)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					s.logger.Debug("websocket write failed", logging.Error(err))
				}
				return
			}
		}
	}
}

func (s *apiServer) closeSocket(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
