package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/tickerdash/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	writeTimeout = 5 * time.Second
	// SnapshotEvent is the type of the first message on every stream.
	SnapshotEvent events.EventType = "SNAPSHOT"
)

// streamMessage is the wire form of one websocket message.
type streamMessage struct {
	Type      events.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Session   string           `json:"session"`
	Data      interface{}      `json:"data"`
}

// Hub streams session updates to websocket clients. Each client first
// receives a snapshot, then every event published for its session.
type Hub struct {
	bus     *events.Bus
	origins []string
	log     zerolog.Logger
}

// NewHub creates a hub reading from bus. Cross-origin upgrades are accepted
// only from hosts matching one of origins (path.Match patterns such as
// "*.example.com"); with none, only same-host pages may connect.
func NewHub(bus *events.Bus, origins []string, log zerolog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		origins: origins,
		log:     log.With().Str("component", "session_hub").Logger(),
	}
}

// Serve upgrades the request and streams c's updates until the client goes
// away or the session closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, c *Controller) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("session", c.ID()).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Subscribe before the snapshot so nothing published in between is lost.
	updates, cancel := h.bus.Subscribe(c.ID())
	defer cancel()

	// Clients only listen; CloseRead handles control frames and reports when
	// the peer goes away.
	ctx := conn.CloseRead(r.Context())

	log := h.log.With().Str("session", c.ID()).Logger()
	log.Debug().Msg("Stream client connected")

	if err := h.write(ctx, conn, streamMessage{
		Type:      SnapshotEvent,
		Timestamp: time.Now(),
		Session:   c.ID(),
		Data:      c.Snapshot(),
	}); err != nil {
		log.Debug().Err(err).Msg("Failed to send snapshot")
		return
	}

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Stream client disconnected")
			return
		case ev, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "unsubscribed")
				return
			}
			err := h.write(ctx, conn, streamMessage{
				Type:      ev.Type,
				Timestamp: ev.Timestamp,
				Session:   ev.Session,
				Data:      ev.Data,
			})
			if err != nil {
				if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
					return
				}
				if !errors.Is(err, context.Canceled) {
					log.Warn().Err(err).Msg("Failed to write stream message")
				}
				return
			}
			if ev.Type == events.SessionClosed {
				conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal stream message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
