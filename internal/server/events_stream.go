package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/events"
	"github.com/aristath/tickerdash/internal/session"
)

const heartbeatInterval = 30 * time.Second

// SessionLookup resolves a session id. *session.Manager satisfies it.
type SessionLookup interface {
	Get(ctx context.Context, id string) (*session.Controller, error)
}

// EventsStreamHandler streams one session's events as Server-Sent Events.
type EventsStreamHandler struct {
	bus       *events.Bus
	sessions  SessionLookup
	log       zerolog.Logger
	heartbeat time.Duration
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(bus *events.Bus, sessions SessionLookup, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		bus:       bus,
		sessions:  sessions,
		log:       log.With().Str("component", "events_stream").Logger(),
		heartbeat: heartbeatInterval,
	}
}

// ServeHTTP handles GET /api/sessions/{id}/events[?types=TICKER_ADDED,...]
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Err: err.Error()}, h.log)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var allowed map[events.EventType]bool
	if typesFilter := r.URL.Query().Get("types"); typesFilter != "" {
		allowed = make(map[events.EventType]bool)
		for _, t := range strings.Split(typesFilter, ",") {
			allowed[events.EventType(strings.ToUpper(strings.TrimSpace(t)))] = true
		}
	}

	updates, cancel := h.bus.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	log := h.log.With().Str("session", id).Logger()
	log.Debug().Msg("Client connected to event stream")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Msg("Client disconnected from event stream")
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if allowed == nil || allowed[ev.Type] || ev.Type == events.SessionClosed {
				if err := h.writeEvent(w, ev); err != nil {
					log.Warn().Err(err).Msg("Failed to write event")
					return
				}
				flusher.Flush()
			}
			if ev.Type == events.SessionClosed {
				return
			}
		}
	}
}

func (h *EventsStreamHandler) writeEvent(w http.ResponseWriter, ev *events.EventWithData) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
