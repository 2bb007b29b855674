package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager keeps the live controllers of a server, keyed by session id.
// Sessions that are not in memory are restored from the store on demand.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Controller

	fetcher domain.MarketDataFetcher
	store   Store
	bus     *events.Bus
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewManager creates a manager. Controllers idle for longer than ttl are
// evicted by SweepExpired.
func NewManager(fetcher domain.MarketDataFetcher, store Store, bus *events.Bus, ttl time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Controller),
		fetcher:  fetcher,
		store:    store,
		bus:      bus,
		ttl:      ttl,
		now:      time.Now,
		log:      log.With().Str("service", "session_manager").Logger(),
	}
}

func (m *Manager) newController(id string) *Controller {
	return NewController(id, m.fetcher, m.store, m.log, WithBus(m.bus), WithClock(m.now))
}

// Create starts a new empty session and persists it so it can be restored
// by id later.
func (m *Manager) Create(ctx context.Context) (*Controller, error) {
	id := uuid.NewString()
	c := m.newController(id)
	if err := c.cache.Persist(ctx); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = c
	m.mu.Unlock()

	m.log.Info().Str("session", id).Msg("Session created")
	return c, nil
}

// Get returns the controller for id, restoring it from the store if it is
// not live. Unknown, expired or malformed ids give ErrSessionNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*Controller, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrSessionNotFound, id)
	}

	m.mu.Lock()
	c, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		c.touch()
		return c, nil
	}

	raw, err := m.store.Load(ctx, slotKey(id, slotFrontier))
	if err != nil {
		return nil, fmt.Errorf("failed to look up session %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	restored := m.newController(id)
	restored.Init(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = restored
	m.log.Debug().Str("session", id).Msg("Session restored from store")
	return restored, nil
}

// Close tears the session down and forgets it.
func (m *Manager) Close(ctx context.Context, id string) error {
	c, err := m.Get(ctx, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if err := c.Teardown(ctx, "closed"); err != nil {
		return err
	}
	m.log.Info().Str("session", id).Msg("Session closed")
	return nil
}

// Active returns how many sessions are live in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SweepExpired evicts controllers idle for longer than the TTL and asks the
// store to drop expired slots. Returns the number of evicted controllers.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.ttl)

	var expired []*Controller
	m.mu.Lock()
	for id, c := range m.sessions {
		if c.LastUsed().Before(cutoff) {
			expired = append(expired, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, c := range expired {
		c.publish(&events.SessionClosedData{Reason: "expired"})
	}

	if exp, ok := m.store.(Expirer); ok {
		n, err := exp.DeleteExpired(ctx)
		if err != nil {
			return len(expired), fmt.Errorf("failed to sweep session store: %w", err)
		}
		if n > 0 {
			m.log.Debug().Int64("slots", n).Msg("Deleted expired session slots")
		}
	}

	if len(expired) > 0 {
		m.log.Info().Int("sessions", len(expired)).Msg("Evicted idle sessions")
	}
	return len(expired), nil
}
