// Package session owns per-user dashboard state: the frontier cache, the
// merged market data bundle, and where both are persisted.
package session

import (
	"context"
	"sync"
	"time"
)

// Store is a key-value slot store for session payloads. Load returns nil,
// nil for a missing or expired key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Expirer is implemented by stores that need an explicit sweep to drop
// expired slots.
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Slot names within a session.
const (
	slotFrontier = "frontierCache"
	slotData     = "allData"
)

func slotKey(sessionID, slot string) string {
	return "session:" + sessionID + ":" + slot
}

// MemoryStore keeps slots in process memory with the same expiry rules as
// the persistent stores.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. A non-positive ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || s.expired(e) {
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), data...)}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.data[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// DeleteExpired drops every expired slot.
func (s *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.data {
		if s.expired(e) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
