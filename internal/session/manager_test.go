package session

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/events"
	testutil "github.com/aristath/tickerdash/internal/testing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(store Store, clk *clock) *Manager {
	m := NewManager(
		testutil.NewMockFetcher(testutil.NewTickerFixtures()...),
		store,
		events.NewBus(zerolog.Nop()),
		time.Hour,
		zerolog.Nop(),
	)
	if clk != nil {
		m.now = clk.now
	}
	return m
}

func TestManager_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore(time.Hour), nil)

	c, err := m.Create(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(c.ID())
	require.NoError(t, err)

	got, err := m.Get(ctx, c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Equal(t, 1, m.Active())
}

func TestManager_GetUnknown(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore(time.Hour), nil)

	_, err := m.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = m.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_LazyRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	first := newTestManager(store, nil)
	c, err := first.Create(ctx)
	require.NoError(t, err)
	_, err = c.AddTicker(ctx, "AAPL")
	require.NoError(t, err)

	second := newTestManager(store, nil)
	restored, err := second.Get(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, restored.Snapshot().Tickers)
	assert.Equal(t, "Apple Inc.", restored.Snapshot().Names["AAPL"])
}

func TestManager_Close(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	m := newTestManager(store, nil)

	c, err := m.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx, c.ID()))
	assert.Equal(t, 0, m.Active())

	_, err = m.Get(ctx, c.ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, m.Close(ctx, c.ID()), domain.ErrSessionNotFound)
}

func TestManager_SweepExpired(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store := NewMemoryStore(time.Hour)
	store.now = clk.now
	m := newTestManager(store, clk)

	idle, err := m.Create(ctx)
	require.NoError(t, err)

	clk.advance(40 * time.Minute)
	busy, err := m.Create(ctx)
	require.NoError(t, err)

	clk.advance(30 * time.Minute)
	_, err = busy.AddTicker(ctx, "MSFT")
	require.NoError(t, err)

	closed, cancel := m.bus.Subscribe(idle.ID())
	defer cancel()

	n, err := m.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Active())

	ev := <-closed
	assert.Equal(t, events.SessionClosed, ev.Type)

	// the idle session's slot expired with it
	_, err = m.Get(ctx, idle.ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	got, err := m.Get(ctx, busy.ID())
	require.NoError(t, err)
	assert.Same(t, busy, got)
}

func TestSweepJob(t *testing.T) {
	m := newTestManager(NewMemoryStore(time.Hour), nil)
	job := NewSweepJob(m, zerolog.Nop())

	assert.Equal(t, "session_sweep", job.Name())
	assert.NoError(t, job.Run())
}
