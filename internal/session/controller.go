package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/events"
	"github.com/aristath/tickerdash/internal/modules/charts"
	"github.com/aristath/tickerdash/internal/modules/frontier"
	"github.com/aristath/tickerdash/internal/modules/metrics"
	"github.com/rs/zerolog"
)

const persistTimeout = 5 * time.Second

// AddResult describes a successful ticker search.
type AddResult struct {
	Ticker string             `json:"ticker"`
	Name   string             `json:"name,omitempty"`
	Stats  domain.TickerStats `json:"stats"`
	// Cached is true when the ticker was newly inserted into the frontier cache.
	Cached bool `json:"cached"`
	// Stale is true when a newer fetch had already written this ticker, so
	// this response was not merged.
	Stale bool `json:"stale,omitempty"`
}

// Snapshot is the full chart-facing state of a session.
type Snapshot struct {
	ID          string                `json:"id"`
	Tickers     []string              `json:"tickers"`
	Points      []frontier.ChartPoint `json:"points"`
	Names       map[string]string     `json:"names"`
	DataTickers []string              `json:"dataTickers"`
}

// Controller owns one session's frontier cache and its merged market data.
// All mutations of the merged data are serialized by mu.
type Controller struct {
	id      string
	fetcher domain.MarketDataFetcher
	store   Store
	cache   *frontier.Cache
	bus     *events.Bus
	log     zerolog.Logger

	mu      sync.Mutex
	data    *domain.Bundle
	written map[string]uint64
	rng     *rand.Rand

	// persistMu is held from encode to Save of the data slot.
	persistMu sync.Mutex

	seq      atomic.Uint64
	lastUsed atomic.Int64
	now      func() time.Time
}

// ControllerOption configures a Controller.
type ControllerOption func(*controllerOptions)

type controllerOptions struct {
	seed *uint64
	bus  *events.Bus
	now  func() time.Time
}

// WithSeed makes placeholder points and chart jitter reproducible.
func WithSeed(seed uint64) ControllerOption {
	return func(o *controllerOptions) { o.seed = &seed }
}

// WithBus publishes session updates to bus.
func WithBus(bus *events.Bus) ControllerOption {
	return func(o *controllerOptions) { o.bus = bus }
}

// WithClock overrides the idle-time clock.
func WithClock(now func() time.Time) ControllerOption {
	return func(o *controllerOptions) { o.now = now }
}

// NewController creates the controller for session id. Call Init before use
// to restore persisted state. A nil store keeps everything in memory.
func NewController(id string, fetcher domain.MarketDataFetcher, store Store, log zerolog.Logger, opts ...ControllerOption) *Controller {
	o := controllerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	seed := uint64(time.Now().UnixNano())
	if o.seed != nil {
		seed = *o.seed
	}

	c := &Controller{
		id:      id,
		fetcher: fetcher,
		store:   store,
		bus:     o.bus,
		log:     log.With().Str("component", "session").Str("session", id).Logger(),
		data:    domain.NewBundle(),
		written: make(map[string]uint64),
		rng:     rand.New(rand.NewPCG(seed, 2)),
		now:     o.now,
	}
	c.cache = frontier.NewCache(store, slotKey(id, slotFrontier), log,
		frontier.WithRand(rand.New(rand.NewPCG(seed, 1))))
	c.touch()
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// LastUsed returns when the session was last accessed.
func (c *Controller) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

func (c *Controller) touch() {
	c.lastUsed.Store(c.now().UnixNano())
}

// Init restores the cache and the merged market data from the store.
// Unusable stored data is logged and replaced with empty state.
func (c *Controller) Init(ctx context.Context) {
	c.cache.Restore(ctx)

	if c.store == nil {
		return
	}
	raw, err := c.store.Load(ctx, slotKey(c.id, slotData))
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to load market data, starting empty")
		return
	}
	if raw == nil {
		return
	}

	restored := domain.NewBundle()
	if err := json.Unmarshal(raw, restored); err != nil {
		c.log.Error().Err(fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, err)).Msg("Discarding stored market data")
		return
	}

	c.mu.Lock()
	c.data = domain.NewBundle()
	c.data.Merge(restored)
	c.mu.Unlock()
}

// Teardown empties the session and removes its stored slots.
func (c *Controller) Teardown(ctx context.Context, reason string) error {
	c.cache.Clear()

	c.mu.Lock()
	c.data = domain.NewBundle()
	c.written = make(map[string]uint64)
	c.mu.Unlock()

	c.publish(&events.SessionClosedData{Reason: reason})

	if c.store == nil {
		return nil
	}
	for _, slot := range []string{slotFrontier, slotData} {
		if err := c.store.Delete(ctx, slotKey(c.id, slot)); err != nil {
			return fmt.Errorf("failed to tear down session %s: %w", c.id, err)
		}
	}
	return nil
}

// AddTicker fetches raw, merges the response into the session's market data
// and caches its frontier point when the response carries one.
func (c *Controller) AddTicker(ctx context.Context, raw string) (*AddResult, error) {
	c.touch()

	ticker, err := domain.ValidateTicker(raw)
	if err != nil {
		return nil, err
	}
	seq := c.seq.Add(1)

	bundle, err := c.fetcher.FetchMarketData(ctx, []string{ticker})
	if err != nil {
		c.publish(&events.ErrorEventData{Error: err.Error(), Ticker: ticker})
		return nil, err
	}
	stats, ok := bundle.TickerStats(ticker)
	if !ok {
		err := domain.NoDataError(ticker)
		c.publish(&events.ErrorEventData{Error: err.Error(), Ticker: ticker})
		return nil, err
	}

	merged, skipped := c.merge(bundle, seq)

	result := &AddResult{
		Ticker: ticker,
		Name:   bundle.Names[ticker],
		Stats:  stats,
		Stale:  slices.Contains(skipped, ticker),
	}

	c.mu.Lock()
	rr, hasFrontier := c.data.Frontier(ticker)
	c.mu.Unlock()
	if hasFrontier {
		result.Cached = c.cache.Add(ticker, &rr)
	}

	c.persistData(ctx)

	c.log.Info().
		Str("ticker", ticker).
		Uint64("seq", seq).
		Bool("cached", result.Cached).
		Bool("stale", result.Stale).
		Msg("Ticker added")

	c.publish(&events.DataMergedData{Keys: merged, Skipped: skipped})
	c.publish(&events.TickerAddedData{Ticker: ticker, Name: result.Name, Cached: result.Cached})
	if result.Cached {
		c.publishPoints()
	}
	return result, nil
}

// merge writes every key of bundle whose last writer is older than seq and
// returns the written and skipped keys, sorted.
func (c *Controller) merge(bundle *domain.Bundle, seq uint64) (merged, skipped []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	decided := make(map[string]bool)
	c.data.MergeFunc(bundle, func(key string) bool {
		ok, seen := decided[key]
		if !seen {
			ok = c.written[key] < seq
			decided[key] = ok
		}
		return ok
	})

	for key, ok := range decided {
		if ok {
			c.written[key] = seq
			merged = append(merged, key)
		} else {
			skipped = append(skipped, key)
		}
	}
	sort.Strings(merged)
	sort.Strings(skipped)
	return merged, skipped
}

func (c *Controller) persistData(ctx context.Context) {
	if c.store == nil {
		return
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	raw, err := json.Marshal(c.data)
	c.mu.Unlock()
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to encode market data")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := c.store.Save(ctx, slotKey(c.id, slotData), raw); err != nil {
		c.log.Error().Err(err).Msg("Failed to persist market data")
	}
}

// AddPoint caches ticker directly. A nil rr gives it a placeholder
// coordinate. Returns false if it was already cached.
func (c *Controller) AddPoint(ticker string, rr *domain.RiskReturn) (bool, error) {
	c.touch()

	t, err := domain.ValidateTicker(ticker)
	if err != nil {
		return false, err
	}
	added := c.cache.Add(t, rr)
	if added {
		c.publishPoints()
	}
	return added, nil
}

// RemovePoint drops ticker from the cache. Returns false if it was absent.
func (c *Controller) RemovePoint(ticker string) bool {
	c.touch()

	removed := c.cache.Remove(ticker)
	if removed {
		c.publishPoints()
	}
	return removed
}

// ClearPoints empties the cache.
func (c *Controller) ClearPoints() {
	c.touch()
	c.cache.Clear()
	c.publishPoints()
}

// ChartPoints returns the cached points in insertion order.
func (c *Controller) ChartPoints() []frontier.ChartPoint {
	c.touch()
	return c.cache.ChartPoints()
}

// Points returns the cached ticker points in insertion order.
func (c *Controller) Points() []frontier.TickerPoint {
	c.touch()
	return c.cache.Points()
}

// Frontier builds the frontier chart for capType.
func (c *Controller) Frontier(capType frontier.CapType) frontier.Chart {
	c.touch()

	c.mu.Lock()
	defer c.mu.Unlock()
	return frontier.BuildChart(capType, c.data.Clone(), c.cache, c.rng)
}

// MetricsTable builds the metrics table for ticker from the merged data.
func (c *Controller) MetricsTable(ticker string) ([]metrics.Row, error) {
	t, err := domain.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	return metrics.BuildTable(c.Data(), t)
}

// RiskBar builds the risk bar chart for ticker.
func (c *Controller) RiskBar(ticker string) (charts.Chart, error) {
	t, err := domain.ValidateTicker(ticker)
	if err != nil {
		return charts.Chart{}, err
	}
	return charts.RiskBar(t, c.Data()), nil
}

// MCTRPie builds the MCTR pie chart for ticker.
func (c *Controller) MCTRPie(ticker string) (charts.Chart, error) {
	t, err := domain.ValidateTicker(ticker)
	if err != nil {
		return charts.Chart{}, err
	}
	return charts.MCTRPie(t, c.Data()), nil
}

// Data returns a copy of the merged market data.
func (c *Controller) Data() *domain.Bundle {
	c.touch()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.Clone()
}

// Snapshot returns the session's current chart-facing state.
func (c *Controller) Snapshot() Snapshot {
	data := c.Data()
	tickers := data.Tickers()
	sort.Strings(tickers)

	return Snapshot{
		ID:          c.id,
		Tickers:     c.cache.Tickers(),
		Points:      c.cache.ChartPoints(),
		Names:       data.Names,
		DataTickers: tickers,
	}
}

func (c *Controller) publishPoints() {
	c.publish(&events.PointsChangedData{Points: c.cache.ChartPoints()})
}

func (c *Controller) publish(data events.EventData) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(c.id, data)
}
