// Package frontier holds a session's deduplicated ticker cache and turns it,
// together with the latest market data bundle, into frontier chart data.
package frontier

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/rs/zerolog"
)

// Palette colors cached points. A point takes Palette[n % len(Palette)]
// where n is the cache size right after it was inserted.
var Palette = []string{
	"#FF6B6B", "#4ECDC4", "#FFD166", "#06D6A0", "#118AB2",
	"#EF476F", "#073B4C", "#7209B7", "#F15BB5", "#00BBF9",
	"#9B5DE5", "#F72585", "#3A0CA3", "#4361EE", "#4CC9F0",
	"#560BAD", "#B5179E", "#4895EF", "#3F37C9", "#FB8500",
}

// Placeholder ranges for tickers added without frontier data.
const (
	placeholderRiskMin    = 0.15
	placeholderRiskSpan   = 0.15
	placeholderReturnMin  = 0.08
	placeholderReturnSpan = 0.08
)

const persistTimeout = 5 * time.Second

// TickerPoint is one cached ticker. X is risk, Y is CAGR.
type TickerPoint struct {
	Ticker string  `json:"ticker"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
	Label  string  `json:"label"`
}

// ChartPoint is the chart-facing projection of a TickerPoint.
type ChartPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
	Color string  `json:"color,omitempty"`
}

// Store is a key-value slot that outlives a single process or request.
// Load returns nil, nil when the key holds nothing.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Cache is the ordered set of tickers a session has added.
// Every ticker in stocks has exactly one entry in points and vice versa.
type Cache struct {
	mu     sync.RWMutex
	points []TickerPoint
	stocks map[string]struct{}

	// persistMu orders saves: it is held from encode to Save so the last
	// write always carries the latest state.
	persistMu sync.Mutex

	store Store
	key   string
	rng   *rand.Rand
	log   zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithRand injects the random source used for placeholder points.
func WithRand(r *rand.Rand) Option {
	return func(c *Cache) { c.rng = r }
}

// NewCache returns an empty cache persisted to store under key.
// A nil store keeps the cache in memory only.
func NewCache(store Store, key string, log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		stocks: make(map[string]struct{}),
		store:  store,
		key:    key,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		log:    log.With().Str("component", "frontier_cache").Str("key", key).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add inserts ticker unless it is already cached or malformed. With data the
// point uses data.Risk/data.CAGR verbatim, otherwise it gets a placeholder
// coordinate. The cache is persisted after a successful insert.
func (c *Cache) Add(ticker string, data *domain.RiskReturn) bool {
	t := domain.NormalizeTicker(ticker)
	if !domain.IsValidTicker(t) {
		c.log.Warn().Str("ticker", ticker).Msg("Refusing to cache malformed ticker")
		return false
	}

	c.mu.Lock()
	if _, ok := c.stocks[t]; ok {
		c.mu.Unlock()
		return false
	}

	var x, y float64
	if data != nil {
		x, y = data.Risk, data.CAGR
	} else {
		x = placeholderRiskMin + c.rng.Float64()*placeholderRiskSpan
		y = placeholderReturnMin + c.rng.Float64()*placeholderReturnSpan
	}

	c.stocks[t] = struct{}{}
	c.points = append(c.points, TickerPoint{
		Ticker: t,
		X:      x,
		Y:      y,
		Color:  Palette[len(c.stocks)%len(Palette)],
		Label:  t,
	})
	c.mu.Unlock()

	c.persistLogged()
	return true
}

// Remove drops ticker. Returns false, and persists nothing, if it was absent.
func (c *Cache) Remove(ticker string) bool {
	t := domain.NormalizeTicker(ticker)

	c.mu.Lock()
	if _, ok := c.stocks[t]; !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.stocks, t)
	kept := c.points[:0]
	for _, p := range c.points {
		if p.Ticker != t {
			kept = append(kept, p)
		}
	}
	c.points = kept
	c.mu.Unlock()

	c.persistLogged()
	return true
}

// Clear empties the cache and persists the empty state.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.points = nil
	c.stocks = make(map[string]struct{})
	c.mu.Unlock()

	c.persistLogged()
}

// ChartPoints projects the cache in insertion order. Non-destructive.
func (c *Cache) ChartPoints() []ChartPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ChartPoint, len(c.points))
	for i, p := range c.points {
		label := p.Label
		if label == "" {
			label = p.Ticker
		}
		out[i] = ChartPoint{X: p.X, Y: p.Y, Label: label, Color: p.Color}
	}
	return out
}

// Points returns a copy of the cached points in insertion order.
func (c *Cache) Points() []TickerPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]TickerPoint(nil), c.points...)
}

// Tickers returns the cached symbols in insertion order.
func (c *Cache) Tickers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.points))
	for i, p := range c.points {
		out[i] = p.Ticker
	}
	return out
}

// Has reports whether ticker is cached.
func (c *Cache) Has(ticker string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.stocks[domain.NormalizeTicker(ticker)]
	return ok
}

// Len returns the number of cached tickers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.points)
}

// Persist writes the current state to the store.
func (c *Cache) Persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	data, err := encodePayload(c.points)
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	return c.store.Save(ctx, c.key, data)
}

// Restore replaces the in-memory state with the stored payload. Any load,
// parse, version or invariant failure leaves the cache empty; it is logged
// and never returned.
func (c *Cache) Restore(ctx context.Context) {
	if c.store == nil {
		return
	}

	data, err := c.store.Load(ctx, c.key)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to load stored cache, starting empty")
		c.reset()
		return
	}
	if data == nil {
		c.reset()
		return
	}

	points, err := decodePayload(data)
	if err != nil {
		c.log.Error().Err(err).Msg("Discarding stored cache")
		c.reset()
		return
	}

	c.mu.Lock()
	c.points = points
	c.stocks = make(map[string]struct{}, len(points))
	for _, p := range points {
		c.stocks[p.Ticker] = struct{}{}
	}
	c.mu.Unlock()

	c.log.Debug().Int("points", len(points)).Msg("Restored cache")
}

func (c *Cache) reset() {
	c.mu.Lock()
	c.points = nil
	c.stocks = make(map[string]struct{})
	c.mu.Unlock()
}

func (c *Cache) persistLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := c.Persist(ctx); err != nil {
		c.log.Error().Err(err).Msg("Failed to persist cache")
	}
}
