package frontier

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/aristath/tickerdash/internal/domain"
)

// PayloadVersion is written with every persisted cache.
// Payloads without a version field are the legacy format and are migrated.
const PayloadVersion = 1

type storedPayload struct {
	Version *int          `json:"version,omitempty"`
	Points  []TickerPoint `json:"points"`
	Stocks  []string      `json:"stocks"`
}

func encodePayload(points []TickerPoint) ([]byte, error) {
	v := PayloadVersion
	stocks := make([]string, len(points))
	for i, p := range points {
		stocks[i] = p.Ticker
	}
	if points == nil {
		points = []TickerPoint{}
	}

	data, err := json.Marshal(storedPayload{Version: &v, Points: points, Stocks: stocks})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache payload: %w", err)
	}
	return data, nil
}

// decodePayload returns the points of a stored payload or an error wrapping
// domain.ErrStorageCorrupt.
func decodePayload(data []byte) ([]TickerPoint, error) {
	var p storedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, err)
	}

	switch {
	case p.Version == nil:
		return migrateLegacy(p)
	case *p.Version == PayloadVersion:
		return validateCurrent(p)
	default:
		return nil, fmt.Errorf("%w: unsupported version %d", domain.ErrStorageCorrupt, *p.Version)
	}
}

// validateCurrent enforces the set/list invariant strictly.
func validateCurrent(p storedPayload) ([]TickerPoint, error) {
	if len(p.Points) != len(p.Stocks) {
		return nil, fmt.Errorf("%w: %d points for %d stocks", domain.ErrStorageCorrupt, len(p.Points), len(p.Stocks))
	}

	stocks := make(map[string]bool, len(p.Stocks))
	for _, s := range p.Stocks {
		stocks[s] = true
	}

	seen := make(map[string]bool, len(p.Points))
	for _, pt := range p.Points {
		if err := checkPoint(pt); err != nil {
			return nil, err
		}
		if seen[pt.Ticker] {
			return nil, fmt.Errorf("%w: duplicate ticker %s", domain.ErrStorageCorrupt, pt.Ticker)
		}
		if !stocks[pt.Ticker] {
			return nil, fmt.Errorf("%w: point %s missing from stocks", domain.ErrStorageCorrupt, pt.Ticker)
		}
		seen[pt.Ticker] = true
	}
	return p.Points, nil
}

// migrateLegacy treats points as authoritative, since the legacy writer
// could let the two lists drift apart. Duplicates keep their first entry and
// missing labels or colors are filled in.
func migrateLegacy(p storedPayload) ([]TickerPoint, error) {
	out := make([]TickerPoint, 0, len(p.Points))
	seen := make(map[string]bool, len(p.Points))
	for _, pt := range p.Points {
		pt.Ticker = domain.NormalizeTicker(pt.Ticker)
		if err := checkPoint(pt); err != nil {
			return nil, err
		}
		if seen[pt.Ticker] {
			continue
		}
		seen[pt.Ticker] = true
		if pt.Label == "" {
			pt.Label = pt.Ticker
		}
		if pt.Color == "" {
			pt.Color = Palette[(len(out)+1)%len(Palette)]
		}
		out = append(out, pt)
	}
	return out, nil
}

func checkPoint(pt TickerPoint) error {
	if !domain.IsValidTicker(pt.Ticker) || pt.Ticker != domain.NormalizeTicker(pt.Ticker) {
		return fmt.Errorf("%w: malformed ticker %q", domain.ErrStorageCorrupt, pt.Ticker)
	}
	if !finite(pt.X) || !finite(pt.Y) {
		return fmt.Errorf("%w: non-finite coordinate for %s", domain.ErrStorageCorrupt, pt.Ticker)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
