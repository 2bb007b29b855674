package clientdata

import "time"

// TTL constants per cached response type.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLQuote   = 15 * time.Minute // quotes move intraday
	TTLHistory = 6 * time.Hour    // daily bars only change after the close
)
