package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the gateway, the session layer and the HTTP handlers.
var (
	// ErrInvalidTicker covers local format rejection and upstream 400s.
	ErrInvalidTicker = errors.New("invalid ticker")
	// ErrNoDataForTicker means the request succeeded but the symbol is missing from stats.
	ErrNoDataForTicker = errors.New("no data available for ticker")
	// ErrUpstreamServer is an upstream 500.
	ErrUpstreamServer = errors.New("upstream server error")
	// ErrUnknownTransport covers network failures, unexpected statuses and undecodable bodies.
	ErrUnknownTransport = errors.New("unknown transport error")
	// ErrStorageCorrupt is logged when a persisted session payload cannot be used.
	ErrStorageCorrupt = errors.New("stored session payload is corrupt")
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
)

// TransportError carries the raw status and message of a failed exchange.
// Status is 0 when no response was received.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", ErrUnknownTransport, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrUnknownTransport, e.Message)
}

// Is makes errors.Is(err, ErrUnknownTransport) hold for every TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrUnknownTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NoDataError reports which ticker was missing from an otherwise valid bundle.
func NoDataError(ticker string) error {
	return fmt.Errorf("%w: %s", ErrNoDataForTicker, ticker)
}
