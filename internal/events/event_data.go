package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/tickerdash/internal/modules/frontier"
)

// EventType names a session update.
type EventType string

const (
	TickerAdded   EventType = "TICKER_ADDED"
	PointsChanged EventType = "POINTS_CHANGED"
	DataMerged    EventType = "DATA_MERGED"
	SessionClosed EventType = "SESSION_CLOSED"
	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// EventData is the payload of an event.
type EventData interface {
	EventType() EventType
}

// TickerAddedData is sent after a ticker search succeeds.
type TickerAddedData struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name,omitempty"`
	Cached bool   `json:"cached"`
}

// EventType returns the event type for TickerAddedData
func (d *TickerAddedData) EventType() EventType {
	return TickerAdded
}

// PointsChangedData carries the session's cached points after any add,
// remove or clear.
type PointsChangedData struct {
	Points []frontier.ChartPoint `json:"points"`
}

func (d *PointsChangedData) EventType() EventType {
	return PointsChanged
}

// DataMergedData lists the bundle keys a fetch wrote into the session.
type DataMergedData struct {
	Keys    []string `json:"keys"`
	Skipped []string `json:"skipped,omitempty"`
}

func (d *DataMergedData) EventType() EventType {
	return DataMerged
}

// SessionClosedData is the last event a subscriber receives.
type SessionClosedData struct {
	Reason string `json:"reason"`
}

func (d *SessionClosedData) EventType() EventType {
	return SessionClosed
}

// ErrorEventData reports a failed search or fetch.
type ErrorEventData struct {
	Error  string `json:"error"`
	Ticker string `json:"ticker,omitempty"`
}

func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// EventWithData is one published event. Data decodes into the concrete
// type registered for Type.
type EventWithData struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Session   string    `json:"session"`
	Data      EventData `json:"data"`
}

var dataTypes = map[EventType]func() EventData{
	TickerAdded:   func() EventData { return &TickerAddedData{} },
	PointsChanged: func() EventData { return &PointsChangedData{} },
	DataMerged:    func() EventData { return &DataMergedData{} },
	SessionClosed: func() EventData { return &SessionClosedData{} },
	ErrorOccurred: func() EventData { return &ErrorEventData{} },
}

func (e *EventWithData) UnmarshalJSON(raw []byte) error {
	var wire struct {
		Type      EventType       `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Session   string          `json:"session"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	e.Type, e.Timestamp, e.Session, e.Data = wire.Type, wire.Timestamp, wire.Session, nil
	if len(wire.Data) == 0 || string(wire.Data) == "null" {
		return nil
	}

	var data EventData = &GenericEventData{Type: wire.Type}
	if newData, ok := dataTypes[wire.Type]; ok {
		data = newData()
	}
	if err := json.Unmarshal(wire.Data, data); err != nil {
		return fmt.Errorf("failed to decode %s event data: %w", wire.Type, err)
	}
	e.Data = data
	return nil
}

// GenericEventData holds the raw fields of an event type this build does
// not know.
type GenericEventData struct {
	Type EventType
	Data map[string]interface{}
}

func (d *GenericEventData) EventType() EventType {
	return d.Type
}

func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

func (d *GenericEventData) UnmarshalJSON(raw []byte) error {
	return json.Unmarshal(raw, &d.Data)
}
