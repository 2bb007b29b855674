package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aristath/tickerdash/internal/modules/frontier"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventWithData_TypedDecode(t *testing.T) {
	tests := []struct {
		name string
		data EventData
	}{
		{"ticker added", &TickerAddedData{Ticker: "AAPL", Name: "Apple Inc.", Cached: true}},
		{"points changed", &PointsChangedData{Points: []frontier.ChartPoint{{X: 0.2, Y: 0.1, Label: "AAPL", Color: "#4ECDC4"}}}},
		{"data merged", &DataMergedData{Keys: []string{"AAPL"}, Skipped: []string{"marketAverages"}}},
		{"session closed", &SessionClosedData{Reason: "expired"}},
		{"error", &ErrorEventData{Error: "no data", Ticker: "ZZZZ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &EventWithData{
				Type:      tt.data.EventType(),
				Timestamp: time.Unix(1_700_000_000, 0).UTC(),
				Session:   "abc",
				Data:      tt.data,
			}
			raw, err := json.Marshal(in)
			require.NoError(t, err)

			var out EventWithData
			require.NoError(t, json.Unmarshal(raw, &out))
			assert.Equal(t, in.Type, out.Type)
			assert.Equal(t, "abc", out.Session)
			assert.Equal(t, tt.data, out.Data)
		})
	}
}

func TestEventWithData_UnknownTypeIsGeneric(t *testing.T) {
	var out EventWithData
	require.NoError(t, json.Unmarshal([]byte(`{"type":"SOMETHING_NEW","data":{"k":1}}`), &out))

	generic, ok := out.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, EventType("SOMETHING_NEW"), generic.EventType())
	assert.Equal(t, 1.0, generic.Data["k"])
}

func TestEventWithData_NullData(t *testing.T) {
	var out EventWithData
	require.NoError(t, json.Unmarshal([]byte(`{"type":"TICKER_ADDED","data":null}`), &out))
	assert.Nil(t, out.Data)
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	ch, cancel := bus.Subscribe("s1")
	other, cancelOther := bus.Subscribe("s2")
	defer cancelOther()

	bus.Publish("s1", &TickerAddedData{Ticker: "AAPL"})

	select {
	case ev := <-ch:
		assert.Equal(t, TickerAdded, ev.Type)
		assert.Equal(t, "s1", ev.Session)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case <-other:
		t.Fatal("event leaked to another session")
	default:
	}

	assert.Equal(t, 1, bus.Subscribers("s1"))
	cancel()
	cancel()
	assert.Equal(t, 0, bus.Subscribers("s1"))

	_, open := <-ch
	assert.False(t, open)
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch, cancel := bus.Subscribe("s1")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish("s1", &PointsChangedData{})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBus_SessionClosedEndsLaggingSubscriber(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch, cancel := bus.Subscribe("s1")
	defer cancel()
	_, cancelOther := bus.Subscribe("s2")
	defer cancelOther()

	for i := 0; i < subscriberBuffer; i++ {
		bus.Publish("s1", &PointsChangedData{})
	}
	bus.Publish("s1", &SessionClosedData{Reason: "expired"})

	assert.Equal(t, 0, bus.Subscribers("s1"))
	assert.Equal(t, 1, bus.Subscribers("s2"))

	drained := 0
	for range ch {
		drained++
	}
	assert.Equal(t, subscriberBuffer, drained)
}

func TestBus_SessionClosedIsDeliveredBeforeClose(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch, cancel := bus.Subscribe("s1")
	defer cancel()

	bus.Publish("s1", &SessionClosedData{Reason: "closed"})

	ev, open := <-ch
	require.True(t, open)
	assert.Equal(t, SessionClosed, ev.Type)
	_, open = <-ch
	assert.False(t, open)
}
