// Package event defines the frames pushed to relay subscribers.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/toastx/shredr-fun/internal/domain"
)

// Kind discriminates the two event variants on the wire ("type" field).
type Kind string

const (
	KindStatus      Kind = "status"
	KindTransaction Kind = "transaction"
)

// Event is an immutable relay value. The zero Event has no kind and is
// never published.
type Event struct {
	kind         Kind
	clientsCount int
	data         json.RawMessage
	timestamp    time.Time
}

// NewStatus builds a status snapshot carrying the live subscriber count.
func NewStatus(clientsCount int, ts time.Time) Event {
	return Event{kind: KindStatus, clientsCount: clientsCount, timestamp: ts.UTC()}
}

// NewTransaction builds a transaction notification around an opaque JSON
// value. The payload is copied; data that is not valid JSON is rejected.
func NewTransaction(data json.RawMessage, ts time.Time) (Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Event{}, fmt.Errorf("%w: transaction data is empty", domain.ErrValidation)
	}
	if !json.Valid(trimmed) {
		return Event{}, fmt.Errorf("%w: transaction data is not valid JSON", domain.ErrValidation)
	}
	return Event{
		kind:      KindTransaction,
		data:      bytes.Clone(trimmed),
		timestamp: ts.UTC(),
	}, nil
}

func (e Event) Kind() Kind           { return e.kind }
func (e Event) ClientsCount() int    { return e.clientsCount }
func (e Event) Timestamp() time.Time { return e.timestamp }
func (e Event) IsZero() bool         { return e.kind == "" }

// Data returns a copy of the transaction payload (nil for status events).
func (e Event) Data() json.RawMessage {
	return bytes.Clone(e.data)
}

// frame is the JSON shape of an Event.
type frame struct {
	Type         Kind            `json:"type"`
	ClientsCount *int            `json:"clientsCount,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// MarshalJSON encodes the event as a tagged frame:
//
//	{"type":"status","clientsCount":3,"timestamp":"..."}
//	{"type":"transaction","data":{...},"timestamp":"..."}
func (e Event) MarshalJSON() ([]byte, error) {
	f := frame{Type: e.kind, Timestamp: e.timestamp}
	switch e.kind {
	case KindStatus:
		n := e.clientsCount
		f.ClientsCount = &n
	case KindTransaction:
		f.Data = e.data
	default:
		return nil, fmt.Errorf("marshal event: unknown kind %q", e.kind)
	}
	return json.Marshal(f)
}

// UnmarshalJSON decodes a frame produced by MarshalJSON.
func (e *Event) UnmarshalJSON(b []byte) error {
	var f frame
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	switch f.Type {
	case KindStatus:
		if f.ClientsCount == nil {
			return fmt.Errorf("%w: status frame without clientsCount", domain.ErrValidation)
		}
		*e = NewStatus(*f.ClientsCount, f.Timestamp)
	case KindTransaction:
		ev, err := NewTransaction(f.Data, f.Timestamp)
		if err != nil {
			return err
		}
		*e = ev
	default:
		return fmt.Errorf("%w: unknown frame type %q", domain.ErrValidation, f.Type)
	}
	return nil
}

// Decode parses a single wire frame.
func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
