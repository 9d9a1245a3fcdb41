package event_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/toastx/shredr-fun/internal/domain"
	"github.com/toastx/shredr-fun/internal/domain/event"
)

var ts = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestStatusFrame(t *testing.T) {
	b, err := json.Marshal(event.NewStatus(0, ts))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"status","clientsCount":0,"timestamp":"2026-01-02T03:04:05Z"}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestTransactionFrame(t *testing.T) {
	ev, err := event.NewTransaction(json.RawMessage(`{"sig":"abc"}`), ts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"transaction","data":{"sig":"abc"},"timestamp":"2026-01-02T03:04:05Z"}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestTransactionRejectsInvalidJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"garbage", "{not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := event.NewTransaction(json.RawMessage(tt.data), ts)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestTransactionDataIsCopied(t *testing.T) {
	raw := json.RawMessage(`{"sig":"abc"}`)
	ev, err := event.NewTransaction(raw, ts)
	if err != nil {
		t.Fatal(err)
	}
	raw[8] = 'X'
	if string(ev.Data()) != `{"sig":"abc"}` {
		t.Fatalf("event data changed with caller buffer: %s", ev.Data())
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	ev, _ := event.NewTransaction(json.RawMessage(`[1,2,3]`), ts)
	b, _ := json.Marshal(ev)

	got, err := event.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind() != event.KindTransaction {
		t.Fatalf("expected transaction, got %q", got.Kind())
	}
	if string(got.Data()) != `[1,2,3]` {
		t.Fatalf("unexpected data %s", got.Data())
	}
	if !got.Timestamp().Equal(ts) {
		t.Fatalf("unexpected timestamp %v", got.Timestamp())
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := event.Decode([]byte(`{"type":"bogus","timestamp":"2026-01-02T03:04:05Z"}`))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMarshalZeroEventFails(t *testing.T) {
	var ev event.Event
	if !ev.IsZero() {
		t.Fatal("expected zero event")
	}
	if _, err := json.Marshal(ev); err == nil {
		t.Fatal("expected error marshaling zero event")
	}
}
