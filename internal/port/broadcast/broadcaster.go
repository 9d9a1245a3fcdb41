// Package broadcast defines the port for pushing real-time events to
// connected subscribers.
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/toastx/shredr-fun/internal/domain/event"
)

// Broadcaster sends events to all connected subscribers. Delivery is
// best-effort and latest-value: a slow subscriber may skip events.
type Broadcaster interface {
	// PublishTransaction wraps an opaque notification payload. It fails only
	// when the payload is rejected.
	PublishTransaction(ctx context.Context, data json.RawMessage) error

	// PublishStatus sends a subscriber-count snapshot.
	PublishStatus(ctx context.Context, clientsCount int)

	// Publish sends an already-built event.
	Publish(ctx context.Context, ev event.Event)
}
