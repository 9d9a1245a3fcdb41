package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/toastx/shredr-fun/internal/domain/event"
)

// Publisher is the producer-side entry point. It is safe for concurrent use
// and never reports delivery outcomes: an accepted event is simply the new
// latest value.
type Publisher struct {
	latest  *Latest[event.Event]
	metrics Metrics
	now     func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherMetrics sets the metrics sink.
func WithPublisherMetrics(m Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

// NewPublisher returns a Publisher writing into latest.
func NewPublisher(latest *Latest[event.Event], opts ...PublisherOption) *Publisher {
	p := &Publisher{
		latest:  latest,
		metrics: NopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishTransaction wraps an opaque notification payload and publishes it.
// The only error is a rejected payload.
func (p *Publisher) PublishTransaction(ctx context.Context, data json.RawMessage) error {
	ev, err := event.NewTransaction(data, p.now())
	if err != nil {
		return err
	}
	p.Publish(ctx, ev)
	return nil
}

// PublishStatus publishes a subscriber-count snapshot.
func (p *Publisher) PublishStatus(ctx context.Context, clientsCount int) {
	p.Publish(ctx, event.NewStatus(clientsCount, p.now()))
}

// Publish makes ev the latest value. Zero events are dropped.
func (p *Publisher) Publish(ctx context.Context, ev event.Event) {
	if ev.IsZero() {
		return
	}
	p.latest.Publish(ev)
	p.metrics.EventPublished(ctx, string(ev.Kind()))
}
