package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/toastx/shredr-fun/internal/relay"
)

const meterName = "shredr"

var _ relay.Metrics = (*Metrics)(nil)

// Metrics holds the relay metric instruments and implements relay.Metrics.
type Metrics struct {
	Sessions        metric.Int64UpDownCounter
	SessionsOpened  metric.Int64Counter
	FramesSent      metric.Int64Counter
	SendFailures    metric.Int64Counter
	EventsPublished metric.Int64Counter
}

// NewMetrics creates all metric instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Sessions, err = meter.Int64UpDownCounter("shredr.relay.sessions",
		metric.WithDescription("Active WebSocket subscriber sessions"))
	if err != nil {
		return nil, err
	}

	m.SessionsOpened, err = meter.Int64Counter("shredr.relay.sessions.opened",
		metric.WithDescription("WebSocket subscriber sessions opened"))
	if err != nil {
		return nil, err
	}

	m.FramesSent, err = meter.Int64Counter("shredr.relay.frames.sent",
		metric.WithDescription("Frames written to subscribers"))
	if err != nil {
		return nil, err
	}

	m.SendFailures, err = meter.Int64Counter("shredr.relay.frames.failed",
		metric.WithDescription("Frame writes that ended a session"))
	if err != nil {
		return nil, err
	}

	m.EventsPublished, err = meter.Int64Counter("shredr.relay.events.published",
		metric.WithDescription("Events published to the relay"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) SessionOpened(ctx context.Context) {
	m.Sessions.Add(ctx, 1)
	m.SessionsOpened.Add(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context) {
	m.Sessions.Add(context.WithoutCancel(ctx), -1)
}

func (m *Metrics) FrameSent(ctx context.Context) { m.FramesSent.Add(ctx, 1) }

func (m *Metrics) SendFailed(ctx context.Context) { m.SendFailures.Add(ctx, 1) }

func (m *Metrics) EventPublished(ctx context.Context, kind string) {
	m.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
