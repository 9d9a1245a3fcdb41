package relay

import "context"

// Metrics receives relay instrumentation callbacks. Implementations must be
// safe for concurrent use.
type Metrics interface {
	SessionOpened(ctx context.Context)
	SessionClosed(ctx context.Context)
	FrameSent(ctx context.Context)
	SendFailed(ctx context.Context)
	EventPublished(ctx context.Context, kind string)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) SessionOpened(context.Context)          {}
func (NopMetrics) SessionClosed(context.Context)          {}
func (NopMetrics) FrameSent(context.Context)              {}
func (NopMetrics) SendFailed(context.Context)             {}
func (NopMetrics) EventPublished(context.Context, string) {}
