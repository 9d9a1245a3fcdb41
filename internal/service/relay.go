package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"

	cfotel "github.com/toastx/shredr-fun/internal/adapter/otel"
	"github.com/toastx/shredr-fun/internal/domain/event"
	"github.com/toastx/shredr-fun/internal/port/broadcast"
	"github.com/toastx/shredr-fun/internal/port/messagequeue"
)

// SubscriberCounter reports the number of live subscribers.
type SubscriberCounter interface {
	Count() int
}

// RelayService feeds upstream notifications into the relay. With a queue
// configured, transactions travel through the queue so every replica's
// subscribers receive them; otherwise they are published locally.
type RelayService struct {
	local   broadcast.Broadcaster
	counter SubscriberCounter
	queue   messagequeue.Queue
	subject string
	now     func() time.Time
}

// NewRelayService creates a RelayService publishing locally.
func NewRelayService(local broadcast.Broadcaster, counter SubscriberCounter) *RelayService {
	return &RelayService{
		local:   local,
		counter: counter,
		subject: messagequeue.SubjectRelayEvents,
		now:     time.Now,
	}
}

// SetQueue routes transactions through q on subject.
func (s *RelayService) SetQueue(q messagequeue.Queue, subject string) {
	s.queue = q
	if subject != "" {
		s.subject = subject
	}
}

// Notify accepts one webhook delivery. It fails only when the payload is
// not JSON; delivery to subscribers is never reported.
func (s *RelayService) Notify(ctx context.Context, data json.RawMessage) error {
	ctx, span := cfotel.StartWebhookSpan(ctx, len(data))
	defer span.End()

	ev, err := event.NewTransaction(data, s.now())
	if err != nil {
		span.SetStatus(codes.Error, "invalid payload")
		return err
	}

	if s.queue == nil {
		s.local.Publish(ctx, ev)
		return nil
	}

	frame, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := s.queue.Publish(ctx, s.subject, frame); err != nil {
		// Local subscribers still get it.
		slog.WarnContext(ctx, "relay queue publish failed, publishing locally", "subject", s.subject, "error", err)
		span.RecordError(err)
		s.local.Publish(ctx, ev)
	}
	return nil
}

// BroadcastStatus publishes this replica's subscriber count to its own
// subscribers and returns the count.
func (s *RelayService) BroadcastStatus(ctx context.Context) int {
	n := s.counter.Count()
	s.local.PublishStatus(ctx, n)
	return n
}

// ClientsCount returns the number of live subscribers on this replica.
func (s *RelayService) ClientsCount() int {
	return s.counter.Count()
}

// StartBridge subscribes to the relay subject and republishes every event
// into the local relay. It is a no-op without a queue.
func (s *RelayService) StartBridge(ctx context.Context) (cancel func(), err error) {
	if s.queue == nil {
		return func() {}, nil
	}
	cancel, err = s.queue.Subscribe(ctx, s.subject, s.handleBridged)
	if err != nil {
		return nil, fmt.Errorf("relay bridge subscribe %s: %w", s.subject, err)
	}
	slog.Info("relay bridge started", "subject", s.subject)
	return cancel, nil
}

func (s *RelayService) handleBridged(ctx context.Context, subject string, data []byte) error {
	ctx, span := cfotel.StartBridgeSpan(ctx, subject)
	defer span.End()

	ev, err := event.Decode(data)
	if err != nil {
		span.SetStatus(codes.Error, "undecodable event")
		return fmt.Errorf("decode bridged event: %w", err)
	}
	s.local.Publish(ctx, ev)
	return nil
}
