package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/toastx/shredr-fun/internal/domain"
	"github.com/toastx/shredr-fun/internal/domain/blob"
	"github.com/toastx/shredr-fun/internal/domain/event"
	"github.com/toastx/shredr-fun/internal/domain/webhook"
	"github.com/toastx/shredr-fun/internal/port/messagequeue"
)

// mockStore implements database.Store in memory.
type mockStore struct {
	mu    sync.Mutex
	blobs map[string]blob.NonceBlob
	gets  int
}

func newMockStore() *mockStore { return &mockStore{blobs: make(map[string]blob.NonceBlob)} }

func (m *mockStore) CreateBlob(_ context.Context, b *blob.NonceBlob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[b.ID]; ok {
		return domain.ErrConflict
	}
	m.blobs[b.ID] = *b
	return nil
}

func (m *mockStore) GetBlob(_ context.Context, id string) (*blob.NonceBlob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	b, ok := m.blobs[id]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", id, domain.ErrNotFound)
	}
	return &b, nil
}

func (m *mockStore) ListBlobs(_ context.Context, q blob.ListQuery) ([]blob.NonceBlob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]blob.NonceBlob, 0, len(m.blobs))
	for _, b := range m.blobs {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b blob.NonceBlob) int { return int(b.CreatedAt - a.CreatedAt) })
	if q.Offset >= len(out) {
		return []blob.NonceBlob{}, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *mockStore) DeleteBlob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		return fmt.Errorf("blob %s: %w", id, domain.ErrNotFound)
	}
	delete(m.blobs, id)
	return nil
}

func (m *mockStore) Ping(context.Context) error { return nil }

func (m *mockStore) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// memCache implements cache.Cache in memory.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

var errCacheDown = errors.New("cache down")

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, false, errCacheDown
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	delete(c.data, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// mockBroadcaster records published events.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *mockBroadcaster) PublishTransaction(ctx context.Context, data json.RawMessage) error {
	ev, err := event.NewTransaction(data, time.Now())
	if err != nil {
		return err
	}
	b.Publish(ctx, ev)
	return nil
}

func (b *mockBroadcaster) PublishStatus(ctx context.Context, n int) {
	b.Publish(ctx, event.NewStatus(n, time.Now()))
}

func (b *mockBroadcaster) Publish(_ context.Context, ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *mockBroadcaster) published() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.events)
}

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

// mockQueue implements messagequeue.Queue by delivering synchronously to
// subscribers of the same subject.
type mockQueue struct {
	mu         sync.Mutex
	handlers   map[string][]messagequeue.Handler
	published  [][]byte
	publishErr error
}

func newMockQueue() *mockQueue {
	return &mockQueue{handlers: make(map[string][]messagequeue.Handler)}
}

func (q *mockQueue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	if q.publishErr != nil {
		q.mu.Unlock()
		return q.publishErr
	}
	q.published = append(q.published, data)
	hs := slices.Clone(q.handlers[subject])
	q.mu.Unlock()
	for _, h := range hs {
		_ = h(ctx, subject, data)
	}
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = append(q.handlers[subject], h)
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

// mockAPI implements webhookapi.API in memory.
type mockAPI struct {
	hooks   map[string]*webhook.Webhook
	created []*webhook.Webhook
	err     error
}

func newMockAPI(existing ...*webhook.Webhook) *mockAPI {
	m := &mockAPI{hooks: make(map[string]*webhook.Webhook)}
	for _, w := range existing {
		m.hooks[w.WebhookID] = w
	}
	return m
}

func (m *mockAPI) CreateWebhook(_ context.Context, w *webhook.Webhook) (*webhook.Webhook, error) {
	if m.err != nil {
		return nil, m.err
	}
	c := *w
	c.WebhookID = fmt.Sprintf("wh-%d", len(m.created)+1)
	m.created = append(m.created, &c)
	m.hooks[c.WebhookID] = &c
	return &c, nil
}

func (m *mockAPI) GetWebhook(_ context.Context, id string) (*webhook.Webhook, error) {
	if m.err != nil {
		return nil, m.err
	}
	w, ok := m.hooks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *w
	c.AccountAddresses = slices.Clone(w.AccountAddresses)
	return &c, nil
}

func (m *mockAPI) EditWebhook(_ context.Context, w *webhook.Webhook) (*webhook.Webhook, error) {
	if m.err != nil {
		return nil, m.err
	}
	c := *w
	m.hooks[w.WebhookID] = &c
	return &c, nil
}
