// Package ws implements the WebSocket endpoint subscribers connect to.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/toastx/shredr-fun/internal/domain/event"
	"github.com/toastx/shredr-fun/internal/logger"
	"github.com/toastx/shredr-fun/internal/relay"
)

// AcceptorOptions configures an Acceptor.
type AcceptorOptions struct {
	// OriginPatterns lists allowed Origin hosts. Empty accepts any origin.
	OriginPatterns []string
	ReadLimit      int64
	WriteTimeout   time.Duration
	SendOnConnect  bool
	Metrics        relay.Metrics
	Logger         *slog.Logger
}

// Acceptor upgrades HTTP requests to WebSocket and runs one relay.Session
// per connection. Sessions outlive their request context and end on
// Shutdown.
type Acceptor struct {
	latest *relay.Latest[event.Event]
	reg    *relay.Registry
	opts   AcceptorOptions
	log    *slog.Logger

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool
	sessions sync.WaitGroup
}

// NewAcceptor creates an acceptor that subscribes every connection to latest.
func NewAcceptor(latest *relay.Latest[event.Event], reg *relay.Registry, opts AcceptorOptions) *Acceptor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = relay.NopMetrics{}
	}
	base, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		latest: latest,
		reg:    reg,
		opts:   opts,
		log:    opts.Logger,
		base:   base,
		cancel: cancel,
	}
}

// HandleWS upgrades the request and blocks until the session ends.
func (a *Acceptor) HandleWS(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	a.sessions.Add(1)
	a.mu.Unlock()
	defer a.sessions.Done()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     a.opts.OriginPatterns,
		InsecureSkipVerify: len(a.opts.OriginPatterns) == 0,
	})
	if err != nil {
		a.log.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if a.opts.ReadLimit > 0 {
		c.SetReadLimit(a.opts.ReadLimit)
	}

	ctx := a.base
	if id := logger.RequestID(r.Context()); id != "" {
		ctx = logger.WithRequestID(ctx, id)
	}

	sess := relay.NewSession(NewConn(c, r.RemoteAddr), a.latest.Subscribe(), a.reg,
		relay.WithLogger(a.log),
		relay.WithMetrics(a.opts.Metrics),
		relay.WithWriteTimeout(a.opts.WriteTimeout),
		relay.WithSendOnConnect(a.opts.SendOnConnect),
	)
	if err := sess.Run(ctx); err != nil {
		a.log.InfoContext(ctx, "websocket session ended with error", "remote", r.RemoteAddr, "error", err)
	}
}

// ConnectionCount returns the number of active sessions.
func (a *Acceptor) ConnectionCount() int {
	return a.reg.Count()
}

// Shutdown refuses new connections, closes the broadcast channel so every
// session ends, and waits for them. When ctx expires first the remaining
// sessions are cancelled.
func (a *Acceptor) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closing = true
	a.mu.Unlock()

	a.latest.Close()

	done := make(chan struct{})
	go func() {
		a.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.cancel()
		return nil
	case <-ctx.Done():
		a.cancel()
		<-done
		return fmt.Errorf("websocket shutdown: %w", ctx.Err())
	}
}
