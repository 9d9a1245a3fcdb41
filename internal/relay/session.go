package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"golang.org/x/sync/errgroup"

	"github.com/toastx/shredr-fun/internal/domain/event"
)

// ErrPeerClosed is returned by Conn.Read when the peer sent a close frame.
var ErrPeerClosed = errors.New("relay: peer closed connection")

// errLoopDone ends the errgroup when a loop finishes normally, so the
// sibling loop is cancelled.
var errLoopDone = errors.New("relay: loop done")

// FrameKind is the type of an inbound frame.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

// Conn is one live subscriber connection. Read and Write are called from
// different goroutines; Close may be called concurrently with both.
type Conn interface {
	Read(ctx context.Context) (FrameKind, []byte, error)
	Write(ctx context.Context, data []byte) error
	Close(reason string) error
	RemoteAddr() string
}

// ClientMessage is the envelope reserved for client-to-server commands.
// No command is defined yet; frames are decoded only to be logged.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Session states.
const (
	StateConnecting = "connecting"
	StateActive     = "active"
	StateClosing    = "closing"
	StateClosed     = "closed"
)

const (
	eventActivate = "activate"
	eventShutdown = "shutdown"
	eventFinish   = "finish"
)

// Session relays values from one Observer to one Conn and drains inbound
// frames from it. Both directions stop together.
type Session struct {
	conn    Conn
	obs     *Observer[event.Event]
	reg     *Registry
	log     *slog.Logger
	metrics Metrics

	writeTimeout  time.Duration
	sendOnConnect bool

	machine      *fsm.FSM
	closingOnce  sync.Once
	teardownOnce sync.Once
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithWriteTimeout bounds each outbound write. Zero means no bound.
func WithWriteTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.writeTimeout = d }
}

// WithSendOnConnect pushes the observer's current value as soon as the
// session is active.
func WithSendOnConnect(on bool) SessionOption {
	return func(s *Session) { s.sendOnConnect = on }
}

// NewSession prepares a session; nothing happens until Run.
func NewSession(conn Conn, obs *Observer[event.Event], reg *Registry, opts ...SessionOption) *Session {
	s := &Session{
		conn:    conn,
		obs:     obs,
		reg:     reg,
		log:     slog.Default(),
		metrics: NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("remote", conn.RemoteAddr())
	s.machine = fsm.NewFSM(
		StateConnecting,
		fsm.Events{
			{Name: eventActivate, Src: []string{StateConnecting}, Dst: StateActive},
			{Name: eventShutdown, Src: []string{StateActive}, Dst: StateClosing},
			{Name: eventFinish, Src: []string{StateClosing}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.log.Debug("session state", "from", e.Src, "to", e.Dst)
			},
		},
	)
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() string {
	return s.machine.Current()
}

// Run activates the session and blocks until both loops have stopped and
// teardown is done. Peer close, channel close and ctx cancellation are
// normal endings and return nil; other errors are returned for logging.
func (s *Session) Run(ctx context.Context) error {
	if err := s.machine.Event(context.WithoutCancel(ctx), eventActivate); err != nil {
		return fmt.Errorf("activate session: %w", err)
	}
	count := s.reg.Increment()
	s.metrics.SessionOpened(ctx)
	s.log.Info("websocket client connected", "clients", count)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loopEnded("outbound", s.outbound(gctx)) })
	g.Go(func() error { return s.loopEnded("inbound", s.inbound(gctx)) })
	err := g.Wait()

	s.teardown(ctx)

	if errors.Is(err, errLoopDone) {
		return nil
	}
	return err
}

// loopEnded moves the session to closing on the first loop exit and
// converts the loop result into an error that stops the group.
func (s *Session) loopEnded(loop string, err error) error {
	s.closingOnce.Do(func() {
		s.log.Debug("session loop ended", "loop", loop, "error", err)
		if terr := s.machine.Event(context.Background(), eventShutdown); terr != nil {
			s.log.Warn("session transition failed", "event", eventShutdown, "error", terr)
		}
	})
	if err == nil || isNormalEnd(err) {
		return errLoopDone
	}
	return err
}

func isNormalEnd(err error) bool {
	return errors.Is(err, ErrClosed) ||
		errors.Is(err, ErrPeerClosed) ||
		errors.Is(err, context.Canceled)
}

func (s *Session) teardown(ctx context.Context) {
	s.teardownOnce.Do(func() {
		if err := s.conn.Close("session closed"); err != nil {
			s.log.Debug("close connection", "error", err)
		}
		count := s.reg.Decrement()
		s.metrics.SessionClosed(ctx)
		if err := s.machine.Event(context.Background(), eventFinish); err != nil {
			s.log.Warn("session transition failed", "event", eventFinish, "error", err)
		}
		s.log.Info("websocket client disconnected", "clients", count)
	})
}

func (s *Session) outbound(ctx context.Context) error {
	if s.sendOnConnect {
		if cur := s.obs.Current(); !cur.IsZero() {
			if err := s.send(ctx, cur); err != nil {
				return err
			}
		}
	}
	for {
		ev, err := s.obs.Wait(ctx)
		if err != nil {
			return err
		}
		if err := s.send(ctx, ev); err != nil {
			return err
		}
	}
}

func (s *Session) send(ctx context.Context, ev event.Event) error {
	frame, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("marshal relay frame", "kind", ev.Kind(), "error", err)
		return nil
	}

	wctx := ctx
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	if err := s.conn.Write(wctx, frame); err != nil {
		s.metrics.SendFailed(ctx)
		return fmt.Errorf("write frame: %w", err)
	}
	s.metrics.FrameSent(ctx)
	return nil
}

func (s *Session) inbound(ctx context.Context) error {
	for {
		kind, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}
		if kind != FrameText {
			s.log.Debug("ignoring binary frame", "bytes", len(data))
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("malformed client frame", "bytes", len(data), "error", err)
			continue
		}
		s.log.Debug("client message", "type", msg.Type, "bytes", len(data))
	}
}
