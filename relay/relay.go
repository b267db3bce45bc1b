package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gohttp "github.com/panyam/rtproxy/http"
	"github.com/panyam/rtproxy/message"
	"golang.org/x/sync/errgroup"
)

// Session is a live duplex message channel bound to one endpoint.
//
// The relay reads from a session on one goroutine and writes to it on
// another. Close must be idempotent and must unblock a pending read or
// write.
type Session interface {
	ReadMessage() (message.Message, error)
	WriteMessage(message.Message) error
	Close() error
}

// Observer is notified of every frame the relay forwards or drops. Calls
// come from both legs concurrently.
type Observer interface {
	FrameForwarded(leg Leg, kind message.Kind, n int)
	FrameDropped(leg Leg, kind message.Kind)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) FrameForwarded(Leg, message.Kind, int) {}
func (NopObserver) FrameDropped(Leg, message.Kind)        {}

// Relay forwards messages between a downstream and an upstream session
// until either side ends. A Relay has no per-run state and may be shared.
type Relay struct {
	logger   *slog.Logger
	observer Observer
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

// WithObserver sets the frame observer.
func WithObserver(o Observer) Option {
	return func(r *Relay) { r.observer = o }
}

// New creates a Relay.
func New(opts ...Option) *Relay {
	r := &Relay{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.observer == nil {
		r.observer = NopObserver{}
	}
	return r
}

// Run forwards downstream→upstream and upstream→downstream concurrently.
//
// Whichever leg stops first, for any reason, cancels the other: both
// sessions are closed so a read or write blocked on a silent peer returns.
// Run returns once both legs have stopped. Cancelling ctx stops both legs
// the same way.
func (r *Relay) Run(ctx context.Context, downstream, upstream Session) *Result {
	start := time.Now()
	res := &Result{}

	g, gctx := errgroup.WithContext(ctx)
	var closeOnce sync.Once
	stop := context.AfterFunc(gctx, func() {
		closeOnce.Do(func() {
			downstream.Close()
			upstream.Close()
		})
	})
	defer stop()

	var firstOnce sync.Once
	run := func(leg Leg, src, dst Session) {
		g.Go(func() error {
			lr := &res.Legs[leg]
			err := r.forward(gctx, leg, src, dst, lr)
			firstOnce.Do(func() { res.First = leg })
			return err
		})
	}
	run(ClientToUpstream, downstream, upstream)
	run(UpstreamToClient, upstream, downstream)
	g.Wait()

	res.Duration = time.Since(start)
	for leg := range res.Legs {
		if Leg(leg) != res.First && res.Legs[leg].State != Failed {
			res.Legs[leg].State = Cancelled
		}
	}
	return res
}

// forward runs one leg until its source ends, its destination fails or ctx
// is cancelled. A read blocked on a quiet peer returns once Run closes the
// sessions. It always returns a non-nil error so the group cancels the
// other leg.
func (r *Relay) forward(ctx context.Context, leg Leg, src, dst Session, lr *LegResult) error {
	for {
		if ctx.Err() != nil {
			lr.State = Cancelled
			lr.Err = ErrCancelled
			return lr.Err
		}

		msg, err := src.ReadMessage()
		if err != nil {
			lr.State = classify(ctx, err)
			lr.Err = &LegError{Leg: leg, Op: "read", Err: err}
			return lr.Err
		}

		out, ok := leg.mapMessage(msg)
		if !ok {
			lr.Dropped++
			r.observer.FrameDropped(leg, msg.Kind())
			r.logger.Debug("dropping frame with no downstream equivalent",
				slog.String("leg", leg.String()),
				slog.String("frame", msg.String()))
			continue
		}
		if err := dst.WriteMessage(out); err != nil {
			lr.State = Failed
			if ctx.Err() != nil {
				lr.State = Cancelled
			}
			lr.Err = &LegError{Leg: leg, Op: "write", Err: err}
			return lr.Err
		}
		lr.Frames++
		lr.Bytes += int64(out.Len())
		r.observer.FrameForwarded(leg, out.Kind(), out.Len())
	}
}

// classify decides how a read error ended a leg.
func classify(ctx context.Context, err error) State {
	if ctx.Err() != nil {
		return Cancelled
	}
	if gohttp.IsOrderlyClose(err) {
		return Closed
	}
	return Failed
}
