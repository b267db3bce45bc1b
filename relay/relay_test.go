package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/panyam/rtproxy/message"
)

// ============================================================================
// Fake session
// ============================================================================

// fakeSession is a channel backed Session. Messages pushed to in are
// returned by ReadMessage; closing in ends the stream with io.EOF.
type fakeSession struct {
	in         chan message.Message
	readErr    error
	writeErr   error
	writeBlock chan struct{}

	mu      sync.Mutex
	written []message.Message

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		in:     make(chan message.Message, 1024),
		closed: make(chan struct{}),
	}
}

func (f *fakeSession) ReadMessage() (message.Message, error) {
	if f.readErr != nil {
		return message.Message{}, f.readErr
	}
	select {
	case m, ok := <-f.in:
		if !ok {
			return message.Message{}, io.EOF
		}
		return m, nil
	case <-f.closed:
		return message.Message{}, net.ErrClosed
	}
}

func (f *fakeSession) WriteMessage(m message.Message) error {
	if f.writeBlock != nil {
		select {
		case <-f.writeBlock:
		case <-f.closed:
			return net.ErrClosed
		}
	}
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, m)
	return nil
}

func (f *fakeSession) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSession) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeSession) Written() []message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message.Message(nil), f.written...)
}

func (f *fakeSession) waitWritten(t *testing.T, n int) []message.Message {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if w := f.Written(); len(w) >= n {
			return w
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", n, len(f.Written()))
	return nil
}

type countingObserver struct {
	mu        sync.Mutex
	forwarded map[Leg]int
	dropped   map[Leg]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{forwarded: map[Leg]int{}, dropped: map[Leg]int{}}
}

func (o *countingObserver) FrameForwarded(leg Leg, kind message.Kind, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.forwarded[leg]++
}

func (o *countingObserver) FrameDropped(leg Leg, kind message.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped[leg]++
}

func quietRelay(opts ...Option) *Relay {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

// runAsync runs the relay and returns a channel receiving its result.
func runAsync(ctx context.Context, r *Relay, down, up Session) <-chan *Result {
	done := make(chan *Result, 1)
	go func() { done <- r.Run(ctx, down, up) }()
	return done
}

func awaitResult(t *testing.T, done <-chan *Result) *Result {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop")
		return nil
	}
}

// ============================================================================
// Tests
// ============================================================================

func TestRun_PreservesClientOrder(t *testing.T) {
	down, up := newFakeSession(), newFakeSession()
	const n = 200
	for i := 0; i < n; i++ {
		down.in <- message.Text(fmt.Sprintf("msg-%d", i))
	}
	close(down.in)

	res := awaitResult(t, runAsync(context.Background(), quietRelay(), down, up))

	got := up.Written()
	if len(got) != n {
		t.Fatalf("upstream received %d messages, want %d", len(got), n)
	}
	for i, m := range got {
		if want := message.Text(fmt.Sprintf("msg-%d", i)); !m.Equal(want) {
			t.Fatalf("message %d = %v, want %v", i, m, want)
		}
	}
	if res.First != ClientToUpstream || res.Legs[ClientToUpstream].State != Closed {
		t.Errorf("first = %v state = %v, want client leg closed", res.First, res.Legs[ClientToUpstream].State)
	}
	if res.Legs[ClientToUpstream].Frames != n {
		t.Errorf("Frames = %d, want %d", res.Legs[ClientToUpstream].Frames, n)
	}
	if err := res.Err(); err != nil {
		t.Errorf("Err() = %v, want nil for orderly close", err)
	}
}

func TestRun_UpstreamDisconnectCancelsClientLeg(t *testing.T) {
	down, up := newFakeSession(), newFakeSession()
	done := runAsync(context.Background(), quietRelay(), down, up)

	// The client never sends anything; its leg is parked in a read.
	close(up.in)

	start := time.Now()
	res := awaitResult(t, done)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
	if res.First != UpstreamToClient {
		t.Errorf("First = %v, want upstream_to_client", res.First)
	}
	if got := res.Legs[ClientToUpstream].State; got != Cancelled {
		t.Errorf("client leg state = %v, want cancelled", got)
	}
	if !down.isClosed() || !up.isClosed() {
		t.Errorf("sessions not closed: down=%v up=%v", down.isClosed(), up.isClosed())
	}
}

func TestRun_ReadFailure(t *testing.T) {
	boom := errors.New("connection reset")
	down, up := newFakeSession(), newFakeSession()
	up.readErr = boom

	res := awaitResult(t, runAsync(context.Background(), quietRelay(), down, up))

	if res.First != UpstreamToClient || res.Legs[UpstreamToClient].State != Failed {
		t.Fatalf("first = %v state = %v, want upstream leg failed", res.First, res.Legs[UpstreamToClient].State)
	}
	err := res.Err()
	var lerr *LegError
	if !errors.As(err, &lerr) || lerr.Op != "read" || !errors.Is(err, boom) {
		t.Errorf("Err() = %v, want read LegError wrapping %v", err, boom)
	}
	if !down.isClosed() {
		t.Error("downstream not closed")
	}
}

func TestRun_SourceClosedEndsRelay(t *testing.T) {
	down, up := newFakeSession(), newFakeSession()
	up.readErr = net.ErrClosed

	res := awaitResult(t, runAsync(context.Background(), quietRelay(), down, up))

	if res.First != UpstreamToClient || res.Legs[UpstreamToClient].State != Closed {
		t.Fatalf("first = %v state = %v, want upstream leg closed", res.First, res.Legs[UpstreamToClient].State)
	}
	if got := res.Legs[ClientToUpstream].State; got != Cancelled {
		t.Errorf("client leg state = %v, want cancelled", got)
	}
	if !down.isClosed() {
		t.Error("downstream not closed")
	}
	if err := res.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestRun_WriteFailureStopsLeg(t *testing.T) {
	boom := errors.New("broken pipe")
	down, up := newFakeSession(), newFakeSession()
	up.writeErr = boom
	down.in <- message.Text("hello")

	res := awaitResult(t, runAsync(context.Background(), quietRelay(), down, up))

	lr := res.Legs[ClientToUpstream]
	if res.First != ClientToUpstream || lr.State != Failed {
		t.Fatalf("first = %v state = %v, want client leg failed", res.First, lr.State)
	}
	var lerr *LegError
	if !errors.As(lr.Err, &lerr) || lerr.Op != "write" || !errors.Is(lr.Err, boom) {
		t.Errorf("leg error = %v, want write LegError", lr.Err)
	}
	if res.Legs[UpstreamToClient].State != Cancelled {
		t.Errorf("upstream leg state = %v, want cancelled", res.Legs[UpstreamToClient].State)
	}
}

func TestRun_DropsUnmappableFrames(t *testing.T) {
	down, up := newFakeSession(), newFakeSession()
	up.in <- message.Text("a")
	up.in <- message.Frame(0, []byte("continuation"))
	up.in <- message.Binary([]byte("b"))
	close(up.in)

	obs := newCountingObserver()
	res := awaitResult(t, runAsync(context.Background(), quietRelay(WithObserver(obs)), down, up))

	got := down.Written()
	want := []message.Message{message.Text("a"), message.Binary([]byte("b"))}
	if len(got) != len(want) {
		t.Fatalf("downstream received %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("message %d = %v, want %v", i, got[i], want[i])
		}
	}
	if res.Legs[UpstreamToClient].Dropped != 1 || res.Legs[UpstreamToClient].State != Closed {
		t.Errorf("leg result = %+v, want 1 dropped and closed", res.Legs[UpstreamToClient])
	}
	if obs.dropped[UpstreamToClient] != 1 || obs.forwarded[UpstreamToClient] != 2 {
		t.Errorf("observer forwarded=%v dropped=%v", obs.forwarded, obs.dropped)
	}
}

func TestRun_CloseFrameVerbatim(t *testing.T) {
	down, up := newFakeSession(), newFakeSession()
	down.in <- message.Close(1000, "bye")
	close(down.in)

	awaitResult(t, runAsync(context.Background(), quietRelay(), down, up))

	got := up.Written()
	if len(got) != 1 || !got[0].Equal(message.Close(1000, "bye")) {
		t.Errorf("upstream received %v, want close(1000, bye)", got)
	}
}

func TestRun_BidirectionalOrder(t *testing.T) {
	down, up := newFakeSession(), newFakeSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, quietRelay(), down, up)

	const n = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			down.in <- message.Text(fmt.Sprintf("c%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			up.in <- message.Binary([]byte(fmt.Sprintf("u%d", i)))
		}
	}()
	wg.Wait()

	toUp := up.waitWritten(t, n)
	toDown := down.waitWritten(t, n)
	cancel()
	res := awaitResult(t, done)

	for i := 0; i < n; i++ {
		if want := message.Text(fmt.Sprintf("c%d", i)); !toUp[i].Equal(want) {
			t.Fatalf("upstream message %d = %v, want %v", i, toUp[i], want)
		}
		if want := message.Binary([]byte(fmt.Sprintf("u%d", i))); !toDown[i].Equal(want) {
			t.Fatalf("downstream message %d = %v, want %v", i, toDown[i], want)
		}
	}
	for leg, lr := range res.Legs {
		if lr.State != Cancelled {
			t.Errorf("leg %v state = %v, want cancelled", Leg(leg), lr.State)
		}
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v", res.Err())
	}
}

func TestRun_BlockedWriteIsCancelled(t *testing.T) {
	down, up := newFakeSession(), newFakeSession()
	up.writeBlock = make(chan struct{}) // upstream never drains
	down.in <- message.Text("stuck")

	done := runAsync(context.Background(), quietRelay(), down, up)
	time.Sleep(20 * time.Millisecond)
	close(up.in)

	res := awaitResult(t, done)
	if res.First != UpstreamToClient {
		t.Errorf("First = %v, want upstream_to_client", res.First)
	}
	if got := res.Legs[ClientToUpstream].State; got != Cancelled {
		t.Errorf("client leg state = %v, want cancelled", got)
	}
}

func TestRun_ParentContextCancel(t *testing.T) {
	down, up := newFakeSession(), newFakeSession()
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, quietRelay(), down, up)

	cancel()
	res := awaitResult(t, done)
	if !down.isClosed() || !up.isClosed() {
		t.Error("sessions not closed after cancel")
	}
	if res.Legs[res.First].State != Cancelled {
		t.Errorf("first leg state = %v, want cancelled", res.Legs[res.First].State)
	}
}

func TestLegAndStateNames(t *testing.T) {
	if ClientToUpstream.String() != "client_to_upstream" || UpstreamToClient.String() != "upstream_to_client" {
		t.Errorf("unexpected leg names")
	}
	for s, want := range map[State]string{Running: "running", Closed: "closed", Failed: "failed", Cancelled: "cancelled"} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
