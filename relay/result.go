package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/panyam/rtproxy/message"
)

// ErrCancelled ends a leg stopped by the other leg or the caller.
var ErrCancelled = errors.New("relay leg cancelled")

// Leg is one direction of the relay.
type Leg int

const (
	// ClientToUpstream reads the downstream session and writes upstream.
	ClientToUpstream Leg = iota

	// UpstreamToClient reads the upstream session and writes downstream.
	UpstreamToClient
)

func (l Leg) String() string {
	switch l {
	case ClientToUpstream:
		return "client_to_upstream"
	case UpstreamToClient:
		return "upstream_to_client"
	}
	return fmt.Sprintf("leg(%d)", int(l))
}

// mapMessage translates a message read on this leg into the destination
// vocabulary.
func (l Leg) mapMessage(m message.Message) (message.Message, bool) {
	if l == ClientToUpstream {
		return message.ToUpstream(m), true
	}
	return message.ToDownstream(m)
}

// State is where a leg ended up. Every leg starts Running and ends in
// exactly one of the other states.
type State int

const (
	Running State = iota
	Closed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LegError records why a leg stopped.
type LegError struct {
	Leg Leg
	Op  string // "read" or "write"
	Err error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Leg, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *LegError) Unwrap() error {
	return e.Err
}

// LegResult summarises one leg of a finished relay.
type LegResult struct {
	State   State
	Err     error
	Frames  int64 // messages written to the destination
	Bytes   int64 // payload bytes written to the destination
	Dropped int64 // messages with no destination equivalent
}

// Result summarises a finished relay.
type Result struct {
	// First is the leg that stopped first and triggered cancellation.
	First Leg

	// Legs is indexed by Leg.
	Legs [2]LegResult

	// Duration is the wall time from start until both legs stopped.
	Duration time.Duration
}

// Err returns nil when the relay ended with an orderly close and the
// first leg's error when it failed.
func (r *Result) Err() error {
	first := r.Legs[r.First]
	if first.State == Failed {
		return first.Err
	}
	return nil
}
