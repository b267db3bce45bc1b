package http

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"
	gut "github.com/panyam/goutils/utils"
	"github.com/panyam/rtproxy/message"
)

// WSSession is a duplex message session over one gorilla WebSocket
// connection. It exposes every frame category, control frames included, as
// a message.Message so a relay can forward them verbatim.
//
// Gorilla answers pings and close frames on its own by default, and only
// returns from a read once a data frame arrives. WSSession instead runs a
// read pump that owns the connection's read side: data frames and the ping,
// pong and close frames seen by its handlers all go into one inbox in the
// order they arrived, and nothing is written back to the peer
// automatically. A ping on an otherwise idle connection is therefore
// delivered as soon as it is read.
//
// Concurrency: one goroutine may read and one goroutine may write at a time.
// Close may be called from any goroutine and unblocks both.
type WSSession struct {
	// NameStr is an optional human-readable name for this session, e.g.
	// "client" or "upstream".
	NameStr string

	// ConnIdStr is a unique identifier for this session.
	// Auto-generated if not set.
	ConnIdStr string

	conn   *websocket.Conn
	config *SessionConfig
	codec  FrameCodec

	// inbox is fed by the pump and closed after readErr is set.
	inbox   chan message.Message
	readErr error

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// NewWSSession wraps an established connection and starts reading from it.
// A nil config uses DefaultSessionConfig.
func NewWSSession(conn *websocket.Conn, name string, config *SessionConfig) *WSSession {
	if config == nil {
		config = DefaultSessionConfig()
	}
	s := &WSSession{
		NameStr:   name,
		ConnIdStr: gut.RandString(10, ""),
		conn:      conn,
		config:    config,
		inbox:     make(chan message.Message),
		closed:    make(chan struct{}),
	}
	if config.ReadLimit > 0 {
		conn.SetReadLimit(config.ReadLimit)
	}
	conn.SetPingHandler(func(data string) error {
		return s.deliver(message.Ping([]byte(data)))
	})
	conn.SetPongHandler(func(data string) error {
		return s.deliver(message.Pong([]byte(data)))
	})
	conn.SetCloseHandler(func(code int, text string) error {
		return s.deliver(CloseFromCode(code, text))
	})
	go s.pump()
	return s
}

// Name returns the session name.
func (s *WSSession) Name() string {
	if s.NameStr == "" {
		return "WSSession"
	}
	return s.NameStr
}

// ConnId returns the session ID.
func (s *WSSession) ConnId() string { return s.ConnIdStr }

// DebugInfo returns debug information about the session.
func (s *WSSession) DebugInfo() any {
	return gut.StrMap{
		"name":   s.Name(),
		"connId": s.ConnIdStr,
		"remote": s.conn.RemoteAddr().String(),
		"local":  s.conn.LocalAddr().String(),
	}
}

// pump reads frames until the connection fails or the session is closed.
// Control frames reach the inbox through the handlers, which gorilla calls
// from inside ReadMessage on this goroutine.
func (s *WSSession) pump() {
	defer close(s.inbox)
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.readErr = s.normalizeErr(err)
			return
		}
		if err := s.deliver(s.codec.Decode(MessageType(msgType), data)); err != nil {
			s.readErr = err
			return
		}
	}
}

func (s *WSSession) deliver(msg message.Message) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-s.closed:
		return net.ErrClosed
	}
}

// ReadMessage returns the next message from the peer, control frames
// included, in the order they were received. Once the connection has failed
// or a close frame was returned, every further call returns the same
// terminal error.
func (s *WSSession) ReadMessage() (message.Message, error) {
	msg, ok := <-s.inbox
	if !ok {
		return message.Message{}, s.readErr
	}
	return msg, nil
}

// WriteMessage sends msg to the peer. Control frames go out through
// WriteControl, data frames through WriteMessage.
func (s *WSSession) WriteMessage(msg message.Message) error {
	msgType, data, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	if msgType.IsControl() {
		err = s.conn.WriteControl(int(msgType), data, s.config.controlDeadline())
	} else {
		err = s.conn.WriteMessage(int(msgType), data)
	}
	return s.normalizeErr(err)
}

// Close closes the underlying socket without sending a close frame. It is
// safe to call more than once.
func (s *WSSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// normalizeErr reports errors caused by our own Close as net.ErrClosed so
// callers can tell cancellation apart from peer failures.
func (s *WSSession) normalizeErr(err error) error {
	if err == nil {
		return nil
	}
	select {
	case <-s.closed:
		if !errors.Is(err, net.ErrClosed) {
			return errors.Join(net.ErrClosed, err)
		}
	default:
	}
	return err
}

// IsOrderlyClose reports whether err marks a normal end of stream: a close
// frame from the peer, EOF or a locally closed connection. A connection
// dropped without a close frame (1006) is not orderly.
func IsOrderlyClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code != websocket.CloseAbnormalClosure
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent)
}
