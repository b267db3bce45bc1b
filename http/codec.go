package http

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/panyam/rtproxy/message"
)

// MessageType represents the WebSocket frame type
type MessageType int

const (
	// TextMessage denotes a text data message (UTF-8 encoded)
	TextMessage MessageType = websocket.TextMessage // 1

	// BinaryMessage denotes a binary data message
	BinaryMessage MessageType = websocket.BinaryMessage // 2

	// CloseMessage denotes a close control message
	CloseMessage MessageType = websocket.CloseMessage // 8

	// PingMessage denotes a ping control message
	PingMessage MessageType = websocket.PingMessage // 9

	// PongMessage denotes a pong control message
	PongMessage MessageType = websocket.PongMessage // 10
)

// IsControl reports whether t is a control frame type.
func (t MessageType) IsControl() bool {
	return t == CloseMessage || t == PingMessage || t == PongMessage
}

// ErrUnsupportedFrame is returned when a message has no gorilla frame type.
var ErrUnsupportedFrame = errors.New("frame kind not supported by websocket connection")

// FrameCodec converts between gorilla's (message type, payload) pairs and
// message.Message values.
// Note: payloads are passed through as-is, never copied or re-encoded.
type FrameCodec struct{}

// Decode builds a Message from a frame read off a connection. Unknown types
// become raw frames so the mapping stays total.
func (FrameCodec) Decode(msgType MessageType, data []byte) message.Message {
	switch msgType {
	case TextMessage:
		return message.Text(string(data))
	case BinaryMessage:
		return message.Binary(data)
	case PingMessage:
		return message.Ping(data)
	case PongMessage:
		return message.Pong(data)
	case CloseMessage:
		return decodeClose(data)
	}
	return message.Frame(int(msgType), data)
}

// Encode returns the frame type and payload to write for msg.
func (FrameCodec) Encode(msg message.Message) (MessageType, []byte, error) {
	switch msg.Kind() {
	case message.KindText:
		return TextMessage, []byte(msg.Text()), nil
	case message.KindBinary:
		return BinaryMessage, msg.Data(), nil
	case message.KindPing:
		return PingMessage, msg.Data(), nil
	case message.KindPong:
		return PongMessage, msg.Data(), nil
	case message.KindClose:
		cf, ok := msg.CloseFrame()
		if !ok {
			return CloseMessage, []byte{}, nil
		}
		return CloseMessage, websocket.FormatCloseMessage(int(cf.Code), cf.Reason), nil
	}
	return 0, nil, fmt.Errorf("%w: %v", ErrUnsupportedFrame, msg)
}

// CloseFromCode builds the close message for a status code and reason as
// reported by gorilla's close handler. Status 1005 means the peer sent no
// body.
func CloseFromCode(code int, text string) message.Message {
	if code == websocket.CloseNoStatusReceived {
		return message.CloseEmpty()
	}
	return message.Close(uint16(code), text)
}

func decodeClose(data []byte) message.Message {
	if len(data) < 2 {
		return message.CloseEmpty()
	}
	code := uint16(data[0])<<8 | uint16(data[1])
	return message.Close(code, string(data[2:]))
}
