package message

import (
	"bytes"
	"fmt"
)

// Kind identifies which variant of the Message union a value holds.
type Kind uint8

const (
	// KindText is a UTF-8 text data message.
	KindText Kind = iota + 1

	// KindBinary is an opaque binary data message.
	KindBinary

	// KindPing is a ping control frame.
	KindPing

	// KindPong is a pong control frame.
	KindPong

	// KindClose is a close control frame, with or without a body.
	KindClose

	// KindFrame is a raw protocol frame (continuation or reserved opcode).
	// Only the upstream vocabulary has it.
	KindFrame
)

var kindNames = map[Kind]string{
	KindText:   "text",
	KindBinary: "binary",
	KindPing:   "ping",
	KindPong:   "pong",
	KindClose:  "close",
	KindFrame:  "frame",
}

// String returns a stable lowercase name, suitable as a metric label.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// CloseFrame is the optional body of a close message.
type CloseFrame struct {
	Code   uint16
	Reason string
}

// Message is one discrete unit of socket communication. The zero value is
// not a valid message; use one of the constructors.
//
// A Message takes ownership of any byte slice passed to its constructor and
// must not be modified after construction.
type Message struct {
	kind  Kind
	text  string
	data  []byte
	close *CloseFrame
	op    int
}

// Text creates a text message.
func Text(s string) Message {
	return Message{kind: KindText, text: s}
}

// Binary creates a binary message.
func Binary(b []byte) Message {
	return Message{kind: KindBinary, data: b}
}

// Ping creates a ping control message.
func Ping(b []byte) Message {
	return Message{kind: KindPing, data: b}
}

// Pong creates a pong control message.
func Pong(b []byte) Message {
	return Message{kind: KindPong, data: b}
}

// Close creates a close message carrying a status code and reason. An
// empty reason is kept as present-but-empty.
func Close(code uint16, reason string) Message {
	return Message{kind: KindClose, close: &CloseFrame{Code: code, Reason: reason}}
}

// CloseEmpty creates a close message without a body.
func CloseEmpty() Message {
	return Message{kind: KindClose}
}

// Frame creates a raw frame with the given opcode.
func Frame(op int, b []byte) Message {
	return Message{kind: KindFrame, op: op, data: b}
}

// Kind returns the variant tag.
func (m Message) Kind() Kind { return m.kind }

// Text returns the payload of a text message, or "" for other kinds.
func (m Message) Text() string { return m.text }

// Data returns the payload of binary, ping, pong and raw frames.
func (m Message) Data() []byte { return m.data }

// CloseFrame returns the body of a close message. ok is false for other
// kinds and for a close without a body.
func (m Message) CloseFrame() (cf CloseFrame, ok bool) {
	if m.close == nil {
		return CloseFrame{}, false
	}
	return *m.close, true
}

// Opcode returns the raw opcode of a KindFrame message.
func (m Message) Opcode() int { return m.op }

// Len is the payload size in bytes.
func (m Message) Len() int {
	switch m.kind {
	case KindText:
		return len(m.text)
	case KindClose:
		if m.close == nil {
			return 0
		}
		return 2 + len(m.close.Reason)
	default:
		return len(m.data)
	}
}

// Equal reports whether two messages hold the same variant and payload.
// A nil and an empty payload compare equal; an absent close body does not
// equal an empty one.
func (m Message) Equal(o Message) bool {
	if m.kind != o.kind {
		return false
	}
	switch m.kind {
	case KindText:
		return m.text == o.text
	case KindClose:
		if (m.close == nil) != (o.close == nil) {
			return false
		}
		return m.close == nil || *m.close == *o.close
	case KindFrame:
		return m.op == o.op && bytes.Equal(m.data, o.data)
	default:
		return bytes.Equal(m.data, o.data)
	}
}

// String describes the message without its content.
func (m Message) String() string {
	switch m.kind {
	case KindClose:
		if m.close == nil {
			return "close()"
		}
		return fmt.Sprintf("close(%d, %d bytes)", m.close.Code, len(m.close.Reason))
	case KindFrame:
		return fmt.Sprintf("frame(op=%d, %d bytes)", m.op, len(m.data))
	default:
		return fmt.Sprintf("%s(%d bytes)", m.kind, m.Len())
	}
}
