package message

// ToUpstream maps a message from the downstream vocabulary into the upstream
// one. Every downstream variant exists upstream, so the mapping is total and
// leaves payloads untouched.
func ToUpstream(m Message) Message {
	switch m.kind {
	case KindText:
		return Text(m.text)
	case KindBinary:
		return Binary(m.data)
	case KindPing:
		return Ping(m.data)
	case KindPong:
		return Pong(m.data)
	case KindClose:
		if m.close == nil {
			return CloseEmpty()
		}
		return Close(m.close.Code, m.close.Reason)
	}
	return m
}

// ToDownstream maps an upstream message into the downstream vocabulary.
// It returns false for raw frames, which the downstream side cannot
// represent; callers drop those.
func ToDownstream(m Message) (Message, bool) {
	switch m.kind {
	case KindText:
		return Text(m.text), true
	case KindBinary:
		return Binary(m.data), true
	case KindPing:
		return Ping(m.data), true
	case KindPong:
		return Pong(m.data), true
	case KindClose:
		if m.close == nil {
			return CloseEmpty(), true
		}
		return Close(m.close.Code, m.close.Reason), true
	}
	return Message{}, false
}
