package http

import "time"

// SessionConfig controls how a WSSession drives its underlying connection.
// The relay itself has no timeouts; these only bound what gorilla needs
// bounded.
type SessionConfig struct {
	// ReadLimit is the maximum size in bytes of a message read from the
	// peer. Zero means no limit.
	ReadLimit int64

	// ControlWriteWait bounds how long writing a ping, pong or close frame
	// may take. Zero means no deadline.
	ControlWriteWait time.Duration
}

// DefaultSessionConfig returns a SessionConfig with no read limit and no
// control write deadline, so sessions only end on peer close, error or
// cancellation.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{}
}

// controlDeadline returns the deadline for a control write. The zero time
// tells gorilla not to set one.
func (c *SessionConfig) controlDeadline() time.Time {
	if c == nil || c.ControlWriteWait <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.ControlWriteWait)
}
