package upstream

import "fmt"

// ConnectError reports a failed upstream handshake or dial.
type ConnectError struct {
	URL        string // Target that was dialed
	StatusCode int    // HTTP status of a rejected handshake, 0 if the server never answered
	Err        error  // Underlying transport or handshake error
}

// Error implements the error interface. The credential is never part of
// the message.
func (e *ConnectError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream connect %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream connect %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

