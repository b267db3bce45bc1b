package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// WSHandler validates HTTP requests and serves the sessions they upgrade
// into. It typically performs authentication and authorization before
// allowing the upgrade.
type WSHandler interface {
	// Validate checks if the HTTP request should be upgraded to a WebSocket.
	// Return true to proceed with the upgrade.
	// Return false to reject (the handler should write the error response).
	Validate(w http.ResponseWriter, r *http.Request) bool

	// ServeSession runs for the lifetime of an upgraded session. The session
	// is closed by WSServe once ServeSession returns.
	ServeSession(ctx context.Context, session *WSSession) error
}

// WSConnConfig combines SessionConfig with upgrade settings.
type WSConnConfig struct {
	*SessionConfig

	// Upgrader handles the HTTP to WebSocket protocol upgrade.
	// Configure ReadBufferSize, WriteBufferSize, and CheckOrigin as needed.
	Upgrader websocket.Upgrader

	// Logger receives upgrade and session errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultWSConnConfig returns a WSConnConfig with sensible defaults:
//   - ReadBufferSize: 1024 bytes
//   - WriteBufferSize: 1024 bytes
//   - CheckOrigin: allows all origins (configure for production!)
//   - no read limit and no control write deadline
func DefaultWSConnConfig() *WSConnConfig {
	return &WSConnConfig{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		SessionConfig: DefaultSessionConfig(),
	}
}

// WSServe creates an http.HandlerFunc that upgrades HTTP requests to WebSocket
// sessions and hands them to handler. This is the primary entry point for
// creating WebSocket endpoints.
//
// Example:
//
//	router.HandleFunc("/ws", gohttp.WSServe(proxy, nil))
//
// The lifecycle is:
//  1. handler.Validate() is called to check the request
//  2. If valid, the connection is upgraded to WebSocket
//  3. handler.ServeSession() runs until the session ends
//  4. The session is closed
func WSServe(handler WSHandler, config *WSConnConfig) http.HandlerFunc {
	if config == nil {
		config = DefaultWSConnConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(rw http.ResponseWriter, req *http.Request) {
		if !handler.Validate(rw, req) {
			return
		}

		// Standard upgrade to WS .....
		conn, err := config.Upgrader.Upgrade(rw, req, nil)
		if err != nil {
			// Upgrade has already replied to the client.
			logger.Warn("websocket upgrade failed",
				slog.String("remote", req.RemoteAddr),
				slog.String("error", err.Error()))
			return
		}

		session := NewWSSession(conn, "client", config.SessionConfig)
		defer session.Close()

		logger.Debug("websocket connection upgraded",
			slog.Any("session", session.DebugInfo()))

		// Hijacked connections are not tracked by http.Server; the request
		// context only ends early if the server's BaseContext does.
		if err := handler.ServeSession(req.Context(), session); err != nil {
			logger.Debug("websocket session ended with error",
				slog.String("conn", session.ConnId()),
				slog.String("error", err.Error()))
		}
	}
}
