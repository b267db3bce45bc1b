package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	gohttp "github.com/panyam/rtproxy/http"
)

const (
	// DefaultURL is the realtime endpoint sessions are opened against.
	DefaultURL = "wss://api.openai.com/v1/realtime"

	// DefaultModel is sent as the model query parameter.
	DefaultModel = "gpt-4o-realtime-preview-2024-10-01"

	// BetaHeader opts the session into the realtime API.
	BetaHeader      = "OpenAI-Beta"
	BetaHeaderValue = "realtime=v1"

	// DefaultUserAgent identifies the proxy to the upstream service.
	DefaultUserAgent = "go-realtime-proxy"
)

// ErrEmptyCredential is returned by Connect when no bearer token was given.
var ErrEmptyCredential = errors.New("empty credential")

// Config describes the upstream endpoint and handshake.
type Config struct {
	// URL of the realtime endpoint. http(s) URLs are accepted and converted
	// to ws(s).
	URL string

	// Model is sent as the "model" query parameter. Empty leaves the
	// query untouched.
	Model string

	// UserAgent is sent verbatim as the User-Agent header.
	UserAgent string

	// BetaValue is the value of the OpenAI-Beta header. Empty omits it.
	BetaValue string

	// HandshakeTimeout bounds the upgrade handshake. Zero means no timeout
	// beyond the caller's context.
	HandshakeTimeout time.Duration

	// Session configures the returned session.
	Session *gohttp.SessionConfig
}

// DefaultConfig returns the configuration for the public realtime API.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		Model:            DefaultModel,
		UserAgent:        DefaultUserAgent,
		BetaValue:        BetaHeaderValue,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Connector opens upstream sessions. It holds no per-session state and may
// be shared.
type Connector struct {
	config Config
	dialer *websocket.Dialer
}

// NewConnector creates a Connector. Empty URL and UserAgent fields fall
// back to the defaults.
func NewConnector(config Config) *Connector {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	return &Connector{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
	}
}

// Config returns the connector's configuration.
func (c *Connector) Config() Config { return c.config }

// Target returns the URL dialed by Connect.
func (c *Connector) Target() (string, error) {
	target, err := url.Parse(gohttp.NormalizeWsUrl(c.config.URL))
	if err != nil {
		return "", fmt.Errorf("failed to parse upstream URL: %w", err)
	}
	if target.Scheme != "ws" && target.Scheme != "wss" {
		return "", fmt.Errorf("unsupported upstream URL scheme %q", target.Scheme)
	}
	if c.config.Model != "" {
		q := target.Query()
		q.Set("model", c.config.Model)
		target.RawQuery = q.Encode()
	}
	return target.String(), nil
}

// Header returns the handshake headers for credential.
func (c *Connector) Header(credential string) http.Header {
	h := http.Header{}
	if c.config.BetaValue != "" {
		h.Set(BetaHeader, c.config.BetaValue)
	}
	h.Set("User-Agent", c.config.UserAgent)
	h.Set("Authorization", "Bearer "+credential)
	return h
}

// Connect performs the upgrade handshake once. On success it returns the
// upstream session and the handshake response. Failures are returned as
// *ConnectError and are never retried.
func (c *Connector) Connect(ctx context.Context, credential string) (*gohttp.WSSession, *http.Response, error) {
	target, err := c.Target()
	if err != nil {
		return nil, nil, &ConnectError{URL: c.config.URL, Err: err}
	}
	if credential == "" {
		return nil, nil, &ConnectError{URL: target, Err: ErrEmptyCredential}
	}

	conn, resp, err := c.dialer.DialContext(ctx, target, c.Header(credential))
	if err != nil {
		cerr := &ConnectError{URL: target, Err: err}
		if resp != nil {
			cerr.StatusCode = resp.StatusCode
			resp.Body.Close()
		}
		return nil, resp, cerr
	}
	return gohttp.NewWSSession(conn, "upstream", c.config.Session), resp, nil
}
