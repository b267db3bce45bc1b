package proxy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jpillora/sizestr"
	gohttp "github.com/panyam/rtproxy/http"
	"github.com/panyam/rtproxy/metrics"
	"github.com/panyam/rtproxy/relay"
	"github.com/panyam/rtproxy/upstream"
)

// ConnectFunc opens the upstream session for one invocation. The response
// is the handshake response, if any.
type ConnectFunc func(ctx context.Context, credential string) (relay.Session, *http.Response, error)

// Proxy relays one downstream session at a time to a freshly opened
// upstream session, authenticating with its credential.
type Proxy struct {
	credential     string
	connect        ConnectFunc
	upstreamConfig upstream.Config
	metrics        *metrics.Metrics
	registry       *Registry
	logger         *slog.Logger
}

var _ gohttp.WSHandler = (*Proxy)(nil)

// Option configures a Proxy.
type Option func(*Proxy)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Proxy) { p.logger = logger }
}

// WithMetrics records sessions and frames in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Proxy) { p.metrics = m }
}

// WithRegistry lists the proxy's sessions in r while they are relayed.
func WithRegistry(r *Registry) Option {
	return func(p *Proxy) { p.registry = r }
}

// WithUpstreamConfig replaces upstream.DefaultConfig().
func WithUpstreamConfig(config upstream.Config) Option {
	return func(p *Proxy) { p.upstreamConfig = config }
}

// WithSessionConfig configures the upstream session.
func WithSessionConfig(config *gohttp.SessionConfig) Option {
	return func(p *Proxy) { p.upstreamConfig.Session = config }
}

// WithConnectFunc replaces the upstream connector, e.g. to dial a different
// transport. Upstream config options are then ignored.
func WithConnectFunc(fn ConnectFunc) Option {
	return func(p *Proxy) { p.connect = fn }
}

// New creates a Proxy that authenticates upstream with credential.
func New(credential string, opts ...Option) *Proxy {
	p := &Proxy{
		credential:     credential,
		upstreamConfig: upstream.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.connect == nil {
		connector := upstream.NewConnector(p.upstreamConfig)
		p.connect = func(ctx context.Context, credential string) (relay.Session, *http.Response, error) {
			session, resp, err := connector.Connect(ctx, credential)
			if err != nil {
				return nil, resp, err
			}
			return session, resp, nil
		}
	}
	return p
}

// Handle connects upstream and relays downstream until either side ends.
//
// If the upstream connection cannot be established the downstream session
// is closed without any message and the *upstream.ConnectError is returned.
// Otherwise Handle returns nil after an orderly close and the failing leg's
// *relay.LegError after a failure. Both sessions are closed on return.
func (p *Proxy) Handle(ctx context.Context, downstream relay.Session) error {
	defer downstream.Close()

	id := uuid.New().String()
	logger := p.logger.With(slog.String("session", id))

	up, resp, err := p.connect(ctx, p.credential)
	if err != nil {
		logger.Warn("upstream handshake failed", slog.String("error", err.Error()))
		if p.metrics != nil {
			p.metrics.ConnectFailed()
		}
		return err
	}
	defer up.Close()

	if resp != nil {
		logger.Debug("upstream handshake complete", slog.String("status", resp.Status))
	}
	if p.registry != nil {
		p.registry.add(id, downstream, up)
		defer p.registry.remove(id)
	}

	opts := []relay.Option{relay.WithLogger(logger)}
	if p.metrics != nil {
		opts = append(opts, relay.WithObserver(p.metrics))
		p.metrics.SessionStarted()
	}
	res := relay.New(opts...).Run(ctx, downstream, up)
	if p.metrics != nil {
		p.metrics.SessionFinished(res)
	}

	first := res.Legs[res.First]
	attrs := []any{
		slog.String("first", res.First.String()),
		slog.String("state", first.State.String()),
		slog.Duration("duration", res.Duration),
		slog.String("sent", sizestr.ToString(res.Legs[relay.ClientToUpstream].Bytes)),
		slog.String("received", sizestr.ToString(res.Legs[relay.UpstreamToClient].Bytes)),
	}
	if err := res.Err(); err != nil {
		logger.Warn("session failed", append(attrs, slog.String("error", err.Error()))...)
		return err
	}
	logger.Info("session closed", attrs...)
	return nil
}

// Validate implements gohttp.WSHandler. Authentication of the client is
// left to middleware in front of the proxy, so every request is accepted.
func (p *Proxy) Validate(w http.ResponseWriter, r *http.Request) bool {
	return true
}

// ServeSession implements gohttp.WSHandler.
func (p *Proxy) ServeSession(ctx context.Context, session *gohttp.WSSession) error {
	return p.Handle(ctx, session)
}
