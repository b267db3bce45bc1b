// Package upstream opens the outbound realtime session a proxy relays to.
//
// A Connector builds the target URL (endpoint plus the model query
// parameter) and the handshake headers:
//
//	OpenAI-Beta:   realtime=v1
//	User-Agent:    go-realtime-proxy
//	Authorization: Bearer <credential>
//
// and performs a single handshake:
//
//	c := upstream.NewConnector(upstream.DefaultConfig())
//	session, resp, err := c.Connect(ctx, apiKey)
//
// There is no retry. A failure comes back as a *ConnectError, which carries
// the HTTP status when the server rejected the upgrade.
package upstream
