// Package proxy exposes a WebSocket client to an upstream realtime session
// that it opens on the client's behalf.
//
// Each call to Handle authenticates upstream with the proxy's credential,
// relays frames both ways until either side ends, and closes both sessions.
// The client never sees the credential. When the upstream handshake fails
// the client connection is dropped without a close frame.
//
// A Proxy is also a gohttp.WSHandler:
//
//	p := proxy.New(os.Getenv("OPENAI_API_KEY"))
//	router.HandleFunc("/ws", gohttp.WSServe(p, nil))
package proxy
