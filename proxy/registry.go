package proxy

import (
	"net/http"
	"sort"
	"time"

	conc "github.com/panyam/gocurrent"
	"github.com/panyam/rtproxy/relay"
)

// SessionInfo describes a session being relayed.
type SessionInfo struct {
	ID       string    `json:"id"`
	Started  time.Time `json:"started"`
	Client   any       `json:"client,omitempty"`
	Upstream any       `json:"upstream,omitempty"`
}

// SessionNotFoundError is returned by Registry.Get for an unknown id.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return "session not found: " + e.ID
}

// HTTPStatus implements gohttp.StatusCoder.
func (e *SessionNotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

// Registry tracks live sessions. It is safe for concurrent use and can be
// shared by any number of proxies.
type Registry struct {
	sessions *conc.Map[string, SessionInfo]
}

func NewRegistry() *Registry {
	return &Registry{sessions: conc.NewMap[string, SessionInfo]()}
}

// Sessions that expose DebugInfo (such as gohttp.WSSession) are described
// by it in SessionInfo.
type debugInfoer interface {
	DebugInfo() any
}

func describe(s relay.Session) any {
	if d, ok := s.(debugInfoer); ok {
		return d.DebugInfo()
	}
	return nil
}

func (r *Registry) add(id string, client, upstream relay.Session) {
	r.sessions.Set(id, SessionInfo{
		ID:       id,
		Started:  time.Now(),
		Client:   describe(client),
		Upstream: describe(upstream),
	})
}

func (r *Registry) remove(id string) {
	r.sessions.Delete(id)
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (SessionInfo, error) {
	info, ok := r.sessions.Get(id)
	if !ok {
		return SessionInfo{}, &SessionNotFoundError{ID: id}
	}
	return info, nil
}

// List returns the live sessions, oldest first.
func (r *Registry) List() []SessionInfo {
	out := []SessionInfo{}
	r.sessions.Range(func(_ string, info SessionInfo) bool {
		out = append(out, info)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() (n int) {
	r.sessions.Range(func(string, SessionInfo) bool {
		n++
		return true
	})
	return
}
