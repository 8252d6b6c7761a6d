package websocket

import "sync"

// Registry tracks live sessions. Hijacked websocket connections are
// invisible to http.Server.Shutdown, so the server drains them through
// the registry instead.
type Registry struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	draining bool
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Session]struct{})}
}

// Register adds a session. It reports false once shutdown has started,
// in which case the caller must not run the session.
func (r *Registry) Register(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draining {
		return false
	}
	r.sessions[s] = struct{}{}
	return true
}

func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
}

// Shutdown refuses further registrations, then closes every live session:
// in-flight upstream calls are cancelled and each peer receives a
// going-away frame.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.draining = true
	sessions := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
