package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/skirmish/internal/protocol"
)

// Options configures new sessions.
type Options struct {
	// OutboxSize is the per-session outbound queue length.
	OutboxSize int
	// RateLimit is sustained requests per second; 0 disables limiting.
	RateLimit float64
	// RateBurst is the request burst allowed.
	RateBurst int
}

// Manager tracks all connected sessions.
// All methods are safe for concurrent use.
type Manager struct {
	opts Options
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session Manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open registers a new session with a fresh client id.
//
// Postcondition: Returns a registered session with an open outbox.
func (m *Manager) Open(remoteAddr, transport string) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:          id,
		RemoteAddr:  remoteAddr,
		Transport:   transport,
		ConnectedAt: m.now(),
		out:         NewOutbox(id, m.opts.OutboxSize),
	}
	if m.opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(m.opts.RateLimit), max(1, m.opts.RateBurst))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	return s
}

// Close unregisters a session and closes its outbox.
//
// Postcondition: the session is gone. Returns an error if it was not found.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %q not found", id)
	}
	s.out.Close()
	return nil
}

// Get returns the session for id.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Send queues resp for client id.
func (m *Manager) Send(id string, resp protocol.Response) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("session %q not found", id)
	}
	return s.Send(resp)
}

// Broadcast queues resp for every listed client except skip. It returns
// the ids whose delivery failed.
func (m *Manager) Broadcast(ids []string, skip string, resp protocol.Response) []string {
	var failed []string
	for _, id := range ids {
		if id == skip {
			continue
		}
		if err := m.Send(id, resp); err != nil {
			failed = append(failed, id)
		}
	}
	return failed
}

// Count returns the number of connected sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.out.Close()
	}
}
