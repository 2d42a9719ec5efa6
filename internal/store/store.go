// Package store holds the daemon's in-memory session registry and the
// `.ad` recorded-script reader/writer, grounded on the teacher's
// session-lifecycle tracking (internal/session/tracker.go) generalized
// from relaunch-detection bookkeeping to full session ownership.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
)

// SessionStore is the daemon's single source of truth for which sessions
// exist and which device each owns. All mutation goes through its
// methods; callers never reach into the map directly.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.Session)}
}

// Open registers a new session bound to device, or returns DEVICE_IN_USE
// if another session already owns that device. A session name reused
// while still open is also rejected (callers should Close first).
func (s *SessionStore) Open(name string, device domain.Device, now time.Time) (*domain.Session, *domain.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[name]; exists {
		return nil, domain.NewError(domain.ErrInvalidArgs, fmt.Sprintf("session %q is already open", name))
	}
	for _, existing := range s.sessions {
		if existing.Device.Key() == device.Key() {
			return nil, domain.NewError(domain.ErrDeviceInUse,
				fmt.Sprintf("device %s is already bound to session %q", device.Key(), existing.Name)).
				WithDetails(map[string]interface{}{"device": device.Key(), "session": existing.Name})
		}
	}

	sess := &domain.Session{Name: name, Device: device, CreatedAt: now}
	s.sessions[name] = sess
	return sess, nil
}

// Get returns the named session, or SESSION_NOT_FOUND.
func (s *SessionStore) Get(name string) (*domain.Session, *domain.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[name]
	if !ok {
		return nil, domain.NewError(domain.ErrSessionNotFound, fmt.Sprintf("no open session %q", name))
	}
	return sess, nil
}

// Close removes a session from the registry. It does not stop any
// background recorder/tracer — callers must do that before calling
// Close so resources aren't leaked.
func (s *SessionStore) Close(name string) *domain.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[name]; !ok {
		return domain.NewError(domain.ErrSessionNotFound, fmt.Sprintf("no open session %q", name))
	}
	delete(s.sessions, name)
	return nil
}

// Names returns every open session name, for session_list and for
// default-session auto-routing (exactly one open session means a
// request that doesn't name one routes there implicitly).
func (s *SessionStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sessions))
	for n := range s.sessions {
		names = append(names, n)
	}
	return names
}

// ResolveSessionName implements the default-session auto-routing rule:
// if requested is non-empty it's returned as-is; otherwise, if exactly
// one session is open, that session's name is returned; otherwise
// domain.DefaultSessionName is returned unchanged (the caller's Get call
// will produce SESSION_NOT_FOUND if that's also wrong).
func (s *SessionStore) ResolveSessionName(requested string) string {
	if requested != "" {
		return requested
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 1 {
		for n := range s.sessions {
			return n
		}
	}
	return domain.DefaultSessionName
}

// All returns a snapshot copy of every open session, for shutdown
// draining.
func (s *SessionStore) All() []*domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}
