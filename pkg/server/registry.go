package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperion-energy/hyperion/pkg/controller"
)

// ErrSessionNotFound is returned for unknown or already closed session ids.
var ErrSessionNotFound = errors.New("session not found")

type sessionEntry struct {
	session  *controller.Session
	lastSeen time.Time
	// open streams keep a session alive regardless of lastSeen
	streams int
}

// registry holds the live sessions by id.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
	}
}

// newID returns a fresh session id.
func newID() string {
	return uuid.NewString()
}

func (r *registry) add(id string, s *controller.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &sessionEntry{
		session:  s,
		lastSeen: r.now(),
	}
}

// get returns the session and marks it as used.
func (r *registry) get(id string) (*controller.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.session, nil
}

// openStream is like get but also keeps the session from being reaped until
// the returned func is called.
func (r *registry) openStream(id string) (*controller.Session, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	e.streams++
	e.lastSeen = r.now()
	var once sync.Once
	return e.session, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			e.streams--
			e.lastSeen = r.now()
		})
	}, nil
}

// remove drops the session from the registry and closes it.
func (r *registry) remove(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.session.Close()
	return nil
}

// reap closes every session without streams last used before cutoff and
// returns how many were closed.
func (r *registry) reap(cutoff time.Time) int {
	var idle []*controller.Session
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.streams == 0 && e.lastSeen.Before(cutoff) {
			idle = append(idle, e.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*sessionEntry)
	r.mu.Unlock()

	for _, e := range all {
		e.session.Close()
	}
}
