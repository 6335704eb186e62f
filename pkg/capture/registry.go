package capture

import (
	"sync"

	"github.com/attendly/classtrack/pkg/logging"
	"github.com/attendly/classtrack/pkg/recognition"
)

// Registry owns the active enrollment captures, keyed by user id. Each
// capture is single-owner: the registry only hands out the session created
// for that user, and concurrent streams for different users never share
// state.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*GuidedCapture
	engine   recognition.Engine
	opts     Options
}

// NewRegistry creates an empty registry that builds captures from the given
// engine and options.
func NewRegistry(engine recognition.Engine, opts Options) *Registry {
	return &Registry{
		sessions: make(map[string]*GuidedCapture),
		engine:   engine,
		opts:     opts,
	}
}

// Create starts a fresh capture for the user, replacing any existing one.
func (r *Registry) Create(userID string) *GuidedCapture {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := New(r.engine, r.opts)
	r.sessions[userID] = session
	logging.Component("capture").Debugf("enrollment session created for %s", userID)
	return session
}

// Get returns the user's capture, if one exists.
func (r *Registry) Get(userID string) (*GuidedCapture, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[userID]
	return session, ok
}

// GetOrCreate returns the user's capture, creating one if needed.
func (r *Registry) GetOrCreate(userID string) *GuidedCapture {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[userID]; ok {
		return session
	}
	session := New(r.engine, r.opts)
	r.sessions[userID] = session
	return session
}

// Reset restarts the user's capture from the first stage. A missing session
// is a no-op.
func (r *Registry) Reset(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[userID]; ok {
		session.Reset()
	}
}

// Destroy removes the user's capture entirely.
func (r *Registry) Destroy(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
