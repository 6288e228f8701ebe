package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
)

// ErrSessionNotFound is returned for an unknown, expired or deleted session.
var ErrSessionNotFound = errors.New("session not found")

// Deps are the collaborators shared by every session.
type Deps struct {
	Analyst     Analyzer
	Illustrator ImageRenderer
	Notifier    Notifier
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

// Registry owns the live sessions and expires idle ones.
type Registry struct {
	deps  Deps
	ttl   time.Duration
	clock clockwork.Clock

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewRegistry creates a Registry whose sessions expire after ttl without
// activity. A nil clock uses real time.
func NewRegistry(deps Deps, ttl time.Duration, clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		deps:     deps,
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session viewing layer. An empty layer means
// domain.LayerTerrain.
func (r *Registry) Create(layer domain.LayerType) (*Session, error) {
	if layer == "" {
		layer = domain.LayerTerrain
	}
	if !layer.Valid() {
		return nil, domain.ErrUnknownLayer
	}

	s := newSession(uuid.NewString(), layer, r.deps, r.clock)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("registry closed")
	}
	r.sessions[s.id] = s
	r.deps.Metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.deps.Logger.Info("session created", "session_id", s.id, "layer", layer)
	return s, nil
}

// Get returns the session with id and marks it active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Delete closes and removes the session with id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.deps.Metrics.ActiveSessions.Set(float64(len(r.sessions)))
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	r.deps.Logger.Info("session deleted", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for at least the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if !s.idleSince().After(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.deps.Metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.deps.Logger.Info("expired idle sessions", "count", len(expired), "ttl", r.ttl)
	}
	return len(expired)
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			r.Sweep()
		}
	}
}

// CheckReadiness reports the registry unready once it has been closed.
func (r *Registry) CheckReadiness(_ context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errors.New("session registry is shutting down")
	}
	return nil
}

// Close stops every session and rejects new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.deps.Metrics.ActiveSessions.Set(0)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
