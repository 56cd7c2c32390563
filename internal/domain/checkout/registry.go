// internal/domain/checkout/registry.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type registryEntry struct {
	session  *Session
	lastUsed time.Time
}

// Registry owns the live sessions of this process. Sessions missing from
// memory are rehydrated from the store.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

// NewRegistry creates a registry whose sessions share deps
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps.withDefaults(),
		sessions: make(map[string]*registryEntry),
	}
}

// Create starts a new session for userID
func (r *Registry) Create(ctx context.Context, userID uint) (*Session, error) {
	s := NewSession(uuid.NewString(), userID, r.deps)

	r.mu.Lock()
	r.sessions[s.ID()] = &registryEntry{session: s, lastUsed: r.deps.Now()}
	r.mu.Unlock()

	s.persist(ctx)
	s.log.WithField("user_id", userID).Info("checkout session created")
	return s, nil
}

// Get returns the session if it exists and belongs to userID
func (r *Registry) Get(ctx context.Context, id string, userID uint) (*Session, error) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	if ok {
		entry.lastUsed = r.deps.Now()
	}
	r.mu.Unlock()

	if ok {
		if entry.session.UserID() != userID {
			return nil, ErrSessionNotFound
		}
		return entry.session, nil
	}

	return r.rehydrate(ctx, id, userID)
}

func (r *Registry) rehydrate(ctx context.Context, id string, userID uint) (*Session, error) {
	if r.deps.Store == nil {
		return nil, ErrSessionNotFound
	}
	snap, err := r.deps.Store.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}
	if snap.UserID != userID {
		return nil, ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another request may have rehydrated it first
	if entry, ok := r.sessions[id]; ok {
		entry.lastUsed = r.deps.Now()
		return entry.session, nil
	}
	s := RestoreSession(snap, r.deps)
	r.sessions[id] = &registryEntry{session: s, lastUsed: r.deps.Now()}
	s.log.Info("checkout session rehydrated")
	return s, nil
}

// Destroy removes the session from memory and from the store
func (r *Registry) Destroy(ctx context.Context, id string, userID uint) error {
	if _, err := r.Get(ctx, id, userID); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	if r.deps.Store != nil {
		if err := r.deps.Store.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete checkout session: %w", err)
		}
	}
	r.deps.Logger.WithField("session_id", id).Info("checkout session destroyed")
	return nil
}

// Evict drops sessions idle for longer than maxIdle from memory. Their
// snapshots stay in the store until the store's own expiry.
func (r *Registry) Evict(maxIdle time.Duration) int {
	cutoff := r.deps.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, entry := range r.sessions {
		if entry.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of sessions held in memory
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunEviction evicts idle sessions every interval until ctx is done
func (r *Registry) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(maxIdle); n > 0 {
				r.deps.Logger.WithField("evicted", n).Debug("evicted idle checkout sessions")
			}
		}
	}
}
