package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"homerank/internal/index"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when the session limit is reached.
	ErrTooManySessions = errors.New("too many active sessions")

	// ErrEmptyUpload is returned when an upload yields no usable listing.
	ErrEmptyUpload = errors.New("upload contains no valid listings")
)

// DefaultName names the process-wide context.
const DefaultName = "default"

// Registry holds the default context and the session contexts created from
// uploads. It is safe for concurrent use.
type Registry struct {
	def         *Context
	embedder    index.Embedder
	lexCfg      index.LexicalConfig
	maxSessions int
	ttl         time.Duration
	base        *slog.Logger
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Context
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxSessions caps the number of live sessions. 0 means unlimited.
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) { r.maxSessions = n }
}

// WithSessionTTL sets how long an idle session survives a sweep.
func WithSessionTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.ttl = ttl }
}

// WithSessionLexicalConfig sets the vectorizer bounds for session indexes.
func WithSessionLexicalConfig(cfg index.LexicalConfig) RegistryOption {
	return func(r *Registry) { r.lexCfg = cfg }
}

// WithRegistryLogger sets a custom logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.base = logger
		}
	}
}

// NewRegistry creates a registry around the default context. Session
// indexes are embedded with embedder.
func NewRegistry(def *Context, embedder index.Embedder, opts ...RegistryOption) *Registry {
	r := &Registry{
		def:      def,
		embedder: embedder,
		ttl:      time.Hour,
		base:     slog.Default(),
		sessions: make(map[string]*Context),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.base.With("component", "registry")
	return r
}

// Default returns the process-wide context.
func (r *Registry) Default() *Context { return r.def }

// Resolve returns the session context for id, or the default context when
// id is empty.
func (r *Registry) Resolve(id string) (*Context, error) {
	if id == "" {
		if r.def == nil {
			return nil, fmt.Errorf("%w: no default catalog", index.ErrIndexNotBuilt)
		}
		return r.def, nil
	}
	r.mu.RLock()
	c, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	c.Touch()
	return c, nil
}

// CreateSession builds a private context over cat with both indexes built
// eagerly in memory, and registers it under a fresh id.
func (r *Registry) CreateSession(ctx context.Context, cat *Catalog) (*Context, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, ErrEmptyUpload
	}
	if r.full() {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	sc := NewContext(id, cat, index.NewMemoryStore(), r.embedder,
		WithLogger(r.base), WithLexicalConfig(r.lexCfg))
	if err := sc.Build(ctx); err != nil {
		return nil, fmt.Errorf("failed to build session indexes: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return nil, ErrTooManySessions
	}
	r.sessions[id] = sc

	r.logger.Info("Session created", "session_id", id, "rows", cat.Len())
	return sc, nil
}

// DeleteSession discards a session and its indexes.
func (r *Registry) DeleteSession(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	r.logger.Info("Session deleted", "session_id", id)
	return nil
}

// Sessions returns the number of live sessions.
func (r *Registry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.sessions {
		if now.Sub(c.LastUsed()) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("Expired sessions swept", "removed", removed, "remaining", len(r.sessions))
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done. A non-positive
// interval disables sweeping.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.logger.Warn("Session sweeper disabled", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

func (r *Registry) full() bool {
	if r.maxSessions <= 0 {
		return false
	}
	return r.Sessions() >= r.maxSessions
}
