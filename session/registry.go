// Package session keeps the UI state of every browser session in memory,
// keyed by a uuid cookie. Sessions idle for too long are swept.
package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/medicaments-lookup/admin"
	"github.com/giygas/medicaments-lookup/interfaces"
	"github.com/giygas/medicaments-lookup/logging"
	"github.com/giygas/medicaments-lookup/metrics"
	"github.com/giygas/medicaments-lookup/search"
	"github.com/giygas/medicaments-lookup/ui"
	"github.com/google/uuid"
)

// CookieName is the session cookie
const CookieName = "medlookup_session"

// Compile-time check to ensure Registry implements SessionStore
var _ interfaces.SessionStore = (*Registry)(nil)

// Session is one browser's page state and the controllers bound to it
type Session struct {
	ID     string
	State  *ui.State
	Search *search.Controller
	Admin  *admin.Service
}

// Factory builds a fresh session for id
type Factory func(id string) *Session

// EvictFunc is called after a session was swept
type EvictFunc func(id string)

// Registry holds sessions with a read-mostly lock
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	onEvict  EvictFunc
	now      func() time.Time

	sweeping        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(factory Factory) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		now:      time.Now,
	}
	r.serverStartTime.Store(time.Now())
	return r
}

// OnEvict registers a callback run for every swept session
func (r *Registry) OnEvict(fn EvictFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Get returns the session id if it exists
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// GetOrCreate returns the session id, creating it when unknown. An id that is
// not a uuid is replaced by a new one. The bool reports whether the returned
// id differs from the requested one.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
		return r.create(id), true
	}

	if s, ok := r.Get(id); ok {
		return s, false
	}
	// Unknown but well-formed ids are kept so persisted tokens for them survive a restart
	return r.create(id), false
}

func (r *Registry) create(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := r.factory(id)
	s.ID = id
	r.sessions[id] = s
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	logging.Debug("Session created", "session", id)
	return s
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions not touched within idle and returns how many went.
// Concurrent sweeps are skipped.
func (r *Registry) Sweep(idle time.Duration) int {
	if !r.sweeping.CompareAndSwap(false, true) {
		logging.Info("Session sweep already in progress, skipping...")
		return 0
	}
	defer r.sweeping.Store(false)

	cutoff := r.now().Add(-idle)
	var evicted []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.State.LastSeen().Before(cutoff) {
			evicted = append(evicted, s)
			delete(r.sessions, id)
		}
	}
	onEvict := r.onEvict
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, s := range evicted {
		s.State.Close()
		if onEvict != nil {
			onEvict(s.ID)
		}
	}
	if len(evicted) > 0 {
		logging.Info("Swept idle sessions", "count", len(evicted), "remaining", r.Len())
	}
	return len(evicted)
}

// GetServerStartTime returns when the registry was created
func (r *Registry) GetServerStartTime() time.Time {
	if v := r.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}
	return time.Time{}
}

// SetServerStartTime sets the server start time
func (r *Registry) SetServerStartTime(startTime time.Time) {
	r.serverStartTime.Store(startTime)
}

type ctxKey struct{}

// Middleware attaches the caller's session to the request context, issuing a
// cookie when the browser has none or an invalid one
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := ""
		if c, err := req.Cookie(CookieName); err == nil {
			id = c.Value
		}

		s, replaced := r.GetOrCreate(id)
		if replaced || id == "" {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		s.State.Touch()

		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), ctxKey{}, s)))
	})
}

// FromContext returns the session attached by Middleware
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}

// WithSession returns ctx carrying s, for tests and background work
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}
