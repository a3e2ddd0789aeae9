package session

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/corestack-dev/purify/internal/diskstore"
)

// AuthRegistry tracks, per domain, whether a site has previously required
// authentication and whether the last stored session is still valid. The
// scraper looks a domain up only after saving a captured session jar, to
// record a success for domains already marked as requiring authentication;
// cookie injection does not consult it.
type AuthRegistry struct {
	mu   sync.Mutex
	path string
}

// NewAuthRegistry creates a registry persisted at dataDir/auth_map.json.
func NewAuthRegistry(dataDir string) *AuthRegistry {
	return &AuthRegistry{path: filepath.Join(dataDir, "auth_map.json")}
}

func (r *AuthRegistry) load() map[string]DomainRecord {
	m := map[string]DomainRecord{}
	if err := diskstore.LoadJSON(r.path, &m); err != nil {
		slog.Warn("session: failed to load auth map", "error", err)
		return map[string]DomainRecord{}
	}
	if m == nil {
		m = map[string]DomainRecord{}
	}
	return m
}

func (r *AuthRegistry) save(m map[string]DomainRecord) {
	if err := diskstore.SaveJSON(r.path, m); err != nil {
		slog.Warn("session: failed to persist auth map", "error", err)
	}
}

// MarkRequiresAuth records that a domain required authentication, optionally
// with a known session expiry (nil for a session-scoped cookie jar).
func (r *AuthRegistry) MarkRequiresAuth(rawURL string, sessionExpiry *float64) {
	key, ok := DomainKey(rawURL)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.load()
	rec := m[key]
	rec.NeedsAuth = true
	rec.SessionExpiry = sessionExpiry
	m[key] = rec
	r.save(m)
}

// MarkSuccess records a successful authenticated scrape, resetting the
// failure counter and bumping the success counter and timestamp.
func (r *AuthRegistry) MarkSuccess(rawURL string) {
	key, ok := DomainKey(rawURL)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.load()
	rec := m[key]
	rec.NeedsAuth = true
	now := time.Now()
	rec.LastSuccess = &now
	rec.SuccessfulInjections++
	rec.FailedInjections = 0
	m[key] = rec
	r.save(m)
}

// MarkInjectionFailed increments the failure counter for a domain's stored
// session, used to decide when a jar is stale enough to invalidate outright.
func (r *AuthRegistry) MarkInjectionFailed(rawURL string) int {
	key, ok := DomainKey(rawURL)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.load()
	rec := m[key]
	rec.FailedInjections++
	m[key] = rec
	r.save(m)
	return rec.FailedInjections
}

// Lookup returns the stored record for a domain, if any.
func (r *AuthRegistry) Lookup(rawURL string) (DomainRecord, bool) {
	key, ok := DomainKey(rawURL)
	if !ok {
		return DomainRecord{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.load()[key]
	return rec, ok
}

// IsSessionValid reports whether a domain both requires auth and has a
// currently-valid stored session. A domain never seen before is not
// considered to require auth.
func (r *AuthRegistry) IsSessionValid(rawURL string) bool {
	rec, ok := r.Lookup(rawURL)
	if !ok || !rec.NeedsAuth {
		return false
	}
	return rec.IsSessionValid()
}

// Remove deletes a domain's auth metadata entirely, used alongside
// Store.Invalidate when a session is confirmed dead.
func (r *AuthRegistry) Remove(rawURL string) {
	key, ok := DomainKey(rawURL)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.load()
	delete(m, key)
	r.save(m)
}
