package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/corestack-dev/purify/internal/diskstore"
)

// Store loads and persists per-domain cookie jars under dataDir/sessions/.
// Every read reloads from disk so concurrent processes never observe stale
// state; writes are atomic (temp file + rename).
type Store struct {
	dataDir string
}

// NewStore creates a Store rooted at dataDir (see config.SessionConfig.DataDir).
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) sessionPathByKey(key string) string {
	return filepath.Join(s.dataDir, "sessions", key+".json")
}

// Load returns the stored cookie jar for a URL's domain, falling back to
// the first-level parent domain when no exact-host jar exists. The bool
// result is false when neither is found.
func (s *Store) Load(rawURL string) ([]Cookie, bool) {
	host, ok := Hostname(rawURL)
	if !ok {
		return nil, false
	}

	exactKey := hostToKey(host)
	if cookies, ok := s.loadByKey(exactKey); ok {
		return cookies, true
	}

	if parentKey, ok := ParentDomainKey(host); ok {
		if cookies, ok := s.loadByKey(parentKey); ok {
			slog.Info("session: subdomain fallback to parent jar",
				"host", host, "parent_key", parentKey)
			return cookies, true
		}
	}

	return nil, false
}

func (s *Store) loadByKey(key string) ([]Cookie, bool) {
	path := s.sessionPathByKey(key)
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}
	var cookies []Cookie
	if err := diskstore.LoadJSON(path, &cookies); err != nil {
		slog.Warn("session: failed to parse jar", "key", key, "error", err)
		return nil, false
	}
	if len(cookies) == 0 {
		return nil, false
	}
	return cookies, true
}

// Save persists the cookie jar for a URL's exact host and returns the
// effective session expiry computed from it (see EffectiveExpiry).
func (s *Store) Save(rawURL string, cookies []Cookie) (float64, bool, error) {
	key, ok := DomainKey(rawURL)
	if !ok {
		return 0, false, nil
	}
	path := s.sessionPathByKey(key)
	if err := diskstore.SaveJSON(path, cookies); err != nil {
		return 0, false, err
	}
	exp, hasExp := EffectiveExpiry(cookies)
	slog.Info("session: saved jar", "key", key, "cookies", len(cookies))
	return exp, hasExp, nil
}

// Invalidate removes the stored session file for a domain so the next
// scrape triggers fresh authentication.
func (s *Store) Invalidate(rawURL string) {
	key, ok := DomainKey(rawURL)
	if !ok {
		return
	}
	path := s.sessionPathByKey(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("session: failed to remove jar", "key", key, "error", err)
	}
}

// MinCookieExpiry returns the minimum finite (persistent) cookie expiry
// timestamp, or false if every cookie is session-scoped.
func MinCookieExpiry(cookies []Cookie) (float64, bool) {
	var min float64
	found := false
	for _, c := range cookies {
		exp, ok := c.Expires()
		if !ok {
			continue
		}
		if !found || exp < min {
			min = exp
			found = true
		}
	}
	return min, found
}

// EffectiveExpiry is MinCookieExpiry with a +24h default applied when every
// cookie is session-scoped. Returns false only for an empty jar.
func EffectiveExpiry(cookies []Cookie) (float64, bool) {
	if len(cookies) == 0 {
		return 0, false
	}
	if exp, ok := MinCookieExpiry(cookies); ok {
		return exp, true
	}
	return float64(time.Now().Unix()) + 86400, true
}
