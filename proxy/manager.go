package proxy

import (
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/corestack-dev/purify/config"
	"github.com/corestack-dev/purify/internal/diskstore"
)

// Manager scores and rotates a pool of proxy endpoints. It is safe for
// concurrent use; every mutation persists the pool back to disk.
type Manager struct {
	mu            sync.Mutex
	path          string
	sourcesPath   string
	maxFailures   int
	retryCooldown time.Duration
	stickyFor     time.Duration
	defaultScheme string
	entries       []Entry
}

// NewManager creates a Manager rooted at cfg and loads any existing pool
// from cfg.ListPath (default: dataDir/proxies.json).
func NewManager(cfg config.ProxyConfig, dataDir string) *Manager {
	path := cfg.ListPath
	if path == "" {
		path = filepath.Join(dataDir, "proxies.json")
	}
	sourcesPath := cfg.SourcesPath
	if sourcesPath == "" {
		sourcesPath = filepath.Join(dataDir, "proxy_sources.json")
	}
	m := &Manager{
		path:          path,
		sourcesPath:   sourcesPath,
		maxFailures:   cfg.MaxFailuresBeforeDisable,
		retryCooldown: cfg.RetryCooldown,
		stickyFor:     cfg.StickySessionDuration,
		defaultScheme: cfg.DefaultScheme,
	}
	m.load()
	return m
}

func (m *Manager) load() {
	var entries []Entry
	if err := diskstore.LoadJSON(m.path, &entries); err != nil {
		slog.Warn("proxy: failed to load pool", "error", err)
		return
	}
	m.entries = entries
}

func (m *Manager) save() {
	if err := diskstore.SaveJSON(m.path, m.entries); err != nil {
		slog.Warn("proxy: failed to persist pool", "error", err)
	}
}

// LoadFromIPList parses a plain-text proxy list (one "scheme://[user:pass@]host:port"
// or bare "host:port" per line, '#' comments and blank lines skipped) and
// merges it into the pool, preserving existing health stats for unchanged
// entries keyed by Entry.Key.
func (m *Manager) LoadFromIPList(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]Entry, len(m.entries))
	for _, e := range m.entries {
		existing[e.Key()] = e
	}

	added := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, ok := m.parseLine(line)
		if !ok {
			slog.Warn("proxy: skipping unparsable line", "line", line)
			continue
		}
		if prev, ok := existing[entry.Key()]; ok {
			entry.LatencyMS = prev.LatencyMS
			entry.FailureCount = prev.FailureCount
			entry.SuccessCount = prev.SuccessCount
			entry.LastUsed = prev.LastUsed
			entry.LastFailure = prev.LastFailure
			entry.Disabled = prev.Disabled
		} else {
			added++
		}
		existing[entry.Key()] = entry
	}

	m.entries = m.entries[:0]
	for _, e := range existing {
		m.entries = append(m.entries, e)
	}
	m.save()
	return added, nil
}

// portDefaultScheme returns the scheme implied by a proxy's port number,
// used when a line carries no explicit "scheme://" prefix: 443/8443 are
// near-universally HTTPS proxy listener ports, and 1080/9050/9150 are the
// conventional SOCKS5 ports (1080 for generic SOCKS proxies, 9050/9150 for
// Tor's default and browser-bundle ports).
func portDefaultScheme(port int, fallback string) string {
	switch port {
	case 443, 8443:
		return "https"
	case 1080, 9050, 9150:
		return "socks5"
	default:
		return fallback
	}
}

func (m *Manager) parseLine(line string) (Entry, bool) {
	explicitScheme := ""
	rest := line
	if idx := strings.Index(line, "://"); idx >= 0 {
		explicitScheme = line[:idx]
		rest = line[idx+3:]
	}
	var user, pass string
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		cred := rest[:at]
		rest = rest[at+1:]
		if colon := strings.Index(cred, ":"); colon >= 0 {
			user, pass = cred[:colon], cred[colon+1:]
		} else {
			user = cred
		}
	}
	host, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return Entry{}, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Entry{}, false
	}
	scheme := explicitScheme
	if scheme == "" {
		scheme = portDefaultScheme(port, m.defaultScheme)
	}
	return Entry{
		Scheme:   scheme,
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		Priority: 1,
	}, true
}

// SwitchToBest returns the highest-scoring usable proxy for host, honoring
// a sticky assignment if one is active and still valid, and re-enabling
// disabled entries whose cooldown has elapsed.
func (m *Manager) SwitchToBest(host string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := range m.entries {
		e := &m.entries[i]
		if e.Disabled && e.LastFailure != nil && now.Sub(*e.LastFailure) > m.retryCooldown {
			e.Disabled = false
			e.FailureCount = 0
		}
	}

	if sticky, ok := m.stickyFor_(host, now); ok {
		return sticky, true
	}

	var best *Entry
	for i := range m.entries {
		e := &m.entries[i]
		if e.Disabled {
			continue
		}
		if best == nil || e.score() > best.score() {
			best = e
		}
	}
	if best == nil {
		return Entry{}, false
	}
	if m.stickyFor > 0 {
		until := now.Add(m.stickyFor)
		best.StickyUntil = &until
		best.StickyForHost = host
		m.save()
	}
	return *best, true
}

func (m *Manager) stickyFor_(host string, now time.Time) (Entry, bool) {
	for _, e := range m.entries {
		if e.StickyForHost == host && e.StickyUntil != nil && now.Before(*e.StickyUntil) && !e.Disabled {
			return e, true
		}
	}
	return Entry{}, false
}

// ShouldUseStickyProxy reports whether host already has a live sticky
// assignment, letting callers skip the scoring path entirely.
func (m *Manager) ShouldUseStickyProxy(host string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.stickyFor_(host, time.Now())
	return ok
}

// RecordResult updates an entry's rolling health after use. latencyMS is
// ignored on failure. The EMA smoothing matches the Rust manager:
// new = (7*old + sample) / 8.
func (m *Manager) RecordResult(key string, success bool, latencyMS float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := range m.entries {
		e := &m.entries[i]
		if e.Key() != key {
			continue
		}
		e.LastUsed = &now
		if success {
			e.SuccessCount++
			e.FailureCount = 0
			if e.LatencyMS == 0 {
				e.LatencyMS = latencyMS
			} else {
				e.LatencyMS = (7*e.LatencyMS + latencyMS) / 8
			}
		} else {
			e.FailureCount++
			e.LastFailure = &now
			if e.FailureCount >= m.maxFailures {
				e.Disabled = true
				slog.Warn("proxy: disabled after repeated failures", "proxy", e.Masked())
			}
		}
		m.save()
		return
	}
}

// Snapshot returns a read-only copy of the pool sorted best-first, for
// diagnostics and the proxy_manager MCP tool.
func (m *Manager) Snapshot() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].score() > out[j].score() })
	return out
}

// Len reports how many proxies are currently tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
