package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Browser      BrowserConfig
	Scraper      ScraperConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	Log          LogConfig
	Engine       EngineConfig
	AdaptivePool AdaptivePoolConfig
	Proxy        ProxyConfig
	Session      SessionConfig
	History      HistoryConfig
	HITL         HITLConfig
	Search       SearchConfig
}

// ProxyConfig controls the proxy manager.
type ProxyConfig struct {
	// ListPath is the plain-text ip-list file, one proxy per line.
	ListPath string

	// SourcesPath is an optional JSON file listing remote proxy-source URLs
	// consumed by RefreshFromSources.
	SourcesPath string

	// MaxFailuresBeforeDisable auto-disables a proxy after this many
	// consecutive failures.
	MaxFailuresBeforeDisable int // default: 3

	// RetryCooldown is how long a failed proxy is ineligible for selection.
	RetryCooldown time.Duration // default: 300s

	// StickySessionDuration is the window during which the same proxy is
	// reused rather than re-scored.
	StickySessionDuration time.Duration // default: 600s

	// DefaultScheme is used when a bare host:port entry's scheme cannot be
	// inferred from its port.
	DefaultScheme string // default: "http"
}

// SessionConfig controls session/auth registry persistence.
type SessionConfig struct {
	// DataDir is the root directory for sessions/, auth_map.json, etc.
	// default: "$XDG_DATA_HOME/purify" or "~/.purify"
	DataDir string
}

// HistoryConfig controls the semantic research history store.
type HistoryConfig struct {
	MaxEntries int // default: 5000

	// TruncateChars caps the persisted FullResult JSON size.
	TruncateChars int // default: 20000
}

// HITLConfig controls the human-in-the-loop supervisor.
type HITLConfig struct {
	// AutoConsent skips the interactive consent prompt (CI/headless use).
	AutoConsent bool

	// ChallengeGraceSeconds is how long the supervisor waits before
	// surfacing the interactive prompt once a challenge is detected.
	ChallengeGraceSeconds int // default: 20

	// HumanTimeoutSeconds bounds how long the supervisor waits for the
	// operator to clear a challenge or click "Finish & Return".
	HumanTimeoutSeconds int // default: 180

	// AutoScroll triggers a lazy-load scroll pass before final HTML capture.
	AutoScroll bool // default: true
}

// SearchConfig controls the web_search backend adapter.
type SearchConfig struct {
	// BackendURL is a SearXNG-compatible search endpoint.
	BackendURL string
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EnableMultiEngine toggles the multi-engine dispatcher.
	EnableMultiEngine bool // default: true

	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 2s, 5s]

	// HTTPTimeout is loaded from the environment but not read by any engine;
	// the HTTP engine uses each request's own timeout.
	HTTPTimeout time.Duration // default: 5s
}

// AdaptivePoolConfig controls the adaptive page pool sizing.
type AdaptivePoolConfig struct {
	// MinPages is the minimum number of pages kept in the pool.
	MinPages int // default: 3

	// HardMax is the absolute maximum number of pages.
	HardMax int // default: 20

	// MemThreshold is the heap memory fraction (0.0-1.0) above which the pool shrinks.
	MemThreshold float64 // default: 0.9

	// ScaleStep is the fraction of pool size to grow or shrink per interval.
	ScaleStep float64 // default: 0.05
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 15s

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// MaxConcurrentFetches is loaded from the environment but not read:
	// there is no global outbound semaphore, and batch and crawl apply only
	// their own per-job concurrency limits.
	MaxConcurrentFetches int // default: 16

	// MinQualityScore triggers a one-time browser rerun when the static
	// extraction result scores below this threshold.
	MinQualityScore float64 // default: 0.35

	// MinWordCount triggers the same rerun when word count is too low.
	MinWordCount int // default: 50

	// SlowDomains lists hosts known to hydrate slowly. It is loaded from
	// the environment only; no fetch path reads it, so these hosts get no
	// extra settle delay.
	SlowDomains []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys (for MVP; replace with DB later).
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PURIFY_HOST", "0.0.0.0"),
			Port: envIntOr("PURIFY_PORT", 8080),
			Mode: envOr("PURIFY_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("PURIFY_HEADLESS", true),
			MaxPages:     envIntOr("PURIFY_MAX_PAGES", 10),
			DefaultProxy: os.Getenv("PURIFY_PROXY"),
			NoSandbox:    envBoolOr("PURIFY_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PURIFY_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    envDurationOr("PURIFY_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:        envDurationOr("PURIFY_MAX_TIMEOUT", 120*time.Second),
			NavigationTimeout: envDurationOr("PURIFY_NAV_TIMEOUT", 15*time.Second),
			BlockedResourceTypes: envSliceOr("PURIFY_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			MaxConcurrentFetches: envIntOr("PURIFY_MAX_CONCURRENT_FETCHES", 16),
			MinQualityScore:      envFloatOr("PURIFY_MIN_QUALITY_SCORE", 0.35),
			MinWordCount:         envIntOr("PURIFY_MIN_WORD_COUNT", 50),
			SlowDomains:          envSliceOr("PURIFY_SLOW_DOMAINS", nil),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PURIFY_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PURIFY_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PURIFY_RATE_RPS", 5.0),
			Burst:             envIntOr("PURIFY_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("PURIFY_LOG_LEVEL", "info"),
			Format: envOr("PURIFY_LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			EnableMultiEngine: envBoolOr("PURIFY_MULTI_ENGINE", true),
			EscalationDelays:  envDurationSliceOr("PURIFY_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			HTTPTimeout:       envDurationOr("PURIFY_HTTP_TIMEOUT", 5*time.Second),
		},
		AdaptivePool: AdaptivePoolConfig{
			MinPages:     envIntOr("PURIFY_MIN_PAGES", 3),
			HardMax:      envIntOr("PURIFY_HARD_MAX_PAGES", 20),
			MemThreshold: envFloatOr("PURIFY_MEM_THRESHOLD", 0.9),
			ScaleStep:    envFloatOr("PURIFY_SCALE_STEP", 0.05),
		},
		Proxy: ProxyConfig{
			ListPath:                 envOr("PURIFY_PROXY_LIST_PATH", ""),
			SourcesPath:              envOr("PURIFY_PROXY_SOURCES_PATH", ""),
			MaxFailuresBeforeDisable: envIntOr("PURIFY_PROXY_MAX_FAILURES", 3),
			RetryCooldown:            envDurationOr("PURIFY_PROXY_RETRY_COOLDOWN", 300*time.Second),
			StickySessionDuration:    envDurationOr("PURIFY_PROXY_STICKY_DURATION", 600*time.Second),
			DefaultScheme:            envOr("PURIFY_PROXY_DEFAULT_SCHEME", "http"),
		},
		Session: SessionConfig{
			DataDir: envOr("PURIFY_DATA_DIR", defaultDataDir()),
		},
		History: HistoryConfig{
			MaxEntries:    envIntOr("PURIFY_HISTORY_MAX_ENTRIES", 5000),
			TruncateChars: envIntOr("PURIFY_HISTORY_TRUNCATE_CHARS", 20000),
		},
		HITL: HITLConfig{
			AutoConsent:           envBoolOr("PURIFY_HITL_AUTO_CONSENT", false),
			ChallengeGraceSeconds: envIntOr("PURIFY_HITL_CHALLENGE_GRACE_SECONDS", 20),
			HumanTimeoutSeconds:   envIntOr("PURIFY_HITL_HUMAN_TIMEOUT_SECONDS", 180),
			AutoScroll:            envBoolOr("PURIFY_HITL_AUTO_SCROLL", true),
		},
		Search: SearchConfig{
			BackendURL: envOr("PURIFY_SEARCH_BACKEND_URL", ""),
		},
	}
}

// defaultDataDir resolves the default application data directory following
// the XDG base-directory convention, falling back to ~/.purify.
func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg + "/purify"
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.purify"
	}
	return ".purify"
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
