// Package proxy scores, rotates, and persists a pool of HTTP/SOCKS proxy
// endpoints, mirroring the priority-weighted EMA-latency selection scheme of
// the original Rust proxy manager.
package proxy

import (
	"fmt"
	"net/url"
	"time"
)

// Entry is a single proxy endpoint and its rolling health statistics.
type Entry struct {
	Scheme   string `json:"scheme"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Priority is an operator-assigned weight; higher is preferred.
	Priority int `json:"priority"`

	LatencyMS     float64    `json:"latency_ms"`
	FailureCount  int        `json:"failure_count"`
	SuccessCount  int        `json:"success_count"`
	LastUsed      *time.Time `json:"last_used,omitempty"`
	LastFailure   *time.Time `json:"last_failure,omitempty"`
	Disabled      bool       `json:"disabled"`
	StickyUntil   *time.Time `json:"sticky_until,omitempty"`
	StickyForHost string     `json:"sticky_for_host,omitempty"`
}

// Key uniquely identifies an entry independent of credentials, used to match
// refreshed source listings against the existing pool.
func (e Entry) Key() string {
	return fmt.Sprintf("%s://%s:%d", e.Scheme, e.Host, e.Port)
}

// URL renders the proxy as a dial URL suitable for http.Transport.Proxy or
// rod's launcher.Proxy, including embedded credentials when present.
func (e Entry) URL() string {
	u := url.URL{Scheme: e.Scheme, Host: fmt.Sprintf("%s:%d", e.Host, e.Port)}
	if e.Username != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	return u.String()
}

// Masked renders the proxy for logging with credentials redacted.
func (e Entry) Masked() string {
	if e.Username == "" {
		return e.Key()
	}
	return fmt.Sprintf("%s://***:***@%s:%d", e.Scheme, e.Host, e.Port)
}

// score implements the Rust manager's priority*1000 - latency_ms -
// 500*failure_count ranking. Higher scores are better.
func (e Entry) score() float64 {
	return float64(e.Priority)*1000 - e.LatencyMS - 500*float64(e.FailureCount)
}
