package session

import (
	"net/url"
	"strings"
)

// hostToKey converts a bare hostname into a filesystem-safe key.
func hostToKey(host string) string {
	host = strings.ReplaceAll(host, ".", "_")
	host = strings.ReplaceAll(host, ":", "_")
	return host
}

// DomainKey derives the filesystem-safe key used as the session filename
// from a URL, e.g. "https://gist.github.com/foo" -> "gist_github_com".
func DomainKey(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	return hostToKey(u.Hostname()), true
}

// Hostname extracts the bare hostname from a URL.
func Hostname(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	return u.Hostname(), true
}

// ParentDomainKey derives the key for the parent domain of a hostname by
// stripping the leftmost subdomain segment. Returns false when the host is
// already a bare second-level domain (or has no further dot to strip to).
//
//	"gist.github.com" -> "github_com", true
//	"github.com"       -> "",           false
func ParentDomainKey(host string) (string, bool) {
	dot := strings.Index(host, ".")
	if dot < 0 {
		return "", false
	}
	rest := host[dot+1:]
	if !strings.Contains(rest, ".") {
		return "", false
	}
	return hostToKey(rest), true
}
