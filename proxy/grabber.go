package proxy

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// sourceEntry is one remote list in proxy_sources.json.
type sourceEntry struct {
	URL       string `json:"url"`
	ProxyType string `json:"proxy_type"`
}

// RefreshFromSources fetches every remote proxy list named in
// cfg.SourcesPath, parses each "host:port" line, and merges newly
// discovered proxies into the pool via LoadFromIPList's merge semantics.
// It returns the number of distinct proxies added and any per-source
// fetch warnings (a source failing to fetch does not abort the refresh).
func (m *Manager) RefreshFromSources(ctx context.Context) (added int, warnings []string, err error) {
	var sources []sourceEntry
	if loadErr := loadSourcesFile(m.sourcesPath, &sources); loadErr != nil {
		return 0, nil, loadErr
	}
	if len(sources) == 0 {
		return 0, []string{"no proxy sources configured"}, nil
	}

	client := &http.Client{Timeout: 20 * time.Second}

	m.mu.Lock()
	existing := make(map[string]Entry, len(m.entries))
	for _, e := range m.entries {
		existing[e.Key()] = e
	}
	m.mu.Unlock()

	seen := map[string]bool{}
	for _, src := range sources {
		lines, fetchErr := fetchLines(ctx, client, src.URL)
		if fetchErr != nil {
			warnings = append(warnings, fmt.Sprintf("source %s: %v", src.URL, fetchErr))
			continue
		}
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			entry, ok := m.parseLine(withScheme(line, src.ProxyType, m.defaultScheme))
			if !ok {
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
	}

	m.mu.Lock()
	m.entries = m.entries[:0]
	for _, e := range existing {
		m.entries = append(m.entries, e)
	}
	m.save()
	m.mu.Unlock()

	return added, warnings, nil
}

func withScheme(hostPort, proxyType, fallback string) string {
	if strings.Contains(hostPort, "://") {
		return hostPort
	}
	scheme := normalizeProxyType(proxyType)
	if scheme == "" {
		scheme = fallback
	}
	return scheme + "://" + hostPort
}

func normalizeProxyType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "http", "https":
		return "http"
	case "socks4":
		return "socks4"
	case "socks5", "socks":
		return "socks5"
	default:
		return ""
	}
}

func loadSourcesFile(path string, out *[]sourceEntry) error {
	if path == "" {
		*out = nil
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			*out = nil
			return nil
		}
		return err
	}
	if len(data) == 0 {
		*out = nil
		return nil
	}
	return json.Unmarshal(data, out)
}

func fetchLines(ctx context.Context, client *http.Client, rawURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, toRawURL(rawURL), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, nil
}

// toRawURL rewrites a GitHub blob URL to its raw.githubusercontent.com
// equivalent, since most community-maintained proxy lists are published
// as plain GitHub files.
func toRawURL(u string) string {
	if strings.Contains(u, "github.com") && strings.Contains(u, "/blob/") {
		u = strings.Replace(u, "github.com", "raw.githubusercontent.com", 1)
		u = strings.Replace(u, "/blob/", "/", 1)
	}
	return u
}
