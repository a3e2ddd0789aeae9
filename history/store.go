package history

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/corestack-dev/purify/internal/diskstore"
	"github.com/corestack-dev/purify/simhash"
)

// Store is an in-memory, disk-backed research history with hybrid
// (simhash-similarity + keyword boost) search, matching the contract of
// the original vector-database-backed memory manager without requiring an
// embedding model or vector store — see DESIGN.md for the substitution
// rationale.
type Store struct {
	mu            sync.RWMutex
	path          string
	maxEntries    int
	truncateChars int
	entries       []Entry
}

// NewStore creates a Store persisted at dataDir/history.json and loads any
// existing entries.
func NewStore(dataDir string, maxEntries, truncateChars int) *Store {
	s := &Store{
		path:          filepath.Join(dataDir, "history.json"),
		maxEntries:    maxEntries,
		truncateChars: truncateChars,
	}
	s.load()
	return s
}

func (s *Store) load() {
	var entries []Entry
	if err := diskstore.LoadJSON(s.path, &entries); err != nil {
		slog.Warn("history: failed to load store", "error", err)
		return
	}
	for i := range entries {
		entries[i].fingerprint = fingerprintOf(entries[i])
	}
	s.entries = entries
}

func (s *Store) save() {
	if err := diskstore.SaveJSON(s.path, s.entries); err != nil {
		slog.Warn("history: failed to persist store", "error", err)
	}
}

func fingerprintOf(e Entry) uint64 {
	return simhash.Fingerprint(strings.ToLower(e.Query + " " + e.Summary + " " + e.Topic))
}

func newID() string {
	var b [16]byte
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

func truncate(v json.RawMessage, maxChars int) json.RawMessage {
	if maxChars <= 0 || len(v) <= maxChars {
		return v
	}
	truncated := string(v[:maxChars])
	encoded, _ := json.Marshal(map[string]interface{}{
		"_truncated": true,
		"content":    truncated,
	})
	return encoded
}

// LogSearch records a completed search_web call.
func (s *Store) LogSearch(query string, results json.RawMessage, resultCount int) Entry {
	entry := Entry{
		ID:         newID(),
		Type:       EntryTypeSearch,
		Query:      query,
		Topic:      generateTopic(query, EntryTypeSearch),
		Summary:    fmt.Sprintf("Search: %s (%d results)", query, resultCount),
		FullResult: truncate(results, s.truncateChars),
		Timestamp:  time.Now(),
	}
	s.store(entry)
	return entry
}

// LogScrape records a completed scrape_url call.
func (s *Store) LogScrape(url, title, contentPreview, domain string, fullResult json.RawMessage) Entry {
	summary := contentPreview
	if len(summary) > 280 {
		summary = summary[:280] + "..."
	}
	entry := Entry{
		ID:         newID(),
		Type:       EntryTypeScrape,
		Query:      url,
		Topic:      generateTopic(title, EntryTypeScrape),
		Summary:    summary,
		FullResult: truncate(fullResult, s.truncateChars),
		Timestamp:  time.Now(),
		Domain:     domain,
		SourceType: "web",
	}
	s.store(entry)
	return entry
}

func (s *Store) store(entry Entry) {
	entry.fingerprint = fingerprintOf(entry)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		s.entries = s.entries[len(s.entries)-s.maxEntries:]
	}
	s.save()
}

func generateTopic(text string, t EntryType) string {
	text = strings.TrimSpace(text)
	if text == "" {
		if t == EntryTypeSearch {
			return "search"
		}
		return "scrape"
	}
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

// Search performs a hybrid search: simhash-distance similarity converted to
// a [0,1]-ish score, boosted by keyword overlap, filtered to entries with a
// score at or above minSimilarity, sorted best-first.
//
// An empty query is a scan: every entry (optionally filtered by entryType)
// is returned with score 0, matching the original's "empty query means
// scan" special case.
func (s *Store) Search(ctx context.Context, query string, maxResults int, minSimilarity float64, entryType *EntryType) []ScoredEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		var out []ScoredEntry
		for _, e := range s.entries {
			if entryType != nil && e.Type != *entryType {
				continue
			}
			out = append(out, ScoredEntry{Entry: e, Score: 0})
			if maxResults > 0 && len(out) >= maxResults {
				break
			}
		}
		return out
	}

	queryFP := simhash.Fingerprint(strings.ToLower(query))
	queryLower := strings.ToLower(query)
	keywords := strings.Fields(queryLower)

	var scored []ScoredEntry
	for _, e := range s.entries {
		if entryType != nil && e.Type != *entryType {
			continue
		}

		dist := simhash.Distance(queryFP, e.fingerprint)
		score := 1.0 - float64(dist)/64.0

		entryText := strings.ToLower(e.Query + " " + e.Summary + " " + e.Topic)
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(entryText, kw) {
				matches++
			}
		}
		if len(keywords) > 0 && matches > 0 {
			boost := (float64(matches) / float64(len(keywords))) * 0.15
			score = math.Min(score+boost, 1.15)
		}

		if score >= minSimilarity {
			scored = append(scored, ScoredEntry{Entry: e, Score: score})
		}
	}

	sortByScoreDesc(scored)
	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored
}

func sortByScoreDesc(entries []ScoredEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Score > entries[j-1].Score; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// FindRecentDuplicate looks for a near-identical search within hoursBack,
// used to short-circuit repeat queries.
func (s *Store) FindRecentDuplicate(query string, hoursBack int) (Entry, float64, bool) {
	searchType := EntryTypeSearch
	results := s.Search(context.Background(), query, 5, 0.9, &searchType)
	cutoff := time.Now().Add(-time.Duration(hoursBack) * time.Hour)
	for _, r := range results {
		if r.Entry.Timestamp.After(cutoff) {
			return r.Entry, r.Score, true
		}
	}
	return Entry{}, 0, false
}

// IsRapidTesting reports whether url was scraped at least twice within the
// last 5 minutes, suggesting the caller is iterating rather than doing
// fresh research — used to bypass the scrape cache. This scans for an
// exact Query match rather than going through the hybrid Search: the
// simhash-plus-keyword-boost score used there is tuned for fuzzy recall
// over natural-language queries and summaries, not for asking "is this
// the literal same URL I just scraped" — a few unrelated words in the
// stored summary/topic can pull a genuine repeat below any similarity
// threshold worth setting.
func (s *Store) IsRapidTesting(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-5 * time.Minute)
	recent := 0
	for _, e := range s.entries {
		if e.Type != EntryTypeScrape || e.Query != url {
			continue
		}
		if e.Timestamp.After(cutoff) {
			recent++
		}
	}
	return recent >= 2
}

// TopDomains returns the most-scraped domains, most-frequent first.
func (s *Store) TopDomains(limit int) []DomainCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, e := range s.entries {
		if e.Domain != "" {
			counts[e.Domain]++
		}
	}
	out := make([]DomainCount, 0, len(counts))
	for domain, count := range counts {
		out = append(out, DomainCount{Domain: domain, Count: count})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Count > out[j-1].Count; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DomainCount is one row of TopDomains output.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Stats returns the total number of logged searches and scrapes.
func (s *Store) Stats() (searches, scrapes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Type == EntryTypeSearch {
			searches++
		} else {
			scrapes++
		}
	}
	return
}
