// Package history records searches and scrapes and answers hybrid
// (keyword + hash-similarity) queries over that record, approximating
// semantic recall without a local vector database.
package history

import (
	"encoding/json"
	"time"
)

// EntryType distinguishes a logged search from a logged scrape.
type EntryType string

const (
	EntryTypeSearch EntryType = "search"
	EntryTypeScrape EntryType = "scrape"
)

// Entry is one research history record.
type Entry struct {
	ID         string          `json:"id"`
	Type       EntryType       `json:"entry_type"`
	Query      string          `json:"query"`
	Topic      string          `json:"topic"`
	Summary    string          `json:"summary"`
	FullResult json.RawMessage `json:"full_result"`
	Timestamp  time.Time       `json:"timestamp"`
	Domain     string          `json:"domain,omitempty"`
	SourceType string          `json:"source_type,omitempty"`

	// fingerprint is the simhash of Query+Summary+Topic, computed on
	// insert and used for fast near-duplicate scoring without re-hashing
	// on every search.
	fingerprint uint64
}

// ScoredEntry pairs an Entry with its hybrid relevance score in [0, ~1.15]
// (cosine-ish hash similarity plus a keyword-match boost, matching the
// original's own boosted-score ceiling behavior).
type ScoredEntry struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}
