package models

import "encoding/json"

// HistorySearchRequest is the request for POST /api/v1/history/search.
type HistorySearchRequest struct {
	Query         string  `json:"query"`
	MaxResults    int     `json:"max_results,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`

	// EntryType filters to "search" or "scrape"; "sync" is accepted as a
	// public alias for "scrape". Empty means no filter.
	EntryType string `json:"entry_type,omitempty" binding:"omitempty,oneof=search scrape sync"`
}

// Defaults fills in zero-valued optional fields.
func (r *HistorySearchRequest) Defaults() {
	if r.MaxResults <= 0 {
		r.MaxResults = 10
	}
	if r.MinSimilarity <= 0 {
		r.MinSimilarity = 0.3
	}
	if r.EntryType == "sync" {
		r.EntryType = "scrape"
	}
}

// HistoryEntryView is the public projection of a history.ScoredEntry.
type HistoryEntryView struct {
	ID         string          `json:"id"`
	Type       string          `json:"entry_type"`
	Query      string          `json:"query"`
	Topic      string          `json:"topic"`
	Summary    string          `json:"summary"`
	FullResult json.RawMessage `json:"full_result,omitempty"`
	Timestamp  string          `json:"timestamp"`
	Domain     string          `json:"domain,omitempty"`
	Score      float64         `json:"score"`
}

// HistorySearchResponse is the response for POST /api/v1/history/search.
type HistorySearchResponse struct {
	Success bool               `json:"success"`
	Results []HistoryEntryView `json:"results"`
	Error   *ErrorDetail       `json:"error,omitempty"`
}
