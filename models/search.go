package models

// SearchRequest is the request for POST /api/v1/search.
type SearchRequest struct {
	Query      string `json:"query" binding:"required"`
	MaxResults int    `json:"max_results,omitempty"`

	// Rerank enables the lexical rerank + query-expansion pass. Default true.
	Rerank *bool `json:"rerank,omitempty"`
}

// Defaults fills in zero-valued optional fields.
func (r *SearchRequest) Defaults() {
	if r.MaxResults <= 0 {
		r.MaxResults = 10
	}
}

// WantsRerank reports whether reranking should run, defaulting to true.
func (r *SearchRequest) WantsRerank() bool {
	return r.Rerank == nil || *r.Rerank
}

// SearchResultItem is one ranked search hit in the response.
type SearchResultItem struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Engine  string  `json:"engine,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	Success bool                `json:"success"`
	Query   string              `json:"query"`
	Results []SearchResultItem  `json:"results"`
	Timing  TimingInfo          `json:"timing"`
	Error   *ErrorDetail        `json:"error,omitempty"`
}
