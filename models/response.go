package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the scrape completed without errors.
	Success bool `json:"success"`

	// Content is the cleaned output in the requested format.
	Content string `json:"content"`

	// Metadata contains extracted page metadata.
	Metadata Metadata `json:"metadata"`

	// Links holds internal/external links discovered on the page.
	Links LinksResult `json:"links,omitempty"`

	// Images holds <img> elements discovered on the page.
	Images []Image `json:"images,omitempty"`

	// OGMetadata holds Open Graph meta tags, when present.
	OGMetadata OGMetadata `json:"og_metadata,omitempty"`

	// Headings lists the page's heading hierarchy (h1-h6), in document order.
	Headings []Heading `json:"headings,omitempty"`

	// CodeBlocks lists fenced/<pre><code> blocks found in the extracted content.
	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`

	// WordCount is the word count of Content.
	WordCount int `json:"word_count,omitempty"`

	// ReadingTimeMinutes is WordCount / 200, rounded up, minimum 1.
	ReadingTimeMinutes int `json:"reading_time_minutes,omitempty"`

	// ExtractionScore is a [0,1] confidence score for how well the pipeline
	// isolated the page's main content (see cleaner.ScoreExtraction).
	ExtractionScore float64 `json:"extraction_score,omitempty"`

	// Domain is the source URL's bare hostname, echoed for convenience.
	Domain string `json:"domain,omitempty"`

	// Warnings lists non-fatal issues encountered while producing this
	// response (truncation, low-confidence extraction, fallback paths taken).
	Warnings []string `json:"warnings,omitempty"`

	// Truncated indicates Content was cut short at MaxCharsLimit.
	Truncated bool `json:"truncated,omitempty"`

	// ActualChars is the untruncated content length, only set when Truncated.
	ActualChars int `json:"actual_chars,omitempty"`

	// MaxCharsLimit is the limit that triggered truncation, only set when Truncated.
	MaxCharsLimit int `json:"max_chars_limit,omitempty"`

	// HydrationStatus reports whether client-side rendered content was
	// detected ("rendered", "static", "unknown").
	HydrationStatus string `json:"hydration_status,omitempty"`

	// Tokens provides token estimates before and after cleaning.
	Tokens TokenInfo `json:"tokens"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// StatusCode is the HTTP status code observed during navigation.
	StatusCode int `json:"status_code,omitempty"`

	// FinalURL is the URL after any redirects.
	FinalURL string `json:"final_url,omitempty"`

	// EngineUsed records which fetch engine produced this result.
	EngineUsed string `json:"engine_used,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching is disabled.
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// Metadata holds page-level information extracted during scraping.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Author      string `json:"author,omitempty"`
	Language    string `json:"language,omitempty"`
	SourceURL   string `json:"source_url"`

	// Canonical is the page's canonical URL, when declared.
	Canonical string `json:"canonical,omitempty"`

	// PublishedAt is an ISO-8601 timestamp parsed from article metadata,
	// when present.
	PublishedAt string `json:"published_at,omitempty"`

	// Keywords lists meta-keywords or article:tag values, when present.
	Keywords []string `json:"keywords,omitempty"`

	// FetchMethod records how the page was fetched: "http" or "browser".
	FetchMethod string `json:"fetch_method,omitempty"`
}

// Link is a single anchor discovered while extracting links.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// LinksResult separates a page's links by whether they point at the same
// host as the source page.
type LinksResult struct {
	Internal []Link `json:"internal"`
	External []Link `json:"external"`
}

// Image is a single <img> element discovered on the page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// OGMetadata holds the subset of Open Graph tags useful for previews.
type OGMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Heading is one entry in a page's heading hierarchy.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// CodeBlock is one fenced or <pre><code> block extracted from content.
type CodeBlock struct {
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

// TokenInfo provides before/after token estimates to show cleaning efficacy.
type TokenInfo struct {
	// OriginalEstimate is the estimated token count of the raw HTML.
	OriginalEstimate int `json:"original_estimate"`

	// CleanedEstimate is the estimated token count of the cleaned output.
	CleanedEstimate int `json:"cleaned_estimate"`

	// SavingsPercent is the percentage of tokens removed (0-100).
	SavingsPercent float64 `json:"savings_percent"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// NavigationMs is the time spent navigating and rendering the page.
	NavigationMs int64 `json:"navigation_ms"`

	// CleaningMs is the time spent extracting content and converting to markdown.
	CleaningMs int64 `json:"cleaning_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
	BrowserPID  int `json:"browser_pid"`
}
