package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/corestack-dev/purify/cleaner"
	"github.com/corestack-dev/purify/history"
	"github.com/corestack-dev/purify/models"
	"github.com/corestack-dev/purify/scraper"
)

// crawlStore holds all in-flight and completed crawl jobs.
var crawlStore sync.Map

func init() {
	// Background goroutine to expire crawl jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			crawlStore.Range(func(key, value any) bool {
				job := value.(*models.CrawlJob)
				if job.CreatedAt < cutoff {
					crawlStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostCrawl returns a handler for POST /api/v1/crawl.
func PostCrawl(sc *scraper.Scraper, cl *cleaner.Cleaner, hist *history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.CrawlResponse{
				Status: "failed",
			})
			return
		}

		// Apply defaults.
		if req.MaxDepth == 0 {
			req.MaxDepth = 3
		}
		if req.MaxPages == 0 {
			req.MaxPages = 100
		}
		if req.Scope == "" {
			req.Scope = "subdomain"
		}
		if req.Options.OutputFormat == "" {
			req.Options.OutputFormat = "markdown"
		}
		if req.Options.ExtractMode == "" {
			req.Options.ExtractMode = "auto"
		}

		jobID := "crawl-" + randomID()
		job := &models.CrawlJob{
			ID:        jobID,
			Status:    "processing",
			CreatedAt: time.Now().Unix(),
		}
		crawlStore.Store(jobID, job)

		// Launch BFS crawl in background.
		go runCrawl(sc, cl, hist, job, req)

		c.JSON(http.StatusOK, models.CrawlResponse{
			ID:     jobID,
			Status: "processing",
		})
	}
}

// GetCrawl returns a handler for GET /api/v1/crawl/:id.
func GetCrawl() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := crawlStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "crawl job not found",
				},
			})
			return
		}

		job := val.(*models.CrawlJob)
		c.JSON(http.StatusOK, models.CrawlStatusResponse{
			ID:        job.ID,
			Status:    job.Status,
			Completed: job.Completed,
			Total:     job.Total,
			Results:   job.Results,
			Error:     job.Error,
		})
	}
}

// bfsItem represents a URL to be crawled at a given depth.
type bfsItem struct {
	url   string
	depth int
}

// runCrawl performs BFS crawling starting from the request URL.
func runCrawl(sc *scraper.Scraper, cl *cleaner.Cleaner, hist *history.Store, job *models.CrawlJob, req models.CrawlRequest) {
	baseURL, err := url.Parse(req.URL)
	if err != nil {
		job.Status = "failed"
		return
	}

	maxConcurrent := sc.Stats().MaxPages
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	sem := make(chan struct{}, maxConcurrent)

	visited := &sync.Map{}
	visited.Store(normalizeURL(req.URL), struct{}{})

	var mu sync.Mutex
	var results []*models.ScrapeResponse
	var totalPages int
	var aborted bool

	scope := req.Scope
	if req.SameDomainOnly {
		scope = "domain"
	}

	queue := []bfsItem{{url: req.URL, depth: 0}}

	for len(queue) > 0 {
		// Check if we've hit the max pages limit or aborted.
		mu.Lock()
		if totalPages >= req.MaxPages || aborted {
			mu.Unlock()
			break
		}
		mu.Unlock()

		// Process current level in parallel.
		currentLevel := queue
		queue = nil

		var wg sync.WaitGroup
		var nextLevel []bfsItem
		var nextMu sync.Mutex

		for _, item := range currentLevel {
			mu.Lock()
			if totalPages >= req.MaxPages {
				mu.Unlock()
				break
			}
			totalPages++
			mu.Unlock()

			wg.Add(1)
			go func(it bfsItem) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				// Build scrape options.
				opts := models.BatchOptions{
					OutputFormat: req.Options.OutputFormat,
					ExtractMode:  req.Options.ExtractMode,
					MaxChars:     req.Options.MaxCharsPerPage,
				}

				resp := scrapeOne(sc, cl, it.url, opts)
				logBatchItemToHistory(hist, it.url, resp)

				mu.Lock()
				results = append(results, resp)
				job.Completed = len(results)
				job.Results = results
				if it.depth == 0 && !resp.Success && resp.Error != nil &&
					(resp.Error.Code == models.ErrCodeAuthWalled || resp.Error.Code == models.ErrCodeBlocked) {
					aborted = true
					job.Error = "NEED_HITL: " + it.url + ": " + resp.Error.Message
				}
				mu.Unlock()

				// If within depth limit and successful, extract links for next level.
				if it.depth < req.MaxDepth && resp.Success {
					for _, link := range resp.Links.Internal {
						linkURL := link.Href

						// Check include patterns (if any are set, link must match one).
						if len(req.IncludePatterns) > 0 && !isIncluded(linkURL, req.IncludePatterns) {
							continue
						}

						// Check exclude patterns.
						if isExcluded(linkURL, req.ExcludePatterns) {
							continue
						}

						// Check scope.
						if !isInScope(linkURL, baseURL, scope) {
							continue
						}

						// Deduplicate.
						if _, loaded := visited.LoadOrStore(normalizeURL(linkURL), struct{}{}); loaded {
							continue
						}

						nextMu.Lock()
						nextLevel = append(nextLevel, bfsItem{url: linkURL, depth: it.depth + 1})
						nextMu.Unlock()
					}
				}
			}(item)
		}

		wg.Wait()
		queue = append(queue, nextLevel...)
	}

	mu.Lock()
	job.Total = len(results)
	failedCount := 0
	for _, r := range results {
		if !r.Success {
			failedCount++
		}
	}

	switch {
	case aborted:
		job.Status = "failed"
	case failedCount == len(results) && len(results) > 0:
		job.Status = "failed"
	case failedCount > 0:
		job.Status = "partial"
	default:
		job.Status = "completed"
	}
	mu.Unlock()

	slog.Info("crawl job finished",
		"id", job.ID,
		"status", job.Status,
		"total", job.Total,
	)
}

// normalizeURL canonicalizes a URL for use as a visited-set key: the
// fragment is stripped, trailing slashes on the path are trimmed, and the
// host is lowercased, so that "http://X.com/a", "http://x.com/a/", and
// "http://x.com/a#f" all collapse to the same key. Unparseable URLs are
// returned unchanged.
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path != "/" {
		parsed.Path = strings.TrimRight(parsed.Path, "/")
	}
	return parsed.String()
}

// isInScope checks whether a link URL is within the crawl scope relative to the base URL.
func isInScope(linkURL string, baseURL *url.URL, scope string) bool {
	parsed, err := url.Parse(linkURL)
	if err != nil {
		return false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	switch scope {
	case "page":
		// Only the exact starting page.
		return false
	case "domain":
		// Same exact domain.
		return strings.EqualFold(parsed.Host, baseURL.Host)
	case "subdomain":
		// Same base domain (e.g., docs.example.com and www.example.com both match example.com).
		return sameBaseDomain(parsed.Host, baseURL.Host)
	default:
		return strings.EqualFold(parsed.Host, baseURL.Host)
	}
}

// sameBaseDomain checks if two hosts share the same base domain.
// For example, "docs.example.com" and "www.example.com" both have base domain "example.com".
func sameBaseDomain(host1, host2 string) bool {
	d1 := baseDomain(host1)
	d2 := baseDomain(host2)
	return strings.EqualFold(d1, d2)
}

// baseDomain extracts the base domain from a host.
// "docs.example.com" -> "example.com", "example.com" -> "example.com"
func baseDomain(host string) string {
	// Strip port if present.
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// isIncluded checks whether a URL path matches at least one include pattern.
func isIncluded(rawURL string, patterns []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, pattern := range patterns {
		if matched, _ := path.Match(pattern, parsed.Path); matched {
			return true
		}
		if matched, _ := path.Match(pattern, rawURL); matched {
			return true
		}
	}
	return false
}

// isExcluded checks whether a URL path matches any of the exclude patterns.
func isExcluded(rawURL string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	for _, pattern := range patterns {
		// Match against the path.
		if matched, _ := path.Match(pattern, parsed.Path); matched {
			return true
		}
		// Also match against the full URL for patterns like "*.pdf".
		if matched, _ := path.Match(pattern, rawURL); matched {
			return true
		}
	}
	return false
}

