package cleaner

import (
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/corestack-dev/purify/models"
)

// Cleaner orchestrates the two-stage cleaning pipeline:
//
//	Stage 1 (extraction): readability / pruning / jsonld / embedded / raw / auto
//	Stage 2 (format):     convert clean HTML → Markdown (or html/text pass-through)
//
// The converter is created once and reused across all requests (goroutine-safe).
type Cleaner struct {
	mdConverter *converter.Converter
}

// NewCleaner initialises the Cleaner with a pre-configured Markdown converter.
func NewCleaner() *Cleaner {
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
	}
}

// CleanOptions carries optional content-filtering parameters for the pipeline.
type CleanOptions struct {
	IncludeTags []string
	ExcludeTags []string

	// CSSSelector, when set, restricts the input HTML to the matched
	// elements before any extraction mode runs.
	CSSSelector string

	// MaxChars truncates the final Content to this many characters. 0 means
	// no limit.
	MaxChars int
}

// Clean runs the full pipeline and returns a partial ScrapeResponse
// (Content + Metadata + Tokens filled; Timing is left to the API layer).
//
// Flow:
//  1. Estimate original tokens from raw HTML.
//  1b. Apply CSS selector scoping and include/exclude tag filters.
//  2. Stage 1: extract main content per extractMode.
//  3. Stage 2: convert to the requested output format.
//  4. Estimate cleaned tokens and compute savings.
//  5. Compute metadata/quality/structure side-data.
//  6. Assemble and return the partial response.
func (c *Cleaner) Clean(rawHTML string, sourceURL string, format string, extractMode string, opts ...CleanOptions) (*models.ScrapeResponse, error) {
	var opt CleanOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	// ── 1. Original token estimate ──────────────────────────────────
	originalTokens := EstimateTokens(rawHTML)

	structHTML := rawHTML // used for links/images/OG — always the full page.
	workingHTML := rawHTML
	var warnings []string

	// ── 1b. CSS selector scoping ─────────────────────────────────────
	if opt.CSSSelector != "" {
		scoped, err := ApplyCSSSelector(workingHTML, opt.CSSSelector)
		if err != nil {
			warnings = append(warnings, "css_selector: "+err.Error())
		} else {
			workingHTML = scoped
		}
	}

	// ── 1c. Include/exclude tag filtering ───────────────────────────
	if len(opt.IncludeTags) > 0 || len(opt.ExcludeTags) > 0 {
		workingHTML = FilterContent(workingHTML, opt.IncludeTags, opt.ExcludeTags)
	}

	// ── 2. Stage 1: Content extraction ──────────────────────────────
	var article readability.Article
	switch extractMode {
	case "raw":
		article = fallbackArticle(workingHTML)

	case "pruning":
		prunedHTML, err := PruneContent(workingHTML, sourceURL)
		if err != nil {
			slog.Warn("pruning: extraction failed, falling back to raw HTML",
				"url", sourceURL, "error", err,
			)
			prunedHTML = workingHTML
			warnings = append(warnings, "pruning extraction failed, used raw HTML")
		}
		metaArticle, _ := ExtractContent(workingHTML, sourceURL)
		article = readability.Article{
			Title:       metaArticle.Title,
			Byline:      metaArticle.Byline,
			Excerpt:     metaArticle.Excerpt,
			SiteName:    metaArticle.SiteName,
			Language:    metaArticle.Language,
			Content:     prunedHTML,
			TextContent: stripTags(prunedHTML),
		}

	case "jsonld":
		md := ExtractJSONLD(workingHTML)
		if md == "" {
			warnings = append(warnings, "no recognized JSON-LD found, falling back to readability")
			article, _ = ExtractContent(workingHTML, sourceURL)
		} else {
			article = articleWithMeta(workingHTML, sourceURL, md, md)
		}

	case "embedded":
		state := ExtractEmbeddedState(workingHTML)
		if state == nil {
			warnings = append(warnings, "no embedded state found, falling back to readability")
			article, _ = ExtractContent(workingHTML, sourceURL)
		} else {
			if state.Truncated {
				warnings = append(warnings, "embedded state truncated")
			}
			wrapped := "```json\n" + state.JSON + "\n```"
			article = articleWithMeta(workingHTML, sourceURL, wrapped, state.JSON)
		}

	case "auto":
		article, warnings = autoExtractLadder(workingHTML, sourceURL, warnings)

	default:
		// "readability" (default).
		article, _ = ExtractContent(workingHTML, sourceURL)
	}

	// ── 3. Stage 2: Format conversion ───────────────────────────────
	var content string
	var err error

	switch format {
	case "markdown", "":
		content, err = ToMarkdown(c.mdConverter, article.Content, sourceURL)
		if err != nil {
			return nil, models.NewScrapeError(
				models.ErrCodeReadability,
				"markdown conversion failed",
				err,
			)
		}
	case "markdown_citations":
		md, convErr := ToMarkdown(c.mdConverter, article.Content, sourceURL)
		if convErr != nil {
			return nil, models.NewScrapeError(
				models.ErrCodeReadability,
				"markdown conversion failed",
				convErr,
			)
		}
		content = ConvertToCitations(md)
	case "html":
		content = article.Content
	case "text":
		content = article.TextContent
	default:
		content, err = ToMarkdown(c.mdConverter, article.Content, sourceURL)
		if err != nil {
			return nil, models.NewScrapeError(
				models.ErrCodeReadability,
				"markdown conversion failed",
				err,
			)
		}
	}

	// ── 3b. Truncation ──────────────────────────────────────────────
	truncated := false
	actualChars := len(content)
	if opt.MaxChars > 0 && len(content) > opt.MaxChars {
		content = content[:opt.MaxChars]
		truncated = true
		warnings = append(warnings, "content truncated to max_chars limit")
	}

	// ── 4. Cleaned token estimate + savings ─────────────────────────
	cleanedTokens := EstimateTokens(content)

	savingsPercent := 0.0
	if originalTokens > 0 {
		savingsPercent = float64(originalTokens-cleanedTokens) / float64(originalTokens) * 100
		savingsPercent = math.Round(savingsPercent*100) / 100
	}

	// ── 5. Extract links, images, OG metadata, headings, code blocks ──
	links := ExtractLinks(structHTML, sourceURL)
	images := ExtractImages(structHTML, sourceURL)
	ogMeta := ExtractOGMetadata(structHTML)
	headings := ExtractHeadings(workingHTML)
	codeBlocks := ExtractCodeBlocks(workingHTML)

	meta := models.Metadata{
		Title:       article.Title,
		Description: article.Excerpt,
		SiteName:    article.SiteName,
		Author:      article.Byline,
		Language:    article.Language,
		SourceURL:   sourceURL,
	}
	NormalizeMetadata(structHTML, &meta)

	wordCount := WordCount(article.TextContent)
	score := ScoreExtraction(wordCount, meta.PublishedAt != "", len(codeBlocks), len(headings))

	domain := ""
	if u, parseErr := url.Parse(sourceURL); parseErr == nil {
		domain = u.Hostname()
	}

	// ── 6. Assemble partial response ────────────────────────────────
	return &models.ScrapeResponse{
		Success:             true,
		Content:             content,
		Metadata:            meta,
		Links:               links,
		Images:              images,
		OGMetadata:          ogMeta,
		Headings:            headings,
		CodeBlocks:          codeBlocks,
		WordCount:           wordCount,
		ReadingTimeMinutes:  ReadingTimeMinutes(wordCount),
		ExtractionScore:     score,
		Domain:              domain,
		Warnings:            warnings,
		Truncated:           truncated,
		ActualChars:         actualChars,
		MaxCharsLimit:       opt.MaxChars,
		HydrationStatus:     DetectHydration(rawHTML),
		Tokens: models.TokenInfo{
			OriginalEstimate: originalTokens,
			CleanedEstimate:  cleanedTokens,
			SavingsPercent:   savingsPercent,
		},
		// Timing, StatusCode, FinalURL, EngineUsed, CacheStatus are left
		// zero-valued — the API handler layer fills them in.
	}, nil
}

// Tuning constants for the auto candidate ladder.
const (
	// autoEmbeddedMinChars is the smallest embedded-state blob worth
	// preferring over the rest of the ladder — below this it's more likely
	// to be an analytics/config snippet than the page's real content.
	autoEmbeddedMinChars = 500

	// autoJSONLDMinWords is the smallest rendered JSON-LD summary worth
	// using on its own.
	autoJSONLDMinWords = 20

	// autoMdBookMinWords matches the mdBook-like container threshold.
	autoMdBookMinWords = 50

	// autoHeuristicMargin is how many more words the heuristic candidate
	// must have over readability before it's preferred.
	autoHeuristicMargin = 20

	// autoWholeDocMinChars is the floor below which even the whole-document
	// fallback is considered empty.
	autoWholeDocMinChars = 80
)

// mdBookSelectors are tried in priority order for the mdBook-like candidate:
// GitHub-rendered READMEs, then mdBook/docs-generator-style containers.
var mdBookSelectors = []string{".markdown-body", "#content", "main", "article"}

// heuristicSelectors are scanned for the best-by-word-count main-content
// candidate when neither an mdBook-like container nor readability produced
// a confident result.
var heuristicSelectors = []string{
	"article", "main", "[role=main]", "[itemprop=articleBody]",
	".entry-content", ".post-content", ".article-content",
	"#content", "#main", ".content", ".post", ".article",
}

// autoExtractLadder runs the full extractor-candidate ladder and records a
// warning if nothing along it produced usable content.
func autoExtractLadder(rawHTML, sourceURL string, warnings []string) (readability.Article, []string) {
	article := autoExtract(rawHTML, sourceURL)
	if strings.TrimSpace(article.TextContent) == "" {
		warnings = append(warnings, "auto extraction produced empty content")
	}
	return article, warnings
}

// autoExtract walks the extractor-candidate ladder in priority order —
// embedded-state JSON, JSON-LD synthesis, mdBook-like container,
// readability, heuristic main extraction, whole-document fallback — and
// returns the first candidate that clears its own bar, or the heuristic vs.
// readability comparison's winner.
func autoExtract(rawHTML, sourceURL string) readability.Article {
	if state := ExtractEmbeddedState(rawHTML); state != nil && state.ActualChars >= autoEmbeddedMinChars {
		wrapped := "```json\n" + state.JSON + "\n```"
		return articleWithMeta(rawHTML, sourceURL, wrapped, state.JSON)
	}

	if md := ExtractJSONLD(rawHTML); md != "" && WordCount(md) >= autoJSONLDMinWords {
		return articleWithMeta(rawHTML, sourceURL, md, md)
	}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if docErr != nil {
		slog.Warn("auto: failed to parse HTML for mdBook/heuristic candidates",
			"url", sourceURL, "error", docErr,
		)
	}

	if docErr == nil {
		if content, text, ok := mdBookLikeCandidate(doc); ok {
			return articleWithMeta(rawHTML, sourceURL, content, text)
		}
	}

	readabilityArticle, _ := ExtractContent(rawHTML, sourceURL)
	readabilityText := strings.TrimSpace(readabilityArticle.TextContent)
	readabilityWords := WordCount(readabilityText)

	var heuristicHTML, heuristicText string
	if docErr == nil {
		heuristicHTML, heuristicText = heuristicMainExtraction(doc)
	}
	heuristicWords := WordCount(heuristicText)

	switch {
	case readabilityWords == 0 && heuristicWords > 0:
		return articleWithMeta(rawHTML, sourceURL, heuristicHTML, heuristicText)
	case heuristicWords == 0 && readabilityWords > 0:
		return readabilityArticle
	case heuristicWords >= readabilityWords+autoHeuristicMargin:
		return articleWithMeta(rawHTML, sourceURL, heuristicHTML, heuristicText)
	case readabilityWords > 0:
		return readabilityArticle
	}

	wholeText := stripTags(rawHTML)
	if len(wholeText) < autoWholeDocMinChars {
		return fallbackArticle(rawHTML)
	}
	return readability.Article{
		Title:       readabilityArticle.Title,
		Byline:      readabilityArticle.Byline,
		Excerpt:     readabilityArticle.Excerpt,
		SiteName:    readabilityArticle.SiteName,
		Language:    readabilityArticle.Language,
		Content:     rawHTML,
		TextContent: wholeText,
	}
}

// articleWithMeta wraps an already-resolved content/text pair with
// Title/Byline/Excerpt/SiteName/Language pulled from a best-effort
// readability pass over the same page, shared by every extract mode whose
// body isn't readability's own output.
func articleWithMeta(rawHTML, sourceURL, content, text string) readability.Article {
	metaArticle, _ := ExtractContent(rawHTML, sourceURL)
	return readability.Article{
		Title:       metaArticle.Title,
		Byline:      metaArticle.Byline,
		Excerpt:     metaArticle.Excerpt,
		SiteName:    metaArticle.SiteName,
		Language:    metaArticle.Language,
		Content:     content,
		TextContent: text,
	}
}

// mdBookLikeCandidate returns the first container selector match with at
// least autoMdBookMinWords words of text.
func mdBookLikeCandidate(doc *goquery.Document) (content string, text string, ok bool) {
	for _, sel := range mdBookSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		innerHTML, err := s.Html()
		if err != nil {
			continue
		}
		innerText := strings.TrimSpace(s.Text())
		if WordCount(innerText) >= autoMdBookMinWords {
			return innerHTML, innerText, true
		}
	}
	return "", "", false
}

// heuristicMainExtraction scans heuristicSelectors for the best-by-word-
// count matching element.
func heuristicMainExtraction(doc *goquery.Document) (content string, text string) {
	var bestHTML, bestText string
	bestWords := 0
	for _, sel := range heuristicSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			candidateText := strings.TrimSpace(s.Text())
			words := WordCount(candidateText)
			if words <= bestWords {
				return
			}
			innerHTML, err := s.Html()
			if err != nil {
				return
			}
			bestHTML, bestText, bestWords = innerHTML, candidateText, words
		})
	}
	return bestHTML, bestText
}

// stripTags is a simple helper that extracts visible text from an HTML
// fragment by parsing it with goquery. Returns trimmed plain text.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
