package cleaner

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/corestack-dev/purify/models"
)

var headingTagRe = regexp.MustCompile(`^h([1-6])$`)

// ExtractHeadings walks h1-h6 elements in document order.
func ExtractHeadings(rawHTML string) []models.Heading {
	var out []models.Heading
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return out
	}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		m := headingTagRe.FindStringSubmatch(tag)
		if m == nil {
			return
		}
		level, _ := strconv.Atoi(m[1])
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		out = append(out, models.Heading{Level: level, Text: text})
	})
	return out
}

// ExtractCodeBlocks collects <pre><code> blocks, tagging the language from a
// "language-xxx" or "lang-xxx" class when present.
func ExtractCodeBlocks(rawHTML string) []models.CodeBlock {
	var out []models.CodeBlock
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return out
	}
	doc.Find("pre code").Each(func(_ int, s *goquery.Selection) {
		code := s.Text()
		if strings.TrimSpace(code) == "" {
			return
		}
		lang := ""
		if class, ok := s.Attr("class"); ok {
			for _, c := range strings.Fields(class) {
				if strings.HasPrefix(c, "language-") {
					lang = strings.TrimPrefix(c, "language-")
					break
				}
				if strings.HasPrefix(c, "lang-") {
					lang = strings.TrimPrefix(c, "lang-")
					break
				}
			}
		}
		out = append(out, models.CodeBlock{Language: lang, Code: code})
	})
	return out
}

// NormalizeMetadata fills in canonical URL, published-at timestamp, and
// keywords from <link>/<meta> tags that go-readability doesn't surface.
func NormalizeMetadata(rawHTML string, meta *models.Metadata) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		meta.Canonical = strings.TrimSpace(href)
	}

	for _, sel := range []string{
		`meta[property="article:published_time"]`,
		`meta[name="article:published_time"]`,
		`meta[property="og:published_time"]`,
		`meta[itemprop="datePublished"]`,
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && content != "" {
			meta.PublishedAt = strings.TrimSpace(content)
			break
		}
	}

	if content, ok := doc.Find(`meta[name="keywords"]`).First().Attr("content"); ok && content != "" {
		for _, kw := range strings.Split(content, ",") {
			if trimmed := strings.TrimSpace(kw); trimmed != "" {
				meta.Keywords = append(meta.Keywords, trimmed)
			}
		}
	}
}

// WordCount counts whitespace-delimited words in plain text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTimeMinutes estimates reading time at 200 words/minute, minimum 1.
func ReadingTimeMinutes(wordCount int) int {
	if wordCount <= 0 {
		return 1
	}
	minutes := int(math.Ceil(float64(wordCount) / 200.0))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// hydrationMarkers are script/DOM fingerprints left by common client-side
// rendering frameworks, used to tell callers whether a page likely needed a
// browser to render its real content.
var hydrationMarkers = []string{
	"__NEXT_DATA__", "__NUXT__", "ng-version", "data-reactroot",
	"__APOLLO_STATE__", "window.__INITIAL_STATE__",
}

// DetectHydration reports whether a page looks client-side rendered.
func DetectHydration(rawHTML string) string {
	for _, marker := range hydrationMarkers {
		if strings.Contains(rawHTML, marker) {
			return "rendered"
		}
	}
	if strings.TrimSpace(rawHTML) == "" {
		return "unknown"
	}
	return "static"
}
