package cleaner

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestAutoExtract_PrefersSubstantialEmbeddedState(t *testing.T) {
	payload := strings.Repeat("a", 600)
	html := `<html><body>
		<script id="__NEXT_DATA__" type="application/json">{"data":"` + payload + `"}</script>
		<p>Tiny unrelated paragraph.</p>
	</body></html>`

	article := autoExtract(html, "https://example.com/page")
	if !strings.Contains(article.TextContent, payload) {
		t.Fatalf("expected the substantial embedded state to win, got %q", article.TextContent)
	}
}

func TestAutoExtract_SkipsTinyEmbeddedStateInFavorOfJSONLD(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@type":"Article","headline":"Big News Today","description":"This is a fairly long description with plenty of words to clear the JSON-LD candidate word count floor easily."}
		</script>
	</head><body>
		<script id="__NEXT_DATA__">{"x":1}</script>
		<p>Short.</p>
	</body></html>`

	article := autoExtract(html, "https://example.com/article")
	if !strings.Contains(article.TextContent, "Big News Today") {
		t.Fatalf("expected JSON-LD rendering to win, got %q", article.TextContent)
	}
}

func TestAutoExtract_WholeDocumentFallbackWhenEverythingIsTiny(t *testing.T) {
	html := `<html><body><p>Hi</p></body></html>`

	article := autoExtract(html, "https://example.com/empty")
	if article.TextContent != html {
		t.Fatalf("expected the raw-HTML fallback article, got %q", article.TextContent)
	}
}

func TestMdBookLikeCandidate_PrefersMarkdownBodyOverContent(t *testing.T) {
	words := strings.Repeat("word ", 60)
	html := `<html><body>
		<div class="markdown-body"><p>` + "from-markdown-body " + words + `</p></div>
		<div id="content"><p>` + "from-content-div " + words + `</p></div>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	_, text, ok := mdBookLikeCandidate(doc)
	if !ok {
		t.Fatal("expected a qualifying mdBook-like candidate")
	}
	if !strings.Contains(text, "from-markdown-body") {
		t.Errorf("expected .markdown-body to take priority over #content, got %q", text)
	}
}

func TestMdBookLikeCandidate_RequiresMinimumWordCount(t *testing.T) {
	html := `<html><body><div id="content"><p>too short</p></div></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if _, _, ok := mdBookLikeCandidate(doc); ok {
		t.Fatal("expected no candidate below the minimum word count")
	}
}

func TestHeuristicMainExtraction_PicksLongestMatch(t *testing.T) {
	shortWords := strings.Repeat("word ", 5)
	longWords := strings.Repeat("word ", 80)
	html := `<html><body>
		<div class="post">` + "short-block " + shortWords + `</div>
		<article>` + "long-block " + longWords + `</article>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	_, text := heuristicMainExtraction(doc)
	if !strings.Contains(text, "long-block") {
		t.Errorf("expected the longer candidate to win, got %q", text)
	}
}
