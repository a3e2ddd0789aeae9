package cleaner

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// embeddedStateMaxChars caps the serialized embedded-state JSON passed
// downstream, guarding against accidentally dumping megabytes of hydration
// payload into an LLM context.
const embeddedStateMaxChars = 200000

// EmbeddedState is the largest well-formed JSON payload found in a page's
// inline <script> tags, typically a framework hydration blob
// (__NEXT_DATA__, __NUXT__, a GraphQL cache, etc.).
type EmbeddedState struct {
	// Source identifies where the state was found: the script id, or
	// "inline script" if found by brute-force scanning.
	Source string

	// JSON is the (possibly truncated) serialized state.
	JSON string

	// Truncated indicates JSON was cut at embeddedStateMaxChars.
	Truncated bool

	// ActualChars is the untruncated length.
	ActualChars int
}

// knownStateIDs are script element ids commonly used to embed hydration
// payloads by popular frontend frameworks.
var knownStateIDs = []string{"__NEXT_DATA__", "__NUXT_DATA__", "__APOLLO_STATE__"}

// ExtractEmbeddedState scans inline scripts for the largest parseable JSON
// document, preferring known framework state containers over a brute-force
// scan of every <script> body.
func ExtractEmbeddedState(rawHTML string) *EmbeddedState {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	for _, id := range knownStateIDs {
		sel := doc.Find("#" + id)
		if sel.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(sel.Text()); json.Valid([]byte(text)) {
			return buildEmbeddedState(id, text)
		}
	}

	var best string
	var bestSource string
	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if typ != "" && typ != "application/json" && typ != "text/javascript" {
			return
		}
		text := strings.TrimSpace(s.Text())
		if len(text) <= len(best) {
			return
		}
		if !json.Valid([]byte(text)) {
			return
		}
		best = text
		if id, ok := s.Attr("id"); ok {
			bestSource = id
		} else {
			bestSource = "inline script"
		}
	})

	if best == "" {
		return nil
	}
	return buildEmbeddedState(bestSource, best)
}

func buildEmbeddedState(source, raw string) *EmbeddedState {
	state := &EmbeddedState{Source: source, ActualChars: len(raw)}
	if len(raw) > embeddedStateMaxChars {
		state.JSON = raw[:embeddedStateMaxChars]
		state.Truncated = true
	} else {
		state.JSON = raw
	}
	return state
}
