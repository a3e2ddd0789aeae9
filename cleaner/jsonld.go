package cleaner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractJSONLD walks every <script type="application/ld+json"> block
// (including @graph/array-wrapped documents) and synthesizes a Markdown
// summary for well-known schema.org types, for pages whose useful content
// is structured data rather than prose (product pages, news listings).
//
// Returns empty string when no recognized JSON-LD is found, so callers can
// fall back to another extraction mode.
func ExtractJSONLD(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	var blocks []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return
		}
		blocks = append(blocks, walkJSONLD(raw)...)
	})

	return strings.Join(blocks, "\n\n")
}

// walkJSONLD normalizes a single JSON-LD document (object, array, or
// @graph-wrapped object) into zero or more rendered Markdown sections.
func walkJSONLD(raw json.RawMessage) []string {
	var asArray []json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err == nil {
		var out []string
		for _, item := range asArray {
			out = append(out, walkJSONLD(item)...)
		}
		return out
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}

	if graph, ok := obj["@graph"]; ok {
		return walkJSONLD(graph)
	}

	if md := renderJSONLDObject(obj); md != "" {
		return []string{md}
	}
	return nil
}

func jsonldString(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Some fields (e.g. author) are nested objects with a "name" field.
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		return jsonldString(nested, "name")
	}
	return ""
}

// renderJSONLDObject renders a Product/Article/NewsArticle/BlogPosting (and
// similar) schema.org object to a short Markdown block. Unknown types are
// skipped.
func renderJSONLDObject(obj map[string]json.RawMessage) string {
	typ := jsonldString(obj, "@type")
	name := jsonldString(obj, "name")
	if name == "" {
		name = jsonldString(obj, "headline")
	}

	switch typ {
	case "Product":
		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n", orDefault(name, "Product"))
		if desc := jsonldString(obj, "description"); desc != "" {
			fmt.Fprintf(&sb, "%s\n\n", desc)
		}
		if offers, ok := obj["offers"]; ok {
			var offer map[string]json.RawMessage
			if err := json.Unmarshal(offers, &offer); err == nil {
				if price := jsonldString(offer, "price"); price != "" {
					fmt.Fprintf(&sb, "- Price: %s %s\n", price, jsonldString(offer, "priceCurrency"))
				}
				if avail := jsonldString(offer, "availability"); avail != "" {
					fmt.Fprintf(&sb, "- Availability: %s\n", avail)
				}
			}
		}
		return sb.String()

	case "Article", "NewsArticle", "BlogPosting":
		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n", orDefault(name, "Article"))
		if author := jsonldString(obj, "author"); author != "" {
			fmt.Fprintf(&sb, "By %s\n\n", author)
		}
		if published := jsonldString(obj, "datePublished"); published != "" {
			fmt.Fprintf(&sb, "Published: %s\n\n", published)
		}
		if desc := jsonldString(obj, "description"); desc != "" {
			fmt.Fprintf(&sb, "%s\n\n", desc)
		}
		return sb.String()

	default:
		return ""
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
