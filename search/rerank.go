package search

import (
	"sort"
	"strings"
)

// ExpandQuery generates lightweight query variants (the original phrase plus,
// for queries of more than three words, the last half of the words) so a caller can
// issue several searches and merge the results, matching the original
// tool's naive expansion rather than anything model-driven.
func ExpandQuery(query string) []string {
	variants := []string{query}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return variants
	}

	words := strings.Fields(trimmed)
	if len(words) > 3 {
		// Also try the last half of the query, which often carries the
		// more specific/discriminating terms in a long natural-language
		// question ("what is the best way to configure nginx reverse
		// proxy" -> "configure nginx reverse proxy").
		half := words[len(words)/2:]
		variants = append(variants, strings.Join(half, " "))
	}

	return variants
}

// Rerank scores and sorts merged results by lexical overlap with query,
// deduplicating by URL and preferring results whose title/snippet contains
// more of the query's significant words — a cheap stand-in for embedding
// similarity given no vector index exists in this service.
func Rerank(query string, results []Result) []Result {
	keywords := significantWords(query)

	seen := make(map[string]int, len(results))
	deduped := make([]Result, 0, len(results))
	for _, r := range results {
		key := normalizeURL(r.URL)
		if idx, ok := seen[key]; ok {
			// Keep the first occurrence, just drop the duplicate.
			_ = idx
			continue
		}
		r.Score = scoreResult(r, keywords)
		seen[key] = len(deduped)
		deduped = append(deduped, r)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	return deduped
}

func significantWords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `"'.,!?`)
		if len(w) < 3 {
			continue
		}
		out = append(out, w)
	}
	return out
}

func scoreResult(r Result, keywords []string) float64 {
	haystack := strings.ToLower(r.Title + " " + r.Snippet)
	if len(keywords) == 0 {
		return 0
	}
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			matches++
		}
	}
	titleBonus := 0.0
	titleLower := strings.ToLower(r.Title)
	for _, kw := range keywords {
		if strings.Contains(titleLower, kw) {
			titleBonus += 0.1
		}
	}
	return float64(matches)/float64(len(keywords)) + titleBonus
}

func normalizeURL(raw string) string {
	u := strings.TrimSuffix(strings.ToLower(raw), "/")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return u
}
