package extract

import (
	"regexp"
	"strings"
)

// heuristicWindow bounds how far from a keyword match we'll scan for a
// plausible value. Kept small so unrelated page content can't leak in.
const heuristicWindow = 200

var (
	numberNearRe = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)
	listItemRe   = regexp.MustCompile(`(?m)^\s*[-*•]\s+(.+)$`)
)

// heuristicResolve finds a value for a field with no well-known slot by
// locating the field's keyword(s) in the clean text and scanning a bounded
// window around the match for a value shaped like the requested field type.
func heuristicResolve(f FieldSpec, src Source) interface{} {
	keywords := keywordsFor(f)
	text := src.CleanText
	lowerText := strings.ToLower(text)

	pos := -1
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if i := strings.Index(lowerText, kw); i >= 0 {
			pos = i + len(kw)
			break
		}
	}
	if pos < 0 {
		return f.zeroValue()
	}

	end := pos + heuristicWindow
	if end > len(text) {
		end = len(text)
	}
	window := text[pos:end]

	switch f.normalizedType() {
	case FieldTypeNumber:
		if m := numberNearRe.FindString(window); m != "" {
			return strings.ReplaceAll(m, ",", "")
		}
		return f.zeroValue()
	case FieldTypeArray:
		items := listItemRe.FindAllStringSubmatch(window, -1)
		if len(items) == 0 {
			return f.zeroValue()
		}
		out := make([]string, 0, len(items))
		for _, m := range items {
			out = append(out, strings.TrimSpace(m[1]))
		}
		return out
	case FieldTypeBool:
		lw := strings.ToLower(window)
		if strings.Contains(lw, "yes") || strings.Contains(lw, "true") {
			return true
		}
		if strings.Contains(lw, "no") || strings.Contains(lw, "false") {
			return false
		}
		return f.zeroValue()
	default:
		snippet := strings.TrimSpace(firstSentence(window))
		if snippet == "" {
			return f.zeroValue()
		}
		return snippet
	}
}

func keywordsFor(f FieldSpec) []string {
	var kws []string
	if n := strings.ToLower(strings.TrimSpace(f.Name)); n != "" {
		kws = append(kws, strings.ReplaceAll(n, "_", " "))
	}
	if d := strings.ToLower(strings.TrimSpace(f.Description)); d != "" {
		// Use the first few words of the description as a secondary anchor.
		words := strings.Fields(d)
		if len(words) > 4 {
			words = words[:4]
		}
		kws = append(kws, strings.Join(words, " "))
	}
	return kws
}

func firstSentence(s string) string {
	s = strings.TrimLeft(s, " :\t\n-")
	for i, r := range s {
		if r == '.' || r == '\n' {
			return s[:i]
		}
	}
	if len(s) > 120 {
		return s[:120]
	}
	return s
}

// inferFieldsFromPrompt builds a minimal schema from a natural-language
// prompt by treating comma/and-separated noun phrases as requested fields.
// Used when the caller supplies a prompt instead of an explicit schema.
func inferFieldsFromPrompt(prompt string) Schema {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}
	prompt = strings.ToLower(prompt)
	for _, lead := range []string{"extract ", "get ", "find "} {
		prompt = strings.TrimPrefix(prompt, lead)
	}
	prompt = strings.ReplaceAll(prompt, " and ", ",")
	parts := strings.Split(prompt, ",")

	var schema Schema
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name := strings.ReplaceAll(p, " ", "_")
		schema = append(schema, FieldSpec{Name: name, Description: p})
	}
	return schema
}
