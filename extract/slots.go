package extract

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\-.\s()]{7,16}\d`)
	priceRe = regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(?:\.\d{1,2})?|\d[\d,]*(?:\.\d{1,2})?\s?(?:USD|EUR|GBP)`)
)

// wellKnownSlot resolves a field by name/description against metadata the
// pipeline already extracted, without touching the clean text. It returns
// (value, true) when the slot applies to this field, even if the resolved
// value is empty — callers distinguish "no such slot" from "slot was empty".
func wellKnownSlot(f FieldSpec, src Source) (interface{}, bool) {
	key := slotKey(f)
	switch key {
	case "title", "headline", "name":
		return src.Title, true
	case "author", "byline", "writer":
		return src.Author, true
	case "date", "published", "published_at", "publishedat", "publish_date", "pubdate":
		return src.PublishedAt, true
	case "description", "summary", "excerpt":
		return src.Description, true
	case "site", "sitename", "site_name", "publisher":
		return src.SiteName, true
	case "url", "source", "source_url", "link":
		return src.URL, true
	case "email":
		if m := emailRe.FindString(src.CleanText); m != "" {
			return m, true
		}
		return "", true
	case "phone", "telephone", "phone_number":
		if m := phoneRe.FindString(src.CleanText); m != "" {
			return strings.TrimSpace(m), true
		}
		return "", true
	case "price", "cost", "amount":
		if m := priceRe.FindString(src.CleanText); m != "" {
			return m, true
		}
		return "", true
	case "headings", "headers", "toc", "table_of_contents":
		out := make([]string, 0, len(src.Headings))
		for _, h := range src.Headings {
			out = append(out, h.Text)
		}
		return out, true
	case "links", "urls":
		out := make([]string, 0, len(src.Links.Internal)+len(src.Links.External))
		for _, l := range src.Links.Internal {
			out = append(out, l.Href)
		}
		for _, l := range src.Links.External {
			out = append(out, l.Href)
		}
		return out, true
	case "images", "image_urls":
		out := make([]string, 0, len(src.Images))
		for _, img := range src.Images {
			out = append(out, img.Src)
		}
		return out, true
	case "code", "code_blocks", "codeblocks", "snippets":
		out := make([]string, 0, len(src.CodeBlocks))
		for _, cb := range src.CodeBlocks {
			out = append(out, cb.Code)
		}
		return out, true
	default:
		return nil, false
	}
}

// slotKey normalizes a field's name/description into a lookup key: lowercase,
// map spaces and hyphens to underscores, and prefer the name unless it's generic
// (e.g. "field1") and the description carries the real hint.
func slotKey(f FieldSpec) string {
	name := strings.ToLower(strings.TrimSpace(f.Name))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	if name != "" && !looksGeneric(name) {
		return name
	}
	desc := strings.ToLower(strings.TrimSpace(f.Description))
	for _, candidate := range []string{
		"title", "author", "published_at", "date", "description", "site_name",
		"url", "email", "phone", "price", "headings", "links", "images", "code",
	} {
		if strings.Contains(desc, candidate) {
			return candidate
		}
	}
	return name
}

func looksGeneric(name string) bool {
	if name == "" {
		return true
	}
	for _, p := range []string{"field", "value", "item", "prop", "attr"} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
