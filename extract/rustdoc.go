package extract

import (
	"regexp"
	"strings"

	"github.com/corestack-dev/purify/models"
)

// rustdocURLRe matches docs.rs and local-rustdoc-served pages, which use a
// very regular anchor-href convention for symbol listings
// (struct.Foo.html, trait.Bar.html, fn.baz.html, enum.Qux.html, ...).
var rustdocURLRe = regexp.MustCompile(`docs\.rs|/doc/.*\.html$|rustdoc`)

var rustdocAnchorRe = regexp.MustCompile(`(?:^|/)(struct|trait|fn|enum|macro|mod|constant|type|union)\.([A-Za-z_][A-Za-z0-9_]*)\.html`)

// RustdocSymbol is one symbol discovered on a rustdoc-generated page.
type RustdocSymbol struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Href string `json:"href"`
}

// isRustdocPage reports whether the URL looks like a rustdoc-generated page,
// triggering the fast path instead of generic slot/heuristic resolution.
func isRustdocPage(url string) bool {
	return rustdocURLRe.MatchString(url)
}

// rustdocSymbols walks the page's links and extracts the ones matching
// rustdoc's symbol-page href convention.
func rustdocSymbols(src Source) []RustdocSymbol {
	var out []RustdocSymbol
	seen := make(map[string]bool)
	all := make([]models.Link, 0, len(src.Links.Internal)+len(src.Links.External))
	all = append(all, src.Links.Internal...)
	all = append(all, src.Links.External...)

	for _, l := range all {
		m := rustdocAnchorRe.FindStringSubmatch(l.Href)
		if m == nil {
			continue
		}
		key := m[1] + ":" + m[2]
		if seen[key] {
			continue
		}
		seen[key] = true
		name := m[2]
		if l.Text != "" {
			name = strings.TrimSpace(l.Text)
		}
		out = append(out, RustdocSymbol{Kind: m[1], Name: name, Href: l.Href})
	}
	return out
}
