package session

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// AutoInject loads the stored jar for rawURL's domain (with parent-domain
// fallback) and replays it onto page via the CDP Network domain. It returns
// the number of cookies injected; zero means no stored jar was found.
func AutoInject(store *Store, page *rod.Page, rawURL string) int {
	cookies, ok := store.Load(rawURL)
	if !ok {
		return 0
	}
	n := 0
	for _, c := range cookies {
		param, ok := toCookieParam(c)
		if !ok {
			continue
		}
		if _, err := param.Call(page); err == nil {
			n++
		}
	}
	return n
}

func toCookieParam(c Cookie) (proto.NetworkSetCookie, bool) {
	name, _ := c["name"].(string)
	value, _ := c["value"].(string)
	if name == "" {
		return proto.NetworkSetCookie{}, false
	}
	domain, _ := c["domain"].(string)
	path, _ := c["path"].(string)
	if path == "" {
		path = "/"
	}
	secure, _ := c["secure"].(bool)
	httpOnly, _ := c["httpOnly"].(bool)
	return proto.NetworkSetCookie{
		Name:     name,
		Value:    value,
		Domain:   domain,
		Path:     path,
		Secure:   secure,
		HTTPOnly: httpOnly,
	}, true
}

// Capture reads the page's current cookie jar via CDP and converts it into
// the storage representation, ready to hand to Store.Save.
func Capture(page *rod.Page) ([]Cookie, error) {
	raw, err := proto.NetworkGetCookies{}.Call(page)
	if err != nil {
		return nil, err
	}
	out := make([]Cookie, 0, len(raw.Cookies))
	for _, c := range raw.Cookies {
		entry := Cookie{
			"name":     c.Name,
			"value":    c.Value,
			"domain":   c.Domain,
			"path":     c.Path,
			"secure":   c.Secure,
			"httpOnly": c.HTTPOnly,
		}
		if c.Expires > 0 {
			entry["expires"] = float64(c.Expires)
		} else {
			entry["expires"] = float64(-1)
		}
		out = append(out, entry)
	}
	return out, nil
}
