// Package blockdetect recognizes anti-bot challenge and paywall pages so the
// scraping orchestrator can escalate engines or trigger human-in-the-loop
// intervention instead of returning a challenge page as if it were content.
package blockdetect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// phraseSignatures are case-insensitive substrings commonly present on
// interstitial challenge/holding pages served by anti-bot vendors.
var phraseSignatures = []string{
	"just a moment",
	"checking your browser",
	"verify you are human",
	"verifying you are human",
	"please verify you are a human",
	"access denied",
	"attention required",
	"unusual traffic",
	"are you a robot",
	"enable javascript and cookies",
	"ray id",
	"ddos protection by",
}

// titleSignatures are exact (lowercased) holding-page titles.
var titleSignatures = []string{
	"just a moment...",
	"access denied",
	"attention required! | cloudflare",
	"please wait...",
	"one moment, please",
}

// captchaIframePattern matches known CAPTCHA/challenge iframe src hosts.
var captchaIframePattern = regexp.MustCompile(`(?i)(recaptcha|hcaptcha|challenges\.cloudflare\.com|perimeterx|datadome|arkoselabs)`)

// minContentBodyWords is the word count below which a short body combined
// with a holding title is treated as corroborating evidence of a block,
// rather than requiring the phrase signatures alone.
const minContentBodyWords = 40

// Check inspects rendered HTML and the page title for challenge/block
// signatures. It returns whether the page looks blocked and, if so, a short
// human-readable reason suitable for logging or an error message.
func Check(html, title string) (blocked bool, reason string) {
	lowerTitle := strings.ToLower(strings.TrimSpace(title))
	for _, sig := range titleSignatures {
		if lowerTitle == sig {
			return true, "holding-page title: " + title
		}
	}

	lowerHTML := strings.ToLower(html)
	for _, sig := range phraseSignatures {
		if strings.Contains(lowerHTML, sig) {
			return true, "challenge phrase detected: " + sig
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		found := false
		doc.Find("iframe").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if src, ok := sel.Attr("src"); ok && captchaIframePattern.MatchString(src) {
				reason = "captcha iframe detected: " + src
				found = true
				return false
			}
			return true
		})
		if found {
			return true, reason
		}

		if lowerTitle != "" {
			wordCount := len(strings.Fields(doc.Text()))
			if wordCount > 0 && wordCount < minContentBodyWords {
				for _, sig := range titleSignatures {
					if strings.Contains(lowerTitle, strings.TrimSuffix(sig, "...")) {
						return true, "short body with holding title: " + title
					}
				}
			}
		}
	}

	return false, ""
}
