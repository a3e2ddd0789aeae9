package blockdetect

import "testing"

func TestCheck_ChallengeTitle(t *testing.T) {
	blocked, reason := Check("<html><body>checking...</body></html>", "Just a moment...")
	if !blocked {
		t.Fatal("expected a holding-page title to be detected as blocked")
	}
	if reason == "" {
		t.Error("expected a non-empty reason")
	}
}

func TestCheck_PhraseSignature(t *testing.T) {
	blocked, _ := Check("<html><body>Please verify you are a human before continuing.</body></html>", "Example Site")
	if !blocked {
		t.Fatal("expected a challenge phrase in the body to be detected")
	}
}

func TestCheck_CaptchaIframe(t *testing.T) {
	html := `<html><body><iframe src="https://www.google.com/recaptcha/api2/anchor"></iframe></body></html>`
	blocked, reason := Check(html, "Normal Page")
	if !blocked {
		t.Fatal("expected a recaptcha iframe to be detected")
	}
	if reason == "" {
		t.Error("expected a non-empty reason")
	}
}

func TestCheck_ShortBodyWithHoldingTitle(t *testing.T) {
	html := "<html><body>One moment while we check your browser.</body></html>"
	blocked, _ := Check(html, "One moment, please | Example Shop")
	if !blocked {
		t.Fatal("expected a short body paired with a holding-page title to be detected")
	}
}

func TestCheck_NormalPageNotBlocked(t *testing.T) {
	html := "<html><body>" +
		"<article><h1>A Real Article</h1><p>" +
		repeatWords("This is a perfectly normal article with plenty of real content. ", 20) +
		"</p></article></body></html>"
	blocked, reason := Check(html, "A Real Article - Example Blog")
	if blocked {
		t.Fatalf("expected a normal article not to be flagged, reason=%q", reason)
	}
}

func repeatWords(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
