package session

import (
	"testing"
	"time"
)

func TestDomainKey(t *testing.T) {
	key, ok := DomainKey("https://gist.github.com/foo")
	if !ok || key != "gist_github_com" {
		t.Fatalf("got key=%q ok=%v", key, ok)
	}
}

func TestParentDomainKey(t *testing.T) {
	parent, ok := ParentDomainKey("gist.github.com")
	if !ok || parent != "github_com" {
		t.Fatalf("got parent=%q ok=%v", parent, ok)
	}
	if _, ok := ParentDomainKey("github.com"); ok {
		t.Fatal("expected a bare second-level domain to have no parent")
	}
}

// TestStore_SubdomainFallback: with only a github_com jar stored, loading
// gist.github.com falls back to it.
func TestStore_SubdomainFallback(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	jar := []Cookie{{"name": "session", "value": "abc", "domain": "github.com"}}
	if _, _, err := store.Save("https://github.com/", jar); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	cookies, ok := store.Load("https://gist.github.com/x")
	if !ok {
		t.Fatal("expected subdomain fallback to find the parent jar")
	}
	if len(cookies) != 1 || cookies[0]["name"] != "session" {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
}

func TestStore_ExactMatchPreferredOverParent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if _, _, err := store.Save("https://github.com/", []Cookie{{"name": "parent", "value": "1"}}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Save("https://gist.github.com/", []Cookie{{"name": "exact", "value": "2"}}); err != nil {
		t.Fatal(err)
	}

	cookies, ok := store.Load("https://gist.github.com/x")
	if !ok || len(cookies) != 1 || cookies[0]["name"] != "exact" {
		t.Fatalf("expected exact jar to win, got %+v ok=%v", cookies, ok)
	}
}

func TestStore_NoJarFound(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if _, ok := store.Load("https://nothing-stored.example/"); ok {
		t.Fatal("expected no jar for an unseen domain")
	}
}

func TestEffectiveExpiry_AllSessionScoped(t *testing.T) {
	cookies := []Cookie{
		{"name": "a", "value": "1", "expires": float64(-1)},
		{"name": "b", "value": "2"},
	}
	exp, ok := EffectiveExpiry(cookies)
	if !ok {
		t.Fatal("expected an effective expiry even for session-scoped-only cookies")
	}
	wantMin := float64(time.Now().Unix()) + 86400 - 5
	wantMax := float64(time.Now().Unix()) + 86400 + 5
	if exp < wantMin || exp > wantMax {
		t.Errorf("expected ~now+24h, got %v", exp)
	}
}

func TestEffectiveExpiry_UsesMinimumFinitePersistent(t *testing.T) {
	now := float64(time.Now().Unix())
	cookies := []Cookie{
		{"name": "a", "value": "1", "expires": now + 1000},
		{"name": "b", "value": "2", "expires": now + 500},
		{"name": "c", "value": "3", "expires": float64(-1)},
	}
	exp, ok := EffectiveExpiry(cookies)
	if !ok {
		t.Fatal("expected an effective expiry")
	}
	if exp != now+500 {
		t.Errorf("expected the minimum finite expiry %v, got %v", now+500, exp)
	}
}

func TestEffectiveExpiry_EmptyJar(t *testing.T) {
	if _, ok := EffectiveExpiry(nil); ok {
		t.Fatal("expected an empty jar to report no effective expiry")
	}
}

func TestDomainRecord_IsSessionValid(t *testing.T) {
	future := float64(time.Now().Add(time.Hour).Unix())
	valid := DomainRecord{SessionExpiry: &future}
	if !valid.IsSessionValid() {
		t.Error("expected a future expiry to be valid")
	}

	past := float64(time.Now().Add(-time.Hour).Unix())
	expired := DomainRecord{SessionExpiry: &past}
	if expired.IsSessionValid() {
		t.Error("expected a past expiry to be invalid")
	}

	sessionScoped := DomainRecord{SessionExpiry: nil}
	if !sessionScoped.IsSessionValid() {
		t.Error("expected a nil expiry (session-scoped) to be treated as always valid")
	}
}

func TestAuthRegistry_MarkAndLookup(t *testing.T) {
	dir := t.TempDir()
	reg := NewAuthRegistry(dir)

	reg.MarkRequiresAuth("https://example.com/login", nil)
	rec, ok := reg.Lookup("https://example.com/login")
	if !ok || !rec.NeedsAuth {
		t.Fatalf("expected NeedsAuth, got %+v ok=%v", rec, ok)
	}

	reg.MarkSuccess("https://example.com/login")
	rec, _ = reg.Lookup("https://example.com/login")
	if rec.SuccessfulInjections != 1 {
		t.Errorf("expected 1 successful injection, got %d", rec.SuccessfulInjections)
	}

	n := reg.MarkInjectionFailed("https://example.com/login")
	if n != 1 {
		t.Errorf("expected failure count 1, got %d", n)
	}
}
