package history

import (
	"context"
	"testing"
)

func TestStore_SearchSortedDescendingAndFiltered(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 10000)

	s.LogSearch("golang concurrency patterns", []byte(`{"results":3}`), 3)
	s.LogSearch("python async await", []byte(`{"results":2}`), 2)
	s.LogScrape("https://example.com/golang", "Golang Concurrency Guide", "A guide about golang concurrency", "example.com", []byte(`{}`))

	results := s.Search(context.Background(), "golang concurrency", 10, 0, nil)
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not sorted descending: %+v", results)
		}
	}
}

func TestStore_EmptyQueryIsScan(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 10000)
	s.LogSearch("a query", []byte(`{}`), 1)
	s.LogScrape("https://example.com", "Title", "preview", "example.com", []byte(`{}`))

	results := s.Search(context.Background(), "", 10, 0, nil)
	if len(results) != 2 {
		t.Fatalf("expected scan to return all entries, got %d", len(results))
	}
	for _, r := range results {
		if r.Score != 0 {
			t.Errorf("expected scan entries to carry score 0, got %v", r.Score)
		}
	}
}

func TestStore_EntryTypeFilter(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 10000)
	s.LogSearch("a query", []byte(`{}`), 1)
	s.LogScrape("https://example.com", "Title", "preview", "example.com", []byte(`{}`))

	searchType := EntryTypeSearch
	results := s.Search(context.Background(), "", 10, 0, &searchType)
	if len(results) != 1 || results[0].Entry.Type != EntryTypeSearch {
		t.Fatalf("expected only search entries, got %+v", results)
	}
}

func TestStore_MinSimilarityFilter(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 10000)
	s.LogSearch("completely unrelated topic about gardening", []byte(`{}`), 1)

	results := s.Search(context.Background(), "golang concurrency internals", 10, 0.99, nil)
	if len(results) != 0 {
		t.Fatalf("expected no results above an unreachable min-similarity, got %+v", results)
	}
}

func TestStore_IsRapidTesting(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 10000)
	url := "https://example.com/same-page"

	if s.IsRapidTesting(url) {
		t.Fatal("expected a single scrape not to count as rapid testing")
	}

	s.LogScrape(url, "Title", "preview content here", "example.com", []byte(`{}`))
	s.LogScrape(url, "Title", "preview content here", "example.com", []byte(`{}`))

	if !s.IsRapidTesting(url) {
		t.Fatal("expected two scrapes of the same URL within 5 minutes to count as rapid testing")
	}
}

func TestStore_FindRecentDuplicate(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 10000)
	s.LogSearch("exact duplicate query text", []byte(`{}`), 1)

	_, score, found := s.FindRecentDuplicate("exact duplicate query text", 1)
	if !found {
		t.Fatal("expected an exact-text repeat query to be found as a duplicate")
	}
	if score < 0.9 {
		t.Errorf("expected a high similarity score for an identical query, got %v", score)
	}
}

func TestStore_TopDomains(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 10000)
	s.LogScrape("https://a.example/1", "t", "p", "a.example", []byte(`{}`))
	s.LogScrape("https://a.example/2", "t", "p", "a.example", []byte(`{}`))
	s.LogScrape("https://b.example/1", "t", "p", "b.example", []byte(`{}`))

	top := s.TopDomains(10)
	if len(top) == 0 || top[0].Domain != "a.example" || top[0].Count != 2 {
		t.Fatalf("expected a.example first with count 2, got %+v", top)
	}
}

func TestStore_MaxEntriesEviction(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 2, 10000)
	s.LogSearch("first", []byte(`{}`), 0)
	s.LogSearch("second", []byte(`{}`), 0)
	s.LogSearch("third", []byte(`{}`), 0)

	if len(s.entries) != 2 {
		t.Fatalf("expected eviction to cap at 2 entries, got %d", len(s.entries))
	}
	if s.entries[len(s.entries)-1].Query != "third" {
		t.Errorf("expected the most recent entry to survive eviction, got %+v", s.entries)
	}
}

func TestStore_FullResultTruncation(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 20)
	big := make([]byte, 500)
	for i := range big {
		big[i] = 'x'
	}
	entry := s.LogSearch("q", big, 0)
	if len(entry.FullResult) >= len(big) {
		t.Fatalf("expected truncation to shrink the stored result, got %d bytes", len(entry.FullResult))
	}
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 100, 10000)
	s.LogSearch("persisted query", []byte(`{}`), 0)

	reloaded := NewStore(dir, 100, 10000)
	if len(reloaded.entries) != 1 {
		t.Fatalf("expected reload to pick up the persisted entry, got %d", len(reloaded.entries))
	}
	if reloaded.entries[0].Query != "persisted query" {
		t.Errorf("unexpected reloaded entry: %+v", reloaded.entries[0])
	}
}
