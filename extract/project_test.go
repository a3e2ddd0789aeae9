package extract

import (
	"encoding/json"
	"testing"

	"github.com/corestack-dev/purify/models"
)

func articleSource() Source {
	return Source{
		URL:         "https://example.com/article",
		Title:       "A Deep Dive Into Caching",
		Author:      "Jane Doe",
		PublishedAt: "2026-01-15T00:00:00Z",
		SiteName:    "Example Blog",
		CleanText:   "Contact us at jane@example.com or call (555) 123-4567. The price is $42.00 for the full kit.",
		WordCount:   300,
		Headings: []models.Heading{
			{Level: 1, Text: "A Deep Dive Into Caching"},
			{Level: 2, Text: "Why Caching Matters"},
		},
	}
}

func TestProject_WellKnownSlots(t *testing.T) {
	schema := Schema{
		{Name: "title"},
		{Name: "author"},
		{Name: "published_at"},
		{Name: "email"},
		{Name: "phone"},
		{Name: "price"},
	}
	result := Project(schema, "", articleSource())

	var data map[string]interface{}
	if err := json.Unmarshal(result.Data, &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	if data["title"] != "A Deep Dive Into Caching" {
		t.Errorf("title = %v", data["title"])
	}
	if data["author"] != "Jane Doe" {
		t.Errorf("author = %v", data["author"])
	}
	if data["email"] != "jane@example.com" {
		t.Errorf("email = %v", data["email"])
	}
	if data["price"] != "$42.00" {
		t.Errorf("price = %v", data["price"])
	}
}

func TestProject_StrictKeysOnly(t *testing.T) {
	schema := Schema{{Name: "title"}, {Name: "author"}}
	result := Project(schema, "", articleSource())

	var data map[string]interface{}
	if err := json.Unmarshal(result.Data, &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(data) != 2 {
		t.Fatalf("expected exactly 2 keys, got %d: %v", len(data), data)
	}
	if _, ok := data["title"]; !ok {
		t.Error("missing title key")
	}
	if _, ok := data["author"]; !ok {
		t.Error("missing author key")
	}
}

func TestProject_ArrayFieldDefaultsEmpty(t *testing.T) {
	schema := Schema{{Name: "tags", FieldType: FieldTypeArray}}
	result := Project(schema, "", Source{URL: "https://example.com", WordCount: 500, CleanText: "nothing relevant here"})

	var data map[string]json.RawMessage
	if err := json.Unmarshal(result.Data, &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	var arr []interface{}
	if err := json.Unmarshal(data["tags"], &arr); err != nil {
		t.Fatalf("tags is not an array: %v", data["tags"])
	}
	if len(arr) != 0 {
		t.Errorf("expected empty array, got %v", arr)
	}
}

func TestProject_PlaceholderPageGuard(t *testing.T) {
	schema := Schema{
		{Name: "title"},
		{Name: "author"},
		{Name: "published_at"},
	}
	src := Source{URL: "https://example.com/app", WordCount: 5, CleanText: "Loading..."}
	result := Project(schema, "", src)

	if result.Confidence != 0 {
		t.Errorf("expected confidence 0 for placeholder page, got %v", result.Confidence)
	}
	found := false
	for _, w := range result.Warnings {
		if w == "placeholder_page" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected placeholder_page warning, got %v", result.Warnings)
	}
}

func TestProject_RichPageNotPlaceholder(t *testing.T) {
	schema := Schema{{Name: "title"}, {Name: "author"}}
	result := Project(schema, "", articleSource())
	if result.Confidence == 0 {
		t.Errorf("expected non-zero confidence for a rich page, got 0, warnings=%v", result.Warnings)
	}
}

func TestProject_RustdocFastPath(t *testing.T) {
	src := Source{
		URL:       "https://docs.rs/tokio/latest/tokio/",
		WordCount: 400,
		CleanText: "tokio runtime docs",
		Links: models.LinksResult{
			Internal: []models.Link{
				{Href: "struct.Runtime.html", Text: "Runtime"},
				{Href: "trait.AsyncRead.html", Text: "AsyncRead"},
				{Href: "fn.spawn.html", Text: "spawn"},
			},
		},
	}
	schema := Schema{{Name: "symbols", FieldType: FieldTypeArray}}
	result := Project(schema, "", src)

	var data map[string]json.RawMessage
	if err := json.Unmarshal(result.Data, &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	var syms []RustdocSymbol
	if err := json.Unmarshal(data["symbols"], &syms); err != nil {
		t.Fatalf("symbols not decodable: %v (%s)", err, data["symbols"])
	}
	if len(syms) != 3 {
		t.Fatalf("expected 3 symbols, got %d: %+v", len(syms), syms)
	}
}

func TestInferFieldsFromPrompt(t *testing.T) {
	schema := inferFieldsFromPrompt("extract title, author and price")
	if len(schema) != 3 {
		t.Fatalf("expected 3 inferred fields, got %d: %+v", len(schema), schema)
	}
}
