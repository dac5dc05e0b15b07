package payloadschema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestValidateCandidateItem_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"title":"Terremoto sacude Lima",
		"content":"Un sismo de magnitud 6.1 se sintió en la capital.",
		"link":"https://a.pe/1",
		"category":"nacional",
		"source_name":"Diario Uno",
		"published_at":"2025-03-10",
		"extracted_at":"2025-03-10T14:00:00Z",
		"language":"es"
	}`)

	item, err := ValidateCandidateItem(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if item.SourceName != "Diario Uno" {
		t.Fatalf("expected source_name=Diario Uno, got %q", item.SourceName)
	}
	if item.ExtractedAt == nil || item.ExtractedAt.Year() != 2025 {
		t.Fatalf("expected extracted_at to be decoded, got %v", item.ExtractedAt)
	}
	if item.PublishedAt != "2025-03-10" {
		t.Fatalf("published_at should stay raw, got %q", item.PublishedAt)
	}
}

func TestValidateCandidateItem_NullOptionals(t *testing.T) {
	payload := json.RawMessage(`{
		"title":"Nueva ley aprobada",
		"content":null,
		"link":null,
		"category":"politica",
		"source_name":"Diario Uno"
	}`)

	item, err := ValidateCandidateItem(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if item.Content != "" || item.Link != "" {
		t.Fatalf("null optionals should decode empty, got %+v", item)
	}
}

func TestValidateCandidateItem_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing source":   `{"title":"x","category":"c"}`,
		"blank title":      `{"title":"   ","category":"c","source_name":"s"}`,
		"unknown field":    `{"title":"x","category":"c","source_name":"s","author":"a"}`,
		"bad extracted_at": `{"title":"x","category":"c","source_name":"s","extracted_at":"ayer"}`,
		"ftp link":         `{"title":"x","category":"c","source_name":"s","link":"ftp://a.pe/1"}`,
		"trailing content": `{"title":"x","category":"c","source_name":"s"} {}`,
	}
	for name, raw := range cases {
		if _, err := ValidateCandidateItem(json.RawMessage(raw)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateBatch(t *testing.T) {
	raw := []byte(`[
		{"title":"Uno","category":"c","source_name":"s"},
		{"title":"","category":"c","source_name":"s"},
		{"title":"Tres","category":"c","source_name":"s","link":"https://x.pe/3"}
	]`)

	valid, invalid, err := ValidateBatch(raw)
	if err != nil {
		t.Fatalf("ValidateBatch returned error: %v", err)
	}
	if len(valid) != 2 || valid[1].Link != "https://x.pe/3" {
		t.Fatalf("unexpected valid items: %+v", valid)
	}
	if len(invalid) != 1 || invalid[0].Item != 2 {
		t.Fatalf("unexpected invalid items: %+v", invalid)
	}
	if !strings.HasPrefix(invalid[0].Error(), "item 2:") {
		t.Fatalf("unexpected error text: %q", invalid[0].Error())
	}
	if errors.Unwrap(invalid[0]) == nil {
		t.Fatalf("ItemError should unwrap")
	}

	if _, _, err := ValidateBatch([]byte(`{"title":"x"}`)); err == nil {
		t.Fatalf("expected error for non-array batch")
	}
}
