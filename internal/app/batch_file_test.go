package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadCandidatesArrayAndObject(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	arrayPath := filepath.Join(root, "batch.json")
	mustWriteFile(t, arrayPath, `[
		{"title":"Uno","category":"c","source_name":"Diario Uno"},
		{"title":"Dos","category":"c","source_name":"Diario Uno","link":"https://a.pe/2"}
	]`)
	objectPath := filepath.Join(root, "one.json")
	mustWriteFile(t, objectPath, `{"title":"Solo","category":"c","source_name":"Diario Uno"}`)

	batch, err := readCandidates(arrayPath)
	if err != nil {
		t.Fatalf("readCandidates(array) failed: %v", err)
	}
	if len(batch) != 2 || batch[1].Link != "https://a.pe/2" {
		t.Fatalf("unexpected batch: %+v", batch)
	}

	single, err := readCandidates(objectPath)
	if err != nil {
		t.Fatalf("readCandidates(object) failed: %v", err)
	}
	if len(single) != 1 || single[0].Title != "Solo" {
		t.Fatalf("unexpected single candidate: %+v", single)
	}

	if _, err := readCandidates(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestValidateCandidatesReportsPositions(t *testing.T) {
	t.Parallel()

	valid, invalid, err := validateCandidates([]byte(`[
		{"title":"Uno","category":"c","source_name":"s"},
		{"title":"Dos","category":"c"}
	]`))
	if err != nil {
		t.Fatalf("validateCandidates failed: %v", err)
	}
	if len(valid) != 1 || len(invalid) != 1 || invalid[0].Item != 2 {
		t.Fatalf("unexpected result valid=%d invalid=%+v", len(valid), invalid)
	}

	_, invalid, err = validateCandidates([]byte(`{"title":"x"}`))
	if err != nil {
		t.Fatalf("validateCandidates(object) failed: %v", err)
	}
	if len(invalid) != 1 || invalid[0].Item != 1 {
		t.Fatalf("expected single object failure at item 1, got %+v", invalid)
	}
}

func TestLoadBatchReadsStdinOnce(t *testing.T) {
	batch := `[
		{"title":"Uno","category":"c","source_name":"Diario Uno"},
		{"title":"Dos","category":"c","source_name":"Diario Uno"}
	]`

	for _, strict := range []bool{true, false} {
		withStdin(t, batch)
		candidates, invalid, err := loadBatch("-", strict)
		if err != nil {
			t.Fatalf("loadBatch(-, strict=%t) failed: %v", strict, err)
		}
		if len(invalid) != 0 || len(candidates) != 2 || candidates[1].Title != "Dos" {
			t.Fatalf("strict=%t: unexpected candidates=%+v invalid=%+v", strict, candidates, invalid)
		}
	}
}

func TestLoadBatchStrictReportsInvalidItems(t *testing.T) {
	withStdin(t, `[{"title":"Uno","category":"c","source_name":"s"},{"title":"Dos"}]`)

	candidates, invalid, err := loadBatch("-", true)
	if err != nil {
		t.Fatalf("loadBatch failed: %v", err)
	}
	if len(candidates) != 0 || len(invalid) != 1 || invalid[0].Item != 2 {
		t.Fatalf("unexpected candidates=%+v invalid=%+v", candidates, invalid)
	}
}

// withStdin points os.Stdin at a file holding content for the rest of the test.
func withStdin(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin.json")
	mustWriteFile(t, path, content)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open stdin file: %v", err)
	}
	prev := os.Stdin
	os.Stdin = f
	t.Cleanup(func() {
		os.Stdin = prev
		_ = f.Close()
	})
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat(" JSON ", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Fatalf("unexpected format %q err=%v", got, err)
	}
	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Fatalf("unexpected default format %q err=%v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatalf("expected error for yaml")
	}
}

func TestParseUTCDateAndBounds(t *testing.T) {
	t.Parallel()

	day, err := parseUTCDate("2025-03-10")
	if err != nil {
		t.Fatalf("parseUTCDate failed: %v", err)
	}
	start, end := utcDayBounds(day)
	if start.Format("2006-01-02T15:04") != "2025-03-10T00:00" || end.Sub(start).Hours() != 24 {
		t.Fatalf("unexpected bounds %s..%s", start, end)
	}
	if _, err := parseUTCDate("10/03/2025"); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("Municipalidad de Miraflores", 10); got != "Municip..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateForTable("corto", 10); got != "corto" {
		t.Fatalf("unexpected passthrough %q", got)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"serve"}); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if code := Run(nil); code != 2 {
		t.Fatalf("expected exit code 2 without args, got %d", code)
	}
}
