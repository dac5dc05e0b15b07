package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"horse.fit/newswire/internal/ingest"
	payloadschema "horse.fit/newswire/schema"
)

// readCandidates loads a batch file holding either a JSON array of
// candidates or a single candidate object.
func readCandidates(path string) ([]ingest.Candidate, error) {
	raw, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return decodeCandidates(path, raw)
}

// loadBatch reads path once. In strict mode the candidates come from the
// schema pass and any invalid item is returned instead.
func loadBatch(path string, strict bool) ([]ingest.Candidate, []payloadschema.ItemError, error) {
	raw, err := readInput(path)
	if err != nil {
		return nil, nil, err
	}
	if !strict {
		candidates, err := decodeCandidates(path, raw)
		return candidates, nil, err
	}
	valid, invalid, err := validateCandidates(raw)
	if err != nil {
		return nil, nil, err
	}
	if len(invalid) > 0 {
		return nil, invalid, nil
	}
	return valid, nil, nil
}

func decodeCandidates(path string, raw []byte) ([]ingest.Candidate, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one ingest.Candidate
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return []ingest.Candidate{one}, nil
	}

	var batch []ingest.Candidate
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return batch, nil
}

// validateCandidates runs the schema over a batch file. Invalid items are
// reported by 1-based position.
func validateCandidates(raw []byte) ([]ingest.Candidate, []payloadschema.ItemError, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		item, err := payloadschema.ValidateCandidateItem(json.RawMessage(trimmed))
		if err != nil {
			return nil, []payloadschema.ItemError{{Item: 1, Err: err}}, nil
		}
		return []ingest.Candidate{*item}, nil, nil
	}
	return payloadschema.ValidateBatch(trimmed)
}

func readInput(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	if path == "-" {
		raw, err := readAllStdin()
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func readAllStdin() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(os.Stdin); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
