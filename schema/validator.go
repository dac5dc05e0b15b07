// Package payloadschema validates candidate batch files before ingestion.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/newswire/internal/ingest"
)

//go:embed candidate_item.schema.json
var candidateItemSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ItemError ties a validation failure to a 1-based position in a batch file.
type ItemError struct {
	Item int
	Err  error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Item, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// ValidateCandidateItem checks one JSON object against the candidate schema
// and returns it decoded.
func ValidateCandidateItem(payload json.RawMessage) (*ingest.Candidate, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}
	return validateValue(value)
}

// ValidateBatch checks a JSON array of candidates. Valid items are returned
// in order; every invalid one yields an ItemError.
func ValidateBatch(payload []byte) ([]ingest.Candidate, []ItemError, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("decode batch JSON: %w", err)
	}
	items, ok := value.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("batch must be a JSON array of candidate items")
	}

	valid := make([]ingest.Candidate, 0, len(items))
	var invalid []ItemError
	for i, raw := range items {
		candidate, err := validateValue(raw)
		if err != nil {
			invalid = append(invalid, ItemError{Item: i + 1, Err: err})
			continue
		}
		valid = append(valid, *candidate)
	}
	return valid, invalid, nil
}

func validateValue(value any) (*ingest.Candidate, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item ingest.Candidate
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("candidate_item.schema.json", strings.NewReader(candidateItemSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("candidate_item.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

// validateSemantics covers what the schema cannot: blank strings and URLs
// that parse but are not absolute http(s).
func validateSemantics(item *ingest.Candidate) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(item.SourceName) == "" {
		return fmt.Errorf("source_name must not be empty")
	}
	if item.Link != "" {
		if err := validateHTTPURL("link", item.Link); err != nil {
			return err
		}
	}
	if item.ImageURL != "" {
		if err := validateHTTPURL("image_url", item.ImageURL); err != nil {
			return err
		}
	}
	return nil
}

func validateHTTPURL(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	u, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be http or https", fieldName)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", fieldName)
	}
	return nil
}
