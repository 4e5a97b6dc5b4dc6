// Package dataset builds and persists training examples for the PII model.
// The input corpus is a JSON array of human-redacted records; the builder
// recovers exact span labels from each (text, redacted_text) pair via the
// aligner and stores the resulting examples in SQLite for the trainer.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/xeipuuv/gojsonschema"
)

// Record is one corpus entry: the original text and its human-redacted
// counterpart with "[CATEGORY]" placeholders.
type Record struct {
	Text         string `json:"text"`
	RedactedText string `json:"redacted_text"`
}

// corpusSchema validates the corpus shape before any alignment work runs, so
// a malformed corpus fails with a field-level message instead of producing
// silently empty examples.
const corpusSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["text", "redacted_text"],
    "properties": {
      "text": {"type": "string", "minLength": 1},
      "redacted_text": {"type": "string", "minLength": 1}
    }
  }
}`

// LoadCorpus reads and validates a training corpus JSON file.
func LoadCorpus(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(corpusSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validating corpus %s: %w", path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("corpus %s is invalid: %s", path, strings.Join(msgs, "; "))
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	return records, nil
}

// StripHTML removes markup from every record with bluemonday's strict
// policy. Scraped corpora often carry tags that would corrupt alignment
// offsets between text and redacted_text.
func StripHTML(records []Record) []Record {
	p := bluemonday.StrictPolicy()
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Record{
			Text:         p.Sanitize(r.Text),
			RedactedText: p.Sanitize(r.RedactedText),
		}
	}
	return out
}
