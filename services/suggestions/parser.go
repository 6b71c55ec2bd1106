package suggestions

import (
	"encoding/json"
	"log"
	"regexp"
)

// RawSuggestion is one candidate as extracted from model output, before any
// validation. The model is untrusted; ids may be hallucinated or malformed.
type RawSuggestion struct {
	ID            string `json:"id"`
	Justification string `json:"justification"`
}

var (
	fencedArrayPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	bareArrayPattern   = regexp.MustCompile(`(?s)\[\s*\{.*?\}\s*\]`)
)

// Parse extracts a suggestion list from raw model output, best effort. Three
// strategies run in order: the whole text as a JSON array, a fenced code
// block, then the first bracket-delimited array-looking substring. The first
// parseable array wins; when all fail the result is empty, never an error.
func Parse(raw string) []RawSuggestion {
	if raw == "" {
		return nil
	}

	if items, ok := decodeArray([]byte(raw)); ok {
		return items
	}

	if m := fencedArrayPattern.FindStringSubmatch(raw); m != nil {
		if items, ok := decodeArray([]byte(m[1])); ok {
			return items
		}
	}

	for _, candidate := range bareArrayPattern.FindAllString(raw, -1) {
		if items, ok := decodeArray([]byte(candidate)); ok {
			return items
		}
	}

	preview := raw
	if len(preview) > 200 {
		preview = preview[:200]
	}
	log.Printf("[suggestions] failed to parse model response as JSON: %q", preview)
	return nil
}

// decodeArray decodes a JSON array element by element so one malformed entry
// doesn't discard the rest.
func decodeArray(data []byte) ([]RawSuggestion, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, false
	}

	items := make([]RawSuggestion, 0, len(elements))
	for _, el := range elements {
		var item RawSuggestion
		if err := json.Unmarshal(el, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, true
}
