package pipeline

import (
	"encoding/json"
	"strings"
)

// ParseKind classifies the outcome of parsing model output into a list.
type ParseKind int

const (
	// ParsedList means the text was a valid JSON array of strings.
	ParsedList ParseKind = iota
	// ParsedFallback means the text was not valid JSON and was wrapped as a
	// single-element list. Callers decide whether degradation is acceptable.
	ParsedFallback
	// ParsedMalformed means the text was valid JSON but not an array.
	ParsedMalformed
)

// ParseResult is the typed outcome of a tolerant list parse.
type ParseResult struct {
	Kind  ParseKind
	Items []string
	// Raw is the sanitized text that was parsed, kept for diagnosis.
	Raw string
}

// cleanJSON strips Markdown code fences from model output. Models frequently
// wrap JSON in fences despite instruction. Idempotent: cleaning already-clean
// text returns it unchanged.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	return strings.TrimSpace(text)
}

// ParseItemList parses model output expected to be a JSON array of strings.
// Non-JSON text becomes a single-element fallback list rather than an error;
// valid JSON of the wrong shape is reported as malformed so callers can treat
// a broken contract differently from plain prose.
func ParseItemList(text string) ParseResult {
	raw := cleanJSON(text)

	var probe any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return ParseResult{Kind: ParsedFallback, Items: []string{raw}, Raw: raw}
	}

	arr, ok := probe.([]any)
	if !ok {
		// A bare JSON string is still usable as a singleton.
		if s, isString := probe.(string); isString {
			return ParseResult{Kind: ParsedFallback, Items: []string{s}, Raw: raw}
		}
		return ParseResult{Kind: ParsedMalformed, Raw: raw}
	}

	items := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, isString := v.(string); isString {
			items = append(items, s)
		}
	}
	return ParseResult{Kind: ParsedList, Items: items, Raw: raw}
}
