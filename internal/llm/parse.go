package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// fenceRe matches a markdown code fence block (``` or ~~~) with an optional
// language tag and captures the content between the fences.
// Both backtick and tilde fence styles are supported. The content group uses
// `.*?` (not `.+?`) to allow empty bodies inside fences.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// openFenceRe matches only an opening fence line (no closing fence required).
// Used to strip orphaned opening fences from truncated responses.
var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

// stripMarkdownFences removes leading/trailing markdown code fences that LLMs
// sometimes wrap around JSON output (e.g., "```json\n...\n```").
// If only an opening fence is present (e.g., the response was truncated before
// the closing fence), the opening line is stripped so that the JSON content can
// still be parsed.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	// Handle truncated fenced responses: strip the opening fence line only.
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

// invalidJSONEscapeRe matches a backslash followed by any character that is not
// a valid JSON string escape character ("\/bfnrtu). LLMs sometimes emit such
// sequences unescaped inside JSON strings; this sanitizer converts them to
// properly double-escaped sequences so that the JSON parser accepts the
// response.
var invalidJSONEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// fixInvalidJSONEscapes replaces invalid JSON escape sequences in s with their
// correctly double-escaped equivalents.
func fixInvalidJSONEscapes(s string) string {
	return invalidJSONEscapeRe.ReplaceAllString(s, `\\$1`)
}

// ParseCandidate extracts a structured candidate segmentation from raw
// generator text. Leading/trailing markdown fences are stripped first; if
// parsing fails on invalid escape sequences, a one-shot sanitization is
// attempted before giving up. A parse failure is retryable — the attempt
// failed, not the request.
//
// Field presence (endpoint pairs, translation keys) is deliberately not
// checked here: the remapper resolves the key union and the structural
// validator is the single gate for missing or malformed values.
func ParseCandidate(raw string) (*schema.Candidate, error) {
	raw = stripMarkdownFences(raw)

	var cand schema.Candidate
	if err := json.Unmarshal([]byte(raw), &cand); err != nil {
		fixed := fixInvalidJSONEscapes(raw)
		if err2 := json.Unmarshal([]byte(fixed), &cand); err2 != nil {
			return nil, fmt.Errorf("llm: parse candidate: %w", err)
		}
	}
	return &cand, nil
}
