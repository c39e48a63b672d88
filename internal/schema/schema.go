// Package schema defines the canonical data types shared by the flowsegment
// segmentation pipeline.
package schema

import (
	"strings"
	"time"
)

// Version stamps persisted results so that a cache populated by an older
// build is detected (and treated as a miss) instead of deserialized into an
// incompatible shape.
const Version = 2

// Word is the addressable input unit: a stable position identifier paired
// with the word text. Positions are non-negative and unique within a
// sequence but not necessarily contiguous (they are typically character
// offsets assigned by the caller).
type Word struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// Block is one contiguous range of words treated as a single translatable
// unit. Once a segmentation has passed validation, StartPosition and
// EndPosition are both member positions of the governing word sequence,
// StartPosition <= EndPosition, and block ranges are pairwise
// non-overlapping.
type Block struct {
	StartPosition  int    `json:"start_position"`
	EndPosition    int    `json:"end_position"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
}

// TokenUsage is the generator's reported token accounting, passed through
// untouched for the caller's cost tracking.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Result is the final output of one segmentation request. It is immutable
// once returned; a retry produces a new Result, never a mutation.
type Result struct {
	Blocks     []Block     `json:"blocks"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

// CachedResult is the persisted form of a Result, keyed externally by an
// opaque identifier.
type CachedResult struct {
	SchemaVersion int       `json:"schema_version"`
	SavedAt       time.Time `json:"saved_at"`
	Result        Result    `json:"result"`
}

// Severity classifies a semantic finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ViolationKind identifies which semantic rule produced a finding.
type ViolationKind string

const (
	KindIsolatedCopula       ViolationKind = "isolated_copula"
	KindBuriedExpression     ViolationKind = "buried_expression"
	KindAbsorbedMarker       ViolationKind = "absorbed_marker"
	KindOrphanPunctuation    ViolationKind = "orphan_punctuation"
	KindBuriedCircumstantial ViolationKind = "buried_circumstantial"
)

// Violation records a single semantic finding against a block. Violations
// are transient: they drive the retry decision and logging, and are never
// persisted.
type Violation struct {
	Kind         ViolationKind `json:"kind"`
	Message      string        `json:"message"`
	Severity     Severity      `json:"severity"`
	BlockIndex   int           `json:"block_index"`
	SuggestedFix string        `json:"suggested_fix,omitempty"`
}

// CompactWord pairs a dense 0-based prompt index with the word text. Only
// compact indices are shown to the generator, to reduce the chance that it
// invents or misremembers a sparse position value.
type CompactWord struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Candidate is the raw structured shape parsed from generator output,
// before remapping and validation.
type Candidate struct {
	Blocks []CandidateBlock `json:"blocks"`
	Usage  *TokenUsage      `json:"usage,omitempty"`
}

// CandidateBlock is one entry of a candidate segmentation as the generator
// emits it. Endpoints arrive as either a compact index pair (short keys "s"
// and "e", the preferred format) or the legacy direct-position pair
// ("start_c"/"end_c"); the translation arrives under the short key "t" or
// the long key "translation". The union is resolved in the remapper, in
// exactly one place, so the rest of the pipeline only ever sees canonical
// Blocks.
type CandidateBlock struct {
	S      *int `json:"s,omitempty"`
	E      *int `json:"e,omitempty"`
	StartC *int `json:"start_c,omitempty"`
	EndC   *int `json:"end_c,omitempty"`

	T           string `json:"t,omitempty"`
	Translation string `json:"translation,omitempty"`

	Original string `json:"original,omitempty"`
}

// Endpoints returns the raw endpoint pair carried by the block, preferring
// the compact-index keys over the legacy position keys. ok is false when
// neither pair is complete.
func (b CandidateBlock) Endpoints() (start, end int, ok bool) {
	if b.S != nil && b.E != nil {
		return *b.S, *b.E, true
	}
	if b.StartC != nil && b.EndC != nil {
		return *b.StartC, *b.EndC, true
	}
	return 0, 0, false
}

// TranslatedText returns whichever translation key is populated, preferring
// the short form.
func (b CandidateBlock) TranslatedText() string {
	if s := strings.TrimSpace(b.T); s != "" {
		return s
	}
	return strings.TrimSpace(b.Translation)
}
