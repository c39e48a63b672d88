// Package remap converts between the sparse position space owned by the
// caller and the dense 0..N-1 index space shown to the generator. Sparse
// positions (typically character offsets) are easy for a model to invent or
// misremember; sequential indices are not. Compact shrinks, Expand restores.
package remap

import (
	"sort"
	"strings"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// Mapping is the output of Compact: the compact word list sent to the
// generator plus the reverse lookup table used by Expand.
type Mapping struct {
	Words     []schema.CompactWord
	Positions map[int]int // compact index -> true position
}

// Compact assigns dense sequential indices to a word sequence. The input is
// expected sorted by position; it is sorted defensively here rather than
// rejected, since an unsorted sequence from the caller is recoverable. An
// empty input yields an empty mapping.
func Compact(words []schema.Word) Mapping {
	m := Mapping{
		Words:     make([]schema.CompactWord, 0, len(words)),
		Positions: make(map[int]int, len(words)),
	}
	sorted := make([]schema.Word, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	for i, w := range sorted {
		m.Words = append(m.Words, schema.CompactWord{Index: i, Text: w.Text})
		m.Positions[i] = w.Position
	}
	return m
}

// Expand resolves candidate blocks into canonical Blocks using the mapping's
// lookup table. Endpoint values absent from the table are passed through
// unchanged rather than rejected: legacy candidates carry true positions
// instead of compact indices, and genuinely invalid values are caught by the
// structural validator downstream. A candidate that carries no endpoint pair
// at all expands to negative endpoints, which the validator reports as
// missing.
//
// When a candidate omits its original text, it is reconstructed by joining
// the text of the compact words whose index falls inside the raw endpoint
// range, in compact order.
func Expand(candidates []schema.CandidateBlock, m Mapping) []schema.Block {
	blocks := make([]schema.Block, 0, len(candidates))
	for _, c := range candidates {
		start, end, ok := c.Endpoints()
		if !ok {
			blocks = append(blocks, schema.Block{
				StartPosition:  -1,
				EndPosition:    -1,
				TranslatedText: c.TranslatedText(),
			})
			continue
		}

		original := strings.TrimSpace(c.Original)
		if original == "" {
			original = joinRange(m.Words, start, end)
		}

		blocks = append(blocks, schema.Block{
			StartPosition:  resolve(m.Positions, start),
			EndPosition:    resolve(m.Positions, end),
			OriginalText:   original,
			TranslatedText: c.TranslatedText(),
		})
	}
	return blocks
}

func resolve(positions map[int]int, v int) int {
	if p, ok := positions[v]; ok {
		return p
	}
	return v
}

// joinRange concatenates the text of all compact words whose index falls in
// [start, end], space-joined, preserving compact order.
func joinRange(words []schema.CompactWord, start, end int) string {
	var parts []string
	for _, w := range words {
		if w.Index >= start && w.Index <= end {
			parts = append(parts, w.Text)
		}
	}
	return strings.Join(parts, " ")
}
