// Package structural implements the hard gate that decides whether a
// candidate segmentation is usable at all, independent of translation
// quality. A result that fails here is never returned to the caller and
// always counts as a failed attempt.
package structural

import (
	"fmt"
	"sort"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// Validate checks a candidate block list against the canonical word
// sequence: required fields, position membership, ordering, and non-overlap.
// It short-circuits on the first violation found, so the returned message
// names exactly one actionable problem for logging and retry decisions. A
// nil return means the segmentation is structurally valid.
func Validate(blocks []schema.Block, words []schema.Word) error {
	if len(blocks) == 0 {
		return fmt.Errorf("missing or empty blocks")
	}

	positions := make(map[int]bool, len(words))
	for _, w := range words {
		positions[w.Position] = true
	}

	for i, b := range blocks {
		// Negative endpoints mark a candidate that carried no endpoint
		// pair at all (see remap.Expand); positions are never negative.
		if b.StartPosition < 0 || b.EndPosition < 0 {
			return fmt.Errorf("block %d: missing start/end", i)
		}
		if b.TranslatedText == "" {
			return fmt.Errorf("block %d: missing translation", i)
		}
		if !positions[b.StartPosition] {
			return fmt.Errorf("block %d: start not in word map", i)
		}
		if !positions[b.EndPosition] {
			return fmt.Errorf("block %d: end not in word map", i)
		}
		if b.StartPosition > b.EndPosition {
			return fmt.Errorf("block %d: start after end", i)
		}
	}

	ordered := make([]schema.Block, len(blocks))
	copy(ordered, blocks)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartPosition < ordered[j].StartPosition
	})
	for i := 1; i < len(ordered); i++ {
		if ordered[i].StartPosition <= ordered[i-1].EndPosition {
			return fmt.Errorf("blocks %d and %d overlap", i-1, i)
		}
	}

	return nil
}
