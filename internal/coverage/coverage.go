// Package coverage detects words silently dropped between consecutive
// blocks of an accepted segmentation. Gaps are diagnostic only: perfect
// coverage is desirable but not always achievable from a best-effort
// generator, so a gap is logged, never fatal, and never triggers a retry by
// itself.
package coverage

import (
	"fmt"
	"sort"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// Gap records one coverage hole: a block that starts later than the word
// the previous block left off at.
type Gap struct {
	BlockIndex       int
	ExpectedPosition int
	ActualPosition   int
}

func (g Gap) String() string {
	return fmt.Sprintf("block %d starts at position %d, expected %d",
		g.BlockIndex, g.ActualPosition, g.ExpectedPosition)
}

// Audit walks the blocks in position order against the word sequence,
// tracking the next position a block should start at, and reports every
// mismatch. Blocks and words are sorted independently; neither input is
// modified.
func Audit(blocks []schema.Block, words []schema.Word) []Gap {
	if len(blocks) == 0 || len(words) == 0 {
		return nil
	}

	sortedWords := make([]schema.Word, len(words))
	copy(sortedWords, words)
	sort.Slice(sortedWords, func(i, j int) bool {
		return sortedWords[i].Position < sortedWords[j].Position
	})

	sortedBlocks := make([]schema.Block, len(blocks))
	copy(sortedBlocks, blocks)
	sort.Slice(sortedBlocks, func(i, j int) bool {
		return sortedBlocks[i].StartPosition < sortedBlocks[j].StartPosition
	})

	var gaps []Gap
	expected := sortedWords[0].Position
	for i, b := range sortedBlocks {
		if b.StartPosition != expected {
			gaps = append(gaps, Gap{
				BlockIndex:       i,
				ExpectedPosition: expected,
				ActualPosition:   b.StartPosition,
			})
		}
		// Advance to the word immediately following the block's end, if
		// one exists.
		next := sort.Search(len(sortedWords), func(j int) bool {
			return sortedWords[j].Position > b.EndPosition
		})
		if next < len(sortedWords) {
			expected = sortedWords[next].Position
		}
	}
	return gaps
}
