package remap

import (
	"testing"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

func intp(v int) *int { return &v }

func TestCompactAssignsDenseIndices(t *testing.T) {
	words := []schema.Word{
		{Position: 12, Text: "Le"},
		{Position: 15, Text: "chat"},
		{Position: 20, Text: "dort"},
	}
	m := Compact(words)

	if len(m.Words) != 3 {
		t.Fatalf("Compact produced %d compact words, want 3", len(m.Words))
	}
	for i, w := range m.Words {
		if w.Index != i {
			t.Errorf("compact word %d has index %d, want %d", i, w.Index, i)
		}
	}
	wantPositions := map[int]int{0: 12, 1: 15, 2: 20}
	for idx, pos := range wantPositions {
		if m.Positions[idx] != pos {
			t.Errorf("Positions[%d] = %d, want %d", idx, m.Positions[idx], pos)
		}
	}
}

func TestCompactSortsUnsortedInput(t *testing.T) {
	words := []schema.Word{
		{Position: 20, Text: "dort"},
		{Position: 12, Text: "Le"},
		{Position: 15, Text: "chat"},
	}
	m := Compact(words)
	if m.Words[0].Text != "Le" || m.Words[1].Text != "chat" || m.Words[2].Text != "dort" {
		t.Errorf("Compact did not sort by position: %+v", m.Words)
	}
}

func TestCompactEmpty(t *testing.T) {
	m := Compact(nil)
	if len(m.Words) != 0 || len(m.Positions) != 0 {
		t.Errorf("Compact(nil) = %+v, want empty mapping", m)
	}
}

func TestExpandRoundTrip(t *testing.T) {
	// Identity candidates over the compact indices must reconstruct the
	// original positions exactly.
	words := []schema.Word{
		{Position: 7, Text: "Le"},
		{Position: 31, Text: "chat"},
		{Position: 99, Text: "dort"},
	}
	m := Compact(words)

	candidates := []schema.CandidateBlock{
		{S: intp(0), E: intp(1), T: "The cat"},
		{S: intp(2), E: intp(2), T: "sleeps"},
	}
	blocks := Expand(candidates, m)

	if blocks[0].StartPosition != 7 || blocks[0].EndPosition != 31 {
		t.Errorf("block 0 = [%d,%d], want [7,31]", blocks[0].StartPosition, blocks[0].EndPosition)
	}
	if blocks[1].StartPosition != 99 || blocks[1].EndPosition != 99 {
		t.Errorf("block 1 = [%d,%d], want [99,99]", blocks[1].StartPosition, blocks[1].EndPosition)
	}
}

func TestExpandLegacyPositionPairPassesThrough(t *testing.T) {
	// Legacy candidates carry true positions under start_c/end_c. The
	// lookup misses and the raw values pass through unchanged.
	words := []schema.Word{
		{Position: 100, Text: "Le"},
		{Position: 105, Text: "chat"},
	}
	m := Compact(words)

	candidates := []schema.CandidateBlock{
		{StartC: intp(100), EndC: intp(105), Translation: "The cat"},
	}
	blocks := Expand(candidates, m)
	if blocks[0].StartPosition != 100 || blocks[0].EndPosition != 105 {
		t.Errorf("legacy block = [%d,%d], want [100,105]", blocks[0].StartPosition, blocks[0].EndPosition)
	}
	if blocks[0].TranslatedText != "The cat" {
		t.Errorf("legacy translation = %q, want %q", blocks[0].TranslatedText, "The cat")
	}
}

func TestExpandReconstructsOriginalText(t *testing.T) {
	words := []schema.Word{
		{Position: 3, Text: "Le"},
		{Position: 6, Text: "chat"},
		{Position: 11, Text: "dort"},
	}
	m := Compact(words)

	candidates := []schema.CandidateBlock{
		{S: intp(0), E: intp(1), T: "The cat"},
	}
	blocks := Expand(candidates, m)
	if blocks[0].OriginalText != "Le chat" {
		t.Errorf("reconstructed original = %q, want %q", blocks[0].OriginalText, "Le chat")
	}
}

func TestExpandKeepsProvidedOriginalText(t *testing.T) {
	m := Compact([]schema.Word{{Position: 0, Text: "Le"}, {Position: 1, Text: "chat"}})
	candidates := []schema.CandidateBlock{
		{S: intp(0), E: intp(1), T: "The cat", Original: "Le chat"},
	}
	blocks := Expand(candidates, m)
	if blocks[0].OriginalText != "Le chat" {
		t.Errorf("original = %q, want provided text kept", blocks[0].OriginalText)
	}
}

func TestExpandMissingEndpointsYieldNegative(t *testing.T) {
	m := Compact([]schema.Word{{Position: 0, Text: "Le"}})
	blocks := Expand([]schema.CandidateBlock{{T: "the"}}, m)
	if blocks[0].StartPosition >= 0 || blocks[0].EndPosition >= 0 {
		t.Errorf("endpointless candidate expanded to [%d,%d], want negative sentinels",
			blocks[0].StartPosition, blocks[0].EndPosition)
	}
}
