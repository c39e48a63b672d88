package llm

import (
	"fmt"
	"strings"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// buildSystemPrompt assembles the segmentation system prompt.
func buildSystemPrompt(sourceLanguage, targetLanguage string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You segment %s text into small meaning units for a language learner and translate each unit into %s.\n\n",
		sourceLanguage, targetLanguage)

	sb.WriteString("Output ONLY valid JSON conforming to the schema below. " +
		"No prose, no markdown, no explanation outside the JSON.\n\n")

	sb.WriteString("Each word is given as an index and its text. Group consecutive words into units. " +
		"Use only indices that appear in the word list. Units must not overlap, " +
		"every word should belong to a unit, and units must appear in reading order.\n\n")

	sb.WriteString("Grouping rules:\n" +
		"- Never end a short unit on a linking verb; keep the verb with what it links to.\n" +
		"- Keep fixed expressions as their own unit.\n" +
		"- Keep discourse markers (but, then, however, ...) as their own unit.\n" +
		"- Never emit a unit that contains only punctuation; attach punctuation to the unit before it.\n" +
		"- Keep circumstantial phrases (in..., during..., despite...) as their own unit.\n\n")

	sb.WriteString(outputSchema)

	return sb.String()
}

// outputSchema is the JSON schema fragment shown to the generator. The short
// keys s/e/t are deliberate: fewer output tokens, fewer chances to drift.
const outputSchema = `Output schema (JSON only):
{
  "blocks": [
    {"s": 0, "e": 2, "t": "translation of words 0-2"},
    {"s": 3, "e": 3, "t": "translation of word 3"}
  ]
}
"s" and "e" are the first and last word index of the unit, inclusive.
`

// buildUserPrompt lists the compact words, one "index: text" pair per line.
func buildUserPrompt(words []schema.CompactWord) string {
	var sb strings.Builder
	sb.WriteString("Words:\n")
	for _, w := range words {
		fmt.Fprintf(&sb, "  %d: %s\n", w.Index, w.Text)
	}
	sb.WriteString("\nProduce the JSON segmentation now.")
	return sb.String()
}
