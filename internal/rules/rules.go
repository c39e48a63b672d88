// Package rules scores a structurally valid segmentation against a fixed
// pedagogical rubric: a battery of independent checks on how words were
// grouped into teachable units. Unlike the structural gate, the battery
// never short-circuits — every check runs and all findings are collected —
// and a failing outcome is a quality signal, not a hard error: the result
// is still usable, just worth retrying while budget remains.
package rules

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// Outcome aggregates one battery run.
//
// Valid means no error-severity findings. ShouldRetry is true on any error,
// or when warnings cluster (two or more findings total): a single isolated
// warning is tolerated, but an error or a systematically poor grouping is
// not.
type Outcome struct {
	Valid       bool
	Violations  []schema.Violation
	ShouldRetry bool
}

// Engine runs the rule battery against a lexicon table. The zero value is
// unusable; construct with NewEngine.
type Engine struct {
	lex *Lexicon
}

func NewEngine(lex *Lexicon) *Engine {
	return &Engine{lex: lex}
}

// checks is the fixed, ordered battery. Each check inspects one block (with
// access to its successor for cross-block rules) and returns zero or one
// finding.
var checks = []func(e *Engine, blocks []schema.Block, i int) *schema.Violation{
	(*Engine).checkIsolatedCopula,
	(*Engine).checkBuriedExpression,
	(*Engine).checkAbsorbedMarker,
	(*Engine).checkOrphanPunctuation,
	(*Engine).checkBuriedCircumstantial,
}

// Validate runs every check against every block and aggregates the outcome.
func (e *Engine) Validate(blocks []schema.Block) Outcome {
	var out Outcome
	for _, check := range checks {
		for i := range blocks {
			if v := check(e, blocks, i); v != nil {
				out.Violations = append(out.Violations, *v)
			}
		}
	}

	errorCount, warningCount := Count(out.Violations)
	out.Valid = errorCount == 0
	out.ShouldRetry = errorCount > 0 || (warningCount > 0 && len(out.Violations) >= 2)
	return out
}

// Count splits a finding list into error and warning tallies.
func Count(violations []schema.Violation) (errors, warnings int) {
	for _, v := range violations {
		if v.Severity == schema.SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return
}

// checkIsolatedCopula flags a short block that dangles on a linking/state
// verb ("Le problème reste" | "un défi") when the next block does not open
// with a verb of its own. Such a split leaves the copula semantically empty,
// which is almost always wrong, hence error severity.
func (e *Engine) checkIsolatedCopula(blocks []schema.Block, i int) *schema.Violation {
	words := strings.Fields(blocks[i].OriginalText)
	if len(words) == 0 || len(words) > 2 {
		return nil
	}
	last := stripPunct(words[len(words)-1])
	if !e.lex.isCopula(last) {
		return nil
	}
	if i+1 >= len(blocks) {
		return nil
	}
	nextWords := strings.Fields(blocks[i+1].OriginalText)
	if len(nextWords) > 0 && e.lex.isVerbLike(nextWords[0]) {
		return nil
	}
	return &schema.Violation{
		Kind:         schema.KindIsolatedCopula,
		Message:      fmt.Sprintf("linking verb %q isolated at end of block", last),
		Severity:     schema.SeverityError,
		BlockIndex:   i,
		SuggestedFix: "merge this block with the following one",
	}
}

// checkBuriedExpression flags a block that opens with a known fixed
// expression but drags extra content behind it. The grouping is suboptimal
// rather than broken, hence warning severity.
func (e *Engine) checkBuriedExpression(blocks []schema.Block, i int) *schema.Violation {
	text := strings.ToLower(strings.TrimSpace(blocks[i].OriginalText))
	for _, expr := range e.lex.FixedExpressions {
		expr = strings.ToLower(expr)
		if text != expr && !strings.HasPrefix(text, expr+" ") {
			continue
		}
		trailing := strings.TrimSpace(text[len(expr):])
		if trailing == "" || isPunctOnly(trailing) {
			continue
		}
		return &schema.Violation{
			Kind:         schema.KindBuriedExpression,
			Message:      fmt.Sprintf("fixed expression %q buried at start of longer block", expr),
			Severity:     schema.SeverityWarning,
			BlockIndex:   i,
			SuggestedFix: fmt.Sprintf("split %q into its own block", expr),
		}
	}
	return nil
}

// checkAbsorbedMarker flags a multi-word block that swallows a leading
// discourse marker ("mais", "cependant") instead of letting it stand alone.
func (e *Engine) checkAbsorbedMarker(blocks []schema.Block, i int) *schema.Violation {
	words := strings.Fields(blocks[i].OriginalText)
	if len(words) <= 1 {
		return nil
	}
	first := stripPunct(words[0])
	if !e.lex.isMarker(first) {
		return nil
	}
	rest := strings.TrimSpace(strings.Join(words[1:], " "))
	rest = strings.TrimLeftFunc(rest, isPunctRune)
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	return &schema.Violation{
		Kind:         schema.KindAbsorbedMarker,
		Message:      fmt.Sprintf("discourse marker %q absorbed into block", first),
		Severity:     schema.SeverityWarning,
		BlockIndex:   i,
		SuggestedFix: fmt.Sprintf("split %q into its own block", first),
	}
}

// checkOrphanPunctuation flags a block whose entire content is punctuation.
// Such a block teaches nothing and cannot carry a translation, hence error
// severity regardless of position.
func (e *Engine) checkOrphanPunctuation(blocks []schema.Block, i int) *schema.Violation {
	text := strings.TrimSpace(blocks[i].OriginalText)
	if text == "" || !isPunctOnly(text) {
		return nil
	}
	return &schema.Violation{
		Kind:         schema.KindOrphanPunctuation,
		Message:      fmt.Sprintf("block contains only punctuation %q", text),
		Severity:     schema.SeverityError,
		BlockIndex:   i,
		SuggestedFix: "attach the punctuation to the preceding block",
	}
}

// minPhraseLen is the minimum character length on each side of a
// circumstantial preposition for both sides to count as meaningful content.
const minPhraseLen = 4

// checkBuriedCircumstantial flags a long block where a circumstantial
// preposition sits strictly between meaningful content on both sides,
// suggesting a circumstantial phrase was merged into a larger unit.
func (e *Engine) checkBuriedCircumstantial(blocks []schema.Block, i int) *schema.Violation {
	words := strings.Fields(blocks[i].OriginalText)
	if len(words) <= 3 {
		return nil
	}
	for j := 1; j < len(words)-1; j++ {
		prep, span := e.prepositionAt(words, j)
		if span == 0 {
			continue
		}
		if j+span-1 >= len(words)-1 {
			continue // preposition must end strictly before the last word
		}
		before := strings.Join(words[:j], " ")
		after := strings.Join(words[j+span:], " ")
		if len(before) < minPhraseLen || len(after) < minPhraseLen {
			continue
		}
		return &schema.Violation{
			Kind:         schema.KindBuriedCircumstantial,
			Message:      fmt.Sprintf("circumstantial phrase starting with %q buried mid-block", prep),
			Severity:     schema.SeverityWarning,
			BlockIndex:   i,
			SuggestedFix: fmt.Sprintf("split before %q", prep),
		}
	}
	return nil
}

// prepositionAt reports the circumstantial preposition starting at words[j],
// trying the two-word form before the single-word form. span is the number
// of words matched, 0 when none.
func (e *Engine) prepositionAt(words []string, j int) (string, int) {
	single := strings.ToLower(stripPunct(words[j]))
	var pair string
	if j+1 < len(words) {
		pair = single + " " + strings.ToLower(stripPunct(words[j+1]))
	}
	for _, prep := range e.lex.CircumstantialPrepositions {
		prep = strings.ToLower(prep)
		if pair != "" && prep == pair {
			return prep, 2
		}
		if prep == single {
			return prep, 1
		}
	}
	return "", 0
}

func isPunctRune(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r) || r == '-'
}

// isPunctOnly reports whether s consists entirely of punctuation, dashes,
// and spaces.
func isPunctOnly(s string) bool {
	for _, r := range s {
		if !isPunctRune(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return s != ""
}

// stripPunct trims leading and trailing punctuation from a single word.
func stripPunct(s string) string {
	return strings.TrimFunc(s, isPunctRune)
}
