package rules

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the closed word lists the rule battery checks against. The
// checker algorithm is language-agnostic; all language knowledge lives here.
type Lexicon struct {
	Language string `yaml:"language"`

	// Copulas are linking/state verbs that must not dangle at the end of a
	// short block (e.g. "reste", "est").
	Copulas []string `yaml:"copulas"`

	// VerbIndicators are conjugated forms that mark a following block as
	// verb-initial, which makes a preceding dangling copula acceptable.
	VerbIndicators []string `yaml:"verb_indicators"`

	// VerbSuffixes are word endings characteristic of conjugated verbs.
	// Suffix matching is approximate on purpose: short or irregular words
	// produce false positives and negatives, and that imprecision is
	// accepted behavior, not a defect to engineer away.
	VerbSuffixes []string `yaml:"verb_suffixes"`

	DiscourseMarkers []string `yaml:"discourse_markers"`

	// FixedExpressions are multi-word units that should open their own
	// block rather than be buried at the head of a longer one.
	FixedExpressions []string `yaml:"fixed_expressions"`

	// CircumstantialPrepositions are single- or two-word prepositions that
	// suggest a circumstantial phrase was merged into a larger block.
	CircumstantialPrepositions []string `yaml:"circumstantial_prepositions"`

	copulaSet    map[string]bool
	indicatorSet map[string]bool
	markerSet    map[string]bool
}

//go:embed lexicons/*.yaml
var builtinFS embed.FS

var (
	builtinsOnce sync.Once
	builtins     map[string]*Lexicon
	builtinsErr  error
)

// Parse decodes a YAML lexicon table and prepares its lookup sets.
func Parse(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("rules: parse lexicon: %w", err)
	}
	if lex.Language == "" {
		return nil, fmt.Errorf("rules: lexicon has no language field")
	}
	lex.index()
	return &lex, nil
}

// Load reads a lexicon table from a YAML file on disk.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read lexicon %s: %w", path, err)
	}
	return Parse(data)
}

// Builtin returns the embedded lexicon for a language code, e.g. "fr".
func Builtin(language string) (*Lexicon, error) {
	if err := loadBuiltins(); err != nil {
		return nil, err
	}
	lex, ok := builtins[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("rules: no built-in lexicon for language %q (have: %s)",
			language, strings.Join(BuiltinLanguages(), ", "))
	}
	return lex, nil
}

// BuiltinLanguages lists the embedded lexicon language codes, sorted.
func BuiltinLanguages() []string {
	if err := loadBuiltins(); err != nil {
		return nil
	}
	langs := make([]string, 0, len(builtins))
	for l := range builtins {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

func loadBuiltins() error {
	builtinsOnce.Do(func() {
		builtins = make(map[string]*Lexicon)
		entries, err := builtinFS.ReadDir("lexicons")
		if err != nil {
			builtinsErr = fmt.Errorf("rules: read embedded lexicons: %w", err)
			return
		}
		for _, e := range entries {
			data, err := builtinFS.ReadFile("lexicons/" + e.Name())
			if err != nil {
				builtinsErr = fmt.Errorf("rules: read embedded lexicon %s: %w", e.Name(), err)
				return
			}
			lex, err := Parse(data)
			if err != nil {
				builtinsErr = fmt.Errorf("rules: embedded lexicon %s: %w", e.Name(), err)
				return
			}
			builtins[strings.ToLower(lex.Language)] = lex
		}
	})
	return builtinsErr
}

func (l *Lexicon) index() {
	l.copulaSet = toSet(l.Copulas)
	l.indicatorSet = toSet(l.VerbIndicators)
	l.markerSet = toSet(l.DiscourseMarkers)
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

func (l *Lexicon) isCopula(word string) bool    { return l.copulaSet[strings.ToLower(word)] }
func (l *Lexicon) isMarker(word string) bool    { return l.markerSet[strings.ToLower(word)] }
func (l *Lexicon) isIndicator(word string) bool { return l.indicatorSet[strings.ToLower(word)] }

// isVerbLike reports whether a word looks like a conjugated verb: either a
// known indicator form or a word carrying a characteristic verb ending.
// Deliberately heuristic; see VerbSuffixes.
func (l *Lexicon) isVerbLike(word string) bool {
	w := strings.ToLower(stripPunct(word))
	if w == "" {
		return false
	}
	if l.indicatorSet[w] {
		return true
	}
	for _, suf := range l.VerbSuffixes {
		if len(w) > len(suf)+1 && strings.HasSuffix(w, suf) {
			return true
		}
	}
	return false
}
