package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinFrench(t *testing.T) {
	lex, err := Builtin("fr")
	if err != nil {
		t.Fatalf("Builtin(fr): %v", err)
	}
	if lex.Language != "fr" {
		t.Errorf("language = %q, want fr", lex.Language)
	}
	if !lex.isCopula("reste") {
		t.Error("isCopula(reste) = false, want true")
	}
	if !lex.isMarker("mais") {
		t.Error("isMarker(mais) = false, want true")
	}
	if len(lex.FixedExpressions) == 0 {
		t.Error("french lexicon has no fixed expressions")
	}
}

func TestBuiltinCaseInsensitive(t *testing.T) {
	if _, err := Builtin("FR"); err != nil {
		t.Errorf("Builtin(FR): %v", err)
	}
}

func TestBuiltinUnknownLanguage(t *testing.T) {
	if _, err := Builtin("xx"); err == nil {
		t.Error("Builtin(xx) = nil error, want failure")
	}
}

func TestParseRejectsMissingLanguage(t *testing.T) {
	if _, err := Parse([]byte("copulas: [est]")); err == nil {
		t.Error("Parse without language = nil error, want failure")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "es.yaml")
	content := `language: es
copulas: [es, son, está, están]
verb_indicators: [es, son, ha, han]
verb_suffixes: [aba, ando, ar, er]
discourse_markers: [pero, entonces]
fixed_expressions: ["a punto de", "sin embargo"]
circumstantial_prepositions: [en, durante, según]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lex.Language != "es" {
		t.Errorf("language = %q, want es", lex.Language)
	}
	if !lex.isCopula("está") {
		t.Error("isCopula(está) = false, want true")
	}

	// The engine algorithm is language-agnostic: the swapped table drives
	// the same checks.
	e := NewEngine(lex)
	out := e.Validate(blocksOf("pero el gato duerme"))
	if findKind(out.Violations, "absorbed_marker") == nil {
		t.Errorf("no absorbed-marker violation with swapped lexicon: %v", out.Violations)
	}
}

func TestVerbLikeHeuristic(t *testing.T) {
	lex, err := Builtin("fr")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		word string
		want bool
	}{
		{"est", true},      // indicator form
		{"dormait", true},  // -ait suffix
		{"manger", true},   // -er infinitive
		{"chat", false},    // noun
		{"un", false},      // too short for any suffix
		{"Mangent,", true}, // punctuation and case stripped first
	}
	for _, c := range cases {
		if got := lex.isVerbLike(c.word); got != c.want {
			t.Errorf("isVerbLike(%q) = %v, want %v", c.word, got, c.want)
		}
	}
}
