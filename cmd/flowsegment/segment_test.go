package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseInput(t *testing.T) {
	doc, err := parseInput(strings.NewReader(`{
		"sequences": [
			{"id": "p1", "words": [
				{"position": 7, "text": "le"},
				{"position": 12, "text": "chat"}
			]}
		]
	}`))
	if err != nil {
		t.Fatalf("parseInput: %v", err)
	}
	if len(doc.Sequences) != 1 {
		t.Fatalf("expected 1 sequence, got %d", len(doc.Sequences))
	}
	seq := doc.Sequences[0]
	if seq.ID != "p1" {
		t.Errorf("id = %q, want p1", seq.ID)
	}
	if len(seq.Words) != 2 || seq.Words[1].Position != 12 || seq.Words[1].Text != "chat" {
		t.Errorf("unexpected words: %+v", seq.Words)
	}
}

func TestParseInputRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", `{"sequences": [`},
		{"empty document", `{}`},
		{"no sequences", `{"sequences": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseInput(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReadInputFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json")
	content := `{"sequences": [{"id": "a", "words": [{"position": 1, "text": "bonjour"}]}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := readInput(strings.NewReader("ignored"), []string{path})
	if err != nil {
		t.Fatalf("readInput: %v", err)
	}
	if len(doc.Sequences) != 1 || doc.Sequences[0].ID != "a" {
		t.Errorf("unexpected doc: %+v", doc)
	}
}

func TestReadInputMissingFile(t *testing.T) {
	if _, err := readInput(strings.NewReader(""), []string{"/nonexistent/input.json"}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadInputStdinDash(t *testing.T) {
	stdin := strings.NewReader(`{"sequences": [{"id": "s", "words": [{"position": 3, "text": "oui"}]}]}`)
	doc, err := readInput(stdin, []string{"-"})
	if err != nil {
		t.Fatalf("readInput: %v", err)
	}
	if doc.Sequences[0].ID != "s" {
		t.Errorf("unexpected doc: %+v", doc)
	}
}

func TestLanguagesCommand(t *testing.T) {
	cmd := newLanguagesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("languages: %v", err)
	}
	if !strings.Contains(out.String(), "fr") {
		t.Errorf("output %q does not list fr", out.String())
	}
}
