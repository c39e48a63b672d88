package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// mockProvider is a test double for Provider.
type mockProvider struct {
	lastSystem      string
	lastUser        string
	lastTemperature float64
	response        Completion
	err             error
}

func (m *mockProvider) Complete(_ context.Context, systemPrompt, userPrompt string, _ int, temperature float64) (Completion, error) {
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	m.lastTemperature = temperature
	if m.err != nil {
		return Completion{}, m.err
	}
	return m.response, nil
}

func TestGeneratePromptContents(t *testing.T) {
	mock := &mockProvider{response: Completion{Text: `{"blocks": []}`}}
	client := NewClient(mock, Options{SourceLanguage: "French", TargetLanguage: "English"})

	words := []schema.CompactWord{
		{Index: 0, Text: "Le"},
		{Index: 1, Text: "chat"},
	}
	if _, _, err := client.Generate(context.Background(), words, 0.7); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, want := range []string{"French", "English", "JSON"} {
		if !strings.Contains(mock.lastSystem, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	for _, want := range []string{"0: Le", "1: chat"} {
		if !strings.Contains(mock.lastUser, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
	if mock.lastTemperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", mock.lastTemperature)
	}
}

func TestGeneratePassesUsageThrough(t *testing.T) {
	mock := &mockProvider{response: Completion{
		Text:  `{"blocks": []}`,
		Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 20},
	}}
	client := NewClient(mock, Options{SourceLanguage: "French", TargetLanguage: "English"})

	_, usage, err := client.Generate(context.Background(), nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if usage == nil || usage.PromptTokens != 10 || usage.CompletionTokens != 20 {
		t.Errorf("usage = %+v, want it passed through untouched", usage)
	}
}

func TestGenerateWrapsProviderError(t *testing.T) {
	mock := &mockProvider{err: fmt.Errorf("boom")}
	client := NewClient(mock, Options{})
	if _, _, err := client.Generate(context.Background(), nil, 0); err == nil {
		t.Error("Generate = nil error, want provider failure propagated")
	}
}

func TestIsAuth(t *testing.T) {
	authErr := &AuthError{Provider: "anthropic", Err: errors.New("401")}
	cases := []struct {
		err  error
		want bool
	}{
		{authErr, true},
		{fmt.Errorf("llm: complete: %w", authErr), true},
		{errors.New("timeout"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsAuth(c.err); got != c.want {
			t.Errorf("IsAuth(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider("aws", "some-model"); err == nil {
		t.Error("NewProvider(aws) = nil error, want failure")
	}
}

func TestNewProviderMissingCredentialsIsAuth(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewProvider("anthropic", "some-model")
	if err == nil {
		t.Fatal("NewProvider without key = nil error, want failure")
	}
	if !IsAuth(err) {
		t.Errorf("missing-credentials error %v is not an AuthError", err)
	}
}
