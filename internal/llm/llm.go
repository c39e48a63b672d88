// Package llm handles generator communication: provider dispatch, prompt
// construction, and parsing of the raw candidate text the model returns.
// The generator is treated as an opaque function from a compact word list to
// best-effort text; everything downstream of parsing lives in the
// structural/rules/orchestrate packages.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// Completion is one raw generator response: unstructured text that may or
// may not parse, plus token accounting when the provider reports it.
type Completion struct {
	Text  string
	Usage *schema.TokenUsage
}

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (Completion, error)
}

// NewProvider is the factory for creating LLM providers. It is a package-level
// variable so tests can replace it with a mock without modifying the call site.
// Tests must restore the original value; use t.Cleanup to do so safely.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// AuthError marks a failure that retrying cannot fix: missing credentials at
// construction time, or an authorization rejection from the provider. The
// orchestrator aborts immediately on these instead of consuming attempts.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authorization: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Options configures a segmentation Client.
type Options struct {
	SourceLanguage string // language of the text being read, e.g. "French"
	TargetLanguage string // language of the produced translations, e.g. "English"
	MaxTokens      int
}

// Client builds segmentation prompts and runs them through a Provider.
// A Client holds no per-request state and is safe for concurrent use.
type Client struct {
	provider Provider
	opts     Options
}

func NewClient(provider Provider, opts Options) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &Client{provider: provider, opts: opts}
}

// Generate sends one compact word list to the provider and returns the raw
// candidate text. The signature matches orchestrate.Generator.
func (c *Client) Generate(ctx context.Context, words []schema.CompactWord, temperature float64) (string, *schema.TokenUsage, error) {
	sysPrompt := buildSystemPrompt(c.opts.SourceLanguage, c.opts.TargetLanguage)
	userPrompt := buildUserPrompt(words)

	comp, err := c.provider.Complete(ctx, sysPrompt, userPrompt, c.opts.MaxTokens, temperature)
	if err != nil {
		return "", nil, fmt.Errorf("llm: complete: %w", err)
	}
	return comp.Text, comp.Usage, nil
}

// ── Provider dispatch ─────────────────────────────────────────────────────────

// defaultNewProvider dispatches to the appropriate provider implementation.
func defaultNewProvider(providerName, model string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "anthropic", "":
		return newAnthropicProvider(model)
	case "openai":
		return newOpenAIProvider(model)
	case "google":
		return newGoogleProvider(model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", providerName)
	}
}

// ── Anthropic provider ───────────────────────────────────────────────────────

// anthropicProvider implements Provider using the Anthropic SDK.
// anthropic.Client is a value type; the SDK's NewClient returns it by value.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(model string) (Provider, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, &AuthError{Provider: "anthropic", Err: errors.New("ANTHROPIC_API_KEY environment variable not set")}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &anthropicProvider{client: client, model: model}, nil
}

func (p *anthropicProvider) Complete(
	ctx context.Context,
	systemPrompt, userPrompt string,
	maxTokens int,
	temperature float64,
) (Completion, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && (apierr.StatusCode == 401 || apierr.StatusCode == 403) {
			return Completion{}, &AuthError{Provider: "anthropic", Err: err}
		}
		return Completion{}, fmt.Errorf("anthropic: messages.new: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		// block.Type is a string field from the Anthropic API; "text" is the
		// only content type that carries assistant text output.
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return Completion{}, fmt.Errorf("anthropic: response contained no text content blocks")
	}
	return Completion{
		Text: strings.Join(parts, ""),
		Usage: &schema.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
