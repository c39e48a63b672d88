package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/ajanderson1/flowsegment/internal/cache"
	"github.com/ajanderson1/flowsegment/internal/config"
	"github.com/ajanderson1/flowsegment/internal/llm"
	"github.com/ajanderson1/flowsegment/internal/orchestrate"
	"github.com/ajanderson1/flowsegment/internal/rules"
	"github.com/ajanderson1/flowsegment/internal/schema"
)

// inputDoc is the request document: one entry per paragraph-equivalent word
// sequence, with the sparse positions assigned by the caller.
type inputDoc struct {
	Sequences []inputSequence `json:"sequences"`
}

type inputSequence struct {
	ID    string        `json:"id"`
	Words []schema.Word `json:"words"`
}

type outputDoc struct {
	Results []outputResult `json:"results"`
}

// outputResult is binary per sequence: either blocks or an error message,
// never both.
type outputResult struct {
	ID         string             `json:"id"`
	Blocks     []schema.Block     `json:"blocks,omitempty"`
	TokenUsage *schema.TokenUsage `json:"token_usage,omitempty"`
	Cached     bool               `json:"cached,omitempty"`
	Error      string             `json:"error,omitempty"`

	authFatal bool
}

func newSegmentCmd() *cobra.Command {
	var (
		configPath  string
		provider    string
		model       string
		language    string
		lexiconPath string
		parallel    int
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "segment [input-file]",
		Short: "Segment word sequences into translated meaning units",
		Long: `Reads a JSON document of word sequences from a file (or stdin when the
argument is omitted or "-"), runs each sequence through the segmentation
pipeline, and writes the result document to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if provider != "" && provider != cfg.Provider {
				cfg.Provider = provider
				// The configured model belongs to the previous provider.
				cfg.Model = config.DefaultModel(provider)
			}
			if model != "" {
				cfg.Model = model
			}
			if language != "" {
				cfg.Language = language
			}
			if lexiconPath != "" {
				cfg.LexiconPath = lexiconPath
			}
			if cfg.Model == "" {
				return fmt.Errorf("unknown provider %q", cfg.Provider)
			}

			doc, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			out, err := runSegment(cmd.Context(), cfg, doc, parallel, noCache)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode output: %w", err)
			}

			failed := 0
			for _, r := range out.Results {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d sequences failed", failed, len(out.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file (default: environment only)")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: anthropic, openai, or google")
	cmd.Flags().StringVar(&model, "model", "", "model name override")
	cmd.Flags().StringVar(&language, "language", "", "source language code for the lexicon table (default fr)")
	cmd.Flags().StringVar(&lexiconPath, "lexicon", "", "path to a YAML lexicon file, overriding the built-in table")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "number of sequences processed concurrently")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the result cache even when configured")

	return cmd
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List built-in lexicon languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, lang := range rules.BuiltinLanguages() {
				fmt.Fprintln(cmd.OutOrStdout(), lang)
			}
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func readInput(stdin io.Reader, args []string) (*inputDoc, error) {
	r := stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	return parseInput(r)
}

func parseInput(r io.Reader) (*inputDoc, error) {
	var doc inputDoc
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if len(doc.Sequences) == 0 {
		return nil, fmt.Errorf("input contains no sequences")
	}
	return &doc, nil
}

// runSegment wires the pipeline from config and processes every sequence,
// bounded by the parallel limit. Concurrency across sequences is a caller
// policy: each orchestrator invocation is independent and shares no state.
func runSegment(ctx context.Context, cfg *config.Config, doc *inputDoc, parallel int, noCache bool) (*outputDoc, error) {
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is harmless at exit

	lex, err := loadLexicon(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(cfg.Provider, cfg.Model)
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(provider, llm.Options{
		SourceLanguage: cfg.SourceLanguage,
		TargetLanguage: cfg.TargetLanguage,
		MaxTokens:      cfg.MaxTokens,
	})

	schedule := make([]orchestrate.Attempt, 0, len(cfg.Escalation))
	for _, step := range cfg.Escalation {
		schedule = append(schedule, orchestrate.Attempt{
			Temperature: step.Temperature,
			Delay:       step.Delay(),
		})
	}

	orch := orchestrate.New(client.Generate, rules.NewEngine(lex),
		orchestrate.WithSchedule(schedule),
		orchestrate.WithMaxAttempts(cfg.MaxAttempts),
		orchestrate.WithLogger(logger))

	var store cache.Store
	if !noCache && cfg.Redis.Addr != "" {
		store = cache.NewRedis(
			redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}),
			cache.WithPrefix(cfg.Redis.Prefix),
			cache.WithTTL(time.Duration(cfg.Redis.TTLSeconds)*time.Second),
		)
	}

	out := &outputDoc{Results: make([]outputResult, len(doc.Sequences))}

	g, gctx := errgroup.WithContext(ctx)
	if parallel < 1 {
		parallel = 1
	}
	g.SetLimit(parallel)

	for i, seq := range doc.Sequences {
		g.Go(func() error {
			key := seq.ID
			if key == "" {
				key = fmt.Sprintf("seq-%d", i)
			}
			out.Results[i] = segmentOne(gctx, orch, store, logger, key, seq.Words)
			// Authorization failures are global: every remaining sequence
			// would fail the same way, so cancel the whole run.
			if out.Results[i].Error != "" && out.Results[i].authFatal {
				return errors.New(out.Results[i].Error)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func segmentOne(ctx context.Context, orch *orchestrate.Orchestrator, store cache.Store, logger *zap.Logger, key string, words []schema.Word) outputResult {
	res := outputResult{ID: key}

	if store != nil {
		if entry, err := store.Get(ctx, key); err == nil {
			res.Blocks = entry.Result.Blocks
			res.TokenUsage = entry.Result.TokenUsage
			res.Cached = true
			return res
		} else if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
	}

	result, err := orch.Run(ctx, words)
	if err != nil {
		res.Error = err.Error()
		res.authFatal = llm.IsAuth(err)
		return res
	}

	res.Blocks = result.Blocks
	res.TokenUsage = result.TokenUsage

	if store != nil {
		if err := store.Put(ctx, key, result); err != nil {
			logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res
}

func loadLexicon(cfg *config.Config) (*rules.Lexicon, error) {
	if cfg.LexiconPath != "" {
		return rules.Load(cfg.LexiconPath)
	}
	return rules.Builtin(cfg.Language)
}

// newLogger builds a production zap logger writing to stderr; stdout is
// reserved for the result document.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
