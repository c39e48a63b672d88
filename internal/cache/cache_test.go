package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

func sampleResult() *schema.Result {
	return &schema.Result{
		Blocks: []schema.Block{
			{StartPosition: 0, EndPosition: 1, OriginalText: "Le chat", TranslatedText: "The cat"},
		},
		TokenUsage: &schema.TokenUsage{PromptTokens: 12, CompletionTokens: 7},
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get on empty store = %v, want ErrMiss", err)
	}

	if err := m.Put(ctx, "k", sampleResult()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.SchemaVersion != schema.Version {
		t.Errorf("schema version = %d, want %d", entry.SchemaVersion, schema.Version)
	}
	if entry.SavedAt.IsZero() || entry.SavedAt.After(time.Now().Add(time.Minute)) {
		t.Errorf("SavedAt = %v, want a recent timestamp", entry.SavedAt)
	}
	if len(entry.Result.Blocks) != 1 || entry.Result.Blocks[0].TranslatedText != "The cat" {
		t.Errorf("cached result = %+v, want the stored blocks", entry.Result)
	}
}

func TestMemoryVersionMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	// Simulate an entry written by an older build.
	m.entries["k"] = schema.CachedResult{
		SchemaVersion: schema.Version - 1,
		SavedAt:       time.Now(),
		Result:        *sampleResult(),
	}

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get with stale version = %v, want ErrMiss", err)
	}
	// The stale entry is dropped, not retried forever.
	if _, ok := m.entries["k"]; ok {
		t.Error("stale entry still present after Get")
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Put(ctx, "k", sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get after delete = %v, want ErrMiss", err)
	}
}

func TestStoreInterfaces(t *testing.T) {
	// Both backends satisfy the Store contract.
	var _ Store = (*Memory)(nil)
	var _ Store = (*Redis)(nil)
}
