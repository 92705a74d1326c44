package matcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/store"
	"github.com/hyperjump/vibematch/internal/vector"
)

type brokenStore struct{ store.Store }

func (brokenStore) Query(context.Context, []float32, int) ([]*store.QueryMatch, error) {
	return nil, errors.New("connection refused")
}
func (brokenStore) Size(context.Context) (int, error) { return 0, errors.New("connection refused") }
func (brokenStore) Type() string                      { return "broken" }

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e := NewEngine(exampleEmbedder(), opts...)
	if _, err := e.Reload(context.Background(), exampleProducts()); err != nil {
		t.Fatal(err)
	}
	return e
}

func ids(results []*models.MatchResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.ProductID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestIsGood(t *testing.T) {
	tests := []struct {
		top, threshold float64
		want           bool
	}{
		{0.71, 0.7, true},
		{0.7, 0.7, false},
		{0.2, 0.7, false},
		{-0.5, -0.6, true},
	}
	for _, tt := range tests {
		if got := IsGood(tt.top, tt.threshold); got != tt.want {
			t.Errorf("IsGood(%v, %v) = %v, want %v", tt.top, tt.threshold, got, tt.want)
		}
	}
}

func TestWithMatchConfig(t *testing.T) {
	e := NewEngine(exampleEmbedder(), WithMatchConfig(config.MatchConfig{}))
	if e.Threshold() != config.DefaultGoodThreshold {
		t.Errorf("zero config threshold = %v, want %v", e.Threshold(), config.DefaultGoodThreshold)
	}
	if e.defaultK != models.DefaultTopK || e.maxK != models.MaxTopK {
		t.Errorf("zero config top-k = %d/%d", e.defaultK, e.maxK)
	}

	e = NewEngine(exampleEmbedder(), WithMatchConfig(config.MatchConfig{DefaultTopK: 5, MaxTopK: 20, GoodThreshold: 0.5}))
	if e.Threshold() != 0.5 || e.defaultK != 5 || e.maxK != 20 {
		t.Errorf("got threshold %v, top-k %d/%d", e.Threshold(), e.defaultK, e.maxK)
	}
}

func TestEngine_Match(t *testing.T) {
	e := newTestEngine(t)
	resp, err := e.Match(context.Background(), &models.MatchQuery{Query: " query ", TopK: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(resp.Results); !equalInts(got, []int{1, 3}) {
		t.Errorf("ids = %v, want [1 3]", got)
	}
	if resp.Query != "query" || resp.Source != models.SourceLocal {
		t.Errorf("response = %+v", resp)
	}
	if resp.TopScore < 0.999 || !resp.Good {
		t.Errorf("top=%v good=%v", resp.TopScore, resp.Good)
	}
	if len(resp.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", resp.Warnings)
	}
}

func TestEngine_Match_defaultK(t *testing.T) {
	e := newTestEngine(t, WithMatchConfig(config.MatchConfig{DefaultTopK: 1, MaxTopK: 2, GoodThreshold: 0.99999}))
	resp, err := e.Match(context.Background(), &models.MatchQuery{Query: "query"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("default k: got %d results", len(resp.Results))
	}
	if !resp.Good {
		t.Error("score 1.0 is above 0.99999")
	}
	resp, err = e.Match(context.Background(), &models.MatchQuery{Query: "query", TopK: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("capped k: got %d results", len(resp.Results))
	}
}

func TestEngine_Match_filter(t *testing.T) {
	e := newTestEngine(t)
	resp, err := e.Match(context.Background(), &models.MatchQuery{Query: "query", TopK: 1, Filter: `"y" in product.tags`})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(resp.Results); !equalInts(got, []int{3}) {
		t.Errorf("filtered ids = %v, want [3]", got)
	}
	if resp.Results[0].Rank != 1 {
		t.Errorf("rank = %d, want 1", resp.Results[0].Rank)
	}
}

func TestEngine_Match_errors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewEngine(exampleEmbedder()).Match(ctx, &models.MatchQuery{Query: "query"}); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}

	e := newTestEngine(t)
	if _, err := e.Match(ctx, &models.MatchQuery{Query: "  "}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for empty query, got %v", err)
	}
	if _, err := e.Match(ctx, &models.MatchQuery{Query: "query", Filter: "product.tags +"}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for bad filter, got %v", err)
	}
	if _, err := e.Match(ctx, &models.MatchQuery{Query: "wide"}); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	emb := exampleEmbedder()
	e = NewEngine(emb)
	if _, err := e.Reload(ctx, exampleProducts()); err != nil {
		t.Fatal(err)
	}
	emb.err = embedding.ErrEmbeddingUnavailable
	if _, err := e.Match(ctx, &models.MatchQuery{Query: "query"}); !errors.Is(err, embedding.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEngine_Match_store(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	e := newTestEngine(t, WithStore(mem))
	n, err := e.Publish(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("published %d, want 3", n)
	}

	resp, err := e.Match(ctx, &models.MatchQuery{Query: "other", TopK: 2, UseStore: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != models.SourceStore {
		t.Errorf("source = %s, want store", resp.Source)
	}
	if got := ids(resp.Results); !equalInts(got, []int{2, 3}) {
		t.Errorf("store ids = %v, want [2 3]", got)
	}
	if resp.Results[0].ProductName != "Beta" {
		t.Errorf("name = %q", resp.Results[0].ProductName)
	}

	resp, err = e.Match(ctx, &models.MatchQuery{Query: "other", TopK: 1, UseStore: true, Filter: `"x" in product.tags`})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(resp.Results); !equalInts(got, []int{3}) {
		t.Errorf("filtered store ids = %v, want [3]", got)
	}
}

func TestEngine_Match_storeOnlyProduct(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	e := newTestEngine(t, WithStore(mem))

	gone := models.Product{ID: 9, Name: "Retired", Description: "no longer listed", Tags: []string{"black, white", "mono"}}
	err := mem.Upsert(ctx, []store.Item{{ID: gone.Key(), Vector: e.Session().Vectors()[0], Metadata: gone.Metadata()}})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := e.Match(ctx, &models.MatchQuery{Query: "query", TopK: 1, UseStore: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ProductID != 9 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if got := resp.Results[0].Tags; len(got) != 2 || got[0] != "black, white" || got[1] != "mono" {
		t.Errorf("tags = %q", got)
	}
}

func TestEngine_Match_storeFailureFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := newTestEngine(t, WithStore(brokenStore{}), WithLogger(zap.New(core)))

	resp, err := e.Match(context.Background(), &models.MatchQuery{Query: "query", TopK: 2, UseStore: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != models.SourceLocal {
		t.Errorf("source = %s, want local", resp.Source)
	}
	if got := ids(resp.Results); !equalInts(got, []int{1, 3}) {
		t.Errorf("fallback ids = %v", got)
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "connection refused") {
		t.Errorf("warnings = %v", resp.Warnings)
	}
	if logs.FilterMessageSnippet("falling back").Len() != 1 {
		t.Errorf("expected one fallback warning log, got %v", logs.All())
	}
}

func TestEngine_Match_noStoreConfigured(t *testing.T) {
	e := newTestEngine(t)
	resp, err := e.Match(context.Background(), &models.MatchQuery{Query: "query", UseStore: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != models.SourceLocal || len(resp.Results) != 3 {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("warnings = %v", resp.Warnings)
	}
}

func TestEngine_Publish_errors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewEngine(exampleEmbedder()).Publish(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	if _, err := newTestEngine(t).Publish(ctx); !errors.Is(err, ErrNoStore) {
		t.Errorf("expected ErrNoStore, got %v", err)
	}
}

func TestEngine_Reload(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	before := e.Session()

	if _, err := e.Reload(ctx, []models.Product{{ID: 9, Name: "Unknown", Description: "missing"}}); err == nil {
		t.Fatal("expected embedding error")
	}
	if e.Session() != before {
		t.Error("failed reload must keep the previous session")
	}

	if _, err := e.Reload(ctx, exampleProducts()[:1]); err != nil {
		t.Fatal(err)
	}
	if e.Session().Len() != 1 {
		t.Errorf("session len = %d, want 1", e.Session().Len())
	}
	if before.Len() != 3 {
		t.Error("old snapshot must be unchanged")
	}
}
