package matcher

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/vector"
)

// tableEmbedder maps known texts to fixed vectors.
type tableEmbedder struct {
	dims    int
	vectors map[string][]float32
	err     error
	calls   int
}

func (e *tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		return nil, errors.New("unknown text: " + text)
	}
	return v, nil
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) Dimensions() int { return e.dims }
func (e *tableEmbedder) Close() error    { return nil }

func exampleProducts() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Alpha", Description: "a", Tags: []string{"x"}},
		{ID: 2, Name: "Beta", Description: "b", Tags: []string{"y"}},
		{ID: 3, Name: "Gamma", Description: "c", Tags: []string{"x", "y"}},
	}
}

func exampleEmbedder() *tableEmbedder {
	return &tableEmbedder{dims: 2, vectors: map[string][]float32{
		"a":     {1, 0},
		"b":     {0, 1},
		"c":     {1, 1},
		"query": {1, 0},
		"other": {0, 1},
		"wide":  {1, 0, 0},
	}}
}

func TestSession_Rank(t *testing.T) {
	s, err := NewSession(context.Background(), exampleProducts(), exampleEmbedder())
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 || s.Dims() != 2 {
		t.Fatalf("Len=%d Dims=%d", s.Len(), s.Dims())
	}

	results, err := s.Rank([]float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ProductID != 1 || results[0].ProductName != "Alpha" || math.Abs(results[0].Score-1) > 1e-9 || results[0].Rank != 1 {
		t.Errorf("first = %+v", results[0])
	}
	if results[1].ProductID != 3 || math.Abs(results[1].Score-1/math.Sqrt2) > 1e-6 || results[1].Rank != 2 {
		t.Errorf("second = %+v", results[1])
	}

	all, err := s.Rank([]float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("k=5 over 3 products returned %d", len(all))
	}

	if _, err := s.Rank([]float32{1, 0, 0}, 2); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSession_Empty(t *testing.T) {
	emb := exampleEmbedder()
	s, err := NewSession(context.Background(), nil, emb)
	if err != nil {
		t.Fatal(err)
	}
	if emb.calls != 0 {
		t.Error("empty catalog must not call the embedder")
	}
	results, err := s.Rank([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestSession_Product(t *testing.T) {
	s, err := NewSession(context.Background(), exampleProducts(), exampleEmbedder())
	if err != nil {
		t.Fatal(err)
	}
	p, ok := s.Product(3)
	if !ok || p.Name != "Gamma" {
		t.Errorf("Product(3) = %+v, %v", p, ok)
	}
	if _, ok := s.Product(42); ok {
		t.Error("Product(42) should not exist")
	}
	if vecs := s.Vectors(); len(vecs) != 3 || vecs[2][1] != 1 {
		t.Errorf("Vectors() = %v", vecs)
	}
}

func TestNewSession_embeddingError(t *testing.T) {
	emb := exampleEmbedder()
	emb.err = embedding.ErrEmbeddingUnavailable
	_, err := NewSession(context.Background(), exampleProducts(), emb)
	if !errors.Is(err, embedding.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestNewSessionFromVectors_errors(t *testing.T) {
	products := exampleProducts()
	if _, err := NewSessionFromVectors(products, [][]float32{{1, 0}}); err == nil {
		t.Error("expected error for vector count mismatch")
	}
	if _, err := NewSessionFromVectors(products, [][]float32{{1, 0}, {1}, {0, 1}}); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for ragged vectors, got %v", err)
	}
	dup := append(products, models.Product{ID: 1, Name: "Again", Description: "d"})
	if _, err := NewSessionFromVectors(dup, [][]float32{{1, 0}, {0, 1}, {1, 1}, {1, 1}}); err == nil {
		t.Error("expected duplicate id error")
	}
}
