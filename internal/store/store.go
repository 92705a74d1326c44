// Package store provides vector stores that products can be published to and searched in.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/vibematch/internal/vector"
)

// ErrStoreFailure wraps every error raised by a store backend.
var ErrStoreFailure = errors.New("vector store failure")

// Store holds product vectors keyed by ID and answers nearest-neighbour queries.
type Store interface {
	Upsert(ctx context.Context, items []Item) error
	Query(ctx context.Context, vec []float32, k int) ([]*QueryMatch, error)
	Size(ctx context.Context) (int, error)
	Type() string
	Close() error
}

// Item is one vector with its metadata (name, tags, desc for products).
type Item struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// QueryMatch is a single store hit.
type QueryMatch struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStoreFailure, fmt.Sprintf(format, args...))
}

func wrapFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

// checkDims verifies every item has dims dimensions. dims 0 adopts the first item's size.
func checkDims(dims int, items []Item) (int, error) {
	for _, it := range items {
		if it.ID == "" {
			return dims, failure("item with empty id")
		}
		if dims == 0 {
			dims = len(it.Vector)
		}
		if len(it.Vector) != dims {
			return dims, fmt.Errorf("%w: %w: item %s has %d dimensions, store has %d",
				ErrStoreFailure, vector.ErrDimensionMismatch, it.ID, len(it.Vector), dims)
		}
	}
	return dims, nil
}

// exactQuery ranks items against vec with the exact cosine ranker. Items keep insertion order,
// so equal scores come back in the order they were first stored.
func exactQuery(items []Item, vec []float32, k int) ([]*QueryMatch, error) {
	rows := make([][]float32, len(items))
	for i, it := range items {
		rows[i] = it.Vector
	}
	m, err := vector.NewMatrix(rows)
	if err != nil {
		return nil, wrapFailure("build matrix", err)
	}
	hits, err := vector.TopK(vec, m, k)
	if err != nil {
		return nil, wrapFailure("query", err)
	}
	return toMatches(items, hits), nil
}

func toMatches(items []Item, hits []vector.Hit) []*QueryMatch {
	out := make([]*QueryMatch, len(hits))
	for i, h := range hits {
		it := items[h.Index]
		out[i] = &QueryMatch{ID: it.ID, Score: h.Score, Metadata: it.Metadata}
	}
	return out
}

func cloneItem(it Item) Item {
	vec := make([]float32, len(it.Vector))
	copy(vec, it.Vector)
	var meta map[string]string
	if it.Metadata != nil {
		meta = make(map[string]string, len(it.Metadata))
		for k, v := range it.Metadata {
			meta[k] = v
		}
	}
	return Item{ID: it.ID, Vector: vec, Metadata: meta}
}
