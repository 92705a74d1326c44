// Package embedding turns product descriptions and queries into vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingUnavailable wraps every failure of an embedding backend at call time.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrUnsupportedStrategy is a configuration error: the strategy is unknown or cannot be built.
	ErrUnsupportedStrategy = errors.New("unsupported embedding strategy")
)

// Strategy names an embedding backend.
type Strategy string

const (
	StrategyRemote Strategy = "remote"
	StrategyLocal  Strategy = "local"
	StrategyHash   Strategy = "hash"
)

// Embedder produces vector embeddings for text.
// EmbedBatch returns exactly one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

func unavailable(op string, err error) error {
	if errors.Is(err, ErrEmbeddingUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrEmbeddingUnavailable, op, err)
}

// embedEach implements EmbedBatch on top of Embed for backends without native batching.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, unavailable("batch cancelled", err)
		}
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
