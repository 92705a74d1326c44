// Package indexer publishes product vectors into a vector store.
package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/store"
)

// DefaultBatchSize is the number of products embedded and upserted per round trip.
const DefaultBatchSize = 64

// Indexer embeds products and upserts them into a store.
type Indexer struct {
	embedder  embedding.Embedder
	store     store.Store
	batchSize int
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (batches embedded, items upserted).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many products go into one embed call and one upsert.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer. embedder may be nil when only Publish is used.
func NewIndexer(embedder embedding.Embedder, st store.Store, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		store:     st,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// Index embeds product descriptions batch by batch and upserts the vectors with
// {name, tags, desc} metadata. It returns the number of products written before any error.
func (idx *Indexer) Index(ctx context.Context, products []models.Product) (int, error) {
	if idx.embedder == nil {
		return 0, fmt.Errorf("indexer has no embedder")
	}
	n := 0
	for start := 0; start < len(products); start += idx.batchSize {
		end := min(start+idx.batchSize, len(products))
		batch := products[start:end]
		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Description
		}
		vecs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return n, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		written, err := idx.Publish(ctx, batch, vecs)
		n += written
		if err != nil {
			return n, err
		}
		idx.logger.Debug("indexer batch indexed", zap.Int("from", start), zap.Int("to", end))
	}
	return n, nil
}

// Publish upserts precomputed vectors; vectors[i] belongs to products[i].
func (idx *Indexer) Publish(ctx context.Context, products []models.Product, vectors [][]float32) (int, error) {
	if idx.store == nil {
		return 0, fmt.Errorf("no vector store configured")
	}
	if len(products) != len(vectors) {
		return 0, fmt.Errorf("got %d vectors for %d products", len(vectors), len(products))
	}
	n := 0
	for start := 0; start < len(products); start += idx.batchSize {
		end := min(start+idx.batchSize, len(products))
		items := make([]store.Item, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, store.Item{
				ID:       products[i].Key(),
				Vector:   vectors[i],
				Metadata: products[i].Metadata(),
			})
		}
		if err := idx.store.Upsert(ctx, items); err != nil {
			return n, fmt.Errorf("failed to upsert vectors: %w", err)
		}
		n += len(items)
	}
	idx.logger.Debug("indexer upserted products",
		zap.Int("count", n),
		zap.String("store", idx.store.Type()),
	)
	return n, nil
}
