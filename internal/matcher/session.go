// Package matcher ranks catalog products against free-text vibe queries.
package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/vector"
)

// Session is an immutable product catalog together with its vector matrix.
// Row i of the matrix is the embedding of product i's description.
type Session struct {
	products []models.Product
	byID     map[int]int
	matrix   *vector.Matrix
	loadedAt time.Time
}

// NewSession embeds every product description once and builds the matrix.
// Embedding failures are returned as-is (they wrap embedding.ErrEmbeddingUnavailable).
func NewSession(ctx context.Context, products []models.Product, embedder embedding.Embedder) (*Session, error) {
	texts := make([]string, len(products))
	for i := range products {
		texts[i] = products[i].Description
	}
	var vecs [][]float32
	if len(texts) > 0 {
		var err error
		vecs, err = embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed catalog: %w", err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d products",
				embedding.ErrEmbeddingUnavailable, len(vecs), len(texts))
		}
	}
	return NewSessionFromVectors(products, vecs)
}

// NewSessionFromVectors builds a session from precomputed vectors; vectors[i] belongs to products[i].
func NewSessionFromVectors(products []models.Product, vectors [][]float32) (*Session, error) {
	if len(products) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d products", len(vectors), len(products))
	}
	m, err := vector.NewMatrix(vectors)
	if err != nil {
		return nil, err
	}
	s := &Session{
		products: make([]models.Product, len(products)),
		byID:     make(map[int]int, len(products)),
		matrix:   m,
		loadedAt: time.Now(),
	}
	copy(s.products, products)
	for i, p := range s.products {
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		s.byID[p.ID] = i
	}
	return s, nil
}

// Len returns the number of products.
func (s *Session) Len() int { return len(s.products) }

// Dims returns the vector dimensionality (0 for an empty catalog).
func (s *Session) Dims() int { return s.matrix.Dims() }

// LoadedAt is when the session was built.
func (s *Session) LoadedAt() time.Time { return s.loadedAt }

// Products returns the catalog in load order. Callers must not modify it.
func (s *Session) Products() []models.Product { return s.products }

// Vectors returns the matrix rows in product order. Callers must not modify them.
func (s *Session) Vectors() [][]float32 {
	out := make([][]float32, s.matrix.Len())
	for i := range out {
		out[i] = s.matrix.Row(i)
	}
	return out
}

// Product looks up a product by ID.
func (s *Session) Product(id int) (*models.Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.products[i], true
}

// Rank returns the k products most similar to queryVec, highest score first, ranks from 1.
// A query of the wrong dimensionality fails with vector.ErrDimensionMismatch.
func (s *Session) Rank(queryVec []float32, k int) ([]*models.MatchResult, error) {
	hits, err := vector.TopK(queryVec, s.matrix, k)
	if err != nil {
		return nil, err
	}
	results := make([]*models.MatchResult, len(hits))
	for i, h := range hits {
		p := &s.products[h.Index]
		results[i] = &models.MatchResult{
			ProductID:   p.ID,
			ProductName: p.Name,
			Score:       h.Score,
			Rank:        i + 1,
			Tags:        p.Tags,
		}
	}
	return results, nil
}
