package matcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/catalog"
	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/indexer"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/store"
)

var (
	// ErrInvalidQuery marks a query rejected before any embedding or ranking work.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoSession is returned when matching before a catalog has been loaded.
	ErrNoSession = errors.New("no catalog loaded")
	// ErrNoStore is returned by Publish when no vector store is configured.
	ErrNoStore = errors.New("no vector store configured")
)

// IsGood reports whether a top score counts as a good match: strictly above threshold.
func IsGood(top, threshold float64) bool {
	return top > threshold
}

// Engine answers match queries against the current session. Reload swaps the session
// atomically; a query in flight keeps the session it started with.
type Engine struct {
	session   atomic.Pointer[Session]
	embedder  embedding.Embedder
	store     store.Store
	indexer   *indexer.Indexer
	threshold float64
	defaultK  int
	maxK      int
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStore sets the external vector store used for UseStore queries and Publish.
func WithStore(s store.Store) EngineOption {
	return func(e *Engine) { e.store = s }
}

// WithLogger sets a logger; store fallbacks are logged at warn level.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMatchConfig applies top-k defaults and the goodness threshold. Zero fields keep the
// engine defaults, as config.ApplyDefaults does.
func WithMatchConfig(cfg config.MatchConfig) EngineOption {
	return func(e *Engine) {
		if cfg.DefaultTopK > 0 {
			e.defaultK = cfg.DefaultTopK
		}
		if cfg.MaxTopK > 0 {
			e.maxK = cfg.MaxTopK
		}
		if cfg.GoodThreshold != 0 {
			e.threshold = cfg.GoodThreshold
		}
	}
}

// NewEngine creates an engine with no session; call Reload before Match.
func NewEngine(embedder embedding.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		embedder:  embedder,
		threshold: config.DefaultGoodThreshold,
		defaultK:  models.DefaultTopK,
		maxK:      models.MaxTopK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.indexer = indexer.NewIndexer(embedder, e.store, indexer.WithLogger(e.logger))
	return e
}

// Session returns the current session, or nil before the first Reload.
func (e *Engine) Session() *Session {
	return e.session.Load()
}

// Store returns the configured store, or nil.
func (e *Engine) Store() store.Store {
	return e.store
}

// Threshold returns the goodness threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Reload embeds products into a new session and makes it current. On error the
// previous session stays in place.
func (e *Engine) Reload(ctx context.Context, products []models.Product) (*Session, error) {
	start := time.Now()
	s, err := NewSession(ctx, products, e.embedder)
	if err != nil {
		return nil, err
	}
	e.session.Store(s)
	e.logger.Info("catalog loaded",
		zap.Int("products", s.Len()),
		zap.Int("dimensions", s.Dims()),
		zap.Duration("took", time.Since(start)),
	)
	return s, nil
}

// Publish upserts every product vector of the current session to the store and returns
// the number written. Callers treat its error as a warning.
func (e *Engine) Publish(ctx context.Context) (int, error) {
	s := e.session.Load()
	if s == nil {
		return 0, ErrNoSession
	}
	if e.store == nil {
		return 0, ErrNoStore
	}
	return e.indexer.Publish(ctx, s.Products(), s.Vectors())
}

// Match embeds the query and ranks the catalog. With UseStore and a configured store the
// store answers; a store failure is logged, reported in Warnings, and local ranking is used.
// Embedding failures and dimension mismatches in local ranking are returned.
func (e *Engine) Match(ctx context.Context, q *models.MatchQuery) (*models.MatchResponse, error) {
	start := time.Now()
	if err := q.ValidateWith(e.defaultK, e.maxK); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	s := e.session.Load()
	if s == nil {
		return nil, ErrNoSession
	}
	filter, err := catalog.NewFilter(q.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	qv, err := e.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	resp := &models.MatchResponse{Query: q.Query, Source: models.SourceLocal}
	var results []*models.MatchResult

	if q.UseStore {
		if e.store == nil {
			resp.Warnings = append(resp.Warnings, "no vector store configured; used local ranking")
		} else {
			results, err = e.queryStore(ctx, s, qv, q.TopK, filter)
			if err != nil {
				e.logger.Warn("vector store query failed, falling back to local ranking",
					zap.String("store", e.store.Type()),
					zap.Error(err),
				)
				resp.Warnings = append(resp.Warnings, "vector store query failed: "+err.Error())
				results = nil
			} else {
				resp.Source = models.SourceStore
			}
		}
	}

	if resp.Source == models.SourceLocal {
		results, err = e.rankLocal(s, qv, q.TopK, filter)
		if err != nil {
			return nil, err
		}
	}

	resp.Results = results
	if len(results) > 0 {
		resp.TopScore = results[0].Score
		resp.Good = IsGood(resp.TopScore, e.threshold)
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

func (e *Engine) rankLocal(s *Session, qv []float32, k int, filter *catalog.Filter) ([]*models.MatchResult, error) {
	if filter == nil {
		return s.Rank(qv, k)
	}
	all, err := s.Rank(qv, s.Len())
	if err != nil {
		return nil, err
	}
	out := make([]*models.MatchResult, 0, k)
	for _, r := range all {
		if len(out) == k {
			break
		}
		p, _ := s.Product(r.ProductID)
		ok, err := filter.Match(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		if ok {
			r.Rank = len(out) + 1
			out = append(out, r)
		}
	}
	return out, nil
}

// queryStore asks the store for the k nearest products. With a filter it fetches every stored
// item so that filtering happens before truncation.
func (e *Engine) queryStore(ctx context.Context, s *Session, qv []float32, k int, filter *catalog.Filter) ([]*models.MatchResult, error) {
	n := k
	if filter != nil {
		size, err := e.store.Size(ctx)
		if err != nil {
			return nil, err
		}
		n = size
	}
	matches, err := e.store.Query(ctx, qv, n)
	if err != nil {
		return nil, err
	}
	out := make([]*models.MatchResult, 0, min(k, len(matches)))
	for _, m := range matches {
		if len(out) == k {
			break
		}
		p, err := storedProduct(s, m)
		if err != nil {
			e.logger.Debug("skipping store match", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		if filter != nil {
			ok, err := filter.Match(p)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, &models.MatchResult{
			ProductID:   p.ID,
			ProductName: p.Name,
			Score:       m.Score,
			Rank:        len(out) + 1,
			Tags:        p.Tags,
		})
	}
	return out, nil
}

// storedProduct resolves a store match to a product, preferring the session copy and
// falling back to the published metadata for items the session no longer has.
func storedProduct(s *Session, m *store.QueryMatch) (*models.Product, error) {
	id, err := strconv.Atoi(m.ID)
	if err != nil {
		return nil, fmt.Errorf("non-numeric product id %q", m.ID)
	}
	if p, ok := s.Product(id); ok {
		return p, nil
	}
	return models.ProductFromMetadata(id, m.Metadata)
}
