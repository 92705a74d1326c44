// Package eval measures match quality and ranking latency for a fixed list of queries.
package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/matcher"
	"github.com/hyperjump/vibematch/internal/models"
)

// Options controls an evaluation run.
type Options struct {
	Queries   []string
	TopK      int
	Threshold float64
	// Repeats is how many timed ranking runs each query gets.
	Repeats int
	// Concurrency bounds how many queries are evaluated at once.
	Concurrency int
}

// OptionsFromConfig builds run options from the eval and match config sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Queries:     cfg.Eval.Queries,
		TopK:        cfg.Eval.TopK,
		Threshold:   cfg.Match.GoodThreshold,
		Repeats:     cfg.Eval.Repeats,
		Concurrency: cfg.Eval.Concurrency,
	}
}

// QueryReport is the outcome for one query.
type QueryReport struct {
	Query      string
	TopScore   float64
	Good       bool
	AvgLatency time.Duration
	// Samples are the timed ranking runs in execution order.
	Samples []time.Duration
	Results []*models.MatchResult
}

// Report is the outcome of one evaluation run. Queries keep the input order.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	TopK      int
	Threshold float64
	Products  int
	Queries   []*QueryReport
}

// GoodCount returns how many queries produced a good top match.
func (r *Report) GoodCount() int {
	n := 0
	for _, q := range r.Queries {
		if q.Good {
			n++
		}
	}
	return n
}

// Evaluator runs evaluations against one session.
type Evaluator struct {
	session  *matcher.Session
	embedder embedding.Embedder
	opts     Options
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator. Zero options get the configured defaults.
func NewEvaluator(session *matcher.Session, embedder embedding.Embedder, opts Options, logger *zap.Logger) *Evaluator {
	if len(opts.Queries) == 0 {
		opts.Queries = config.DefaultEvalQueries
	}
	if opts.TopK <= 0 {
		opts.TopK = models.DefaultTopK
	}
	if opts.Threshold == 0 {
		opts.Threshold = config.DefaultGoodThreshold
	}
	if opts.Repeats <= 0 {
		opts.Repeats = 5
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{session: session, embedder: embedder, opts: opts, logger: logger}
}

// Run evaluates every query. Each query is embedded once, ranked once for the reported
// results, then its ranking step is timed Repeats times. The first error aborts the run.
func (ev *Evaluator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		TopK:      ev.opts.TopK,
		Threshold: ev.opts.Threshold,
		Products:  ev.session.Len(),
		Queries:   make([]*QueryReport, len(ev.opts.Queries)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ev.opts.Concurrency)
	for i, q := range ev.opts.Queries {
		g.Go(func() error {
			qr, err := ev.runQuery(gctx, q)
			if err != nil {
				return fmt.Errorf("query %q: %w", q, err)
			}
			report.Queries[i] = qr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(report.StartedAt)
	ev.logger.Info("evaluation finished",
		zap.String("run_id", report.RunID),
		zap.Int("queries", len(report.Queries)),
		zap.Int("good", report.GoodCount()),
		zap.Duration("took", report.Duration),
	)
	return report, nil
}

func (ev *Evaluator) runQuery(ctx context.Context, query string) (*QueryReport, error) {
	qv, err := ev.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := ev.session.Rank(qv, ev.opts.TopK)
	if err != nil {
		return nil, err
	}
	qr := &QueryReport{Query: query, Results: results}
	if len(results) > 0 {
		qr.TopScore = results[0].Score
		qr.Good = matcher.IsGood(qr.TopScore, ev.opts.Threshold)
	}

	qr.Samples = make([]time.Duration, ev.opts.Repeats)
	var total time.Duration
	for i := range qr.Samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if _, err := ev.session.Rank(qv, ev.opts.TopK); err != nil {
			return nil, err
		}
		qr.Samples[i] = time.Since(start)
		total += qr.Samples[i]
	}
	qr.AvgLatency = total / time.Duration(len(qr.Samples))
	ev.logger.Debug("query evaluated",
		zap.String("query", query),
		zap.Float64("top_score", qr.TopScore),
		zap.Bool("good", qr.Good),
		zap.Duration("avg_latency", qr.AvgLatency),
	)
	return qr, nil
}
