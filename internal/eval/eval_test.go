package eval

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/matcher"
	"github.com/hyperjump/vibematch/internal/models"
)

func testProducts() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Urban Bomber", Description: "energetic urban chic black bomber jacket"},
		{ID: 2, Name: "Lounge Set", Description: "relaxed cozy loungewear knit set"},
		{ID: 3, Name: "Boho Dress", Description: "boho festival earthy tones maxi dress"},
		{ID: 4, Name: "Blazer", Description: "tailored office blazer"},
	}
}

func testSession(t *testing.T, emb embedding.Embedder) *matcher.Session {
	t.Helper()
	s, err := matcher.NewSession(context.Background(), testProducts(), emb)
	require.NoError(t, err)
	return s
}

func TestEvaluator_Run(t *testing.T) {
	emb := embedding.NewHashEmbedder(128)
	ev := NewEvaluator(testSession(t, emb), emb, Options{Repeats: 3, Concurrency: 2}, nil)

	report, err := ev.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Queries, 3)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.Products)
	assert.Equal(t, 0.7, report.Threshold)

	wantTop := []int{1, 2, 3}
	for i, q := range report.Queries {
		assert.Equal(t, ev.opts.Queries[i], q.Query, "queries keep input order")
		require.Len(t, q.Results, 3)
		assert.Equal(t, wantTop[i], q.Results[0].ProductID)
		assert.Equal(t, q.Results[0].Score, q.TopScore)
		assert.Equal(t, matcher.IsGood(q.TopScore, 0.7), q.Good)
		assert.Len(t, q.Samples, 3)
		assert.GreaterOrEqual(t, q.AvgLatency, time.Duration(0))
		for j := 1; j < len(q.Results); j++ {
			assert.GreaterOrEqual(t, q.Results[j-1].Score, q.Results[j].Score)
		}
	}
}

func TestEvaluator_ConcurrencyDoesNotChangeResults(t *testing.T) {
	emb := embedding.NewHashEmbedder(64)
	s := testSession(t, emb)
	queries := []string{"cozy knit", "black jacket", "earthy dress", "office", "festival", "urban"}

	seq, err := NewEvaluator(s, emb, Options{Queries: queries, Repeats: 1, Concurrency: 1}, nil).Run(context.Background())
	require.NoError(t, err)
	par, err := NewEvaluator(s, emb, Options{Queries: queries, Repeats: 1, Concurrency: 4}, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, par.Queries, len(seq.Queries))
	for i := range seq.Queries {
		assert.Equal(t, seq.Queries[i].Query, par.Queries[i].Query)
		assert.Equal(t, seq.Queries[i].Results, par.Queries[i].Results)
	}
	assert.NotEqual(t, seq.RunID, par.RunID)
}

type downEmbedder struct{ embedding.Embedder }

func (downEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, embedding.ErrEmbeddingUnavailable
}

func TestEvaluator_EmbeddingFailureAborts(t *testing.T) {
	emb := embedding.NewHashEmbedder(16)
	ev := NewEvaluator(testSession(t, emb), downEmbedder{emb}, Options{}, nil)
	_, err := ev.Run(context.Background())
	assert.ErrorIs(t, err, embedding.ErrEmbeddingUnavailable)
}

func TestEvaluator_EmptyCatalog(t *testing.T) {
	emb := embedding.NewHashEmbedder(16)
	s, err := matcher.NewSession(context.Background(), nil, emb)
	require.NoError(t, err)
	report, err := NewEvaluator(s, emb, Options{Queries: []string{"anything"}}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Queries[0].Results)
	assert.Zero(t, report.Queries[0].TopScore)
	assert.False(t, report.Queries[0].Good)
}

func sampleReport() *Report {
	return &Report{
		RunID:     "run-1",
		TopK:      2,
		Threshold: 0.7,
		Queries: []*QueryReport{
			{
				Query: "cozy", TopScore: 0.9, Good: true, AvgLatency: 1500 * time.Microsecond,
				Samples: []time.Duration{2 * time.Millisecond, time.Millisecond},
				Results: []*models.MatchResult{
					{ProductID: 2, ProductName: "Lounge Set", Score: 0.9, Rank: 1},
					{ProductID: 4, ProductName: "Blazer", Score: 0.25, Rank: 2},
				},
			},
			{
				Query: "boho", TopScore: 0.5, Good: false, AvgLatency: time.Millisecond,
				Samples: []time.Duration{time.Millisecond},
				Results: []*models.MatchResult{
					{ProductID: 3, ProductName: "Boho Dress", Score: 0.5, Rank: 1},
				},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"cozy", "0.9", "true", "0.0015", "", "", "", ""}, records[1])
	assert.Equal(t, []string{"cozy", "", "", "", "1", "2", "Lounge Set", "0.9"}, records[2])
	assert.Equal(t, []string{"cozy", "", "", "", "2", "4", "Blazer", "0.25"}, records[3])
	assert.Equal(t, []string{"boho", "0.5", "false", "0.001", "", "", "", ""}, records[4])
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	written, err := Save(dir, sampleReport(), SaveOptions{XLSX: true, Plot: true})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, CSVFile),
		filepath.Join(dir, XLSXFile),
		filepath.Join(dir, PlotFile),
	}, written)
	for _, p := range written {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), p)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, XLSXFile))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{summarySheet, resultsSheet}, f.GetSheetList())
	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Boho Dress", rows[3][3])
}

func TestSave_CSVOnly(t *testing.T) {
	dir := t.TempDir()
	written, err := Save(dir, sampleReport(), SaveOptions{})
	require.NoError(t, err)
	assert.Len(t, written, 1)
	_, err = os.Stat(filepath.Join(dir, PlotFile))
	assert.True(t, os.IsNotExist(err))
}

func TestReport_GoodCount(t *testing.T) {
	assert.Equal(t, 1, sampleReport().GoodCount())
}
