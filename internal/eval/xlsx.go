package eval

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "summary"
	resultsSheet = "results"
)

// WriteXLSX writes a workbook with a summary sheet (one row per query) and a results sheet
// (one row per ranked product).
func WriteXLSX(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return err
	}

	summary := [][]any{{"query", "top_score", "good_match", "avg_latency_s", "run_id"}}
	results := [][]any{{"query", "rank", "product_id", "product_name", "score"}}
	for _, q := range r.Queries {
		summary = append(summary, []any{q.Query, q.TopScore, q.Good, q.AvgLatency.Seconds(), r.RunID})
		for _, res := range q.Results {
			results = append(results, []any{q.Query, res.Rank, res.ProductID, res.ProductName, res.Score})
		}
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}
	if err := writeRows(f, resultsSheet, results); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
