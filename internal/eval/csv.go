package eval

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CSVHeader is the column layout of eval_results.csv. Summary rows fill the first four
// columns after query; per-rank rows fill the last four.
var CSVHeader = []string{"query", "top_score", "good_match", "avg_latency_s", "rank", "product_id", "product_name", "score"}

// Rows flattens the report: for each query one summary row followed by its ranked results.
func (r *Report) Rows() [][]string {
	var rows [][]string
	for _, q := range r.Queries {
		rows = append(rows, []string{
			q.Query,
			formatFloat(q.TopScore),
			strconv.FormatBool(q.Good),
			formatFloat(q.AvgLatency.Seconds()),
			"", "", "", "",
		})
		for _, res := range q.Results {
			rows = append(rows, []string{
				q.Query, "", "", "",
				strconv.Itoa(res.Rank),
				strconv.Itoa(res.ProductID),
				res.ProductName,
				formatFloat(res.Score),
			})
		}
	}
	return rows
}

// WriteCSV writes the header and Rows to w.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(r.Rows()); err != nil {
		return err
	}
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
