// Package cli provides output helpers for the vibematch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/vibematch/internal/eval"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/pkg/utils"
)

// MatchOutputFormat is the format for match result output.
type MatchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText MatchOutputFormat = "text"
	// OutputCompact prints one line per match.
	OutputCompact MatchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON MatchOutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (MatchOutputFormat, error) {
	switch f := MatchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text, compact or json)", s)
	}
}

// WriteMatchResults writes a match response to w in the given format.
func WriteMatchResults(w io.Writer, response *models.MatchResponse, format MatchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%d\t%s\n", r.Rank, r.Score, r.ProductID, r.ProductName)
		}
		return nil
	default:
		writeMatchResultsText(w, response)
		return nil
	}
}

func writeMatchResultsText(w io.Writer, response *models.MatchResponse) {
	fmt.Fprintf(w, "\nTop %d matches for %q in %dms (%s ranking)\n\n",
		len(response.Results), response.Query, response.QueryTime, response.Source)
	for _, warning := range response.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if len(response.Warnings) > 0 {
		fmt.Fprintln(w)
	}
	if len(response.Results) == 0 {
		fmt.Fprintln(w, "No products in catalog.")
		return
	}
	for _, r := range response.Results {
		fmt.Fprintf(w, "%2d. %-40s score=%.3f  id=%d", r.Rank, utils.Truncate(r.ProductName, 40), r.Score, r.ProductID)
		if len(r.Tags) > 0 {
			fmt.Fprintf(w, "  [%s]", strings.Join(r.Tags, ", "))
		}
		fmt.Fprintln(w)
	}
	verdict := "no"
	if response.Good {
		verdict = "yes"
	}
	fmt.Fprintf(w, "\nTop score: %.3f | Good match? %s\n", response.TopScore, verdict)
}

// WriteEvalSummary prints a per-query summary of an evaluation report.
func WriteEvalSummary(w io.Writer, report *eval.Report) {
	fmt.Fprintf(w, "Evaluation %s: %d queries, %d products, top-%d, threshold %.2f\n",
		report.RunID, len(report.Queries), report.Products, report.TopK, report.Threshold)
	for _, q := range report.Queries {
		fmt.Fprintf(w, "\n--- Query: %s\n", q.Query)
		for _, r := range q.Results {
			fmt.Fprintf(w, " - %s (score=%.3f)\n", r.ProductName, r.Score)
		}
		samples := make([]string, len(q.Samples))
		for i, s := range q.Samples {
			samples[i] = fmt.Sprintf("%.6f", s.Seconds())
		}
		fmt.Fprintf(w, "Top score: %.3f | Good match? %t\n", q.TopScore, q.Good)
		fmt.Fprintf(w, "Latency samples (s): [%s] Avg=%s\n", strings.Join(samples, " "), formatSeconds(q.AvgLatency))
	}
	fmt.Fprintf(w, "\n%d/%d queries above threshold\n", report.GoodCount(), len(report.Queries))
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.6fs", d.Seconds())
}

// HumanBytes formats a byte count with binary units.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
