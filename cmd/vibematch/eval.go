package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/vibematch/internal/cli"
	"github.com/hyperjump/vibematch/internal/eval"
)

// NewEvalCmd runs the evaluation queries and writes the report files.
func NewEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure match quality and ranking latency",
		Long: `Run each evaluation query once for its top-k matches, classify the top score
against match.good_threshold, time repeated ranking runs, and write
eval_results.csv (plus eval_results.xlsx and latency_plot.png when enabled).`,
		Args: cobra.NoArgs,
		RunE: runEval,
	}
	cmd.Flags().StringSliceP("query", "q", nil, "evaluation query (repeatable; default eval.queries)")
	cmd.Flags().IntP("top-k", "k", 0, "matches per query (default eval.top_k)")
	cmd.Flags().Int("repeats", 0, "timed ranking runs per query (default eval.repeats)")
	cmd.Flags().Int("concurrency", 0, "queries evaluated at once (default eval.concurrency)")
	cmd.Flags().String("output-dir", "", "directory for report files (default eval.output_dir)")
	cmd.Flags().Bool("xlsx", false, "also write eval_results.xlsx")
	cmd.Flags().Bool("plot", false, "also write latency_plot.png")
	return cmd
}

func runEval(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	applyEvalFlags(cmd, a)

	ctx := cmd.Context()
	if err := a.openEngine(ctx); err != nil {
		return err
	}

	ev := eval.NewEvaluator(a.engine.Session(), a.embedder, eval.OptionsFromConfig(a.cfg), a.logger)
	report, err := ev.Run(ctx)
	if err != nil {
		return err
	}
	cli.WriteEvalSummary(cmd.OutOrStdout(), report)

	written, err := eval.Save(a.cfg.Eval.OutputDir, report, eval.SaveOptions{
		XLSX: a.cfg.Eval.XLSX,
		Plot: a.cfg.Eval.Plot,
	})
	for _, p := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", p)
	}
	return err
}

// applyEvalFlags overrides eval config with flags the user actually set.
func applyEvalFlags(cmd *cobra.Command, a *app) {
	f := cmd.Flags()
	if f.Changed("query") {
		a.cfg.Eval.Queries, _ = f.GetStringSlice("query")
	}
	if f.Changed("top-k") {
		a.cfg.Eval.TopK, _ = f.GetInt("top-k")
	}
	if f.Changed("repeats") {
		a.cfg.Eval.Repeats, _ = f.GetInt("repeats")
	}
	if f.Changed("concurrency") {
		a.cfg.Eval.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("output-dir") {
		a.cfg.Eval.OutputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("xlsx") {
		a.cfg.Eval.XLSX, _ = f.GetBool("xlsx")
	}
	if f.Changed("plot") {
		a.cfg.Eval.Plot, _ = f.GetBool("plot")
	}
}
