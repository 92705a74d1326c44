package eval

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names inside the output directory.
const (
	CSVFile  = "eval_results.csv"
	XLSXFile = "eval_results.xlsx"
	PlotFile = "latency_plot.png"
)

// SaveOptions selects which artifacts Save writes besides the CSV.
type SaveOptions struct {
	XLSX bool
	Plot bool
}

// Save writes the report into dir (created if needed) and returns the written paths.
func Save(dir string, r *Report, opts SaveOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var written []string

	csvPath := filepath.Join(dir, CSVFile)
	f, err := os.Create(csvPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", CSVFile, err)
	}
	if err := WriteCSV(f, r); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write %s: %w", CSVFile, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	written = append(written, csvPath)

	if opts.XLSX {
		p := filepath.Join(dir, XLSXFile)
		if err := WriteXLSX(p, r); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	if opts.Plot {
		p := filepath.Join(dir, PlotFile)
		if err := WritePlot(p, r); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}
