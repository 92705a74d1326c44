package eval

import (
	"fmt"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/hyperjump/vibematch/pkg/utils"
)

// WritePlot draws each query's latency samples, sorted ascending, as one line and saves
// the chart to path. The image format follows the extension (.png, .svg, .pdf).
func WritePlot(path string, r *Report) error {
	p := plot.New()
	p.Title.Text = "Latency samples per query"
	p.X.Label.Text = "Sorted run index"
	p.Y.Label.Text = "Latency (s)"
	p.Add(plotter.NewGrid())

	for i, q := range r.Queries {
		samples := slices.Clone(q.Samples)
		slices.Sort(samples)
		pts := make(plotter.XYs, len(samples))
		for j, d := range samples {
			pts[j].X = float64(j)
			pts[j].Y = d.Seconds()
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot %q: %w", q.Query, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(utils.Truncate(q.Query, 30), line)
	}
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
