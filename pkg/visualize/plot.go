// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package visualize

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default plot texts.
const (
	DefaultScatterTitle = "CodeQL Detection vs JS Lines"
	DefaultXLabel       = "JavaScript Lines Count"
	DefaultYLabel       = "Detection Count"
	DefaultBoxplotTitle = "CodeQL Query Results - Box Plot Summary"
)

var supportedFormats = map[string]bool{
	".png": true, ".svg": true, ".pdf": true, ".eps": true,
	".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
}

var (
	regressionColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	boxColor        = color.RGBA{R: 173, G: 216, B: 230, A: 255}
)

// ScatterOptions tunes Scatter.
type ScatterOptions struct {
	Title  string
	XLabel string
	YLabel string

	LogX bool
	LogY bool

	// ShowCorrelation adds Spearman's rho and its p-value to the title.
	ShowCorrelation bool
	// ShowRegression draws a least-squares line, fitted in log space on
	// log axes.
	ShowRegression bool

	Logger *slog.Logger
}

// Scatter renders points as line count against finding count and saves the
// plot to outPath. The image format follows the file extension.
func Scatter(points []Point, opts ScatterOptions, outPath string) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := checkFormat(outPath); err != nil {
		return err
	}

	xys := make(plotter.XYs, 0, len(points))
	dropped := 0
	for _, pt := range points {
		x, y := float64(pt.Lines), float64(pt.Count)
		if (opts.LogX && x <= 0) || (opts.LogY && y <= 0) {
			dropped++
			continue
		}
		xys = append(xys, plotter.XY{X: x, Y: y})
	}
	if dropped > 0 {
		logger.Warn("visualize.scatter.dropped", "points", dropped, "reason", "non-positive value on log axis")
	}

	p := plot.New()
	p.Title.Text = orDefault(opts.Title, DefaultScatterTitle)
	p.X.Label.Text = orDefault(opts.XLabel, DefaultXLabel)
	p.Y.Label.Text = orDefault(opts.YLabel, DefaultYLabel)
	p.Add(plotter.NewGrid())

	if len(xys) > 0 {
		if opts.LogX {
			p.X.Scale = plot.LogScale{}
			p.X.Tick.Marker = plot.LogTicks{Prec: -1}
		}
		if opts.LogY {
			p.Y.Scale = plot.LogScale{}
			p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
		}

		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("build scatter: %w", err)
		}
		p.Add(sc)
	}

	if opts.ShowRegression && len(xys) >= 2 {
		line, err := regressionLine(xys, opts.LogX, opts.LogY)
		if err != nil {
			return err
		}
		p.Add(line)
		p.Legend.Add("Regression line", line)
		p.Legend.Top = true
	}

	if opts.ShowCorrelation && len(xys) >= 2 {
		x, y := split(xys)
		rho, pval := Spearman(x, y)
		p.Title.Text += fmt.Sprintf("\nSpearman's ρ = %.3f, p-value = %.3e", rho, pval)
		logger.Info("visualize.scatter.correlation", "rho", rho, "p", pval, "n", len(x))
	}

	return save(p, 10*vg.Inch, 6*vg.Inch, outPath, logger)
}

func regressionLine(xys plotter.XYs, logX, logY bool) (*plotter.Line, error) {
	x, y := split(xys)
	if logX {
		x = log10All(x)
	}
	if logY {
		y = log10All(y)
	}
	slope, intercept := LinearFit(x, y)

	lo, hi := x[0], x[0]
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	const steps = 100
	pts := make(plotter.XYs, steps)
	for i := range pts {
		xv := lo + (hi-lo)*float64(i)/float64(steps-1)
		yv := slope*xv + intercept
		if logX {
			xv = math.Pow(10, xv)
		}
		if logY {
			yv = math.Pow(10, yv)
		}
		pts[i] = plotter.XY{X: xv, Y: yv}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("build regression line: %w", err)
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = regressionColor
	line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	return line, nil
}

// BoxplotOptions tunes Boxplot.
type BoxplotOptions struct {
	Title string
	// Order lists query IDs left to right. Empty means sorted IDs.
	Order    []string
	LogScale bool

	Logger *slog.Logger
}

// Boxplot renders one box per query ID and saves the plot to outPath.
func Boxplot(data map[string][]float64, opts BoxplotOptions, outPath string) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := checkFormat(outPath); err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("no query results to plot")
	}

	labels := boxLabels(data, opts.Order, logger)

	p := plot.New()
	p.Title.Text = orDefault(opts.Title, DefaultBoxplotTitle)
	p.X.Label.Text = "Query ID"
	p.Y.Label.Text = DefaultYLabel
	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)
	if opts.LogScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	width := vg.Points(40)
	names := make([]string, 0, len(labels))
	for _, id := range labels {
		values := data[id]
		if opts.LogScale {
			values = positive(values)
		}
		if len(values) == 0 {
			logger.Warn("visualize.boxplot.empty", "query", id)
			continue
		}

		box, err := plotter.NewBoxPlot(width, float64(len(names)), plotter.Values(values))
		if err != nil {
			return fmt.Errorf("build box for %s: %w", id, err)
		}
		box.FillColor = boxColor
		p.Add(box)
		names = append(names, id)
	}
	if len(names) == 0 {
		return errors.New("no query results to plot")
	}
	p.NominalX(names...)

	w := vg.Length(math.Max(12, float64(len(names))*2.5)) * vg.Inch
	return save(p, w, 6*vg.Inch, outPath, logger)
}

// boxLabels returns the query IDs to draw, in order. IDs named in order
// but absent from data are reported and dropped.
func boxLabels(data map[string][]float64, order []string, logger *slog.Logger) []string {
	if len(order) == 0 {
		return sortedKeys(data)
	}
	labels := make([]string, 0, len(order))
	var missing []string
	for _, id := range order {
		if _, ok := data[id]; ok {
			labels = append(labels, id)
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		logger.Warn("visualize.boxplot.missing_queries", "queries", strings.Join(missing, ","))
	}
	return labels
}

func save(p *plot.Plot, w, h vg.Length, outPath string, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := p.Save(w, h, outPath); err != nil {
		return fmt.Errorf("save plot %s: %w", outPath, err)
	}
	logger.Info("visualize.plot.saved", "path", outPath)
	return nil
}

func checkFormat(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFormats[ext] {
		return fmt.Errorf("unsupported output format %q: use .png, .svg or .pdf", ext)
	}
	return nil
}

func split(xys plotter.XYs) (x, y []float64) {
	x = make([]float64, len(xys))
	y = make([]float64, len(xys))
	for i, v := range xys {
		x[i], y[i] = v.X, v.Y
	}
	return x, y
}

func log10All(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = math.Log10(f)
	}
	return out
}

func positive(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, f := range v {
		if f > 0 {
			out = append(out, f)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
