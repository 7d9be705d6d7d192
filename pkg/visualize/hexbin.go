// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package visualize

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Hexbin defaults.
const (
	DefaultGridSize = 20
	DefaultColorMap = "YlOrRd"
)

// HexbinOptions tunes Hexbin.
type HexbinOptions struct {
	ScatterOptions

	// GridSize is the number of hexagons along the x-axis.
	GridSize int
	// ColorMap names a ColorBrewer palette. A "_r" suffix reverses it.
	ColorMap string
}

// ErrNoPoints is returned by Hexbin when there is nothing to bin.
var ErrNoPoints = errors.New("no data points to plot")

// Hexbin renders points as a hexagonal density plot: each hexagon is
// colored by the number of projects that fall into it. Empty cells are not
// drawn. On log axes the grid is laid out in log space.
func Hexbin(points []Point, opts HexbinOptions, outPath string) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := checkFormat(outPath); err != nil {
		return err
	}
	if len(points) == 0 {
		return ErrNoPoints
	}
	gridSize := opts.GridSize
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}
	colors, err := colorMap(orDefault(opts.ColorMap, DefaultColorMap))
	if err != nil {
		return err
	}

	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		x, y := float64(pt.Lines), float64(pt.Count)
		if (opts.LogX && x <= 0) || (opts.LogY && y <= 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: x, Y: y})
	}
	if dropped := len(points) - len(xys); dropped > 0 {
		logger.Warn("visualize.hexbin.dropped", "points", dropped, "reason", "non-positive value on log axis")
	}
	if len(xys) == 0 {
		return ErrNoPoints
	}

	x, y := split(xys)
	u, v := x, y
	if opts.LogX {
		u = log10All(x)
	}
	if opts.LogY {
		v = log10All(y)
	}
	g := newHexGrid(u, v, gridSize)
	cells := g.bin(u, v)

	p := plot.New()
	p.Title.Text = orDefault(opts.Title, DefaultScatterTitle)
	p.X.Label.Text = orDefault(opts.XLabel, DefaultXLabel)
	p.Y.Label.Text = orDefault(opts.YLabel, DefaultYLabel)
	p.Add(plotter.NewGrid())
	if opts.LogX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if opts.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	maxCount := 0
	for _, c := range cells {
		maxCount = max(maxCount, c.count)
	}
	var low, high *plotter.Polygon
	for _, c := range cells {
		poly, err := plotter.NewPolygon(g.hexagon(c, opts.LogX, opts.LogY))
		if err != nil {
			return fmt.Errorf("build hexagon: %w", err)
		}
		fill := shade(colors, c.count, maxCount)
		poly.Color = fill
		poly.LineStyle.Color = fill
		poly.LineStyle.Width = vg.Points(0.2)
		p.Add(poly)
		if c.count == 1 && low == nil {
			low = poly
		}
		if c.count == maxCount && high == nil {
			high = poly
		}
	}
	if low != nil && low != high {
		p.Legend.Add("Count: 1", low)
	}
	p.Legend.Add(fmt.Sprintf("Count: %d", maxCount), high)
	p.Legend.Top = true

	if opts.ShowRegression && len(xys) >= 2 {
		line, err := regressionLine(xys, opts.LogX, opts.LogY)
		if err != nil {
			return err
		}
		p.Add(line)
		p.Legend.Add("Regression line", line)
	}

	if opts.ShowCorrelation && len(xys) >= 2 {
		rho, pval := Spearman(x, y)
		p.Title.Text += fmt.Sprintf("\nSpearman's ρ = %.3f, p-value = %.3e", rho, pval)
		logger.Info("visualize.hexbin.correlation", "rho", rho, "p", pval, "n", len(x))
	}

	logger.Debug("visualize.hexbin.cells", "cells", len(cells), "max_count", maxCount, "gridsize", gridSize)
	return save(p, 10*vg.Inch, 6*vg.Inch, outPath, logger)
}

// colorMap resolves a ColorBrewer palette name with as many colors as the
// palette offers.
func colorMap(name string) ([]color.Color, error) {
	base, reversed := strings.CutSuffix(name, "_r")
	for n := 9; n >= 3; n-- {
		pal, err := brewer.GetPalette(brewer.TypeAny, base, n)
		if err != nil {
			continue
		}
		colors := append([]color.Color(nil), pal.Colors()...)
		if reversed {
			for i, j := 0, len(colors)-1; i < j; i, j = i+1, j-1 {
				colors[i], colors[j] = colors[j], colors[i]
			}
		}
		return colors, nil
	}
	return nil, fmt.Errorf("unknown color map %q: use a ColorBrewer name such as %s", name, DefaultColorMap)
}

// shade maps count in [1, maxCount] onto colors.
func shade(colors []color.Color, count, maxCount int) color.Color {
	if maxCount <= 1 {
		return colors[len(colors)-1]
	}
	f := float64(count-1) / float64(maxCount-1)
	i := int(math.Round(f * float64(len(colors)-1)))
	return colors[i]
}

// hexGrid is the two offset rectangular lattices whose union forms a
// hexagonal tiling of [xmin, xmax] x [ymin, ymax].
type hexGrid struct {
	xmin, ymin float64
	sx, sy     float64
}

type hexCell struct {
	// cx, cy are lattice coordinates. Odd lattice centers sit half a step
	// right and up of the even ones.
	cx, cy float64
	count  int
}

func newHexGrid(u, v []float64, gridSize int) hexGrid {
	xmin, xmax := bounds(u)
	ymin, ymax := bounds(v)
	ny := max(1, int(float64(gridSize)/math.Sqrt(3)))
	return hexGrid{
		xmin: xmin,
		ymin: ymin,
		sx:   (xmax - xmin) / float64(gridSize),
		sy:   (ymax - ymin) / float64(ny),
	}
}

// bin counts the points per hexagon and returns the non-empty cells in a
// stable order.
func (g hexGrid) bin(u, v []float64) []hexCell {
	counts := make(map[[2]float64]int)
	for i := range u {
		ix := (u[i] - g.xmin) / g.sx
		iy := (v[i] - g.ymin) / g.sy
		i1, j1 := math.Round(ix), math.Round(iy)
		i2, j2 := math.Floor(ix), math.Floor(iy)
		d1 := sq(ix-i1) + 3*sq(iy-j1)
		d2 := sq(ix-i2-0.5) + 3*sq(iy-j2-0.5)
		if d1 <= d2 {
			counts[[2]float64{i1, j1}]++
		} else {
			counts[[2]float64{i2 + 0.5, j2 + 0.5}]++
		}
	}

	cells := make([]hexCell, 0, len(counts))
	for k, n := range counts {
		cells = append(cells, hexCell{cx: k[0], cy: k[1], count: n})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].cy != cells[j].cy {
			return cells[i].cy < cells[j].cy
		}
		return cells[i].cx < cells[j].cx
	})
	return cells
}

var hexCorners = [6][2]float64{{0.5, -0.5}, {0.5, 0.5}, {0, 1}, {-0.5, 0.5}, {-0.5, -0.5}, {0, -1}}

// hexagon returns the corners of c in data coordinates.
func (g hexGrid) hexagon(c hexCell, logX, logY bool) plotter.XYs {
	ux := g.xmin + c.cx*g.sx
	uy := g.ymin + c.cy*g.sy
	pts := make(plotter.XYs, len(hexCorners))
	for i, k := range hexCorners {
		x := ux + k[0]*g.sx
		y := uy + k[1]*g.sy/3
		if logX {
			x = math.Pow(10, x)
		}
		if logY {
			y = math.Pow(10, y)
		}
		pts[i] = plotter.XY{X: x, Y: y}
	}
	return pts
}

// bounds returns the range of v, widened when all values are equal.
func bounds(v []float64) (lo, hi float64) {
	lo, hi = v[0], v[0]
	for _, f := range v {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if hi == lo {
		pad := math.Max(math.Abs(lo)*0.05, 0.5)
		lo, hi = lo-pad, hi+pad
	}
	return lo, hi
}

func sq(f float64) float64 { return f * f }
