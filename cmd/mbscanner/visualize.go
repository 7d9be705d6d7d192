// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/mbscanner/internal/errors"
	"github.com/kraklabs/mbscanner/internal/ui"
	"github.com/kraklabs/mbscanner/pkg/visualize"
)

// runVisualize dispatches the 'visualize' subcommands.
func runVisualize(ctx context.Context, a *app, args []string) error {
	return dispatch(ctx, a, "visualize", args, map[string]handler{
		"scatter": runScatter,
		"boxplot": runBoxplot,
	})
}

type plotReport struct {
	Output string `json:"output"`
	Points int    `json:"points,omitempty"`
	Boxes  int    `json:"boxes,omitempty"`
}

// runScatter plots each project's finding count against its JavaScript
// line count.
//
//	mbscanner visualize scatter -q outputs/queries/id_10/limit_1_summary.json \
//	    -o outputs/plots/id_10.png --log-scale-x --show-correlation
func runScatter(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("scatter", "Usage: mbscanner visualize scatter -q <summary.json> [options]\n\nPlots finding counts against JavaScript line counts.\n")
	summaryPath := fs.StringP("query-result", "q", "", "Summary JSON of one query (required)")
	out := fs.StringP("output", "o", "outputs/plots/scatter.png", "Output image (.png, .svg or .pdf)")
	opts := visualize.ScatterOptions{Logger: a.logger}
	fs.StringVarP(&opts.Title, "title", "t", "CodeQL Detection vs JS Lines", "Plot title")
	fs.StringVar(&opts.XLabel, "xlabel", "JavaScript Lines Count", "X-axis label")
	fs.StringVar(&opts.YLabel, "ylabel", "Detection Count", "Y-axis label")
	fs.BoolVar(&opts.LogX, "log-scale-x", false, "Logarithmic x-axis")
	fs.BoolVar(&opts.LogY, "log-scale-y", false, "Logarithmic y-axis")
	fs.BoolVar(&opts.ShowCorrelation, "show-correlation", false, "Show Spearman's rank correlation in the title")
	fs.BoolVar(&opts.ShowRegression, "show-regression", false, "Draw a linear regression line")
	useHexbin := fs.Bool("use-hexbin", false, "Draw a hexagonal density plot instead of single points")
	gridSize := fs.Int("gridsize", visualize.DefaultGridSize, "Hexagons along the x-axis (with --use-hexbin)")
	cmap := fs.String("cmap", visualize.DefaultColorMap, "ColorBrewer palette for hexagons, \"_r\" reverses (with --use-hexbin)")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if *summaryPath == "" {
		return errors.NewInputError("Missing --query-result", "", "Pass the summary JSON produced by 'mbscanner codeql summary'")
	}
	if *useHexbin && *gridSize < 1 {
		return errors.NewInputError("--gridsize must be at least 1", fmt.Sprintf("got %d", *gridSize), "")
	}

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	points, err := visualize.ScatterData(ctx, *summaryPath, store, a.logger)
	if err != nil {
		return userError("Cannot load plot data", err)
	}
	if len(points) == 0 {
		ui.Warning("No project has both results and a line count; run 'mbscanner count-lines' first")
	}

	if *useHexbin {
		err = visualize.Hexbin(points, visualize.HexbinOptions{ScatterOptions: opts, GridSize: *gridSize, ColorMap: *cmap}, *out)
	} else {
		err = visualize.Scatter(points, opts, *out)
	}
	if err != nil {
		return plotError(err)
	}

	if done, err := a.emit(plotReport{Output: *out, Points: len(points)}); done {
		return err
	}
	if *useHexbin {
		ui.Successf("Saved hexbin plot: %s", *out)
	} else {
		ui.Successf("Saved scatter plot: %s", *out)
	}
	ui.KeyValue("Projects:", len(points))
	return nil
}

// runBoxplot plots one box per query from a directory of summary files.
//
//	mbscanner visualize boxplot -i outputs/summaries --query-order id_10,id_18,id_222
func runBoxplot(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("boxplot", "Usage: mbscanner visualize boxplot -i <dir> [options]\n\nPlots the distribution of result counts per query.\n")
	inputDir := fs.StringP("input-dir", "i", "", "Directory holding summary JSON files (required)")
	out := fs.StringP("output", "o", "outputs/plots/boxplot_summary.png", "Output image (.png, .svg or .pdf)")
	opts := visualize.BoxplotOptions{Logger: a.logger}
	fs.StringVarP(&opts.Title, "title", "t", "CodeQL Query Results - Box Plot Summary", "Plot title")
	fs.BoolVar(&opts.LogScale, "log-scale", false, "Logarithmic y-axis")
	order := fs.String("query-order", "", "Comma separated query IDs, left to right")
	if err := parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if *inputDir == "" {
		return errors.NewInputError("Missing --input-dir", "", "Pass a directory of summary JSON files")
	}
	for _, id := range strings.Split(*order, ",") {
		if id = strings.TrimSpace(id); id != "" {
			opts.Order = append(opts.Order, id)
		}
	}

	data, err := visualize.LoadBoxplotData(*inputDir)
	if err != nil {
		return errors.NewNotFoundError("Cannot load summaries", err.Error(), "Check --input-dir")
	}
	if err := visualize.Boxplot(data, opts, *out); err != nil {
		return plotError(err)
	}

	if done, err := a.emit(plotReport{Output: *out, Boxes: len(data)}); done {
		return err
	}
	ui.Successf("Saved boxplot: %s", *out)
	ui.KeyValue("Queries:", len(data))
	return nil
}

func plotError(err error) error {
	return errors.NewInputError("Cannot render plot", err.Error(), "Check the output extension (.png, .svg or .pdf) and plot options")
}
