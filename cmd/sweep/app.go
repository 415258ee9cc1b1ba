package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"ndsphere/adapters/excel"
	"ndsphere/internal"
	"ndsphere/internal/charts"
	"ndsphere/internal/config"
	"ndsphere/internal/errors"
	"ndsphere/internal/sweep"
)

var logger = internal.NewDefaultLogger("Sweep")

// Artifact file names inside the output directory.
const (
	convergenceFile = "convergence.png"
	workbookFile    = "sweep.xlsx"
)

func detailFile(d int) string {
	return fmt.Sprintf("%dDconvergence.png", d)
}

// runSweep executes the configured sweep and writes its artifacts.
func runSweep(ctx context.Context, cfg *config.Config) (*sweep.Result, error) {
	plan := sweep.Plan{
		Dims:    cfg.Sweep.Dims,
		Radius:  cfg.Sweep.Radius,
		MinExp:  cfg.Sweep.MinExp,
		MaxExp:  cfg.Sweep.MaxExp,
		Repeats: cfg.Sweep.Repeats,
		Workers: cfg.Sweep.Workers,
	}

	factory := sweep.InProcessFactory(cfg.Estimator.Seed)
	if cfg.Sweep.Exec != "" {
		logger.Info("Running %s once per point", cfg.Sweep.Exec)
		factory = sweep.SubprocessFactory(cfg.Sweep.Exec, cfg.Estimator.Seed)
	}

	res, err := sweep.Run(ctx, plan, factory)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", cfg.Output.Dir)
	}

	path := filepath.Join(cfg.Output.Dir, convergenceFile)
	if err := charts.Convergence(res, path); err != nil {
		return nil, err
	}
	logger.Info("Wrote %s", path)

	if cfg.Output.DetailDim > 0 {
		if _, ok := res.SeriesFor(cfg.Output.DetailDim); ok {
			path := filepath.Join(cfg.Output.Dir, detailFile(cfg.Output.DetailDim))
			if err := charts.Detail(res, cfg.Output.DetailDim, path); err != nil {
				return nil, err
			}
			logger.Info("Wrote %s", path)
		} else {
			logger.Warn("detail dimension %d was not swept, skipping detail plot", cfg.Output.DetailDim)
		}
	}

	if cfg.Output.Excel {
		path := filepath.Join(cfg.Output.Dir, workbookFile)
		if err := excel.WriteSweep(res, path); err != nil {
			return nil, errors.Wrap(err, "failed to export sweep")
		}
	}

	return res, nil
}

// printSummary writes the fitted convergence slopes per dimension.
func printSummary(w io.Writer, res *sweep.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s (%v)\n", res.RunID, res.Duration)
	fmt.Fprintf(tw, "d\tpoints\trel error slope (vs sqrt N)\tstat uncertainty slope (vs N)\twithin %gσ\n", sweep.CoverageK)
	for _, s := range res.Series {
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.3f\t%.3f (%.3f)\n", s.Dim, len(s.Points),
			s.RelErrorFit.Slope, s.StdErrFit.Slope, s.Coverage.Observed, s.Coverage.Expected)
	}
	tw.Flush()
}
