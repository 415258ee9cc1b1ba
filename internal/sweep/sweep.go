// Package sweep runs the estimator over a grid of dimensions and
// geometrically growing sample counts and fits the convergence rate.
package sweep

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"ndsphere/domain/core"
	"ndsphere/domain/sphere"
	"ndsphere/internal"
	"ndsphere/internal/errors"
	"ndsphere/internal/profiling"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"
)

var logger = internal.NewDefaultLogger("Sweep")

// Plan describes a sweep: every dimension is run for N = 2^MinExp .. 2^MaxExp.
type Plan struct {
	Dims    []int   `json:"dims"`
	Radius  float64 `json:"radius"`
	MinExp  int     `json:"min_exp"`
	MaxExp  int     `json:"max_exp"`
	Repeats int     `json:"repeats"`
	Workers int     `json:"workers"`
}

// DefaultPlan mirrors the classic convergence study: d in {10, 5, 3},
// N = 2^6 .. 2^24, unit radius.
func DefaultPlan() Plan {
	return Plan{
		Dims:    []int{10, 5, 3},
		Radius:  1.0,
		MinExp:  6,
		MaxExp:  24,
		Repeats: 1,
		Workers: 1,
	}
}

// Validate checks the plan before any work starts.
func (p Plan) Validate() error {
	if len(p.Dims) == 0 {
		return errors.InvalidInput("plan has no dimensions")
	}
	seen := make(map[int]bool, len(p.Dims))
	for _, d := range p.Dims {
		if d < 1 {
			return errors.InvalidInput(fmt.Sprintf("dimension must be >= 1, got %d", d))
		}
		if seen[d] {
			return errors.InvalidInput(fmt.Sprintf("dimension %d listed twice", d))
		}
		seen[d] = true
	}
	if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
		return errors.InvalidInput("radius must be a positive finite number")
	}
	if p.MinExp < 1 || p.MaxExp < p.MinExp || p.MaxExp > 40 {
		return errors.InvalidInput(fmt.Sprintf("exponent range [%d, %d] must lie within [1, 40]", p.MinExp, p.MaxExp))
	}
	if p.Repeats < 1 {
		return errors.InvalidInput("repeats must be >= 1")
	}
	if p.Workers < 1 {
		return errors.InvalidInput("workers must be >= 1")
	}
	return nil
}

// SampleCounts returns the geometric sequence of N values.
func (p Plan) SampleCounts() []int {
	counts := make([]int, 0, p.MaxExp-p.MinExp+1)
	for k := p.MinExp; k <= p.MaxExp; k++ {
		counts = append(counts, 1<<k)
	}
	return counts
}

// Point aggregates the repeats at one (d, N).
type Point struct {
	N              int     `json:"n"`
	SqrtN          float64 `json:"sqrt_n"`
	RelError       float64 `json:"relative_error"`
	RelErrorSpread float64 `json:"relative_error_spread"`
	StdErr         float64 `json:"stat_uncertainty"`
	Volume         float64 `json:"volume"`
	TrueVolume     float64 `json:"true_volume"`

	Results []sphere.EstimationResult `json:"-"`
}

// Series is the convergence curve of one dimension.
type Series struct {
	Dim    int     `json:"d"`
	Points []Point `json:"points"`
	// RelErrorFit is log(relerror) against log(sqrt N); slope near -1.
	RelErrorFit profiling.PowerLawFit `json:"relative_error_fit"`
	// StdErrFit is log(stderr) against log(N); slope near -0.5.
	StdErrFit profiling.PowerLawFit `json:"stat_uncertainty_fit"`
	// Coverage counts estimates within CoverageK standard errors of the
	// closed-form volume, over every point of the curve.
	Coverage profiling.Coverage `json:"coverage"`
	// NormalityP is the Jarque-Bera p-value of the standardized deviations.
	NormalityP float64 `json:"normality_p"`
}

// CoverageK is the half-width, in standard errors, of the coverage check.
const CoverageK = 2.0

// SqrtN, RelErrors and StdErrs return the columns of the curve.
func (s Series) SqrtN() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.SqrtN
	}
	return out
}

func (s Series) RelErrors() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.RelError
	}
	return out
}

func (s Series) StdErrs() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.StdErr
	}
	return out
}

// Result is a completed sweep.
type Result struct {
	RunID     core.RunID    `json:"run_id"`
	Plan      Plan          `json:"plan"`
	Series    []Series      `json:"series"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// SeriesFor returns the series of dimension d.
func (r *Result) SeriesFor(d int) (Series, bool) {
	for _, s := range r.Series {
		if s.Dim == d {
			return s, true
		}
	}
	return Series{}, false
}

// Run executes plan. Dimensions run in parallel up to plan.Workers, each with
// the runner factory(d). The first failure cancels the remaining work.
func Run(ctx context.Context, plan Plan, factory RunnerFactory) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := &Result{
		RunID:     core.NewRunID(),
		Plan:      plan,
		Series:    make([]Series, len(plan.Dims)),
		StartedAt: time.Now(),
	}
	logger.Info("Starting run %s: dims=%v, N=2^%d..2^%d, r=%v, repeats=%d, workers=%d",
		result.RunID, plan.Dims, plan.MinExp, plan.MaxExp, plan.Radius, plan.Repeats, plan.Workers)

	sem := semaphore.NewWeighted(int64(plan.Workers))
	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i, d := range plan.Dims {
		if err := sem.Acquire(ctx, 1); err != nil {
			fail(err)
			break
		}
		go func(i, d int) {
			defer sem.Release(1)
			series, err := runDimension(ctx, plan, d, factory(d))
			if err != nil {
				fail(errors.Wrapf(err, "sweep failed for d=%d", d))
				return
			}
			result.Series[i] = series
		}(i, d)
	}

	// Wait for in-flight dimensions.
	if err := sem.Acquire(context.Background(), int64(plan.Workers)); err == nil {
		sem.Release(int64(plan.Workers))
	}

	mu.Lock()
	err := firstErr
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(result.StartedAt)
	logger.Info("✓ Run %s finished in %v", result.RunID, result.Duration)
	return result, nil
}

func runDimension(ctx context.Context, plan Plan, d int, runner Runner) (Series, error) {
	series := Series{Dim: d}
	for _, n := range plan.SampleCounts() {
		point, err := runPoint(ctx, plan, d, n, runner)
		if err != nil {
			return Series{}, err
		}
		logger.Info("d=%d, N=%d, rel_error=%g, stdev=%g", d, n, point.RelError, point.StdErr)
		series.Points = append(series.Points, point)
	}

	var ns []float64
	for _, p := range series.Points {
		ns = append(ns, float64(p.N))
	}

	fit, err := profiling.FitPowerLaw(series.SqrtN(), series.RelErrors())
	if err != nil {
		logger.Warn("no relative error fit for d=%d: %v", d, err)
	}
	series.RelErrorFit = fit

	fit, err = profiling.FitPowerLaw(ns, series.StdErrs())
	if err != nil {
		logger.Warn("no stat uncertainty fit for d=%d: %v", d, err)
	}
	series.StdErrFit = fit

	var all []sphere.EstimationResult
	for _, p := range series.Points {
		all = append(all, p.Results...)
	}
	series.Coverage = profiling.MeasureCoverage(all, CoverageK)
	_, series.NormalityP = profiling.NewDistributionAnalyzer().TestNormality(profiling.StandardizedDeviations(all))
	if series.Coverage.Total > 0 {
		logger.Info("d=%d: %d/%d estimates within %gσ (expected %.3f), normality p=%.3f",
			d, series.Coverage.Within, series.Coverage.Total, CoverageK, series.Coverage.Expected, series.NormalityP)
	}

	return series, nil
}

func runPoint(ctx context.Context, plan Plan, d, n int, runner Runner) (Point, error) {
	params := sphere.Params{Dim: d, Samples: n, Radius: plan.Radius}

	results := make([]sphere.EstimationResult, 0, plan.Repeats)
	relErrs := make([]float64, 0, plan.Repeats)
	stdErrs := make([]float64, 0, plan.Repeats)
	volumes := make([]float64, 0, plan.Repeats)
	for i := 0; i < plan.Repeats; i++ {
		res, err := runner.Estimate(ctx, params)
		if err != nil {
			return Point{}, errors.Wrapf(err, "estimate %s failed", params)
		}
		results = append(results, res)
		relErrs = append(relErrs, res.RelError)
		stdErrs = append(stdErrs, res.StdErr)
		volumes = append(volumes, res.Volume)
	}

	summary, err := profiling.NewDistributionAnalyzer().Summarize(relErrs)
	if err != nil {
		return Point{}, err
	}
	meanStd, err := stats.Mean(stdErrs)
	if err != nil {
		return Point{}, err
	}
	meanVol, err := stats.Mean(volumes)
	if err != nil {
		return Point{}, err
	}

	return Point{
		N:              n,
		SqrtN:          math.Sqrt(float64(n)),
		RelError:       summary.Mean,
		RelErrorSpread: summary.StdDev,
		StdErr:         meanStd,
		Volume:         meanVol,
		TrueVolume:     results[0].TrueVolume,
		Results:        results,
	}, nil
}
