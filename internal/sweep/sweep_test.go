package sweep

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"ndsphere/domain/sphere"
	"ndsphere/internal/errors"
	"ndsphere/internal/estimator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner answers every estimate through fn.
type stubRunner struct {
	fn    func(p sphere.Params) (sphere.EstimationResult, error)
	calls atomic.Int64
}

func (s *stubRunner) Estimate(_ context.Context, p sphere.Params) (sphere.EstimationResult, error) {
	s.calls.Add(1)
	return s.fn(p)
}

func smallPlan() Plan {
	return Plan{Dims: []int{3, 2}, Radius: 1, MinExp: 6, MaxExp: 14, Repeats: 2, Workers: 2}
}

func TestPlanValidate(t *testing.T) {
	valid := smallPlan()
	require.NoError(t, valid.Validate())
	require.NoError(t, DefaultPlan().Validate())

	tests := []struct {
		name   string
		mutate func(p *Plan)
	}{
		{"no dims", func(p *Plan) { p.Dims = nil }},
		{"zero dim", func(p *Plan) { p.Dims = []int{0} }},
		{"duplicate dim", func(p *Plan) { p.Dims = []int{3, 3} }},
		{"bad radius", func(p *Plan) { p.Radius = 0 }},
		{"min exp zero", func(p *Plan) { p.MinExp = 0 }},
		{"inverted range", func(p *Plan) { p.MinExp, p.MaxExp = 10, 9 }},
		{"no repeats", func(p *Plan) { p.Repeats = 0 }},
		{"no workers", func(p *Plan) { p.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := smallPlan()
			tt.mutate(&p)
			assert.True(t, errors.IsInvalidInput(p.Validate()))
		})
	}
}

func TestPlanSampleCounts(t *testing.T) {
	p := Plan{MinExp: 6, MaxExp: 9}
	assert.Equal(t, []int{64, 128, 256, 512}, p.SampleCounts())
	assert.Len(t, DefaultPlan().SampleCounts(), 19)
}

func TestRunInProcess(t *testing.T) {
	seed := uint64(2024)
	plan := smallPlan()

	res, err := Run(context.Background(), plan, InProcessFactory(&seed))
	require.NoError(t, err)

	assert.False(t, res.RunID == "")
	require.Len(t, res.Series, 2)
	assert.Equal(t, 3, res.Series[0].Dim)
	assert.Equal(t, 2, res.Series[1].Dim)

	for _, s := range res.Series {
		require.Len(t, s.Points, 9)
		for i, p := range s.Points {
			assert.Equal(t, 64<<i, p.N)
			assert.Len(t, p.Results, 2)
			assert.GreaterOrEqual(t, p.RelError, 0.0)
			assert.Equal(t, estimator.TrueVolume(s.Dim, 1), p.TrueVolume)
		}
		assert.InDelta(t, -0.5, s.StdErrFit.Slope, 0.1, "d=%d", s.Dim)
		assert.Equal(t, 9, s.StdErrFit.Points)

		assert.Equal(t, 18, s.Coverage.Total)
		assert.GreaterOrEqual(t, s.Coverage.Observed, 0.7, "d=%d", s.Dim)
		assert.InDelta(t, 0.9545, s.Coverage.Expected, 1e-3)
		assert.True(t, s.NormalityP >= 0 && s.NormalityP <= 1)
	}

	s, ok := res.SeriesFor(2)
	require.True(t, ok)
	assert.Equal(t, 2, s.Dim)
	_, ok = res.SeriesFor(7)
	assert.False(t, ok)
}

func TestRunSeededIsReproducible(t *testing.T) {
	seed := uint64(7)
	plan := smallPlan()
	plan.MaxExp = 10

	a, err := Run(context.Background(), plan, InProcessFactory(&seed))
	require.NoError(t, err)
	b, err := Run(context.Background(), plan, InProcessFactory(&seed))
	require.NoError(t, err)

	for i := range a.Series {
		assert.Equal(t, a.Series[i].RelErrors(), b.Series[i].RelErrors())
		assert.Equal(t, a.Series[i].StdErrs(), b.Series[i].StdErrs())
	}
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunToleratesZeroValues(t *testing.T) {
	stub := &stubRunner{fn: func(p sphere.Params) (sphere.EstimationResult, error) {
		return sphere.EstimationResult{Params: p, Volume: 0, StdErr: 0, RelError: 1, TrueVolume: 1}, nil
	}}

	plan := smallPlan()
	plan.Repeats = 1
	res, err := Run(context.Background(), plan, func(int) Runner { return stub })
	require.NoError(t, err)

	for _, s := range res.Series {
		assert.Equal(t, 0, s.StdErrFit.Points)
		assert.InDelta(t, 0.0, s.RelErrorFit.Slope, 1e-12)
		assert.Equal(t, 0, s.Coverage.Within)
		assert.Equal(t, 9, s.Coverage.Total)
	}
	assert.Equal(t, int64(18), stub.calls.Load())
}

func TestRunPropagatesRunnerError(t *testing.T) {
	stub := &stubRunner{fn: func(p sphere.Params) (sphere.EstimationResult, error) {
		if p.Samples >= 256 {
			return sphere.EstimationResult{}, errors.DegenerateInput("boom")
		}
		return sphere.EstimationResult{Params: p, RelError: 0.1, StdErr: 0.1, TrueVolume: 1}, nil
	}}

	_, err := Run(context.Background(), smallPlan(), func(int) Runner { return stub })
	require.Error(t, err)
	assert.True(t, errors.IsDegenerate(err))
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seed := uint64(1)
	_, err := Run(ctx, smallPlan(), InProcessFactory(&seed))
	assert.Error(t, err)
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	plan := smallPlan()
	plan.Dims = nil
	_, err := Run(context.Background(), plan, InProcessFactory(nil))
	assert.True(t, errors.IsInvalidInput(err))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "ndsphere")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestSubprocessParsesReport(t *testing.T) {
	path := writeScript(t, `echo "(r): $3"
echo "(d,N): $1 $2"
echo "volume: 4.0"
echo "stat uncertainty: 0.25"
echo "relative error: 0.0450703"
`)

	runner := &Subprocess{Path: path}
	p := sphere.Params{Dim: 3, Samples: 64, Radius: 1}
	res, err := runner.Estimate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, p, res.Params)
	assert.Equal(t, 4.0, res.Volume)
	assert.Equal(t, 0.25, res.StdErr)
	assert.InDelta(t, 0.0450703, res.RelError, 1e-12)
	assert.Equal(t, sphere.HitCount(32), res.Hits)
}

func TestSubprocessPassesSeed(t *testing.T) {
	path := writeScript(t, `if [ "$4" != "--seed" ]; then echo "missing seed" >&2; exit 1; fi
echo "stat uncertainty: 0.1"
echo "relative error: 0.2"
`)

	seed := uint64(5)
	_, err := (&Subprocess{Path: path, Seed: &seed}).Estimate(context.Background(), sphere.Params{Dim: 2, Samples: 8, Radius: 1})
	require.NoError(t, err)

	_, err = (&Subprocess{Path: path}).Estimate(context.Background(), sphere.Params{Dim: 2, Samples: 8, Radius: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
	assert.Contains(t, err.Error(), "missing seed")
}

func TestSubprocessRepeatsGetDistinctSeeds(t *testing.T) {
	// The fake reports its --seed as the relative error.
	path := writeScript(t, `echo "stat uncertainty: 0.1"
echo "relative error: $5"
`)
	seed := uint64(42)
	p := sphere.Params{Dim: 3, Samples: 64, Radius: 1}

	seeds := func() []float64 {
		runner := SubprocessFactory(path, &seed)(3)
		var out []float64
		for i := 0; i < 3; i++ {
			res, err := runner.Estimate(context.Background(), p)
			require.NoError(t, err)
			out = append(out, res.RelError)
		}
		return out
	}

	first := seeds()
	assert.NotEqual(t, first[0], first[1])
	assert.NotEqual(t, first[1], first[2])
	assert.NotEqual(t, first[0], first[2])
	assert.Equal(t, first, seeds(), "a fresh runner replays the same seeds")
}

func TestCallSeed(t *testing.T) {
	p := sphere.Params{Dim: 3, Samples: 64, Radius: 1}
	assert.NotEqual(t, callSeed(42, p, 0), callSeed(42, p, 1))
	assert.NotEqual(t, callSeed(42, p, 0), callSeed(43, p, 0))
	assert.NotEqual(t, callSeed(42, p, 0), callSeed(42, sphere.Params{Dim: 3, Samples: 128, Radius: 1}, 0))
	assert.Equal(t, callSeed(42, p, 7), callSeed(42, p, 7))
}

func TestSubprocessRejectsMismatchedReport(t *testing.T) {
	path := writeScript(t, `echo "(r): 1"
echo "(d,N): 5 64"
echo "stat uncertainty: 0.1"
echo "relative error: 0.2"
`)
	_, err := (&Subprocess{Path: path}).Estimate(context.Background(), sphere.Params{Dim: 3, Samples: 64, Radius: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeProtocolMismatch, errors.GetCode(err))
}

func TestSubprocessRejectsGarbage(t *testing.T) {
	path := writeScript(t, "echo hello\n")
	_, err := (&Subprocess{Path: path}).Estimate(context.Background(), sphere.Params{Dim: 2, Samples: 8, Radius: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeProtocolMismatch, errors.GetCode(err))
}
