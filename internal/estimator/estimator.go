// Package estimator computes Monte Carlo estimates of the volume of a
// d-dimensional ball by rejection sampling in its bounding cube.
package estimator

import (
	"math"
	"math/rand/v2"

	"ndsphere/domain/sphere"
	"ndsphere/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Estimator samples points uniformly from [-r, r]^d and counts those whose
// Euclidean norm is at most r.
//
// An Estimator built with a Source reuses that source across calls and is
// not safe for concurrent use. The zero value draws a fresh source per call.
type Estimator struct {
	src rand.Source
}

// New returns an Estimator with fresh randomness on every call.
func New() *Estimator {
	return &Estimator{}
}

// NewWithSource returns an Estimator that draws every coordinate from src.
func NewWithSource(src rand.Source) *Estimator {
	return &Estimator{src: src}
}

// NewSeeded returns a reproducible Estimator backed by a PCG source.
func NewSeeded(seed uint64) *Estimator {
	return NewWithSource(SeededSource(seed, 0))
}

// SeededSource derives an independent PCG stream for (seed, stream). Sweeps
// use the dimension as the stream so parallel jobs never share state.
func SeededSource(seed, stream uint64) rand.Source {
	return rand.NewPCG(seed, stream^0x9e3779b97f4a7c15)
}

// Estimate runs one Monte Carlo estimate. Inputs are validated before any
// sampling: N = 1 fails with a DEGENERATE_INPUT error.
func (e *Estimator) Estimate(p sphere.Params) (sphere.EstimationResult, error) {
	if err := p.Validate(); err != nil {
		return sphere.EstimationResult{}, err
	}
	return FromHits(e.CountHits(p), p)
}

// CountHits draws p.Samples points and returns how many fall inside the
// ball. Points are streamed through a single d-length buffer.
func (e *Estimator) CountHits(p sphere.Params) sphere.HitCount {
	coord := distuv.Uniform{Min: -p.Radius, Max: p.Radius, Src: e.source()}

	point := make([]float64, p.Dim)
	var hits sphere.HitCount
	for i := 0; i < p.Samples; i++ {
		for j := range point {
			point[j] = coord.Rand()
		}
		if floats.Norm(point, 2) <= p.Radius {
			hits++
		}
	}
	return hits
}

func (e *Estimator) source() rand.Source {
	if e.src != nil {
		return e.src
	}
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// FromHits turns a hit count into the volume estimate, its standard error
// and its relative error against the closed-form volume.
//
//	volume = hits/N * (2r)^d
//	stderr = sqrt((hits - hits^2/N) / (N-1)) * (2r)^d / sqrt(N)
//
// hits = 0 and hits = N both give stderr = 0.
func FromHits(hits sphere.HitCount, p sphere.Params) (sphere.EstimationResult, error) {
	if err := p.Validate(); err != nil {
		return sphere.EstimationResult{}, err
	}
	if hits < 0 || int(hits) > p.Samples {
		return sphere.EstimationResult{}, errors.InvalidInput("hit count outside [0, N]")
	}

	n := float64(p.Samples)
	h := float64(hits)

	// h*(n-h)/n equals h - h^2/n but cannot go negative through rounding.
	variance := h * (n - h) / n / (n - 1)

	volume := scaleByCube(h/n, p.Dim, p.Radius)
	stderr := scaleByCube(math.Sqrt(variance)/math.Sqrt(n), p.Dim, p.Radius)
	trueVolume := TrueVolume(p.Dim, p.Radius)

	return sphere.EstimationResult{
		Params:     p,
		Hits:       hits,
		Volume:     volume,
		StdErr:     stderr,
		RelError:   relativeError(h/n, volume, trueVolume, p.Dim),
		TrueVolume: trueVolume,
	}, nil
}

// TrueVolume is the closed-form volume pi^(d/2) / Gamma(d/2 + 1) * r^d.
// When the direct form over- or underflows it is evaluated in log space.
func TrueVolume(d int, r float64) float64 {
	half := float64(d) / 2
	v := math.Pow(math.Pi, half) / math.Gamma(half+1) * math.Pow(r, float64(d))
	if isNormal(v) {
		return v
	}
	return math.Exp(logUnitBallVolume(d) + float64(d)*math.Log(r))
}

// CubeVolume is (2r)^d, the volume of the bounding cube.
func CubeVolume(d int, r float64) float64 {
	return math.Pow(2*r, float64(d))
}

func logUnitBallVolume(d int) float64 {
	half := float64(d) / 2
	lg, _ := math.Lgamma(half + 1)
	return half*math.Log(math.Pi) - lg
}

// scaleByCube returns x * (2r)^d, falling back to log space when the cube
// volume itself is not representable.
func scaleByCube(x float64, d int, r float64) float64 {
	if x == 0 {
		return 0
	}
	if cube := CubeVolume(d, r); isNormal(cube) {
		return x * cube
	}
	return math.Exp(math.Log(x) + float64(d)*math.Log(2*r))
}

// relativeError is |trueVolume - volume| / trueVolume. The radius cancels in
// the ratio, so when either volume is out of range the ratio is taken
// against the unit ball directly.
func relativeError(fraction, volume, trueVolume float64, d int) float64 {
	if isNormal(trueVolume) && !math.IsInf(volume, 0) {
		return math.Abs(trueVolume-volume) / trueVolume
	}
	if fraction == 0 {
		return 1
	}
	logRatio := math.Log(fraction) + float64(d)*math.Ln2 - logUnitBallVolume(d)
	return math.Abs(1 - math.Exp(logRatio))
}

// minNormal is the smallest positive normal float64.
const minNormal = 0x1p-1022

func isNormal(v float64) bool {
	return v >= minNormal && !math.IsInf(v, 0)
}
