package sphere

import (
	"fmt"
	"math"

	"ndsphere/internal/errors"
)

// ============================================================================
// ESTIMATION INPUTS
// ============================================================================

// Params are the three scalars one estimate is driven by.
// INVARIANTS (after Validate):
// - Dim >= 1
// - Samples >= 2 (a single sample has no sample variance)
// - Radius > 0 and finite
type Params struct {
	Dim     int     `json:"d"`
	Samples int     `json:"n"`
	Radius  float64 `json:"r"`
}

// Validate fails fast on inputs the estimator cannot handle. N = 1 is
// reported as degenerate rather than invalid.
func (p Params) Validate() error {
	if p.Dim < 1 {
		return errors.InvalidInput(fmt.Sprintf("dimension must be >= 1, got %d", p.Dim))
	}
	if p.Samples < 1 {
		return errors.InvalidInput(fmt.Sprintf("sample count must be >= 1, got %d", p.Samples))
	}
	if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
		return errors.InvalidInput(fmt.Sprintf("radius must be a positive finite number, got %v", p.Radius))
	}
	if p.Samples == 1 {
		return errors.DegenerateInput("sample count N=1 leaves the sample variance undefined (N-1 = 0)")
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("d=%d N=%d r=%v", p.Dim, p.Samples, p.Radius)
}

// ============================================================================
// ESTIMATION OUTPUTS
// ============================================================================

// HitCount is the number of sampled points whose Euclidean norm is <= r.
// It is the only statistic that survives a sample batch: 0 <= HitCount <= N.
type HitCount int

// EstimationResult is derived deterministically from a HitCount and Params.
// Volume, StdErr and RelError are finite and non-negative for valid Params.
// StdErr is 0 when Hits is 0 or N; that is a legitimate output.
type EstimationResult struct {
	Params     Params   `json:"params"`
	Hits       HitCount `json:"hits"`
	Volume     float64  `json:"volume"`
	StdErr     float64  `json:"stat_uncertainty"`
	RelError   float64  `json:"relative_error"`
	TrueVolume float64  `json:"true_volume"`
}

// HitFraction is HitCount / N.
func (r EstimationResult) HitFraction() float64 {
	if r.Params.Samples == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Params.Samples)
}

// ZeroVariance reports whether every point landed on the same side of the
// sphere, which makes StdErr exactly zero.
func (r EstimationResult) ZeroVariance() bool {
	return r.Hits == 0 || int(r.Hits) == r.Params.Samples
}

// Deviation is |Volume - TrueVolume| measured in standard errors. It is +Inf
// when StdErr is zero and the estimate misses.
func (r EstimationResult) Deviation() float64 {
	diff := math.Abs(r.Volume - r.TrueVolume)
	if r.StdErr == 0 {
		if diff == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return diff / r.StdErr
}
