package profiling

import (
	"ndsphere/domain/sphere"

	"gonum.org/v1/gonum/stat/distuv"
)

// Coverage compares how often estimates land within K standard errors of
// the closed-form volume against the normal-theory expectation.
type Coverage struct {
	K        float64 `json:"k"`
	Within   int     `json:"within"`
	Total    int     `json:"total"`
	Observed float64 `json:"observed"`
	Expected float64 `json:"expected"`
}

// MeasureCoverage counts results with |Volume - TrueVolume| <= k * StdErr.
// A zero-variance result counts as covered only if it is exact.
func MeasureCoverage(results []sphere.EstimationResult, k float64) Coverage {
	c := Coverage{
		K:        k,
		Total:    len(results),
		Expected: ExpectedCoverage(k),
	}
	for _, r := range results {
		if r.Deviation() <= k {
			c.Within++
		}
	}
	if c.Total > 0 {
		c.Observed = float64(c.Within) / float64(c.Total)
	}
	return c
}

// ExpectedCoverage is P(|Z| <= k) for a unit normal Z.
func ExpectedCoverage(k float64) float64 {
	return 2*distuv.UnitNormal.CDF(k) - 1
}
