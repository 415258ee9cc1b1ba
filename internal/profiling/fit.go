package profiling

import (
	"math"

	"ndsphere/internal/errors"

	"gonum.org/v1/gonum/stat"
)

// PowerLawFit is the least-squares line log(y) = Intercept + Slope*log(x).
type PowerLawFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	Points    int     `json:"points"`
}

// FitPowerLaw fits y ~ x^slope on log-log axes. Pairs with a non-positive
// coordinate cannot be placed on log axes and are skipped.
func FitPowerLaw(x, y []float64) (PowerLawFit, error) {
	if len(x) != len(y) {
		return PowerLawFit{}, errors.InvalidInput("x and y must have the same length")
	}

	logX := make([]float64, 0, len(x))
	logY := make([]float64, 0, len(y))
	for i := range x {
		if !(x[i] > 0) || !(y[i] > 0) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		logX = append(logX, math.Log(x[i]))
		logY = append(logY, math.Log(y[i]))
	}
	if len(logX) < 2 {
		return PowerLawFit{Points: len(logX)}, errors.InvalidInput("power-law fit needs at least two positive points")
	}

	alpha, beta := stat.LinearRegression(logX, logY, nil, false)
	return PowerLawFit{
		Slope:     beta,
		Intercept: alpha,
		RSquared:  stat.RSquared(logX, logY, nil, alpha, beta),
		Points:    len(logX),
	}, nil
}
