package profiling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitPowerLawExact(t *testing.T) {
	var x, y []float64
	for k := 1; k <= 8; k++ {
		n := math.Pow(2, float64(k))
		x = append(x, n)
		y = append(y, 3/math.Sqrt(n))
	}

	fit, err := FitPowerLaw(x, y)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, fit.Slope, 1e-12)
	assert.InDelta(t, math.Log(3), fit.Intercept, 1e-12)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-12)
	assert.Equal(t, 8, fit.Points)
}

func TestFitPowerLawSkipsNonPositive(t *testing.T) {
	fit, err := FitPowerLaw([]float64{1, 2, 4, 8}, []float64{1, 0, 0.25, 0.125})
	require.NoError(t, err)
	assert.Equal(t, 3, fit.Points)
	assert.InDelta(t, -1.0, fit.Slope, 1e-12)
}

func TestFitPowerLawErrors(t *testing.T) {
	_, err := FitPowerLaw([]float64{1, 2}, []float64{1})
	assert.Error(t, err)

	_, err = FitPowerLaw([]float64{1, 2}, []float64{0, 0})
	assert.Error(t, err)
}
