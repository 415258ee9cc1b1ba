package profiling

import (
	"math"

	"ndsphere/domain/sphere"
	"ndsphere/internal/errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary describes a set of repeated measurements, usually relative errors
// of one (d, N) configuration.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// DistributionAnalyzer handles distribution shape analysis of repeated estimates
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// Summarize computes summary statistics. A single value has zero spread.
func (da *DistributionAnalyzer) Summarize(data []float64) (Summary, error) {
	summary := Summary{Count: len(data)}
	if len(data) == 0 {
		return summary, errors.InvalidInput("cannot summarize an empty sample")
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return summary, err
	}

	min, err := stats.Min(data)
	if err != nil {
		return summary, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return summary, err
	}

	median, err := stats.Median(data)
	if err != nil {
		return summary, err
	}

	summary.Mean = mean
	summary.Min = min
	summary.Max = max
	summary.Median = median
	summary.Q25 = median
	summary.Q75 = median

	if len(data) < 2 {
		return summary, nil
	}

	stdDev, err := stats.StandardDeviationSample(data)
	if err != nil {
		return summary, err
	}
	summary.StdDev = stdDev

	if q25, err := stats.Percentile(data, 25); err == nil {
		summary.Q25 = q25
	}
	if q75, err := stats.Percentile(data, 75); err == nil {
		summary.Q75 = q75
	}

	if stdDev > 0 {
		summary.Skewness = calculateSkewness(data, mean, stdDev)
		summary.Kurtosis = calculateKurtosis(data, mean, stdDev)
	}

	return summary, nil
}

// StandardizedDeviations returns (Volume - TrueVolume) / StdErr per result.
// Results with zero standard error are skipped.
func StandardizedDeviations(results []sphere.EstimationResult) []float64 {
	z := make([]float64, 0, len(results))
	for _, r := range results {
		if r.StdErr == 0 {
			continue
		}
		z = append(z, (r.Volume-r.TrueVolume)/r.StdErr)
	}
	return z
}

// TestNormality checks whether standardized deviations look like draws from
// a unit normal, using a skewness/kurtosis statistic against chi-squared(2).
func (da *DistributionAnalyzer) TestNormality(data []float64) (isNormal bool, pValue float64) {
	if len(data) < 4 {
		return false, 1.0
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return false, 1.0
	}

	stdDev, err := stats.StandardDeviationSample(data)
	if err != nil || stdDev == 0 {
		return false, 1.0
	}

	n := float64(len(data))
	skewness := calculateSkewness(data, mean, stdDev)
	kurtosis := calculateKurtosis(data, mean, stdDev)

	// Jarque-Bera statistic
	testStat := n / 6 * (skewness*skewness + (kurtosis-3)*(kurtosis-3)/4)

	chiDist := distuv.ChiSquared{K: 2}
	pValue = 1 - chiDist.CDF(testStat)
	isNormal = pValue > 0.05

	return isNormal, pValue
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n
	skewness *= math.Sqrt(n*(n-1)) / (n - 2)

	return skewness
}

// calculateKurtosis computes sample kurtosis (3 for a normal distribution)
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 {
		return 0
	}

	n := float64(len(data))
	sumFourthDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumFourthDeviations += deviation * deviation * deviation * deviation
	}

	return sumFourthDeviations / n
}
