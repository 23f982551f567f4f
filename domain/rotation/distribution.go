package rotation

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// DistributionShape describes the shape of the trimmed turnover
// distribution, so a dashboard can say whether "mean days on shelf" is a
// trustworthy headline or skew is hiding a long tail.
type DistributionShape struct {
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	IsNormal bool    `json:"is_normal"`
	PValue   float64 `json:"p_value"`

	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Q25 float64 `json:"q25"`
	Q75 float64 `json:"q75"`
}

// AnalyzeShape profiles a turnover sample. Requires at least four points.
func AnalyzeShape(days []float64) (DistributionShape, error) {
	shape := DistributionShape{}
	if len(days) < 4 {
		return shape, fmt.Errorf("need at least 4 observations, got %d", len(days))
	}

	mean, err := stats.Mean(days)
	if err != nil {
		return shape, err
	}
	stdDev, err := stats.StandardDeviation(days)
	if err != nil {
		return shape, err
	}
	if stdDev == 0 {
		return shape, fmt.Errorf("zero variance sample")
	}

	shape.Min, _ = stats.Min(days)
	shape.Max, _ = stats.Max(days)
	shape.Q25, _ = stats.Percentile(days, 25)
	shape.Q75, _ = stats.Percentile(days, 75)

	shape.Skewness = sampleSkewness(days, mean, stdDev)
	shape.Kurtosis = sampleKurtosis(days, mean, stdDev)
	shape.IsNormal, shape.PValue = approxNormality(shape.Skewness, shape.Kurtosis)

	return shape, nil
}

// sampleSkewness computes the adjusted Fisher-Pearson coefficient.
func sampleSkewness(data []float64, mean, stdDev float64) float64 {
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	skew := sum / n
	if n > 2 {
		skew *= math.Sqrt(n*(n-1)) / (n - 2)
	}
	return skew
}

// sampleKurtosis computes bias-corrected sample kurtosis (not excess).
func sampleKurtosis(data []float64, mean, stdDev float64) float64 {
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	kurtosis := sum / n
	excess := kurtosis - 3
	if n > 3 {
		correction := (n - 1) / ((n - 2) * (n - 3))
		excess = excess*correction + 6/(n+1)
	}
	return excess + 3
}

// approxNormality approximates a normality test from skewness and kurtosis
// against a chi-squared reference. Rough, but enough to annotate a
// dashboard; it is not a substitute for a proper Shapiro-Wilk test.
func approxNormality(skewness, kurtosis float64) (isNormal bool, pValue float64) {
	testStat := math.Abs(skewness) + math.Abs(kurtosis-3)/2
	chiDist := distuv.ChiSquared{K: 2}
	pValue = 1 - chiDist.CDF(testStat*testStat)
	return pValue > 0.05, pValue
}
