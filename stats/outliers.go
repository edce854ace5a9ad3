// Package stats implements the robust outlier statistics used when
// combining repeated benchmark runs.
package stats

import (
	"math"
	"sort"
)

// OutlierThreshold is the modified z-score magnitude above which a sample
// is considered to contain outliers.
const OutlierThreshold = 1.4826 * 10.0

// Median returns the median of the values. Panics on an empty sample.
func Median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// ModifiedZScores computes the modified z-score of every value: a
// median/MAD based statistic that, unlike the classic (x-mean)/stddev
// z-score, is not dragged around by the extreme values it is meant to
// detect. A zero MAD (all values identical) is substituted with machine
// epsilon so the division stays defined.
//
// References: <https://en.wikipedia.org/wiki/Median_absolute_deviation>
func ModifiedZScores(values []float64) []float64 {
	median := Median(values)

	deviations := make([]float64, len(values))
	for i, x := range values {
		deviations[i] = math.Abs(x - median)
	}
	mad := Median(deviations)
	if mad == 0 {
		mad = math.Nextafter(1, 2) - 1
	}

	scores := make([]float64, len(values))
	for i, x := range values {
		scores[i] = 0.6745 * (x - median) / mad
	}
	return scores
}

// HasOutliers reports whether any value's modified z-score exceeds the
// outlier threshold.
func HasOutliers(values []float64) bool {
	for _, z := range ModifiedZScores(values) {
		if math.Abs(z) > OutlierThreshold {
			return true
		}
	}
	return false
}
