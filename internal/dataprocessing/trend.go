package dataprocessing

import (
	"math"
	"slices"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// TrendStats describes a period-ordered series. ok is false for fewer than
// two values. The direction compares only the last value with the first.
func TrendStats(values []float64) (domain.TrendStats, bool) {
	if len(values) < 2 {
		return domain.TrendStats{}, false
	}

	n := float64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	avg := sum / n

	variance := 0.0
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}

	first, last := values[0], values[len(values)-1]
	stats := domain.TrendStats{
		Mean:   avg,
		Median: median(values),
		StdDev: math.Sqrt(variance / n),
		Min:    slices.Min(values),
		Max:    slices.Max(values),
		Trend:  domain.TrendDecreasing,
	}
	if last > first {
		stats.Trend = domain.TrendIncreasing
	}
	if first != 0 {
		stats.ChangePct = (last - first) / first * 100
	}
	return stats, true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
