package metrics

import (
	"math"

	"prediction-pnl-lab/internal/domain"
)

// ComputeRiskMetrics calculates risk-adjusted metrics over the sequence
// of per-position realized returns. Returns must be in deterministic
// order. Below minSample every metric is left nil: undefined is reported
// as undefined, never as a noisy number.
func ComputeRiskMetrics(returns []float64, minSample int) domain.RiskMetrics {
	m := domain.RiskMetrics{SampleSize: len(returns)}
	if len(returns) < minSample || len(returns) == 0 {
		return m
	}

	mean := computeMean(returns)
	m.MeanReturn = ptr(mean)

	downside := computeDownsideDeviation(returns)
	m.DownsideDeviation = ptr(downside)
	if downside > 0 {
		m.Sortino = ptr(mean / downside)
	}

	gains, losses := 0.0, 0.0
	positive := 0
	for _, r := range returns {
		if r > 0 {
			gains += r
			positive++
		} else {
			losses += -r
		}
	}
	if losses > 0 {
		m.Omega = ptr(gains / losses)
	}
	m.Consistency = ptr(float64(positive) / float64(len(returns)))

	return m
}

// computeMean calculates the arithmetic mean of returns.
func computeMean(returns []float64) float64 {
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

// computeDownsideDeviation calculates the root-mean-square of negative
// returns against a zero target, the denominator of a Sortino-style ratio.
func computeDownsideDeviation(returns []float64) float64 {
	sumSq := 0.0
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
		}
	}
	return math.Sqrt(sumSq / float64(len(returns)))
}

func ptr(v float64) *float64 {
	return &v
}
