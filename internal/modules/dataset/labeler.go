// Package dataset turns stored differences into a labeled training set.
package dataset

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Labeling is the outcome of binning a set of values into rank-quantile buckets
type Labeling struct {
	Labels  []int     `json:"labels"`
	Cutoffs []float64 `json:"cutoffs"` // upper bound of every bucket but the last
}

// Label assigns each value a bucket in [0, buckets) by its rank, so buckets hold equal
// shares of the values (ties broken by input order). Cutoffs are the empirical quantiles
// separating the buckets.
func Label(values []float64, buckets int) Labeling {
	if buckets < 1 {
		buckets = 1
	}
	n := len(values)
	result := Labeling{Labels: make([]int, n)}
	if n == 0 {
		return result
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	order := make([]int, n)
	floats.ArgsortStable(sorted, order)

	for rank, idx := range order {
		result.Labels[idx] = rank * buckets / n
	}

	for k := 1; k < buckets; k++ {
		result.Cutoffs = append(result.Cutoffs, stat.Quantile(float64(k)/float64(buckets), stat.Empirical, sorted, nil))
	}
	return result
}
