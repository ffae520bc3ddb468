// Package views implements the scalar reductions SUM/MEAN/MIN/MAX/
// STDDEV/SIZE perform over an arrayed variable's contiguous slice of
// the scalar plane (spec.md §4.F "array builtins"), delegating the
// float64-slice arithmetic to gonum.org/v1/gonum/floats rather than
// hand-rolled loops, per SPEC_FULL.md's domain-stack table.
package views

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sum returns the sum of vals, or 0 for an empty view.
func Sum(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return floats.Sum(vals)
}

// Mean returns the arithmetic mean of vals.
func Mean(vals []float64) float64 {
	return Sum(vals) / float64(len(vals))
}

// Min returns the smallest element of vals.
func Min(vals []float64) float64 {
	return floats.Min(vals)
}

// Max returns the largest element of vals.
func Max(vals []float64) float64 {
	return floats.Max(vals)
}

// StdDev returns the population standard deviation of vals (dividing
// by n, not n-1 -- an arrayed SD variable is the whole population at
// that timestep, not a sample of a larger one).
func StdDev(vals []float64) float64 {
	mean := Mean(vals)
	var acc float64
	for _, x := range vals {
		d := x - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(vals)))
}
