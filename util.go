package golpk

import (
	"math"

	"golang.org/x/exp/constraints"
)

// inRange reports whether lo <= v <= hi.
func inRange[T constraints.Integer](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

func maxOf[T constraints.Ordered](v T, rest ...T) T {
	for _, r := range rest {
		if r > v {
			v = r
		}
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// frac returns the distance of v to the largest integer not above it.
func frac(v float64) float64 {
	return v - math.Floor(v)
}

// isIntegral reports whether v lies within tol of an integer.
func isIntegral(v, tol float64) bool {
	return math.Abs(v-math.Round(v)) <= tol
}
