// Package testutil holds helpers shared by the engine's tests: float
// tolerance checks, deterministic signals and configurable test nodes.
package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails tb if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(tb testing.TB, got, want []float64, eps float64) {
	tb.Helper()

	if len(got) != len(want) {
		tb.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			tb.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireAllNear fails tb unless every element of got is within eps of want.
func RequireAllNear(tb testing.TB, got []float64, want, eps float64) {
	tb.Helper()

	for i, v := range got {
		if math.Abs(v-want) > eps {
			tb.Fatalf("index %d: got %v, want %v (eps %v)", i, v, want, eps)
		}
	}
}

// RequireFinite fails tb if any element is NaN or Inf.
func RequireFinite(tb testing.TB, samples []float64) {
	tb.Helper()

	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			tb.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the maximum absolute difference between two slices.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}

	maxDiff := 0.0

	for i := range a {
		maxDiff = max(maxDiff, math.Abs(a[i]-b[i]))
	}

	return maxDiff, nil
}
