package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// CloseRel reports whether got agrees with want up to the relative tolerance
// tol, falling back to absolute comparison near zero
func CloseRel(want, got, tol float64) bool {
	return math.Abs(got-want) <= tol*math.Max(1, math.Abs(want))
}

// RequireCloseRel fails the test when got is not CloseRel to want
func RequireCloseRel(t *testing.T, want, got, tol float64) {
	t.Helper()
	require.True(t, CloseRel(want, got, tol), "want %.16g, got %.16g (tolerance %g, diff %.3g)",
		want, got, tol, math.Abs(got-want))
}
