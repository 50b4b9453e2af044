// Package engine is a compact QUADPACK-convention adaptive quadrature
// routine: globally adaptive bisection with the 15-point Gauss-Kronrod rule,
// plus the standard mapping onto (0,1] for infinite ranges. Signatures follow
// the FORTRAN originals: the integrand is a bare double f(double) with no
// room for context, results come back as (result, abserr, neval, last, ier).
// Anything which needs context in the integrand goes through an adapter, not
// through this package.
package engine

import (
	"math"

	"github.com/gammazero/deque"
)

// status codes reported in ier, QUADPACK numbering
const (
	StatusOK              = 0
	StatusMaxSubdivisions = 1
	StatusRoundoff        = 2
	StatusBadIntegrand    = 3
	StatusNoConvergence   = 4
	StatusDivergent       = 5
	StatusInvalidInput    = 6
)

// infinite range selectors for Qagi, QUADPACK numbering
const (
	UpperInfinite = 1  // (bound, +inf)
	LowerInfinite = -1 // (-inf, bound)
	BothInfinite  = 2  // (-inf, +inf)
)

const (
	epmach = 2.220446049250313e-16
	uflow  = 2.2250738585072014e-308
)

type interval struct {
	a, b   float64
	result float64
	abserr float64
}

// Qag approximates the integral of f over [a,b] to within
// max(epsabs, epsrel*|result|), bisecting at most limit times. b < a yields
// the sign-reversed integral, a == b yields zero without evaluating f.
func Qag(f func(float64) float64, a, b, epsabs, epsrel float64, limit int) (result, abserr float64, neval, last, ier int) {
	if limit < 1 || (epsabs <= 0 && epsrel < 50*epmach) {
		ier = StatusInvalidInput
		return
	}
	if a == b {
		return
	}
	return adapt(f, a, b, epsabs, epsrel, limit)
}

// Qagi approximates the integral of f over an infinite range selected by inf:
// (bound, +inf), (-inf, bound) or (-inf, +inf), in which case bound is
// ignored. The range is mapped onto (0,1] with x = bound + (1-t)/t and its
// mirror. All rule points are interior, so the transformed integrand is never
// evaluated at the singular endpoint t = 0.
func Qagi(f func(float64) float64, bound float64, inf int, epsabs, epsrel float64, limit int) (result, abserr float64, neval, last, ier int) {
	if limit < 1 || (epsabs <= 0 && epsrel < 50*epmach) {
		ier = StatusInvalidInput
		return
	}
	var tf func(float64) float64
	switch inf {
	case UpperInfinite:
		tf = func(t float64) float64 {
			return f(bound+(1-t)/t) / (t * t)
		}
	case LowerInfinite:
		tf = func(t float64) float64 {
			return f(bound-(1-t)/t) / (t * t)
		}
	case BothInfinite:
		tf = func(t float64) float64 {
			z := (1 - t) / t
			return (f(z) + f(-z)) / (t * t)
		}
	default:
		ier = StatusInvalidInput
		return
	}
	return adapt(tf, 0, 1, epsabs, epsrel, limit)
}

// adapt is the globally adaptive loop shared by the drivers: keep bisecting
// the subinterval with the largest error estimate until the global estimate
// meets the tolerance or the subdivision limit is reached.
func adapt(f func(float64) float64, a, b, epsabs, epsrel float64, limit int) (result, abserr float64, neval, last, ier int) {
	var work deque.Deque[interval]

	r, e := qk15(f, a, b)
	work.PushBack(interval{a: a, b: b, result: r, abserr: e})
	neval = 15
	last = 1
	area := r
	errsum := e
	tolerance := math.Max(epsabs, epsrel*math.Abs(area))

	for errsum > tolerance && last < limit {
		worst := 0
		for i := 1; i < work.Len(); i++ {
			if work.At(i).abserr > work.At(worst).abserr {
				worst = i
			}
		}
		iv := work.Remove(worst)
		mid := 0.5 * (iv.a + iv.b)
		r1, e1 := qk15(f, iv.a, mid)
		r2, e2 := qk15(f, mid, iv.b)
		work.PushBack(interval{a: iv.a, b: mid, result: r1, abserr: e1})
		work.PushBack(interval{a: mid, b: iv.b, result: r2, abserr: e2})
		neval += 30
		last++
		area += r1 + r2 - iv.result
		errsum += e1 + e2 - iv.abserr
		tolerance = math.Max(epsabs, epsrel*math.Abs(area))
	}

	// the final result is re-summed over the partition, which is more
	// accurate than the running area
	for i := 0; i < work.Len(); i++ {
		result += work.At(i).result
	}
	abserr = errsum
	if last == limit && errsum > tolerance {
		ier = StatusMaxSubdivisions
	}
	return
}
