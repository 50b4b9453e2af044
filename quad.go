// Package easyquad glues Go callables to adaptive QUADPACK style quadrature.
// A callable of any supported shape is installed into a single-slot registry,
// the engine calls it back through a fixed univariate convention, and the
// previous registry content is restored when the routine returns, on success
// and on failure alike. Nesting therefore works: an integrand may itself
// integrate.
//
// The supported shapes are:
//   - Quad       func(x float64) float64
//   - QuadArgs   func(x float64, args []interface{}) (float64, error)
//   - QuadMulti  func(n int, x []float64) float64, x = [t, params...]
//   - QuadVec    func(x []float64) float64, x = [t, params...]
//   - QuadExpr   a quadfl formula source, $0 = integration variable
package easyquad

import (
	"errors"
	"fmt"
	"math"

	"github.com/lunfardo314/easyquad/engine"
	"github.com/lunfardo314/easyquad/quadfl"
	"github.com/lunfardo314/easyquad/slot"
)

// defaults of the classic quadrature bindings
const (
	DefaultEpsAbs = 1.49e-8
	DefaultEpsRel = 1.49e-8
	DefaultLimit  = 50
)

// Options tunes one integration. The zero value of each field means the
// corresponding default
type Options struct {
	EpsAbs float64
	EpsRel float64
	// Limit is the maximum number of subdivisions of the range
	Limit int
	// Slot overrides the default callback registry. Concurrent integrations
	// must not share a registry: give each goroutine its own slot.New()
	Slot *slot.Slot
}

// Result of one integration
type Result struct {
	Value        float64
	AbsErr       float64
	Neval        int
	Subdivisions int
	// Status is 0 on success, a QUADPACK ier code when the routine gave up,
	// or slot.StatusCallbackFailed when the callback itself failed
	Status int
}

var defaultSlot = slot.New()

// DefaultSlot returns the process-wide callback registry used whenever
// Options.Slot is nil. It serves a single logical call stack: sequential and
// nested use is fine, concurrent use is not
func DefaultSlot() *slot.Slot {
	return defaultSlot
}

// Quad integrates f over [a, b]. Either bound may be infinite, the matching
// infinite range transformation is selected automatically
func Quad(f func(float64) float64, a, b float64, opt ...Options) (Result, error) {
	c, err := slot.Native(f)
	if err != nil {
		return Result{}, err
	}
	return integrate(c, a, b, opt)
}

// QuadArgs integrates f over [a, b] passing the captured argument bag to every
// evaluation. args must be nil or []interface{}
func QuadArgs(f slot.ScriptFunc, args interface{}, a, b float64, opt ...Options) (Result, error) {
	c, err := slot.Script(f, args)
	if err != nil {
		return Result{}, err
	}
	return integrate(c, a, b, opt)
}

// QuadMulti integrates the vector shape f(n, x) over [a, b], where n is the
// number of bound parameters and x = [t, params...]
func QuadMulti(f slot.MultiFunc, params []float64, a, b float64, opt ...Options) (Result, error) {
	c, err := slot.Multivariate(f, params)
	if err != nil {
		return Result{}, err
	}
	return integrate(c, a, b, opt)
}

// QuadVec integrates the bare array shape f(x) over [a, b], x = [t, params...]
func QuadVec(f slot.VecFunc, params []float64, a, b float64, opt ...Options) (Result, error) {
	c, err := slot.Array(f, params)
	if err != nil {
		return Result{}, err
	}
	return integrate(c, a, b, opt)
}

// QuadExpr compiles the quadfl formula source and integrates it over [a, b].
// $0 refers to the integration variable, $1 and up are taken from params
func QuadExpr(source string, params []float64, a, b float64, opt ...Options) (Result, error) {
	expr, numParams, err := quadfl.CompileCached(source)
	if err != nil {
		return Result{}, err
	}
	if numParams > len(params)+1 {
		return Result{}, fmt.Errorf("formula '%s' needs %d bound parameters, got %d", source, numParams-1, len(params))
	}
	fn := quadfl.Closure(expr, params)
	c, err := slot.Script(func(x float64, _ []interface{}) (float64, error) {
		return fn(x)
	}, nil)
	if err != nil {
		return Result{}, err
	}
	return integrate(c, a, b, opt)
}

func defaultOptions(opt []Options) Options {
	op := Options{}
	if len(opt) > 0 {
		op = opt[0]
	}
	if op.EpsAbs == 0 {
		op.EpsAbs = DefaultEpsAbs
	}
	if op.EpsRel == 0 {
		op.EpsRel = DefaultEpsRel
	}
	if op.Limit == 0 {
		op.Limit = DefaultLimit
	}
	if op.Slot == nil {
		op.Slot = defaultSlot
	}
	return op
}

// integrate is the single funnel all exported entry points go through. It
// installs the callable, runs the routine with the registry-reading
// trampoline and converts completion codes into errors
func integrate(c slot.Callable, a, b float64, opt []Options) (Result, error) {
	op := defaultOptions(opt)
	s := op.Slot

	var res Result
	err := s.Do(c, func() {
		res = dispatch(s.Univariate, a, b, op)
	})
	if err != nil {
		var cbErr *slot.CallbackError
		if errors.As(err, &cbErr) {
			res = Result{Status: cbErr.Status()}
		} else {
			res = Result{}
		}
		return res, err
	}
	if res.Status != engine.StatusOK {
		return res, &RoutineError{Status: res.Status}
	}
	return res, nil
}

// dispatch selects the routine by finiteness of the bounds. Reversed ranges
// with an infinite bound are computed on the swapped range and negated
func dispatch(f func(float64) float64, a, b float64, op Options) Result {
	var r, e float64
	var neval, last, ier int
	flip := false

	aInf := math.IsInf(a, 0)
	bInf := math.IsInf(b, 0)
	switch {
	case !aInf && !bInf:
		r, e, neval, last, ier = engine.Qag(f, a, b, op.EpsAbs, op.EpsRel, op.Limit)
	case math.IsInf(a, 1) && math.IsInf(b, 1), math.IsInf(a, -1) && math.IsInf(b, -1):
		// equal infinite bounds, empty range
		return Result{}
	case !aInf && math.IsInf(b, 1):
		r, e, neval, last, ier = engine.Qagi(f, a, engine.UpperInfinite, op.EpsAbs, op.EpsRel, op.Limit)
	case !aInf && math.IsInf(b, -1):
		flip = true
		r, e, neval, last, ier = engine.Qagi(f, a, engine.LowerInfinite, op.EpsAbs, op.EpsRel, op.Limit)
	case math.IsInf(a, -1) && !bInf:
		r, e, neval, last, ier = engine.Qagi(f, b, engine.LowerInfinite, op.EpsAbs, op.EpsRel, op.Limit)
	case math.IsInf(a, 1) && !bInf:
		flip = true
		r, e, neval, last, ier = engine.Qagi(f, b, engine.UpperInfinite, op.EpsAbs, op.EpsRel, op.Limit)
	case math.IsInf(a, -1) && math.IsInf(b, 1):
		r, e, neval, last, ier = engine.Qagi(f, 0, engine.BothInfinite, op.EpsAbs, op.EpsRel, op.Limit)
	default:
		// a = +inf, b = -inf
		flip = true
		r, e, neval, last, ier = engine.Qagi(f, 0, engine.BothInfinite, op.EpsAbs, op.EpsRel, op.Limit)
	}
	if flip {
		r = -r
	}
	return Result{Value: r, AbsErr: e, Neval: neval, Subdivisions: last, Status: ier}
}
