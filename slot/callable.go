package slot

import (
	"fmt"

	"github.com/lunfardo314/easyquad/paramvec"
)

// Callable is what the registry stores: anything evaluable at a point.
// The trampolines never branch on the concrete shape; shape-specific
// validation and argument capture happen in the constructors.
type Callable interface {
	Evaluate(x float64) (float64, error)
}

type (
	// ScriptFunc is the dynamically built callable shape. The captured
	// argument bag travels with it through the registry.
	ScriptFunc func(x float64, args []interface{}) (float64, error)

	// MultiFunc is the legacy vector shape f(n, x[n+1]): n bound parameters,
	// evaluation array of n+1 values with the free variable at slot 0.
	MultiFunc func(n int, x []float64) float64

	// VecFunc is the bare array shape: the whole evaluation vector, leading
	// element is the free variable.
	VecFunc func(x []float64) float64
)

type scriptCallable struct {
	fn  ScriptFunc
	bag []interface{}
}

// Script wraps a callable together with its captured argument bag. A nil bag
// is replaced with an empty valid one. A bag of any other type is rejected
// with ErrInvalidArgumentShape.
func Script(fn ScriptFunc, args interface{}) (Callable, error) {
	if fn == nil {
		return nil, ErrInvalidCallback
	}
	var bag []interface{}
	switch a := args.(type) {
	case nil:
		bag = []interface{}{}
	case []interface{}:
		bag = a
	default:
		return nil, fmt.Errorf("%w, got %T", ErrInvalidArgumentShape, args)
	}
	return &scriptCallable{fn: fn, bag: bag}, nil
}

func (c *scriptCallable) Evaluate(x float64) (float64, error) {
	return c.fn(x, c.bag)
}

type nativeCallable struct {
	fn func(float64) float64
}

// Native wraps the plain function pointer shape
func Native(fn func(float64) float64) (Callable, error) {
	if fn == nil {
		return nil, ErrInvalidCallback
	}
	return &nativeCallable{fn: fn}, nil
}

func (c *nativeCallable) Evaluate(x float64) (float64, error) {
	return c.fn(x), nil
}

type multiCallable struct {
	fn  MultiFunc
	vec *paramvec.Vector
}

// Multivariate wraps the legacy vector shape together with its bound
// parameters. Every evaluation rebuilds the n+1 array with x at slot 0.
func Multivariate(fn MultiFunc, params []float64) (Callable, error) {
	if fn == nil {
		return nil, ErrInvalidCallback
	}
	return &multiCallable{fn: fn, vec: paramvec.New(params)}, nil
}

func (c *multiCallable) Evaluate(x float64) (float64, error) {
	return c.fn(c.vec.NumParams(), c.vec.Fill(x)), nil
}

type vecCallable struct {
	fn  VecFunc
	vec *paramvec.Vector
}

// Array wraps the bare array shape: same evaluation vector as Multivariate,
// without the element count
func Array(fn VecFunc, params []float64) (Callable, error) {
	if fn == nil {
		return nil, ErrInvalidCallback
	}
	return &vecCallable{fn: fn, vec: paramvec.New(params)}, nil
}

func (c *vecCallable) Evaluate(x float64) (float64, error) {
	return c.fn(c.vec.Fill(x)), nil
}
