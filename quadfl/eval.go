// Package quadfl is a tiny functional formula language over float64, used to
// build integrands dynamically from source strings. A formula is a nested
// call expression like div(cos(sub(mul($1,$0),mul($2,sin($0)))),pi) where
// $0, $1, .. index the argument vector of the run: $0 is the free variable,
// $1.. are the bound parameters, which is exactly the layout of the flattened
// evaluation array of the legacy callback conventions.
package quadfl

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lunfardo314/easyquad/paramvec"
	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/multierr"
	"golang.org/x/crypto/blake2b"
)

// Expression is the compiled form of a formula: an evaluation tree linked
// against the library. Immutable after Compile, safe to share.
type Expression struct {
	Args     []*Expression
	EvalFunc EvalFunction
}

type evalArgs []*Expression

// RunContext is the state of one evaluation: the argument vector and the
// stack of call arguments
type RunContext struct {
	evalStack     []evalArgs
	evalStackNext int
	vector        []float64
}

const MaxStackDepth = 50

func NewRunContext(vector []float64) *RunContext {
	return &RunContext{
		evalStack: make([]evalArgs, MaxStackDepth),
		vector:    vector,
	}
}

func (ctx *RunContext) Arity() byte {
	return byte(len(ctx.evalStack[ctx.evalStackNext-1]))
}

func (ctx *RunContext) Arg(n byte) float64 {
	return ctx.Eval(ctx.evalStack[ctx.evalStackNext-1][n])
}

// Param returns the n-th element of the argument vector
func (ctx *RunContext) Param(n int) float64 {
	common.Assert(n < len(ctx.vector), "quadfl: argument $%d out of range, vector has %d elements", n, len(ctx.vector))
	return ctx.vector[n]
}

func (ctx *RunContext) Eval(f *Expression) float64 {
	ctx.pushEvalArgs(f.Args)
	defer ctx.popEvalArgs()

	return f.EvalFunc(ctx)
}

func (ctx *RunContext) pushEvalArgs(args evalArgs) {
	common.Assert(ctx.evalStackNext < MaxStackDepth, "quadfl: expression nesting too deep")
	ctx.evalStack[ctx.evalStackNext] = args
	ctx.evalStackNext++
}

func (ctx *RunContext) popEvalArgs() {
	ctx.evalStackNext--
	ctx.evalStack[ctx.evalStackNext] = nil
}

// Compile parses the source and links it against the library. numParams is
// the minimum length of the argument vector the formula needs. Resolution
// errors are collected across the whole tree, not only the first one.
func Compile(source string) (expr *Expression, numParams int, err error) {
	parsed, err := parseCall(stripSpaces(source))
	if err != nil {
		return nil, 0, err
	}
	return compileCall(parsed)
}

func compileCall(f *parsedCall) (*Expression, int, error) {
	// leaf: argument vector reference
	if strings.HasPrefix(f.sym, "$") {
		if len(f.args) != 0 {
			return nil, 0, fmt.Errorf("'%s' cannot be called", f.sym)
		}
		idx, err := strconv.Atoi(f.sym[1:])
		if err != nil || idx < 0 {
			return nil, 0, fmt.Errorf("wrong argument reference '%s'", f.sym)
		}
		return &Expression{EvalFunc: makeEvalFunForParam(idx)}, idx + 1, nil
	}
	// leaf: numeric literal
	if v, errNum := strconv.ParseFloat(f.sym, 64); errNum == nil {
		if len(f.args) != 0 {
			return nil, 0, fmt.Errorf("'%s' cannot be called", f.sym)
		}
		return &Expression{EvalFunc: makeEvalFunForConstant(v)}, 0, nil
	}
	if len(f.args) > 15 {
		return nil, 0, fmt.Errorf("'%s': can't be more than 15 parameters", f.sym)
	}
	var errs []error
	var numParams int
	dscr, found := theLibrary[f.sym]
	if !found {
		errs = append(errs, fmt.Errorf("no such function in the library: '%s'", f.sym))
	} else {
		if dscr.requiredNumParams >= 0 && dscr.requiredNumParams != len(f.args) {
			errs = append(errs, fmt.Errorf("'%s' requires %d parameters, got %d", f.sym, dscr.requiredNumParams, len(f.args)))
		}
		numParams = dscr.minVector
	}
	ret := &Expression{
		Args: make([]*Expression, len(f.args)),
	}
	for i, a := range f.args {
		argExpr, np, err := compileCall(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ret.Args[i] = argExpr
		if np > numParams {
			numParams = np
		}
	}
	if len(errs) > 0 {
		return nil, 0, multierr.Combine(errs...)
	}
	ret.EvalFunc = dscr.evalFun
	return ret, numParams, nil
}

func makeEvalFunForParam(idx int) EvalFunction {
	return func(ctx *RunContext) float64 {
		return ctx.Param(idx)
	}
}

func makeEvalFunForConstant(v float64) EvalFunction {
	return func(ctx *RunContext) float64 {
		return v
	}
}

var (
	cacheMutex    sync.RWMutex
	compiledCache = make(map[[32]byte]*cachedExpression)
)

type cachedExpression struct {
	expr      *Expression
	numParams int
}

// CompileCached compiles through a process-wide cache keyed by the blake2b
// digest of the normalized source
func CompileCached(source string) (*Expression, int, error) {
	h := blake2b.Sum256([]byte(stripSpaces(source)))
	cacheMutex.RLock()
	if c, ok := compiledCache[h]; ok {
		cacheMutex.RUnlock()
		return c.expr, c.numParams, nil
	}
	cacheMutex.RUnlock()

	expr, numParams, err := Compile(source)
	if err != nil {
		return nil, 0, err
	}
	cacheMutex.Lock()
	compiledCache[h] = &cachedExpression{expr: expr, numParams: numParams}
	cacheMutex.Unlock()
	return expr, numParams, nil
}

// EvalExpression evaluates the compiled expression against the argument
// vector, converting evaluation panics into an error
func EvalExpression(expr *Expression, vector ...float64) (float64, error) {
	var ret float64
	err := common.CatchPanicOrError(func() error {
		ctx := NewRunContext(vector)
		ret = ctx.Eval(expr)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return ret, nil
}

func MustEvalExpression(expr *Expression, vector ...float64) float64 {
	ret, err := EvalExpression(expr, vector...)
	common.AssertNoError(err)
	return ret
}

// EvalSource compiles through the cache and evaluates in one step
func EvalSource(source string, vector ...float64) (float64, error) {
	expr, numParams, err := CompileCached(source)
	if err != nil {
		return 0, err
	}
	if len(vector) < numParams {
		return 0, fmt.Errorf("formula needs an argument vector of at least %d elements, got %d", numParams, len(vector))
	}
	return EvalExpression(expr, vector...)
}

// Closure binds the compiled expression to its bound parameters and returns
// the univariate function of the free variable. The argument vector of each
// evaluation is [x, params...].
func Closure(expr *Expression, params []float64) func(x float64) (float64, error) {
	vec := paramvec.New(params)
	return func(x float64) (float64, error) {
		return EvalExpression(expr, vec.Fill(x)...)
	}
}
