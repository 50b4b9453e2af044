package quadfl

import (
	"errors"
	"fmt"
	"math"

	"github.com/lunfardo314/unitrie/common"
)

// EvalFunction implements a function of the library
type EvalFunction func(ctx *RunContext) float64

type funDescriptor struct {
	sym               string
	requiredNumParams int // -1 means varargs
	evalFun           EvalFunction
	// minVector is how many elements of the argument vector the function
	// body needs, non-zero only for extended functions
	minVector int
}

var theLibrary = make(map[string]*funDescriptor)

const traceYN = false

func init() {
	// arithmetics
	Embed("add", 2, evalAdd)
	Embed("sub", 2, evalSub)
	Embed("mul", 2, evalMul)
	Embed("div", 2, evalDiv)
	Embed("mod", 2, evalMod)
	Embed("neg", 1, evalNeg)
	Embed("abs", 1, evalAbs)
	Embed("sign", 1, evalSign)
	// powers, exponentials
	Embed("pow", 2, evalPow)
	Embed("sqrt", 1, evalSqrt)
	Embed("exp", 1, evalExp)
	Embed("log", 1, evalLog)
	Embed("erf", 1, evalErf)
	// trigonometry
	Embed("sin", 1, evalSin)
	Embed("cos", 1, evalCos)
	Embed("tan", 1, evalTan)
	Embed("atan", 1, evalAtan)
	Embed("atan2", 2, evalAtan2)
	Embed("sinh", 1, evalSinh)
	Embed("cosh", 1, evalCosh)
	Embed("tanh", 1, evalTanh)
	// rounding
	Embed("floor", 1, evalFloor)
	Embed("ceil", 1, evalCeil)
	// constants
	Embed("pi", 0, evalPi)
	Embed("e", 0, evalE)
	// stateless varargs
	Embed("sum", -1, evalSum)
	Embed("prod", -1, evalProd)
	Embed("min", -1, evalMin)
	Embed("max", -1, evalMax)
	// 0 is false, everything else is true
	Embed("not", 1, evalNot)
	Embed("and", -1, evalAnd)
	Embed("or", -1, evalOr)
	Embed("if", 3, evalIf)
	// comparison
	Embed("less", 2, evalLess)
	Embed("lessEq", 2, evalLessEq)
	Embed("greater", 2, evalGreater)
	Embed("greaterEq", 2, evalGreaterEq)
	// named subformulas over the argument vector
	Extend("gauss", "exp(neg(mul($0,$0)))")
	Extend("deg", "mul($0,div(pi,180))")
}

// Embed adds a function implemented in Go to the library. The library is
// populated at init time, so misuse panics.
func Embed(sym string, requiredNumPar int, evalFun EvalFunction) {
	mustUniqueName(sym)
	if requiredNumPar > 15 {
		panic("can't be more than 15 parameters")
	}
	if traceYN {
		evalFun = wrapWithTracing(evalFun, sym)
	}
	theLibrary[sym] = &funDescriptor{
		sym:               sym,
		requiredNumParams: requiredNumPar,
		evalFun:           evalFun,
	}
}

// Extend adds a named subformula to the library. It takes no call arguments:
// the $-references of its body index the argument vector of the enclosing
// run, exactly like in a top level formula.
func Extend(sym string, source string) {
	common.AssertNoError(ExtendErr(sym, source))
}

func ExtendErr(sym string, source string) error {
	expr, numParams, err := Compile(source)
	if err != nil {
		return fmt.Errorf("error while compiling '%s': %v", sym, err)
	}
	if existsFunction(sym) {
		return errors.New("repeating symbol '" + sym + "'")
	}
	evalFun := makeEvalFunForExpression(expr)
	if traceYN {
		evalFun = wrapWithTracing(evalFun, sym)
	}
	theLibrary[sym] = &funDescriptor{
		sym:               sym,
		requiredNumParams: 0,
		evalFun:           evalFun,
		minVector:         numParams,
	}
	return nil
}

func makeEvalFunForExpression(expr *Expression) EvalFunction {
	return func(ctx *RunContext) float64 {
		return ctx.Eval(expr)
	}
}

func wrapWithTracing(f EvalFunction, msg string) EvalFunction {
	return func(ctx *RunContext) float64 {
		fmt.Printf("EvalFunction '%s' - IN\n", msg)
		ret := f(ctx)
		fmt.Printf("EvalFunction '%s' - OUT: %v\n", msg, ret)
		return ret
	}
}

func mustUniqueName(sym string) {
	if existsFunction(sym) {
		panic("repeating symbol '" + sym + "'")
	}
}

func existsFunction(sym string) bool {
	_, found := theLibrary[sym]
	return found
}

func evalAdd(ctx *RunContext) float64 { return ctx.Arg(0) + ctx.Arg(1) }
func evalSub(ctx *RunContext) float64 { return ctx.Arg(0) - ctx.Arg(1) }
func evalMul(ctx *RunContext) float64 { return ctx.Arg(0) * ctx.Arg(1) }

// evalDiv keeps IEEE semantics: division by zero gives Inf or NaN, not an error
func evalDiv(ctx *RunContext) float64 { return ctx.Arg(0) / ctx.Arg(1) }

func evalMod(ctx *RunContext) float64 { return math.Mod(ctx.Arg(0), ctx.Arg(1)) }
func evalNeg(ctx *RunContext) float64 { return -ctx.Arg(0) }
func evalAbs(ctx *RunContext) float64 { return math.Abs(ctx.Arg(0)) }

func evalSign(ctx *RunContext) float64 {
	switch v := ctx.Arg(0); {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func evalPow(ctx *RunContext) float64   { return math.Pow(ctx.Arg(0), ctx.Arg(1)) }
func evalSqrt(ctx *RunContext) float64  { return math.Sqrt(ctx.Arg(0)) }
func evalExp(ctx *RunContext) float64   { return math.Exp(ctx.Arg(0)) }
func evalLog(ctx *RunContext) float64   { return math.Log(ctx.Arg(0)) }
func evalErf(ctx *RunContext) float64   { return math.Erf(ctx.Arg(0)) }
func evalSin(ctx *RunContext) float64   { return math.Sin(ctx.Arg(0)) }
func evalCos(ctx *RunContext) float64   { return math.Cos(ctx.Arg(0)) }
func evalTan(ctx *RunContext) float64   { return math.Tan(ctx.Arg(0)) }
func evalAtan(ctx *RunContext) float64  { return math.Atan(ctx.Arg(0)) }
func evalAtan2(ctx *RunContext) float64 { return math.Atan2(ctx.Arg(0), ctx.Arg(1)) }
func evalSinh(ctx *RunContext) float64  { return math.Sinh(ctx.Arg(0)) }
func evalCosh(ctx *RunContext) float64  { return math.Cosh(ctx.Arg(0)) }
func evalTanh(ctx *RunContext) float64  { return math.Tanh(ctx.Arg(0)) }
func evalFloor(ctx *RunContext) float64 { return math.Floor(ctx.Arg(0)) }
func evalCeil(ctx *RunContext) float64  { return math.Ceil(ctx.Arg(0)) }
func evalPi(_ *RunContext) float64      { return math.Pi }
func evalE(_ *RunContext) float64       { return math.E }

func evalSum(ctx *RunContext) float64 {
	var ret float64
	for i := byte(0); i < ctx.Arity(); i++ {
		ret += ctx.Arg(i)
	}
	return ret
}

func evalProd(ctx *RunContext) float64 {
	ret := 1.0
	for i := byte(0); i < ctx.Arity(); i++ {
		ret *= ctx.Arg(i)
	}
	return ret
}

func evalMin(ctx *RunContext) float64 {
	common.Assert(ctx.Arity() > 0, "min: at least one argument expected")
	ret := ctx.Arg(0)
	for i := byte(1); i < ctx.Arity(); i++ {
		ret = math.Min(ret, ctx.Arg(i))
	}
	return ret
}

func evalMax(ctx *RunContext) float64 {
	common.Assert(ctx.Arity() > 0, "max: at least one argument expected")
	ret := ctx.Arg(0)
	for i := byte(1); i < ctx.Arity(); i++ {
		ret = math.Max(ret, ctx.Arg(i))
	}
	return ret
}

func evalNot(ctx *RunContext) float64 {
	if ctx.Arg(0) == 0 {
		return 1
	}
	return 0
}

func evalAnd(ctx *RunContext) float64 {
	for i := byte(0); i < ctx.Arity(); i++ {
		if ctx.Arg(i) == 0 {
			return 0
		}
	}
	return 1
}

func evalOr(ctx *RunContext) float64 {
	for i := byte(0); i < ctx.Arity(); i++ {
		if ctx.Arg(i) != 0 {
			return 1
		}
	}
	return 0
}

// evalIf evaluates only the taken branch
func evalIf(ctx *RunContext) float64 {
	if ctx.Arg(0) != 0 {
		return ctx.Arg(1)
	}
	return ctx.Arg(2)
}

func b2f(cond bool) float64 {
	if cond {
		return 1
	}
	return 0
}

func evalLess(ctx *RunContext) float64      { return b2f(ctx.Arg(0) < ctx.Arg(1)) }
func evalLessEq(ctx *RunContext) float64    { return b2f(ctx.Arg(0) <= ctx.Arg(1)) }
func evalGreater(ctx *RunContext) float64   { return b2f(ctx.Arg(0) > ctx.Arg(1)) }
func evalGreaterEq(ctx *RunContext) float64 { return b2f(ctx.Arg(0) >= ctx.Arg(1)) }
