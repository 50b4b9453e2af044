package slot

import (
	"fmt"

	"github.com/lunfardo314/unitrie/common"
)

// abortSignal transfers control from a failing trampoline call to the Do
// boundary of its slot. It never leaves the package: Do re-panics anything
// else it recovers.
type abortSignal struct {
	s *Slot
}

func (sig abortSignal) Error() string {
	return fmt.Sprintf("non-local abort from callback failure: %v", sig.s.pending)
}

// Univariate is the fixed-convention trampoline double f(double). It takes no
// context: the callable and its captured arguments come from the registry.
// On callback failure it records the cause and aborts the invocation
// non-locally instead of returning a garbage value to the routine. It is only
// valid inside an Install/Restore cycle, normally under Do.
func (s *Slot) Univariate(x float64) float64 {
	return s.shimCall(x)
}

// Flattened is the fixed-convention trampoline double f(int, double[]) for
// routines which pass a whole evaluation vector. The leading element is the
// free variable, the rest is the routine's context, opaque to the adapter.
func (s *Slot) Flattened(n int, x []float64) float64 {
	common.Assert(n >= 1 && len(x) >= 1, "slot.Flattened: empty evaluation vector")
	return s.shimCall(x[0])
}

func (s *Slot) shimCall(x float64) float64 {
	ret, err := s.evalCurrent(x)
	if err != nil {
		s.pending = err
		if s.trace != nil {
			s.trace.Debugf("slot: abort at x=%g: %v", x, err)
		}
		panic(abortSignal{s: s})
	}
	return ret
}

// evalCurrent evaluates the installed callable, converting its panic, if any,
// into an error
func (s *Slot) evalCurrent(x float64) (float64, error) {
	common.Assert(s.entry != nil, "slot: no callback installed")
	s.evals.Inc()
	var ret float64
	err := common.CatchPanicOrError(func() error {
		var errEval error
		ret, errEval = s.entry.Evaluate(x)
		return errEval
	})
	return ret, err
}
