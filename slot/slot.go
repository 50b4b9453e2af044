// Package slot implements a reentrant single-entry callback registry: the
// binding glue between context-free numerical routines with the fixed calling
// convention double f(double) and Go callables which carry captured arguments.
// The routine receives a trampoline reading the registry, the registry is
// saved and restored around every invocation, and callback failures travel to
// the invocation boundary through a confined non-local abort instead of a
// garbage return value.
package slot

import (
	"errors"
	"fmt"

	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// StatusCallbackFailed is the reserved status value meaning "the callback
// itself failed", as opposed to a failure code of the numerical routine.
const StatusCallbackFailed = 80

var (
	ErrInvalidCallback      = errors.New("invalid callback")
	ErrInvalidArgumentShape = errors.New("extra arguments must be nil or []interface{}")
)

// CallbackError wraps the cause with which the installed callback failed
// during an invocation of the numerical routine.
type CallbackError struct {
	Err error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback failed (status %d): %v", StatusCallbackFailed, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// Status returns StatusCallbackFailed
func (e *CallbackError) Status() int {
	return StatusCallbackFailed
}

// Slot is the registry itself: one live entry, nested use via Install/Restore
// snapshots. A Slot is designed for sequential nested reentrancy on a single
// call stack and must never be shared between goroutines. Concurrent
// integrations each take their own Slot instance.
type Slot struct {
	entry   Callable
	top     uint64 // install stamp of the current entry, 0 at the bottom
	seq     uint64 // install counter, gives every snapshot a unique stamp
	pending error
	depth   atomic.Int32
	evals   atomic.Int64
	trace   *zap.SugaredLogger
}

// Snapshot is the capture of the registry state taken by Install. It is a
// plain value: copy it freely, restore it exactly once. The stamp pair makes
// restores strictly LIFO and one-shot.
type Snapshot struct {
	prev      Callable
	stamp     uint64
	prevStamp uint64
}

func New(trace ...*zap.SugaredLogger) *Slot {
	ret := &Slot{}
	if len(trace) > 0 {
		ret.trace = trace[0]
	}
	return ret
}

// Install validates the callable, captures the current registry entry into a
// one-shot Snapshot and makes the callable current. On validation failure the
// registry is left untouched.
func (s *Slot) Install(c Callable) (Snapshot, error) {
	if c == nil {
		return Snapshot{}, ErrInvalidCallback
	}
	common.Assert(s.pending == nil, "slot.Install: pending callback failure was never collected")
	s.seq++
	snap := Snapshot{
		prev:      s.entry,
		stamp:     s.seq,
		prevStamp: s.top,
	}
	s.entry = c
	s.top = snap.stamp
	s.depth.Inc()
	if s.trace != nil {
		s.trace.Debugf("slot: install stamp=%d depth=%d", snap.stamp, s.depth.Load())
	}
	return snap, nil
}

// Restore writes the snapshot back and reports any pending callback failure
// as *CallbackError. It must be called exactly once per successful Install,
// in LIFO order, on every path, including failure paths. Restoring anything
// but the snapshot of the innermost live install panics.
func (s *Slot) Restore(snap Snapshot) error {
	if snap.stamp == 0 || snap.stamp != s.top {
		panic(fmt.Sprintf("slot.Restore: out of order or already spent snapshot (stamp=%d, expected=%d)", snap.stamp, s.top))
	}
	s.entry = snap.prev
	s.top = snap.prevStamp
	s.depth.Dec()
	if s.trace != nil {
		s.trace.Debugf("slot: restore stamp=%d depth=%d pending=%v", snap.stamp, s.depth.Load(), s.pending != nil)
	}
	if s.pending != nil {
		err := s.pending
		s.pending = nil
		return &CallbackError{Err: err}
	}
	return nil
}

// Do runs one full invocation cycle: install the callable, run body, restore
// the previous registry state. body is expected to hand Univariate or
// Flattened to a numerical routine. Restore happens on every path. A callback
// failure aborts body non-locally and is returned as *CallbackError; panics
// not originating from this slot's trampolines propagate.
func (s *Slot) Do(c Callable, body func()) (err error) {
	snap, err := s.Install(c)
	if err != nil {
		return err
	}
	defer func() {
		if rErr := s.Restore(snap); rErr != nil {
			err = rErr
		}
	}()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if sig, ok := r.(abortSignal); ok && sig.s == s {
			// the failure is pending, Restore above reports it
			return
		}
		panic(r)
	}()
	body()
	return nil
}

// Binding is the handle returned by Bind. Unbind must be called exactly once,
// on every path, in LIFO order with any other install on the same slot.
type Binding struct {
	s    *Slot
	snap Snapshot
}

// Bind installs fn with its bound parameters as the current entry of the
// registry. Until Unbind, Evaluate calls it as fn(n, [x, params...]) with the
// evaluation array of exactly n+1 values.
func (s *Slot) Bind(fn MultiFunc, params []float64) (Binding, error) {
	c, err := Multivariate(fn, params)
	if err != nil {
		return Binding{}, err
	}
	snap, err := s.Install(c)
	if err != nil {
		return Binding{}, err
	}
	return Binding{s: s, snap: snap}, nil
}

func (b Binding) Unbind() error {
	return b.s.Restore(b.snap)
}

// Evaluate calls the current registry entry at x with the error channel of a
// direct caller: a failure is returned, not routed through the non-local
// abort. The fixed-convention entry points are Univariate and Flattened.
func (s *Slot) Evaluate(x float64) (float64, error) {
	ret, err := s.evalCurrent(x)
	if err != nil {
		return 0, err
	}
	return ret, nil
}

// Depth returns the number of live installs
func (s *Slot) Depth() int {
	return int(s.depth.Load())
}

// Evals returns the total number of callback evaluations routed through the
// registry since creation
func (s *Slot) Evals() int64 {
	return s.evals.Load()
}

// Current returns the installed callable, nil if the registry is empty
func (s *Slot) Current() Callable {
	return s.entry
}
