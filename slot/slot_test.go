package slot

import (
	"errors"
	"math"
	"testing"

	"github.com/lunfardo314/easyquad/util/testutil"
	"github.com/stretchr/testify/require"
)

func TestInstallRestore(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		s := New()
		c, err := Native(math.Sin)
		require.NoError(t, err)
		snap, err := s.Install(c)
		require.NoError(t, err)
		require.EqualValues(t, 1, s.Depth())
		require.True(t, s.Current() == c)
		require.NoError(t, s.Restore(snap))
		require.EqualValues(t, 0, s.Depth())
		require.Nil(t, s.Current())
	})
	t.Run("2", func(t *testing.T) {
		s := New()
		a, _ := Native(math.Sin)
		b, _ := Native(math.Cos)
		snapA, err := s.Install(a)
		require.NoError(t, err)
		snapB, err := s.Install(b)
		require.NoError(t, err)
		require.True(t, s.Current() == b)
		require.NoError(t, s.Restore(snapB))
		require.True(t, s.Current() == a)
		require.NoError(t, s.Restore(snapA))
		require.Nil(t, s.Current())
	})
	t.Run("depth D", func(t *testing.T) {
		const depth = 7
		s := New()
		snaps := make([]Snapshot, depth)
		for i := 0; i < depth; i++ {
			c, _ := Native(math.Exp)
			var err error
			snaps[i], err = s.Install(c)
			require.NoError(t, err)
			require.EqualValues(t, i+1, s.Depth())
		}
		for i := depth - 1; i >= 0; i-- {
			require.NoError(t, s.Restore(snaps[i]))
		}
		require.EqualValues(t, 0, s.Depth())
		require.Nil(t, s.Current())
	})
	t.Run("nil callback rejected, registry unchanged", func(t *testing.T) {
		s := New()
		_, err := s.Install(nil)
		require.ErrorIs(t, err, ErrInvalidCallback)
		require.EqualValues(t, 0, s.Depth())
		require.Nil(t, s.Current())

		a, _ := Native(math.Sin)
		snap, err := s.Install(a)
		require.NoError(t, err)
		_, err = s.Install(nil)
		require.ErrorIs(t, err, ErrInvalidCallback)
		require.True(t, s.Current() == a)
		require.EqualValues(t, 1, s.Depth())
		require.NoError(t, s.Restore(snap))
	})
	t.Run("out of order restore panics", func(t *testing.T) {
		s := New()
		a, _ := Native(math.Sin)
		b, _ := Native(math.Cos)
		snapA, _ := s.Install(a)
		snapB, _ := s.Install(b)
		require.Panics(t, func() {
			_ = s.Restore(snapA)
		})
		require.NoError(t, s.Restore(snapB))
		require.NoError(t, s.Restore(snapA))
	})
	t.Run("spent snapshot panics", func(t *testing.T) {
		s := New()
		a, _ := Native(math.Sin)
		snap, _ := s.Install(a)
		require.NoError(t, s.Restore(snap))
		require.Panics(t, func() {
			_ = s.Restore(snap)
		})
	})
	t.Run("zero snapshot panics", func(t *testing.T) {
		s := New()
		require.Panics(t, func() {
			_ = s.Restore(Snapshot{})
		})
	})
}

func TestShapes(t *testing.T) {
	t.Run("bag must be a slice", func(t *testing.T) {
		fn := func(x float64, args []interface{}) (float64, error) { return x, nil }
		_, err := Script(fn, 31415)
		require.ErrorIs(t, err, ErrInvalidArgumentShape)
		_, err = Script(fn, "args")
		require.ErrorIs(t, err, ErrInvalidArgumentShape)
	})
	t.Run("nil bag becomes empty valid bag", func(t *testing.T) {
		var seen []interface{}
		fn := func(x float64, args []interface{}) (float64, error) {
			seen = args
			return x, nil
		}
		c, err := Script(fn, nil)
		require.NoError(t, err)
		s := New()
		snap, err := s.Install(c)
		require.NoError(t, err)
		_, err = s.Evaluate(1)
		require.NoError(t, err)
		require.NotNil(t, seen)
		require.EqualValues(t, 0, len(seen))
		require.NoError(t, s.Restore(snap))
	})
	t.Run("bag passed through unchanged", func(t *testing.T) {
		bag := []interface{}{2.0, "tag", 42}
		fn := func(x float64, args []interface{}) (float64, error) {
			require.EqualValues(t, bag, args)
			return x, nil
		}
		c, err := Script(fn, bag)
		require.NoError(t, err)
		s := New()
		require.NoError(t, s.Do(c, func() {
			require.EqualValues(t, 5.0, s.Univariate(5))
		}))
	})
	t.Run("nil functions rejected", func(t *testing.T) {
		_, err := Script(nil, nil)
		require.ErrorIs(t, err, ErrInvalidCallback)
		_, err = Native(nil)
		require.ErrorIs(t, err, ErrInvalidCallback)
		_, err = Multivariate(nil, []float64{1})
		require.ErrorIs(t, err, ErrInvalidCallback)
		_, err = Array(nil, nil)
		require.ErrorIs(t, err, ErrInvalidCallback)
	})
}

// typical is the classic parametrized oscillatory integrand
// cos(p1*x - p2*sin(x))/pi flattened into the legacy vector convention
func typical(n int, x []float64) float64 {
	return math.Cos(x[1]*x[0]-x[2]*math.Sin(x[0])) / math.Pi
}

func TestBindEvaluate(t *testing.T) {
	t.Run("vector convention", func(t *testing.T) {
		s := New()
		b, err := s.Bind(func(n int, x []float64) float64 {
			require.EqualValues(t, 2, n)
			require.EqualValues(t, 3, len(x))
			require.EqualValues(t, 2.0, x[1])
			require.EqualValues(t, 1.0, x[2])
			return x[0]
		}, []float64{2.0, 1.0})
		require.NoError(t, err)
		y, err := s.Evaluate(0.25)
		require.NoError(t, err)
		require.EqualValues(t, 0.25, y)
		require.NoError(t, b.Unbind())
		require.EqualValues(t, 0, s.Depth())
	})
	t.Run("typical at 0 is 1/pi", func(t *testing.T) {
		s := New()
		b, err := s.Bind(typical, []float64{2.0, 1.0})
		require.NoError(t, err)
		y, err := s.Evaluate(0)
		require.NoError(t, err)
		require.InDelta(t, 1.0/math.Pi, y, 1e-14)
		t.Logf("typical(0) = %g", y)
		require.NoError(t, b.Unbind())
	})
	t.Run("callee mutation does not leak", func(t *testing.T) {
		s := New()
		b, err := s.Bind(func(n int, x []float64) float64 {
			ret := x[0] + x[1]
			x[0] = 1e6
			x[1] = 1e6
			return ret
		}, []float64{10})
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			y, err := s.Evaluate(1)
			require.NoError(t, err)
			require.EqualValues(t, 11.0, y)
		}
		require.NoError(t, b.Unbind())
	})
	t.Run("array shape", func(t *testing.T) {
		s := New()
		c, err := Array(func(x []float64) float64 {
			require.EqualValues(t, 3, len(x))
			return x[0] * x[1] * x[2]
		}, []float64{3, 7})
		require.NoError(t, err)
		snap, err := s.Install(c)
		require.NoError(t, err)
		y, err := s.Evaluate(2)
		require.NoError(t, err)
		require.EqualValues(t, 42.0, y)
		require.NoError(t, s.Restore(snap))
	})
	t.Run("evaluations counted", func(t *testing.T) {
		s := New()
		b, err := s.Bind(typical, []float64{2.0, 1.0})
		require.NoError(t, err)
		before := s.Evals()
		for i := 0; i < 5; i++ {
			_, err = s.Evaluate(float64(i))
			require.NoError(t, err)
		}
		require.EqualValues(t, before+5, s.Evals())
		require.NoError(t, b.Unbind())
	})
}

// fakeRoutine stands for a context-free numerical routine: it only ever sees
// the fixed-convention function
func fakeRoutine(f func(float64) float64, xs ...float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += f(x)
	}
	return sum
}

func TestDo(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		s := New()
		c, _ := Native(func(x float64) float64 { return 2 * x })
		var sum float64
		err := s.Do(c, func() {
			sum = fakeRoutine(s.Univariate, 1, 2, 3)
		})
		require.NoError(t, err)
		require.EqualValues(t, 12.0, sum)
		require.EqualValues(t, 0, s.Depth())
		require.Nil(t, s.Current())
	})
	t.Run("failing callback reports status 80", func(t *testing.T) {
		s := New()
		boom := errors.New("integrand not defined here")
		c, err := Script(func(x float64, _ []interface{}) (float64, error) {
			if x > 0.5 {
				return 0, boom
			}
			return x, nil
		}, nil)
		require.NoError(t, err)
		completed := false
		err = s.Do(c, func() {
			fakeRoutine(s.Univariate, 0.1, 0.2, 0.7, 0.3)
			completed = true
		})
		require.Error(t, err)
		var cbErr *CallbackError
		require.ErrorAs(t, err, &cbErr)
		require.EqualValues(t, StatusCallbackFailed, cbErr.Status())
		require.ErrorIs(t, err, boom)
		require.False(t, completed)
		require.EqualValues(t, 0, s.Depth())
		require.Nil(t, s.Current())

		// the slot is clean again and usable
		ok, _ := Native(math.Sqrt)
		require.NoError(t, s.Do(ok, func() {
			require.EqualValues(t, 3.0, s.Univariate(9))
		}))
	})
	t.Run("panicking callback reports status 80", func(t *testing.T) {
		s := New()
		c, _ := Native(func(x float64) float64 {
			panic("integrand exploded")
		})
		err := s.Do(c, func() {
			fakeRoutine(s.Univariate, 1)
		})
		var cbErr *CallbackError
		require.ErrorAs(t, err, &cbErr)
		require.Contains(t, cbErr.Err.Error(), "integrand exploded")
		require.EqualValues(t, 0, s.Depth())
	})
	t.Run("foreign panic propagates, registry restored", func(t *testing.T) {
		s := New()
		c, _ := Native(math.Sin)
		require.Panics(t, func() {
			_ = s.Do(c, func() {
				panic("not ours")
			})
		})
		require.EqualValues(t, 0, s.Depth())
		require.Nil(t, s.Current())
	})
	t.Run("nested reentrancy", func(t *testing.T) {
		s := New()
		outer, _ := Native(func(x float64) float64 { return x + 100 })
		inner, _ := Native(func(x float64) float64 { return -x })
		err := s.Do(outer, func() {
			require.EqualValues(t, 101.0, s.Univariate(1))
			require.NoError(t, s.Do(inner, func() {
				require.EqualValues(t, -2.0, s.Univariate(2))
			}))
			// outer entry is live again after the nested cycle
			require.EqualValues(t, 103.0, s.Univariate(3))
		})
		require.NoError(t, err)
		require.EqualValues(t, 0, s.Depth())
		require.Nil(t, s.Current())
	})
	t.Run("inner failure leaves outer live", func(t *testing.T) {
		s := New()
		outer, _ := Native(func(x float64) float64 { return x + 100 })
		failing, _ := Script(func(x float64, _ []interface{}) (float64, error) {
			return 0, errors.New("inner gives up")
		}, nil)
		err := s.Do(outer, func() {
			errInner := s.Do(failing, func() {
				fakeRoutine(s.Univariate, 1)
			})
			var cbErr *CallbackError
			require.ErrorAs(t, errInner, &cbErr)
			require.EqualValues(t, 105.0, s.Univariate(5))
		})
		require.NoError(t, err)
		require.EqualValues(t, 0, s.Depth())
	})
}

func TestFlattened(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		s := New()
		c, _ := Native(func(x float64) float64 { return x * x })
		var y float64
		err := s.Do(c, func() {
			// a routine with the vector convention: leading element is x
			y = s.Flattened(3, []float64{5, 7, 8})
		})
		require.NoError(t, err)
		require.EqualValues(t, 25.0, y)
	})
	t.Run("empty vector panics", func(t *testing.T) {
		s := New()
		c, _ := Native(math.Sin)
		require.Panics(t, func() {
			_ = s.Do(c, func() {
				s.Flattened(0, nil)
			})
		})
		require.EqualValues(t, 0, s.Depth())
	})
	t.Run("trampoline without install panics", func(t *testing.T) {
		s := New()
		require.Panics(t, func() {
			s.Univariate(1)
		})
	})
}

func TestTrace(t *testing.T) {
	s := New(testutil.NewSimpleLogger(true))
	c, _ := Script(func(x float64, _ []interface{}) (float64, error) {
		if x < 0 {
			return 0, errors.New("negative")
		}
		return math.Sqrt(x), nil
	}, nil)
	require.NoError(t, s.Do(c, func() {
		require.EqualValues(t, 2.0, s.Univariate(4))
	}))
	err := s.Do(c, func() {
		fakeRoutine(s.Univariate, 4, -4)
	})
	var cbErr *CallbackError
	require.ErrorAs(t, err, &cbErr)
	require.EqualValues(t, 0, s.Depth())
}
