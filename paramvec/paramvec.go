package paramvec

// Vector is the flattened evaluation array for callables with the legacy
// vector calling convention f(n, x[n+1]): one leading free variable followed
// by n bound parameters in a single contiguous block.
// The bound parameter slice is owned by the caller and only referenced here.
// It is re-read on every Fill, so the vector handed to the callee is always
// rebuilt and mutations by the callee never survive one evaluation.
type Vector struct {
	buf    []float64
	params []float64
}

func New(params []float64) *Vector {
	return &Vector{
		buf:    make([]float64, len(params)+1),
		params: params,
	}
}

// NumParams returns the number of bound parameters, i.e. the n of f(n, x[n+1])
func (v *Vector) NumParams() int {
	return len(v.params)
}

// Len is always NumParams()+1
func (v *Vector) Len() int {
	return len(v.buf)
}

func (v *Vector) Params() []float64 {
	return v.params
}

// Fill writes x into slot 0, refreshes slots 1..n from the bound parameters
// and returns the whole vector. The returned slice is valid until the next
// Fill and must not be retained by the callee across evaluations.
func (v *Vector) Fill(x float64) []float64 {
	v.buf[0] = x
	copy(v.buf[1:], v.params)
	return v.buf
}
