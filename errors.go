package easyquad

import "fmt"

// explanation texts for the standard QUADPACK completion codes
var routineMessages = map[int]string{
	1: "maximum number of subdivisions achieved",
	2: "roundoff error prevents the requested tolerance from being achieved",
	3: "extremely bad integrand behaviour at some points of the integration range",
	4: "the algorithm does not converge, roundoff error is detected in the extrapolation table",
	5: "the integral is probably divergent, or slowly convergent",
	6: "the input is invalid",
}

// RoutineError reports a non-zero completion code of the quadrature routine.
// The code itself is kept so callers can branch on it the way the Fortran
// callers branch on ier
type RoutineError struct {
	Status int
}

func (e *RoutineError) Error() string {
	msg, ok := routineMessages[e.Status]
	if !ok {
		msg = "unknown completion code"
	}
	return fmt.Sprintf("quadrature routine failed: %s (ier = %d)", msg, e.Status)
}
