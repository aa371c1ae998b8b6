package toa

import "fmt"

// The solvers fail in four distinguishable ways. Each failure mode is a typed
// error so callers can dispatch with errors.As; none of them is ever paired
// with a sentinel value in the result (a failed solve yields no estimate).

// InsufficientDataError reports too few usable measurements for the requested
// solve: missing arrival times reduced the equation count below what the
// receiver count requires.
type InsufficientDataError struct {
	EventID string
	Got     int
	Need    int
	What    string // "arrival times", "range differences", "receivers"
}

func (e *InsufficientDataError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("event %s: insufficient data: %d %s, need at least %d", e.EventID, e.Got, e.What, e.Need)
	}
	return fmt.Sprintf("insufficient data: %d %s, need at least %d", e.Got, e.What, e.Need)
}

// SingularSystemError reports degenerate receiver geometry: the linear system
// is rank-deficient (for example all receivers coplanar in a 3D solve), so no
// unique position exists. It is raised instead of silently returning a
// degenerate position.
type SingularSystemError struct {
	EventID string
	Rank    int
	Detail  string
}

func (e *SingularSystemError) Error() string {
	msg := "singular system: " + e.Detail
	if e.Rank > 0 {
		msg = fmt.Sprintf("singular system: %s (rank %d)", e.Detail, e.Rank)
	}
	if e.EventID != "" {
		return "event " + e.EventID + ": " + msg
	}
	return msg
}

// NoValidSolutionError reports that the four-receiver quadratic in the
// reference range has no physically valid root: either the discriminant is
// negative or every real root is negative (a range cannot be).
type NoValidSolutionError struct {
	EventID      string
	Discriminant float64
}

func (e *NoValidSolutionError) Error() string {
	msg := fmt.Sprintf("no valid solution: quadratic discriminant %g yields no non-negative root", e.Discriminant)
	if e.EventID != "" {
		return "event " + e.EventID + ": " + msg
	}
	return msg
}

// ConvergenceError reports that speed calibration hit its iteration cap
// before the search interval shrank below tolerance. BestSpeed and BestError
// carry the best point found so far; callers must treat it as unreliable.
type ConvergenceError struct {
	Iterations int
	BestSpeed  float64
	BestError  float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("speed calibration did not converge after %d iterations (best speed %g, mean error %g)",
		e.Iterations, e.BestSpeed, e.BestError)
}
