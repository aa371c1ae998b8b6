package toa

import "math"

// Point3 is a position in 3D Cartesian space. Units are whatever the caller
// measures receiver positions in (meters for the hydrophone arrays this was
// written for); arrival times and speed must use consistent units.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point3) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// NormSq returns the squared distance of p from the origin.
func (p Point3) NormSq() float64 {
	return p.X*p.X + p.Y*p.Y + p.Z*p.Z
}

// Receiver is one fixed element of the array: a stable label plus position.
type Receiver struct {
	Label    string `json:"label"`
	Position Point3 `json:"position"`
}

// ReceiverArray is an ordered set of receivers sharing one coordinate frame.
// It is immutable once constructed: solvers only read it. Order matters —
// detection events index their arrival times by receiver position in this
// slice, and the reference receiver is the first one with a valid arrival.
type ReceiverArray []Receiver

// Validate checks the structural invariants of the array: at least four
// receivers and no two receivers at the same position.
func (ra ReceiverArray) Validate() error {
	if len(ra) < 4 {
		return &InsufficientDataError{Got: len(ra), Need: 4, What: "receivers"}
	}
	for i := range ra {
		for j := i + 1; j < len(ra); j++ {
			if ra[i].Position == ra[j].Position {
				return &SingularSystemError{Detail: "receivers " + ra[i].Label + " and " + ra[j].Label + " coincide"}
			}
		}
	}
	return nil
}

// DetectionEvent is one source emission: an identifier plus one arrival time
// per receiver, indexed in receiver-array order. A missing measurement is
// NaN, never zero — zero is a legitimate arrival time.
type DetectionEvent struct {
	ID   string    `json:"id"`
	TOAs []float64 `json:"toas"`
}

// HasTOA reports whether receiver i has a usable arrival time.
func (ev DetectionEvent) HasTOA(i int) bool {
	return i < len(ev.TOAs) && !math.IsNaN(ev.TOAs[i])
}

// ValidCount returns the number of non-missing arrival times.
func (ev DetectionEvent) ValidCount() int {
	n := 0
	for i := range ev.TOAs {
		if !math.IsNaN(ev.TOAs[i]) {
			n++
		}
	}
	return n
}

// DetectionTable is an ordered collection of events sharing one ReceiverArray.
type DetectionTable []DetectionEvent

// Branch tags identifying which algebraic path produced an estimate.
// The general (N>=5) solver always emits EqSingle. The four-receiver solver
// emits EqPlus for the larger quadratic root and EqMinus for the smaller;
// downstream filtering keys on these exact strings.
const (
	EqSingle = "single"
	EqPlus   = "+"
	EqMinus  = "-"
)

// Estimate is one localization result. Error is the solver's residual
// magnitude (see SolveGeneral and SolveFourReceiver for the exact metric and
// units) and is always >= 0. Estimates are never mutated after creation.
type Estimate struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Error float64 `json:"error"`
	Eq    string  `json:"eq"`
}

// Position returns the estimated source position as a Point3.
func (e Estimate) Position() Point3 {
	return Point3{X: e.X, Y: e.Y, Z: e.Z}
}

// RangeDifference is the signed propagation-distance difference between one
// receiver and the reference receiver for a single event.
type RangeDifference struct {
	Receiver int     // index into the ReceiverArray
	Delta    float64 // (toa_i - toa_ref) * speed
}

// RangeDifferenceSet holds the per-event range differences relative to the
// chosen reference receiver. It is ephemeral: recomputed whenever the assumed
// propagation speed changes, never persisted.
type RangeDifferenceSet struct {
	Reference int // index of the reference receiver
	Diffs     []RangeDifference
}

// CalibrationResult is the output of EstimateSpeed: the propagation speed
// minimizing the mean per-event residual over a detection table.
type CalibrationResult struct {
	Speed      float64 `json:"speed"`
	MeanError  float64 `json:"meanError"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
}

// EventError ties a per-event solver failure to its source event so that
// batch localization can surface exclusions without aborting.
type EventError struct {
	Index   int    // position of the event in the DetectionTable
	EventID string // the event's identifier
	Err     error  // the underlying solver failure
}

func (e EventError) Error() string {
	return "event " + e.EventID + ": " + e.Err.Error()
}

// Unwrap exposes the underlying failure to errors.Is / errors.As.
func (e EventError) Unwrap() error { return e.Err }
