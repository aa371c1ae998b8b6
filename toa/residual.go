package toa

import "math"

// RangeResidual measures how well a candidate position explains one event's
// range differences: the RMS deviation, over all difference equations,
// between the measured range difference and the one implied by the position,
//
//	sqrt( mean_i ( |p - r_i| - |p - r_ref| - d_i )^2 )
//
// in units of distance. It is deterministic, continuous in the position and
// the differences, and always >= 0 — properties the speed-calibration search
// relies on. The four-receiver solver uses it to score each branch against
// the original nonlinear equations.
func RangeResidual(pos Point3, receivers ReceiverArray, diffs RangeDifferenceSet) float64 {
	if len(diffs.Diffs) == 0 {
		return 0
	}
	refDist := Distance(pos, receivers[diffs.Reference].Position)

	sumSq := 0.0
	for _, rd := range diffs.Diffs {
		dev := Distance(pos, receivers[rd.Receiver].Position) - refDist - rd.Delta
		sumSq += dev * dev
	}
	return math.Sqrt(sumSq / float64(len(diffs.Diffs)))
}
