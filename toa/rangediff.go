package toa

// BuildRangeDifferences converts one event's arrival times into signed range
// differences relative to a reference receiver, given an assumed propagation
// speed. The reference is the first receiver in array order with a
// non-missing arrival time; every other receiver with a valid arrival
// contributes one difference (toa_i - toa_ref) * speed. Receivers with
// missing arrivals are skipped, not zeroed.
//
// Fails with InsufficientDataError when fewer than 3 differences remain after
// excluding the reference: 3 is the minimum for the four-receiver solver, and
// the general solver checks its own >=4 requirement on top of this.
func BuildRangeDifferences(receivers ReceiverArray, ev DetectionEvent, speed float64) (RangeDifferenceSet, error) {
	if speed <= 0 {
		return RangeDifferenceSet{}, &InsufficientDataError{EventID: ev.ID, Got: 0, Need: 1, What: "positive propagation speed"}
	}
	if len(ev.TOAs) != len(receivers) {
		return RangeDifferenceSet{}, &InsufficientDataError{
			EventID: ev.ID, Got: len(ev.TOAs), Need: len(receivers), What: "arrival times (one per receiver)",
		}
	}

	ref := -1
	for i := range receivers {
		if ev.HasTOA(i) {
			ref = i
			break
		}
	}
	if ref == -1 {
		return RangeDifferenceSet{}, &InsufficientDataError{EventID: ev.ID, Got: 0, Need: 4, What: "arrival times"}
	}

	set := RangeDifferenceSet{Reference: ref}
	for i := range receivers {
		if i == ref || !ev.HasTOA(i) {
			continue
		}
		set.Diffs = append(set.Diffs, RangeDifference{
			Receiver: i,
			Delta:    (ev.TOAs[i] - ev.TOAs[ref]) * speed,
		})
	}

	if len(set.Diffs) < 3 {
		return RangeDifferenceSet{}, &InsufficientDataError{
			EventID: ev.ID, Got: len(set.Diffs), Need: 3, What: "range differences",
		}
	}
	return set, nil
}
