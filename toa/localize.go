package toa

import "sync"

// Localize runs the solver appropriate to the receiver count over every event
// in the table: exactly 4 receivers dispatches to SolveFourReceiver (up to
// two estimates per event), 5 or more to SolveGeneral (exactly one). The
// dispatch is decided once, before any event is solved.
//
// Events are independent given the immutable array and speed, so they are
// solved concurrently; the returned estimates preserve table order (an
// event's branches stay adjacent, "+" before "-"). Per-event failures never
// abort the batch: they are returned as EventError exclusions alongside the
// partial results, so a valid zero-error estimate is always distinguishable
// from a failed solve.
func Localize(receivers ReceiverArray, detections DetectionTable, speed float64) ([]Estimate, []EventError) {
	type outcome struct {
		estimates []Estimate
		err       error
	}

	if err := receivers.Validate(); err != nil {
		failures := make([]EventError, len(detections))
		for i := range detections {
			failures[i] = EventError{Index: i, EventID: detections[i].ID, Err: err}
		}
		return nil, failures
	}

	fourReceiver := len(receivers) == 4
	outcomes := make([]outcome, len(detections))

	var wg sync.WaitGroup
	for i := range detections {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := detections[i]
			if fourReceiver {
				ests, err := SolveFourReceiver(receivers, ev, speed)
				outcomes[i] = outcome{estimates: ests, err: err}
				return
			}
			est, err := SolveGeneral(receivers, ev, speed)
			if err != nil {
				outcomes[i] = outcome{err: err}
				return
			}
			outcomes[i] = outcome{estimates: []Estimate{est}}
		}(i)
	}
	wg.Wait()

	var estimates []Estimate
	var failures []EventError
	for i, out := range outcomes {
		if out.err != nil {
			failures = append(failures, EventError{Index: i, EventID: detections[i].ID, Err: out.err})
			continue
		}
		estimates = append(estimates, out.estimates...)
	}
	return estimates, failures
}
