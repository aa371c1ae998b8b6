package toa

import (
	"fmt"
	"math"
	"sync"
)

// CalibrationConfig controls the speed search in EstimateSpeed.
type CalibrationConfig struct {
	// Tolerance is the width of the speed interval (in speed units) below
	// which the search is considered converged.
	Tolerance float64
	// MaxIterations caps the number of golden-section steps; exceeding it
	// fails with ConvergenceError carrying the best point found.
	MaxIterations int
	// BracketFactor sets the initial search interval
	// [guess/BracketFactor, guess*BracketFactor] around the initial speed.
	BracketFactor float64
	// MaxBracketGrowth bounds how many times the interval may be widened
	// when the minimum sits on its edge.
	MaxBracketGrowth int
}

// DefaultCalibrationConfig returns the search parameters used when the caller
// passes a zero config.
func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		Tolerance:        1e-3,
		MaxIterations:    200,
		BracketFactor:    2.0,
		MaxBracketGrowth: 4,
	}
}

// EstimateSpeed infers the propagation speed that best explains a detection
// table: it minimizes the mean per-event residual over the table, starting
// from initialSpeed, using a deterministic golden-section search (no
// gradients, reproducible for fixed inputs).
//
// The objective reuses the localization path for the array's receiver count.
// Note that exactly 4 receivers cannot identify the speed: each quadratic
// branch back-substitutes to a position satisfying the three difference
// equations exactly at any assumed speed, so the objective is flat and the
// converged speed is arbitrary. Speed calibration needs 5 or more receivers;
// with 4 the search still converges, but only the near-zero mean error is
// meaningful. For 4 receivers each event contributes the lower-error branch; for 5+ the
// linear residual of the spherical-interpolation system is used, solved by
// rank-truncated least squares so that planar arrays — common in surface
// deployments, where depth is unobservable but the residual is still well
// defined — can drive the search. Events the solver cannot handle at a given
// speed are excluded from that evaluation's mean rather than aborting.
//
// On success the result has Converged true. Hitting the iteration cap fails
// with ConvergenceError; the accompanying result carries the best speed found
// and Converged false, never a silent unreliable value.
func EstimateSpeed(receivers ReceiverArray, detections DetectionTable, initialSpeed float64, cfg CalibrationConfig) (CalibrationResult, error) {
	if initialSpeed <= 0 {
		return CalibrationResult{}, fmt.Errorf("initial speed must be positive, got %g", initialSpeed)
	}
	if len(detections) == 0 {
		return CalibrationResult{}, fmt.Errorf("no detection events to calibrate against")
	}
	if err := receivers.Validate(); err != nil {
		return CalibrationResult{}, fmt.Errorf("invalid receiver array: %w", err)
	}
	if cfg.Tolerance <= 0 || cfg.MaxIterations <= 0 {
		def := DefaultCalibrationConfig()
		if cfg.Tolerance <= 0 {
			cfg.Tolerance = def.Tolerance
		}
		if cfg.MaxIterations <= 0 {
			cfg.MaxIterations = def.MaxIterations
		}
	}
	if cfg.BracketFactor <= 1 {
		cfg.BracketFactor = DefaultCalibrationConfig().BracketFactor
	}
	if cfg.MaxBracketGrowth <= 0 {
		cfg.MaxBracketGrowth = DefaultCalibrationConfig().MaxBracketGrowth
	}

	objective := func(speed float64) float64 {
		return meanEventResidual(receivers, detections, speed)
	}

	// Verify at least one event is solvable somewhere near the guess;
	// otherwise the objective is undefined everywhere.
	if math.IsInf(objective(initialSpeed), 1) && math.IsInf(objective(initialSpeed*cfg.BracketFactor), 1) &&
		math.IsInf(objective(initialSpeed/cfg.BracketFactor), 1) {
		return CalibrationResult{}, fmt.Errorf("no detection event produced a usable solution near speed %g", initialSpeed)
	}

	lo := initialSpeed / cfg.BracketFactor
	hi := initialSpeed * cfg.BracketFactor
	iterations := 0

	for growth := 0; ; growth++ {
		speed, mean, iters, converged := goldenSection(objective, lo, hi, cfg.Tolerance, cfg.MaxIterations-iterations)
		iterations += iters

		if !converged {
			return CalibrationResult{
					Speed:      speed,
					MeanError:  mean,
					Iterations: iterations,
					Converged:  false,
				}, &ConvergenceError{
					Iterations: iterations,
					BestSpeed:  speed,
					BestError:  mean,
				}
		}

		// A minimizer pinned to a bracket edge means the true minimum may be
		// outside; widen and retry within the remaining iteration budget.
		edge := cfg.Tolerance * 2
		switch {
		case growth < cfg.MaxBracketGrowth && speed-lo <= edge && lo > 1e-12:
			hi = lo + (hi-lo)/2
			lo = lo / cfg.BracketFactor
		case growth < cfg.MaxBracketGrowth && hi-speed <= edge:
			lo = hi - (hi-lo)/2
			hi = hi * cfg.BracketFactor
		default:
			return CalibrationResult{
				Speed:      speed,
				MeanError:  mean,
				Iterations: iterations,
				Converged:  true,
			}, nil
		}
	}
}

// invPhi is the inverse golden ratio, the interval reduction factor of the
// golden-section search.
const invPhi = 0.6180339887498949

// goldenSection minimizes f over [lo, hi] until the interval is narrower than
// tol or maxIters evaluations of the shrink step have been spent.
func goldenSection(f func(float64) float64, lo, hi, tol float64, maxIters int) (x, fx float64, iters int, converged bool) {
	x1 := hi - invPhi*(hi-lo)
	x2 := lo + invPhi*(hi-lo)
	f1 := f(x1)
	f2 := f(x2)

	for hi-lo > tol {
		if iters >= maxIters {
			// best interior point so far
			if f1 < f2 {
				return x1, f1, iters, false
			}
			return x2, f2, iters, false
		}
		iters++

		if f1 < f2 {
			hi, x2, f2 = x2, x1, f1
			x1 = hi - invPhi*(hi-lo)
			f1 = f(x1)
		} else {
			lo, x1, f1 = x1, x2, f2
			x2 = lo + invPhi*(hi-lo)
			f2 = f(x2)
		}
	}

	x = (lo + hi) / 2
	return x, f(x), iters, true
}

// meanEventResidual is the calibration objective: the mean solver residual
// over all solvable events at the given speed, +Inf when no event is
// solvable. Events are evaluated concurrently; the mean is accumulated in
// table order so the result is deterministic.
func meanEventResidual(receivers ReceiverArray, detections DetectionTable, speed float64) float64 {
	residuals := make([]float64, len(detections))
	usable := make([]bool, len(detections))

	var wg sync.WaitGroup
	for i := range detections {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, ok := eventResidual(receivers, detections[i], speed)
			residuals[i] = r
			usable[i] = ok
		}(i)
	}
	wg.Wait()

	sum := 0.0
	n := 0
	for i := range residuals {
		if usable[i] {
			sum += residuals[i]
			n++
		}
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum / float64(n)
}

// eventResidual evaluates one event's contribution to the objective.
func eventResidual(receivers ReceiverArray, ev DetectionEvent, speed float64) (float64, bool) {
	if len(receivers) == 4 {
		ests, err := SolveFourReceiver(receivers, ev, speed)
		if err != nil {
			return 0, false
		}
		best := ests[0].Error
		for _, e := range ests[1:] {
			if e.Error < best {
				best = e.Error
			}
		}
		return best, true
	}

	diffs, err := BuildRangeDifferences(receivers, ev, speed)
	if err != nil || len(diffs.Diffs) < 4 {
		return 0, false
	}
	_, residual, err := solveInterpolationSystem(receivers, diffs, true)
	if err != nil {
		return 0, false
	}
	return residual, true
}
