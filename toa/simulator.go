package toa

import (
	"fmt"
	"math"
	"math/rand"
)

// SimulationConfig describes a synthetic detection scenario: a fixed source
// heard by the array at a known speed, optionally corrupted by Gaussian
// timing noise and random measurement dropouts.
type SimulationConfig struct {
	Source       Point3
	Speed        float64
	EmissionTime float64
	Events       int
	// NoiseStdDev is the standard deviation of Gaussian noise added to each
	// arrival time, in time units. Zero produces exact arrivals.
	NoiseStdDev float64
	// DropProbability is the chance each arrival time is replaced by a
	// missing value (NaN).
	DropProbability float64
	// RNG drives noise and dropouts; supplying a seeded generator makes the
	// synthetic table reproducible.
	RNG *rand.Rand
}

// SynthesizeEvent produces the exact arrival times that a source at the
// given position and emission time would produce at every receiver.
func SynthesizeEvent(receivers ReceiverArray, id string, source Point3, speed, emissionTime float64) DetectionEvent {
	ev := DetectionEvent{ID: id, TOAs: make([]float64, len(receivers))}
	for i, rx := range receivers {
		ev.TOAs[i] = emissionTime + Distance(source, rx.Position)/speed
	}
	return ev
}

// SynthesizeDetections builds a detection table of cfg.Events noisy copies of
// the scenario. Events are named evt-0001, evt-0002, ...
func SynthesizeDetections(receivers ReceiverArray, cfg SimulationConfig) DetectionTable {
	n := cfg.Events
	if n <= 0 {
		n = 1
	}
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	table := make(DetectionTable, 0, n)
	for k := 0; k < n; k++ {
		ev := SynthesizeEvent(receivers, fmt.Sprintf("evt-%04d", k+1), cfg.Source, cfg.Speed, cfg.EmissionTime)
		for i := range ev.TOAs {
			if cfg.DropProbability > 0 && rng.Float64() < cfg.DropProbability {
				ev.TOAs[i] = math.NaN()
				continue
			}
			if cfg.NoiseStdDev > 0 {
				ev.TOAs[i] += rng.NormFloat64() * cfg.NoiseStdDev
			}
		}
		table = append(table, ev)
	}
	return table
}
