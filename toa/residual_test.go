package toa

import (
	"math"
	"testing"
)

func TestRangeResidual_ZeroAtTruePosition(t *testing.T) {
	receivers := hexArray()
	source := Point3{3, 4, 2}
	ev := SynthesizeEvent(receivers, "e1", source, 340.0, 0.25)

	diffs, err := BuildRangeDifferences(receivers, ev, 340.0)
	if err != nil {
		t.Fatalf("BuildRangeDifferences: %v", err)
	}
	if r := RangeResidual(source, receivers, diffs); r > 1e-9 {
		t.Errorf("residual at true position = %g, want ~0", r)
	}
}

func TestRangeResidual_PositiveAwayFromSource(t *testing.T) {
	receivers := hexArray()
	source := Point3{3, 4, 2}
	ev := SynthesizeEvent(receivers, "e1", source, 340.0, 0)

	diffs, err := BuildRangeDifferences(receivers, ev, 340.0)
	if err != nil {
		t.Fatalf("BuildRangeDifferences: %v", err)
	}

	wrong := Point3{30, -12, 9}
	r := RangeResidual(wrong, receivers, diffs)
	if r <= 0 || math.IsNaN(r) {
		t.Errorf("residual away from source = %g, want > 0", r)
	}
}

func TestRangeResidual_EmptyDifferences(t *testing.T) {
	receivers := hexArray()
	diffs := RangeDifferenceSet{Reference: 0}
	if r := RangeResidual(Point3{1, 2, 3}, receivers, diffs); r != 0 {
		t.Errorf("residual with no differences = %g, want 0", r)
	}
}

func TestRangeResidual_GrowsWithSpeedError(t *testing.T) {
	receivers := hexArray()
	source := Point3{5, 5, 5}
	trueSpeed := 1500.0
	ev := SynthesizeEvent(receivers, "e1", source, trueSpeed, 0)

	residualAt := func(speed float64) float64 {
		diffs, err := BuildRangeDifferences(receivers, ev, speed)
		if err != nil {
			t.Fatalf("BuildRangeDifferences(%g): %v", speed, err)
		}
		return RangeResidual(source, receivers, diffs)
	}

	exact := residualAt(trueSpeed)
	off := residualAt(trueSpeed * 1.1)
	if off <= exact {
		t.Errorf("residual at wrong speed (%g) should exceed residual at true speed (%g)", off, exact)
	}
}
