package toa

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestLocalize_GeneralPreservesOrder(t *testing.T) {
	receivers := hexArray()
	speed := 343.0
	sources := []Point3{{2, 3, 1}, {7, 2, 4}, {1, 8, 5}}

	var table DetectionTable
	ids := []string{"evt-a", "evt-b", "evt-c"}
	for i, s := range sources {
		table = append(table, SynthesizeEvent(receivers, ids[i], s, speed, 0))
	}

	estimates, failures := Localize(receivers, table, speed)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(estimates) != len(table) {
		t.Fatalf("got %d estimates, want %d", len(estimates), len(table))
	}
	for i, est := range estimates {
		if est.ID != ids[i] {
			t.Errorf("estimate %d id = %q, want %q (table order)", i, est.ID, ids[i])
		}
		if d := Distance(est.Position(), sources[i]); d > 1e-6 {
			t.Errorf("event %s off by %g", est.ID, d)
		}
	}
}

func TestLocalize_FourReceiverBranchesAdjacent(t *testing.T) {
	receivers := tetraArray()
	speed := 343.0
	table := DetectionTable{
		SynthesizeEvent(receivers, "evt-a", Point3{2, 3, 1}, speed, 0),
		SynthesizeEvent(receivers, "evt-b", Point3{7, 2, 4}, speed, 0),
	}

	estimates, failures := Localize(receivers, table, speed)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}

	// Each event's branches must be adjacent and in "+","-" order.
	i := 0
	for _, ev := range table {
		if i >= len(estimates) || estimates[i].ID != ev.ID {
			t.Fatalf("estimates out of table order at index %d", i)
		}
		if estimates[i].Eq != EqPlus {
			t.Errorf("event %s first branch Eq = %q, want %q", ev.ID, estimates[i].Eq, EqPlus)
		}
		i++
		if i < len(estimates) && estimates[i].ID == ev.ID {
			if estimates[i].Eq != EqMinus {
				t.Errorf("event %s second branch Eq = %q, want %q", ev.ID, estimates[i].Eq, EqMinus)
			}
			i++
		}
	}
	if i != len(estimates) {
		t.Errorf("consumed %d estimates of %d", i, len(estimates))
	}
}

func TestLocalize_FailedEventExcludedNotFatal(t *testing.T) {
	receivers := hexArray()
	speed := 343.0
	nan := math.NaN()
	table := DetectionTable{
		SynthesizeEvent(receivers, "good-1", Point3{2, 3, 1}, speed, 0),
		{ID: "bad", TOAs: []float64{1.0, 2.0, nan, nan, nan, nan}},
		SynthesizeEvent(receivers, "good-2", Point3{7, 2, 4}, speed, 0),
	}

	estimates, failures := Localize(receivers, table, speed)
	if len(estimates) != 2 {
		t.Fatalf("got %d estimates, want 2", len(estimates))
	}
	if estimates[0].ID != "good-1" || estimates[1].ID != "good-2" {
		t.Errorf("estimate ids = %q,%q; want good-1,good-2", estimates[0].ID, estimates[1].ID)
	}

	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
	f := failures[0]
	if f.Index != 1 || f.EventID != "bad" {
		t.Errorf("failure = index %d id %q, want index 1 id bad", f.Index, f.EventID)
	}
	var ide *InsufficientDataError
	if !errors.As(f, &ide) {
		t.Errorf("failure cause = %v, want InsufficientDataError", f.Err)
	}
}

func TestLocalize_InvalidArrayFailsEveryEvent(t *testing.T) {
	receivers := ReceiverArray{
		{Label: "A", Position: Point3{0, 0, 0}},
		{Label: "B", Position: Point3{10, 0, 0}},
		{Label: "C", Position: Point3{0, 10, 0}},
	}
	table := DetectionTable{
		{ID: "e1", TOAs: []float64{1, 2, 3}},
		{ID: "e2", TOAs: []float64{4, 5, 6}},
	}

	estimates, failures := Localize(receivers, table, 343.0)
	if len(estimates) != 0 {
		t.Errorf("got %d estimates from an invalid array, want 0", len(estimates))
	}
	if len(failures) != len(table) {
		t.Fatalf("got %d failures, want %d", len(failures), len(table))
	}
	for i, f := range failures {
		if f.Index != i {
			t.Errorf("failure %d has index %d", i, f.Index)
		}
	}
}

func TestLocalize_Deterministic(t *testing.T) {
	receivers := hexArray()
	speed := 1500.0
	var table DetectionTable
	for i := 0; i < 16; i++ {
		src := Point3{float64(i%5) + 0.5, float64(i%7) + 0.25, float64(i%3) + 1}
		table = append(table, SynthesizeEvent(receivers, "evt", src, speed, 0))
	}

	first, _ := Localize(receivers, table, speed)
	second, _ := Localize(receivers, table, speed)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated runs over the same table differ")
	}
}
