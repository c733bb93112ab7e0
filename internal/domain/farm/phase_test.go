package farm

import "testing"

func TestNextPhase_AdvancesOneStepAtATime(t *testing.T) {
	targets := TargetsFor(1)
	done := Counters{Planted: 1, Irrigated: 2, Harvested: 1}

	if got := NextPhase(PhasePlanting, done, targets); got != PhaseIrrigating {
		t.Fatalf("expected irrigating, got %s", got)
	}
	if got := NextPhase(PhaseIrrigating, done, targets); got != PhaseHarvesting {
		t.Fatalf("expected harvesting, got %s", got)
	}
	if got := NextPhase(PhaseHarvesting, done, targets); got != PhaseComplete {
		t.Fatalf("expected complete, got %s", got)
	}
	if got := NextPhase(PhaseComplete, Counters{}, targets); got != PhaseComplete {
		t.Fatalf("complete must be terminal, got %s", got)
	}
}

func TestNextPhase_NeverRegresses(t *testing.T) {
	targets := TargetsFor(3)
	phases := []Phase{PhasePlanting, PhaseIrrigating, PhaseHarvesting, PhaseComplete}
	counters := []Counters{
		{},
		{Planted: 3},
		{Planted: 1, Irrigated: 6},
		{Planted: 3, Irrigated: 6, Harvested: 3},
		{Harvested: 3},
	}
	for _, p := range phases {
		for _, c := range counters {
			if next := NextPhase(p, c, targets); next.Order() < p.Order() {
				t.Fatalf("phase regressed: %s -> %s with %+v", p, next, c)
			}
		}
	}
}

func TestWorld_SingleCycleFlipsOnNextEvaluation(t *testing.T) {
	w := mustWorld(t, smallLayout())

	if _, to, changed := w.AdvancePhase(); changed || to != PhasePlanting {
		t.Fatalf("phase must stay planting before any plant, got %s", to)
	}
	if !w.Plant(Point{X: 5, Y: 3}) {
		t.Fatalf("expected plant to succeed")
	}
	if w.Phase() != PhasePlanting {
		t.Fatalf("phase flipped before scheduler evaluation: %s", w.Phase())
	}
	from, to, changed := w.AdvancePhase()
	if !changed || from != PhasePlanting || to != PhaseIrrigating {
		t.Fatalf("expected planting->irrigating, got %s->%s changed=%v", from, to, changed)
	}
}

func TestWorld_PhaseProgressAndCompletion(t *testing.T) {
	l := smallLayout()
	l.CropCount = 4
	w := mustWorld(t, l)
	w.Plant(Point{X: 5, Y: 3})
	w.Plant(Point{X: 6, Y: 3})

	if got := w.PhaseProgress(); got != 50 {
		t.Fatalf("phase progress mismatch: got=%v want=50", got)
	}
	if got := w.CompletionPercent(); got != 16 {
		t.Fatalf("completion mismatch: got=%d want=16", got)
	}
}
