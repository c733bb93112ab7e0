package agent

import (
	"math"
	"math/rand"
	"testing"

	"farmcycle/internal/domain/farm"
)

func TestChooseAction_PathOverridesPolicy(t *testing.T) {
	a := newTestAgent(farm.RolePlanter, 100, 10)
	a.Pos = farm.Point{X: 3, Y: 3}
	a.Path = []farm.Point{{X: 3, Y: 2}, {X: 3, Y: 1}}
	a.Epsilon = 1
	s := State{}
	a.Q.GetOrInsert(s)[ActionEast] = 100

	if got := a.ChooseAction(s, true, rand.New(rand.NewSource(1))); got != ActionNorth {
		t.Fatalf("expected path move north, got %d", got)
	}
}

func TestChooseAction_GreedyTiesPickLowestIndex(t *testing.T) {
	a := newTestAgent(farm.RolePlanter, 100, 10)
	s := State{DX: 1}

	if got := a.ChooseAction(s, false, nil); got != ActionStay {
		t.Fatalf("unseen state must pick stay, got %d", got)
	}
	if a.Q.Len() != 0 {
		t.Fatalf("choosing must not grow the table")
	}
	*a.Q.GetOrInsert(s) = Values{1, 3, 3, 0, 2}
	if got := a.ChooseAction(s, false, nil); got != ActionEast {
		t.Fatalf("expected east on tie, got %d", got)
	}
}

func TestChooseAction_ExploresWithEpsilon(t *testing.T) {
	a := newTestAgent(farm.RolePlanter, 100, 10)
	a.Epsilon = 1
	rng := rand.New(rand.NewSource(11))
	seen := map[Action]bool{}
	for i := 0; i < 200; i++ {
		seen[a.ChooseAction(State{}, true, rng)] = true
	}
	if len(seen) != ActionCount {
		t.Fatalf("expected all actions explored, got %v", seen)
	}
}

func TestUpdate_MatchesRuleAndCreatesEntries(t *testing.T) {
	a := newTestAgent(farm.RoleHarvester, 100, 10)
	a.Params.Alpha, a.Params.Gamma = 0.5, 0.9
	s, next := State{DX: 1}, State{DX: 2}
	*a.Q.GetOrInsert(next) = Values{0, 4, 0, 0, 0}

	delta := a.Update(s, ActionSouth, 2, next, false)
	want := 0.5 * (2 + 0.9*4 - 0)
	if math.Abs(delta-want) > 1e-9 {
		t.Fatalf("delta mismatch: got=%v want=%v", delta, want)
	}
	if v, ok := a.Q.Lookup(s); !ok || math.Abs(v[ActionSouth]-want) > 1e-9 {
		t.Fatalf("stored value mismatch: ok=%v v=%v", ok, v)
	}

	fresh := State{DX: 5}
	a.Update(fresh, ActionStay, 1, State{DX: 6}, true)
	if _, ok := a.Q.Lookup(State{DX: 6}); !ok {
		t.Fatalf("next state must be inserted even when terminal")
	}
	if v, _ := a.Q.Lookup(fresh); v[ActionStay] != 0.5 {
		t.Fatalf("terminal update mismatch: got=%v want=0.5", v[ActionStay])
	}
}

func TestUpdate_ChangeIsBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := newTestAgent(farm.RoleIrrigator, 100, 10)
	for i := 0; i < 2000; i++ {
		a.Params.Alpha = rng.Float64()
		a.Params.Gamma = rng.Float64()
		s := State{DX: int8(rng.Intn(17) - 8), Fuel: uint8(rng.Intn(5))}
		next := State{DY: int8(rng.Intn(17) - 8), Fuel: uint8(rng.Intn(5))}
		act := Action(rng.Intn(ActionCount))
		reward := rng.Float64()*100 - 50
		terminal := rng.Intn(4) == 0

		before := a.Q.GetOrInsert(s)[act]
		nextMax := a.Q.GetOrInsert(next).Max()
		if terminal {
			nextMax = 0
		}
		bound := math.Abs(a.Params.Alpha * (reward + a.Params.Gamma*nextMax - before))
		a.Update(s, act, reward, next, terminal)
		after, _ := a.Q.Lookup(s)
		if change := math.Abs(after[act] - before); change > bound+1e-9 {
			t.Fatalf("update change %v exceeds bound %v", change, bound)
		}
	}
}

func TestEpsilonNeverDropsBelowFloor(t *testing.T) {
	a := newTestAgent(farm.RolePlanter, 100, 10)
	a.Params.EpsilonMin = 0.05
	a.SetEpsilon(0.9)
	for i := 0; i < 100000; i++ {
		a.DecayEpsilon(0.9)
		if a.Epsilon < a.Params.EpsilonMin {
			t.Fatalf("epsilon %v fell below floor after %d decays", a.Epsilon, i)
		}
	}
	a.SetEpsilon(3)
	if a.Epsilon != 1 {
		t.Fatalf("epsilon must clamp to 1, got %v", a.Epsilon)
	}
}

func TestQTable_ImportSkipsMalformedEntries(t *testing.T) {
	q := NewQTable()
	good := State{DX: 1, Capacity: 2}
	loaded, skipped := q.Import(map[string][]float64{
		good.Key():          {1, 2, 3, 4, 5},
		"v1:0,0,0,0,0,0,0":  {1, 2},
		"garbage":           {0, 0, 0, 0, 0},
		"v1:1,1,0,0,0,0,0":  {0, math.NaN(), 0, 0, 0},
		State{DY: -2}.Key(): {0, 0, 0, 0, -1},
	})
	if loaded != 2 || skipped != 3 {
		t.Fatalf("import mismatch: loaded=%d skipped=%d", loaded, skipped)
	}
	if v, ok := q.Lookup(good); !ok || v[4] != 5 {
		t.Fatalf("good entry missing: ok=%v v=%v", ok, v)
	}

	exported := q.Export()
	if len(exported) != 2 || exported[good.Key()][2] != 3 {
		t.Fatalf("export mismatch: %v", exported)
	}
}

func TestActionFromDelta(t *testing.T) {
	from := farm.Point{X: 2, Y: 2}
	for _, act := range []Action{ActionStay, ActionEast, ActionWest, ActionSouth, ActionNorth} {
		d := act.Delta()
		if got := ActionFromDelta(from, from.Add(d.X, d.Y)); got != act {
			t.Fatalf("round trip mismatch: got=%d want=%d", got, act)
		}
	}
	if got := ActionFromDelta(from, farm.Point{X: 4, Y: 2}); got != ActionStay {
		t.Fatalf("jump must read as stay, got %d", got)
	}
}
