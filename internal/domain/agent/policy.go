package agent

import (
	"math/rand"

	"farmcycle/internal/domain/farm"
)

type Action int

const (
	ActionStay Action = iota
	ActionEast
	ActionWest
	ActionSouth
	ActionNorth
)

var actionDeltas = [ActionCount]farm.Point{
	ActionStay:  {X: 0, Y: 0},
	ActionEast:  {X: 1, Y: 0},
	ActionWest:  {X: -1, Y: 0},
	ActionSouth: {X: 0, Y: 1},
	ActionNorth: {X: 0, Y: -1},
}

func (a Action) Valid() bool {
	return a >= ActionStay && a <= ActionNorth
}

func (a Action) Delta() farm.Point {
	if !a.Valid() {
		return farm.Point{}
	}
	return actionDeltas[a]
}

// ActionFromDelta maps a displacement back to an action; anything that is
// not a single cardinal step reads as Stay.
func ActionFromDelta(from, to farm.Point) Action {
	d := farm.Point{X: to.X - from.X, Y: to.Y - from.Y}
	for i, delta := range actionDeltas {
		if delta == d {
			return Action(i)
		}
	}
	return ActionStay
}

// ChooseAction follows a pending path first. Without one it explores with
// probability epsilon (when explore is set) and otherwise takes the greedy
// action, lowest index winning ties.
func (a *Agent) ChooseAction(s State, explore bool, rng *rand.Rand) Action {
	a.StepsTaken++
	if len(a.Path) > 0 {
		return ActionFromDelta(a.Pos, a.Path[0])
	}
	if explore && rng.Float64() < a.Epsilon {
		return Action(rng.Intn(ActionCount))
	}
	v, _ := a.Q.Lookup(s)
	return Action(v.ArgMax())
}

// Update applies one Q-learning step and returns the change made to Q(s,a).
func (a *Agent) Update(s State, act Action, reward float64, next State, terminal bool) float64 {
	if !act.Valid() {
		return 0
	}
	cur := a.Q.GetOrInsert(s)
	nextMax := a.Q.GetOrInsert(next).Max()
	if terminal {
		nextMax = 0
	}
	delta := a.Params.Alpha * (reward + a.Params.Gamma*nextMax - cur[act])
	cur[act] += delta
	return delta
}

func (a *Agent) DecayEpsilon(rate float64) {
	a.SetEpsilon(a.Epsilon * rate)
}

func (a *Agent) SetEpsilon(eps float64) {
	a.Epsilon = clampFloat(eps, a.Params.EpsilonMin, 1)
}
