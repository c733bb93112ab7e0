package sim

import (
	"math/rand"

	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"
)

type EventKind string

const (
	EventPlanted   EventKind = "planted"
	EventIrrigated EventKind = "irrigated"
	EventHarvested EventKind = "harvested"
	EventRecharged EventKind = "recharged"
	EventOutOfFuel EventKind = "out_of_fuel"
	EventDryCrop   EventKind = "dry_crop"
)

type Event struct {
	AgentID int        `json:"agent_id"`
	Role    farm.Role  `json:"role"`
	Kind    EventKind  `json:"kind"`
	At      farm.Point `json:"at"`
}

type Proposal struct {
	AgentID    int          `json:"agent_id"`
	From       farm.Point   `json:"from"`
	To         farm.Point   `json:"to"`
	Action     agent.Action `json:"action"`
	Overridden bool         `json:"overridden"`
}

type TickResult struct {
	Step         int
	PhaseFrom    farm.Phase
	Phase        farm.Phase
	PhaseChanged bool
	Terminal     bool

	Rewards    []float64
	Proposals  []Proposal
	Positions  []farm.Point
	Actions    []agent.Action
	States     []agent.State
	NextStates []agent.State
	Collisions int
	Events     []Event
}

func (r TickResult) TotalReward() float64 {
	total := 0.0
	for _, v := range r.Rewards {
		total += v
	}
	return total
}

// Stepper applies the tick rules to a world and its agents. It holds no
// state of its own; callers serialise access to the world.
type Stepper struct {
	Tuning Tuning
}

// Tick advances the simulation by one step. overrides replaces the policy's
// move for the agents whose IDs it names. explore enables epsilon-greedy
// selection and the stall back-off; without it the tick is deterministic.
// The Q-tables are never updated here.
func (s Stepper) Tick(w *farm.World, agents []*agent.Agent, overrides map[int]agent.Action, explore bool, rng *rand.Rand) TickResult {
	n := len(agents)
	res := TickResult{
		Step:       w.Tick(),
		Rewards:    make([]float64, n),
		Proposals:  make([]Proposal, n),
		Positions:  make([]farm.Point, n),
		Actions:    make([]agent.Action, n),
		States:     make([]agent.State, n),
		NextStates: make([]agent.State, n),
	}

	for i, a := range agents {
		res.States[i] = a.Discretize(observe(w, a))
	}

	res.PhaseFrom, res.Phase, res.PhaseChanged = w.AdvancePhase()

	for i := range agents {
		plan(w, agents, i)
	}

	from := make([]farm.Point, n)
	targets := make([]farm.Point, n)
	stuck := make([]bool, n)
	for i, a := range agents {
		act, overridden := overrides[a.ID]
		switch {
		case overridden && act.Valid():
		case explore && a.Stalled > 0 && rng != nil && rng.Intn(2) == 0:
			// While exploring, yield half of the time after a rejected move
			// so two agents contending for one cell cannot lock each other.
			act, overridden = agent.ActionStay, false
			a.Stalled = 0
		default:
			act, overridden = a.ChooseAction(res.States[i], explore, rng), false
		}
		d := act.Delta()
		to := a.Pos.Add(d.X, d.Y)
		if w.IsObstacle(to) {
			to, act = a.Pos, agent.ActionStay
		}
		from[i], targets[i] = a.Pos, to
		stuck[i] = to != a.Pos && a.Fuel < s.Tuning.MoveCost
		res.Proposals[i] = Proposal{AgentID: a.ID, From: a.Pos, To: to, Action: act, Overridden: overridden}
	}

	finals, collisions := resolveCollisions(from, targets, stuck)
	res.Collisions = collisions
	for i, a := range agents {
		switch {
		case finals[i] != from[i]:
			a.Stalled = 0
		case targets[i] != from[i] && !stuck[i]:
			a.Stalled++
		}
	}

	for i, a := range agents {
		if stuck[i] {
			a.ConsumeFuel(s.Tuning.MoveCost)
			res.Rewards[i] = s.outOfFuel(a, &res.Events)
		} else {
			res.Rewards[i] = s.settle(w, a, finals[i], &res.Events)
		}
		res.Actions[i] = agent.ActionFromDelta(from[i], a.Pos)
	}

	if w.TaskComplete() {
		res.Terminal = true
		if n > 0 {
			share := s.Tuning.CompletionBonus(res.Step) / float64(n)
			for i := range res.Rewards {
				res.Rewards[i] += share
			}
		}
	}

	for i, a := range agents {
		res.Positions[i] = a.Pos
		res.NextStates[i] = a.Discretize(observe(w, a))
	}
	return res
}

func observe(w *farm.World, a *agent.Agent) agent.Observation {
	return agent.Observation{
		AgentID: a.ID,
		Role:    a.Role,
		Pos:     a.Pos,
		Goal:    a.Goal,
		Nearby:  w.Obstacles(),
	}
}

// plan picks the agent's goal and routes it around static obstacles and the
// other agents. The goal cell itself is never blocked so agents can queue
// behind a teammate standing on it.
func plan(w *farm.World, agents []*agent.Agent, i int) {
	a := agents[i]
	if a.ShouldReturn() {
		a.Goal = a.Barn
		a.Returning = true
	} else {
		a.Goal = w.SmartGoal(a.Pos, a.Role)
		a.Returning = false
	}

	blocked := w.Obstacles().Clone()
	for j, other := range agents {
		if j != i {
			blocked.Add(other.Pos)
		}
	}
	delete(blocked, a.Goal)

	path, ok := farm.FindPath(a.Pos, a.Goal, blocked, w.Width(), w.Height())
	if !ok || len(path) < 2 {
		a.Path = nil
		return
	}
	a.Path = path[1:]
}

// resolveCollisions rejects every claimant of a cell targeted more than
// once; staying agents claim their own cell. Moves into a cell whose
// occupant ends up staying are rejected too, until nothing changes, so no
// two agents ever share a cell. Stuck agents cannot pay for their move and
// stay where they are.
func resolveCollisions(from, targets []farm.Point, stuck []bool) ([]farm.Point, int) {
	claims := make(map[farm.Point]int, len(targets))
	for _, p := range targets {
		claims[p]++
	}
	finals := make([]farm.Point, len(targets))
	collisions := 0
	for i, p := range targets {
		switch {
		case stuck[i]:
			finals[i] = from[i]
		case claims[p] > 1:
			if p != from[i] {
				collisions++
			}
			finals[i] = from[i]
		default:
			finals[i] = p
		}
	}

	for changed := true; changed; {
		changed = false
		held := make(map[farm.Point]bool, len(finals))
		for i, p := range finals {
			if p == from[i] {
				held[p] = true
			}
		}
		for i, p := range finals {
			if p != from[i] && held[p] {
				finals[i] = from[i]
				collisions++
				changed = true
			}
		}
	}
	return finals, collisions
}

// settle moves one agent to its resolved cell and applies the barn and
// phase-gated work rules, returning the agent's reward for the tick.
func (s Stepper) settle(w *farm.World, a *agent.Agent, to farm.Point, events *[]Event) float64 {
	t := s.Tuning
	reward := 0.0
	from := a.Pos

	if to != from {
		if !a.ConsumeFuel(t.MoveCost) {
			return s.outOfFuel(a, events)
		}
		if farm.Manhattan(to, a.Goal) < farm.Manhattan(from, a.Goal) {
			reward += t.ApproachReward
		}
		a.Pos = to
		a.DistanceTraveled++
		if len(a.Path) > 0 && a.Path[0] == to {
			a.Path = a.Path[1:]
		}
	}
	reward += t.StepPenalty

	if a.InParkingZone() {
		if res := a.RechargeAtBarn(t.RechargeRate); res.InProgress {
			reward += t.RechargeReward
			if a.Efficiency() > 80 {
				reward += t.EfficiencyBonus
			}
			if res.Completed {
				*events = append(*events, Event{AgentID: a.ID, Role: a.Role, Kind: EventRecharged, At: a.Pos})
			}
		}
		return reward
	}

	active, ok := w.Phase().ActiveRole()
	switch {
	case !ok:
	case a.Role != active:
		reward += t.IdleRoleReward
	default:
		reward += s.work(w, a, events)
	}

	if a.ShouldReturn() {
		a.Returning = true
		a.Path = nil
	}
	return reward
}

// outOfFuel keeps the agent in place after a refused move and sends it home.
func (s Stepper) outOfFuel(a *agent.Agent, events *[]Event) float64 {
	a.Returning = true
	*events = append(*events, Event{AgentID: a.ID, Role: a.Role, Kind: EventOutOfFuel, At: a.Pos})
	return s.Tuning.OutOfFuelPenalty
}

func (s Stepper) work(w *farm.World, a *agent.Agent, events *[]Event) float64 {
	t := s.Tuning
	pos := a.Pos
	switch a.Role {
	case farm.RolePlanter:
		if !w.CanPlant(pos) {
			return 0
		}
		if !s.spend(a, t.PlantCost) {
			return 0
		}
		w.Plant(pos)
		a.Planted++
		a.Path = nil
		*events = append(*events, Event{AgentID: a.ID, Role: a.Role, Kind: EventPlanted, At: pos})
		return t.PlantReward

	case farm.RoleIrrigator:
		if w.At(pos) != farm.CellCrop {
			return 0
		}
		if !s.spend(a, t.IrrigateCost) {
			return 0
		}
		w.Irrigate(pos)
		a.Irrigated++
		a.Path = nil
		*events = append(*events, Event{AgentID: a.ID, Role: a.Role, Kind: EventIrrigated, At: pos})
		return t.IrrigateReward

	case farm.RoleHarvester:
		if w.At(pos) != farm.CellCrop {
			return 0
		}
		water := w.WaterAt(pos)
		if water < 1 {
			*events = append(*events, Event{AgentID: a.ID, Role: a.Role, Kind: EventDryCrop, At: pos})
			return t.DryHarvestPenalty
		}
		if !s.spend(a, t.HarvestCost) {
			return 0
		}
		w.Harvest(pos)
		a.Harvested++
		a.Path = nil
		*events = append(*events, Event{AgentID: a.ID, Role: a.Role, Kind: EventHarvested, At: pos})
		reward := t.HarvestReward
		if water >= 2 {
			reward += t.WellWateredBonus
		}
		return reward
	}
	return 0
}

// spend pays one unit of capacity plus the action's fuel, or neither. An
// unpayable action sends the agent home.
func (s Stepper) spend(a *agent.Agent, fuel float64) bool {
	if !a.CanUseCapacity(1) || !a.ConsumeFuel(fuel) {
		a.Returning = true
		return false
	}
	a.UseCapacity(1)
	return true
}
