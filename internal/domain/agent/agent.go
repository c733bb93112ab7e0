package agent

import "farmcycle/internal/domain/farm"

type Profile struct {
	Role        farm.Role
	Start       farm.Point
	Barn        farm.Point
	MaxFuel     float64
	MaxCapacity int
}

type LearnParams struct {
	Alpha        float64 `json:"alpha" yaml:"alpha"`
	Gamma        float64 `json:"gamma" yaml:"gamma"`
	Epsilon      float64 `json:"eps" yaml:"eps"`
	EpsilonDecay float64 `json:"eps_decay" yaml:"eps_decay"`
	EpsilonMin   float64 `json:"eps_min" yaml:"eps_min"`
}

func DefaultLearnParams() LearnParams {
	return LearnParams{Alpha: 0.5, Gamma: 0.95, Epsilon: 0.4, EpsilonDecay: 0.995, EpsilonMin: 0.01}
}

// RoleLearnParams are the per-role defaults used when a training request
// does not pin alpha, gamma and epsilon.
func RoleLearnParams(role farm.Role) LearnParams {
	p := DefaultLearnParams()
	switch role {
	case farm.RolePlanter:
		p.Alpha, p.Gamma, p.Epsilon = 0.6, 0.92, 0.5
	case farm.RoleIrrigator:
		p.Alpha, p.Gamma, p.Epsilon = 0.4, 0.93, 0.3
	}
	return p
}

type Agent struct {
	ID    int
	Role  farm.Role
	Pos   farm.Point
	Start farm.Point
	Barn  farm.Point
	Goal  farm.Point
	// Path holds the remaining cells to walk, excluding the current one.
	Path []farm.Point

	MaxCapacity     int
	Capacity        int
	MaxFuel         float64
	Fuel            float64
	Returning       bool
	RechargeCounter int
	// Stalled counts consecutive ticks whose move was rejected.
	Stalled int

	Planted   int
	Irrigated int
	Harvested int
	Delivered int

	StepsTaken        int
	SuccessfulActions int
	BarnVisits        int
	FuelRefills       int
	OutOfFuel         int
	FuelConsumed      float64
	DistanceTraveled  int

	Params  LearnParams
	Epsilon float64
	Q       *QTable
}

func New(id int, profile Profile, params LearnParams) *Agent {
	a := &Agent{
		ID:          id,
		Role:        profile.Role,
		Start:       profile.Start,
		Barn:        profile.Barn,
		MaxCapacity: profile.MaxCapacity,
		MaxFuel:     profile.MaxFuel,
		Params:      params,
		Q:           NewQTable(),
	}
	a.ResetEpisode(params.Epsilon)
	return a
}

// ResetEpisode restores position, cargo, fuel and per-episode counters. The
// Q-table is kept.
func (a *Agent) ResetEpisode(epsilon float64) {
	a.Pos = a.Start
	a.Goal = a.Barn
	a.Path = nil
	a.Fuel = a.MaxFuel
	a.Capacity = a.initialCapacity()
	a.Returning = false
	a.RechargeCounter = 0
	a.Stalled = 0

	a.Planted, a.Irrigated, a.Harvested, a.Delivered = 0, 0, 0, 0
	a.StepsTaken, a.SuccessfulActions, a.DistanceTraveled = 0, 0, 0
	a.BarnVisits, a.FuelRefills, a.OutOfFuel = 0, 0, 0
	a.FuelConsumed = 0
	a.SetEpsilon(epsilon)
}

func (a *Agent) initialCapacity() int {
	if a.Role == farm.RoleHarvester {
		return 0
	}
	return a.MaxCapacity
}
