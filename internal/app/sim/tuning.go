package sim

import (
	"time"

	"farmcycle/internal/domain/farm"
)

// RoleSpec carries the resource maxima of one role.
type RoleSpec struct {
	MaxFuel     float64 `yaml:"max_fuel" json:"max_fuel"`
	MaxCapacity int     `yaml:"max_capacity" json:"max_capacity"`
}

// Tuning holds every cost, reward and resource constant of the tick rules.
type Tuning struct {
	MoveCost     float64 `yaml:"move_cost"`
	PlantCost    float64 `yaml:"plant_cost"`
	HarvestCost  float64 `yaml:"harvest_cost"`
	IrrigateCost float64 `yaml:"irrigate_cost"`
	RechargeRate float64 `yaml:"recharge_rate"`

	PlantReward       float64 `yaml:"plant_reward"`
	IrrigateReward    float64 `yaml:"irrigate_reward"`
	HarvestReward     float64 `yaml:"harvest_reward"`
	WellWateredBonus  float64 `yaml:"well_watered_bonus"`
	DryHarvestPenalty float64 `yaml:"dry_harvest_penalty"`
	IdleRoleReward    float64 `yaml:"idle_role_reward"`
	RechargeReward    float64 `yaml:"recharge_reward"`
	EfficiencyBonus   float64 `yaml:"efficiency_bonus"`
	ApproachReward    float64 `yaml:"approach_reward"`
	StepPenalty       float64 `yaml:"step_penalty"`
	OutOfFuelPenalty  float64 `yaml:"out_of_fuel_penalty"`
	CycleBonus        float64 `yaml:"cycle_bonus"`
	SpeedBonusCap     float64 `yaml:"speed_bonus_cap"`

	Roles map[farm.Role]RoleSpec `yaml:"roles"`
}

func DefaultTuning() Tuning {
	return Tuning{
		MoveCost:     1,
		PlantCost:    2,
		HarvestCost:  2,
		IrrigateCost: 1.5,
		RechargeRate: 100,

		PlantReward:       35,
		IrrigateReward:    30,
		HarvestReward:     40,
		WellWateredBonus:  10,
		DryHarvestPenalty: -2,
		IdleRoleReward:    0.5,
		RechargeReward:    15,
		EfficiencyBonus:   5,
		ApproachReward:    2,
		StepPenalty:       -0.05,
		OutOfFuelPenalty:  -10,
		CycleBonus:        500,
		SpeedBonusCap:     300,

		Roles: map[farm.Role]RoleSpec{
			farm.RolePlanter:   {MaxFuel: 500, MaxCapacity: 100},
			farm.RoleHarvester: {MaxFuel: 520, MaxCapacity: 120},
			farm.RoleIrrigator: {MaxFuel: 550, MaxCapacity: 200},
		},
	}
}

// CompletionBonus is the team reward for finishing the cycle at step.
func (t Tuning) CompletionBonus(step int) float64 {
	speed := t.SpeedBonusCap - float64(step)/10
	if speed < 0 {
		speed = 0
	}
	return t.CycleBonus + speed
}

// AgentSpec places one agent of a role at its start cell.
type AgentSpec struct {
	Role  farm.Role  `yaml:"role" json:"role"`
	Start farm.Point `yaml:"start" json:"start"`
}

// DefaultAgents is two agents per role parked next to their barns.
func DefaultAgents(width, height int) []AgentSpec {
	return []AgentSpec{
		{Role: farm.RolePlanter, Start: farm.Point{X: 4, Y: 4}},
		{Role: farm.RolePlanter, Start: farm.Point{X: 5, Y: 4}},
		{Role: farm.RoleHarvester, Start: farm.Point{X: width - 6, Y: 4}},
		{Role: farm.RoleHarvester, Start: farm.Point{X: width - 7, Y: 4}},
		{Role: farm.RoleIrrigator, Start: farm.Point{X: 4, Y: height - 6}},
		{Role: farm.RoleIrrigator, Start: farm.Point{X: 5, Y: height - 6}},
	}
}

type RunDefaults struct {
	Episodes        int           `yaml:"episodes"`
	StepsPerEpisode int           `yaml:"steps_per_episode"`
	SaveEvery       int           `yaml:"save_every"`
	ServeInterval   time.Duration `yaml:"serve_interval"`
	BaselineSteps   int           `yaml:"baseline_steps"`
}

func DefaultRunDefaults() RunDefaults {
	return RunDefaults{
		Episodes:        50,
		StepsPerEpisode: 2000,
		SaveEvery:       10,
		ServeInterval:   120 * time.Millisecond,
		BaselineSteps:   1000,
	}
}
