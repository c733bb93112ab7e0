package agent

import "farmcycle/internal/domain/farm"

type Stats struct {
	ID              int       `json:"id"`
	Role            farm.Role `json:"role"`
	StatesLearned   int       `json:"states_learned"`
	StepsTaken      int       `json:"steps_taken"`
	Harvested       int       `json:"harvested"`
	Planted         int       `json:"planted"`
	Irrigated       int       `json:"irrigated"`
	Delivered       int       `json:"delivered"`
	CapacityPct     int       `json:"capacity_pct"`
	FuelPct         int       `json:"fuel_pct"`
	FuelEfficiency  float64   `json:"fuel_efficiency"`
	Epsilon         float64   `json:"epsilon"`
	IsReturning     bool      `json:"is_returning"`
	IsFuelLow       bool      `json:"is_fuel_low"`
	IsFuelCritical  bool      `json:"is_fuel_critical"`
	BarnVisits      int       `json:"barn_visits"`
	FuelRefills     int       `json:"fuel_refills"`
	OutOfFuelEvents int       `json:"out_of_fuel_events"`
}

func (a *Agent) Stats() Stats {
	return Stats{
		ID:              a.ID,
		Role:            a.Role,
		StatesLearned:   a.Q.Len(),
		StepsTaken:      a.StepsTaken,
		Harvested:       a.Harvested,
		Planted:         a.Planted,
		Irrigated:       a.Irrigated,
		Delivered:       a.Delivered,
		CapacityPct:     a.CapacityPercent(),
		FuelPct:         a.FuelPercent(),
		FuelEfficiency:  a.Efficiency(),
		Epsilon:         a.Epsilon,
		IsReturning:     a.Returning,
		IsFuelLow:       a.FuelLow(),
		IsFuelCritical:  a.FuelCritical(),
		BarnVisits:      a.BarnVisits,
		FuelRefills:     a.FuelRefills,
		OutOfFuelEvents: a.OutOfFuel,
	}
}
