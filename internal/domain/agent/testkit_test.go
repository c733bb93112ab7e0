package agent

import "farmcycle/internal/domain/farm"

func newTestAgent(role farm.Role, maxFuel float64, maxCapacity int) *Agent {
	return New(0, Profile{
		Role:        role,
		Start:       farm.Point{X: 0, Y: 0},
		Barn:        farm.Point{X: 0, Y: 0},
		MaxFuel:     maxFuel,
		MaxCapacity: maxCapacity,
	}, DefaultLearnParams())
}
