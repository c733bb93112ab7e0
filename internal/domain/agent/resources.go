package agent

import (
	"math"

	"farmcycle/internal/domain/farm"
)

const (
	FuelLowPct      = 30
	FuelCriticalPct = 10

	returnMarginFactor = 1.5
	nearBarnDistance   = 5
	harvesterFullRatio = 0.8
	supplyLowRatio     = 0.2
	barnBoxRadius      = 2
)

// ConsumeFuel refuses amounts above the remaining fuel instead of going
// negative; refusals count as out-of-fuel events.
func (a *Agent) ConsumeFuel(amount float64) bool {
	if amount < 0 {
		return false
	}
	if amount > a.Fuel {
		a.OutOfFuel++
		return false
	}
	a.Fuel = clampFloat(a.Fuel-amount, 0, a.MaxFuel)
	a.FuelConsumed += amount
	return true
}

func (a *Agent) FuelPercent() int {
	if a.MaxFuel <= 0 {
		return 0
	}
	return int(a.Fuel / a.MaxFuel * 100)
}

func (a *Agent) CapacityPercent() int {
	if a.MaxCapacity <= 0 {
		return 0
	}
	return int(float64(a.Capacity) / float64(a.MaxCapacity) * 100)
}

// FuelLow and FuelCritical compare the truncated percentage, so they agree
// with the fuel_pct reported next to them.
func (a *Agent) FuelLow() bool {
	return a.FuelPercent() <= FuelLowPct
}

func (a *Agent) FuelCritical() bool {
	return a.FuelPercent() <= FuelCriticalPct
}

func (a *Agent) BarnDistance() int {
	return farm.Manhattan(a.Pos, a.Barn)
}

// ShouldReturn evaluates, in priority order: empty tank, critical tank, not
// enough fuel for the way back with margin, then the role's cargo rule.
func (a *Agent) ShouldReturn() bool {
	if a.Fuel <= 0 || a.FuelCritical() {
		return true
	}
	dist := a.BarnDistance()
	if a.Fuel < float64(dist)*returnMarginFactor {
		return true
	}
	capacity, maxCapacity := float64(a.Capacity), float64(a.MaxCapacity)
	if a.Role == farm.RoleHarvester {
		if a.Capacity >= a.MaxCapacity {
			return true
		}
		return capacity >= maxCapacity*harvesterFullRatio && dist < nearBarnDistance
	}
	if a.Capacity <= 0 {
		return true
	}
	return capacity <= maxCapacity*supplyLowRatio && dist < nearBarnDistance
}

func (a *Agent) AtBarn() bool {
	return absInt(a.Pos.X-a.Barn.X) <= barnBoxRadius && absInt(a.Pos.Y-a.Barn.Y) <= barnBoxRadius
}

// InParkingZone widens the barn box for agents already heading home.
func (a *Agent) InParkingZone() bool {
	return a.AtBarn() || (a.Returning && a.BarnDistance() <= barnBoxRadius)
}

type RechargeResult struct {
	InProgress bool
	Completed  bool
}

// RechargeAtBarn settles cargo and adds fuel for one tick of barn presence.
// The visit only completes once the tank is full.
func (a *Agent) RechargeAtBarn(rate float64) RechargeResult {
	if !a.InParkingZone() {
		return RechargeResult{}
	}
	a.RechargeCounter++

	if a.Role == farm.RoleHarvester {
		if a.Capacity > 0 {
			a.Delivered += a.Capacity
			a.Capacity = 0
		}
	} else {
		a.Capacity = a.MaxCapacity
	}

	if a.Fuel < a.MaxFuel {
		a.Fuel = clampFloat(a.Fuel+rate, 0, a.MaxFuel)
	}
	if a.Fuel >= a.MaxFuel {
		a.Returning = false
		a.RechargeCounter = 0
		a.BarnVisits++
		a.FuelRefills++
		return RechargeResult{InProgress: true, Completed: true}
	}
	return RechargeResult{InProgress: true}
}

func (a *Agent) CanUseCapacity(n int) bool {
	if a.Role == farm.RoleHarvester {
		return a.Capacity+n <= a.MaxCapacity
	}
	return a.Capacity >= n
}

// UseCapacity loads cargo for harvesters and spends supplies for the others.
func (a *Agent) UseCapacity(n int) bool {
	if n <= 0 || !a.CanUseCapacity(n) {
		return false
	}
	if a.Role == farm.RoleHarvester {
		a.Capacity += n
	} else {
		a.Capacity -= n
	}
	a.SuccessfulActions++
	return true
}

func (a *Agent) Efficiency() float64 {
	if a.FuelConsumed == 0 {
		return 100
	}
	return math.Min(100, float64(a.SuccessfulActions)/a.FuelConsumed*100)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
