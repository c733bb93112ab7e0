package agent

import (
	"math/rand"
	"testing"

	"farmcycle/internal/domain/farm"
)

func TestConsumeFuel_RefusesOverdraft(t *testing.T) {
	a := newTestAgent(farm.RolePlanter, 10, 5)
	a.Fuel = 1

	if a.ConsumeFuel(1.5) {
		t.Fatalf("expected overdraft to fail")
	}
	if a.Fuel != 1 || a.OutOfFuel != 1 {
		t.Fatalf("overdraft mutated state: fuel=%v out_of_fuel=%d", a.Fuel, a.OutOfFuel)
	}
	if !a.ConsumeFuel(1) {
		t.Fatalf("expected exact spend to succeed")
	}
	if a.Fuel != 0 || a.FuelConsumed != 1 {
		t.Fatalf("fuel mismatch: fuel=%v consumed=%v", a.Fuel, a.FuelConsumed)
	}
}

func TestFuelThresholds_UseReportedPercentage(t *testing.T) {
	a := newTestAgent(farm.RolePlanter, 500, 100)
	a.Fuel = 50.5
	if a.FuelPercent() != 10 || !a.FuelCritical() || !a.FuelLow() {
		t.Fatalf("fuel 50.5/500: pct=%d critical=%v low=%v", a.FuelPercent(), a.FuelCritical(), a.FuelLow())
	}
	a.Fuel = 200
	if a.FuelPercent() <= FuelLowPct || a.FuelLow() {
		t.Fatalf("fuel 200/500: pct=%d low=%v", a.FuelPercent(), a.FuelLow())
	}
	a.Fuel = 154.9
	if a.FuelPercent() != 30 || !a.FuelLow() || a.FuelCritical() {
		t.Fatalf("fuel 154.9/500: pct=%d low=%v critical=%v", a.FuelPercent(), a.FuelLow(), a.FuelCritical())
	}
}

func TestShouldReturn_FuelBelowRoundTripMargin(t *testing.T) {
	a := newTestAgent(farm.RoleHarvester, 40, 10)
	a.Barn = farm.Point{X: 0, Y: 0}
	a.Pos = farm.Point{X: 6, Y: 4}
	a.Fuel = 5
	a.Capacity = 5

	if a.FuelCritical() {
		t.Fatalf("fixture must not be critical")
	}
	if !a.ShouldReturn() {
		t.Fatalf("expected return with fuel 5 and barn distance 10")
	}

	planter := newTestAgent(farm.RolePlanter, 500, 100)
	planter.Pos = farm.Point{X: 10, Y: 0}
	planter.Fuel = 5
	if !planter.ShouldReturn() {
		t.Fatalf("expected planter to return regardless of full cargo")
	}
}

func TestShouldReturn_RoleRules(t *testing.T) {
	cases := []struct {
		name     string
		role     farm.Role
		capacity int
		pos      farm.Point
		want     bool
	}{
		{name: "harvester full", role: farm.RoleHarvester, capacity: 10, pos: farm.Point{X: 20}, want: true},
		{name: "harvester mostly full near barn", role: farm.RoleHarvester, capacity: 8, pos: farm.Point{X: 4}, want: true},
		{name: "harvester mostly full far away", role: farm.RoleHarvester, capacity: 8, pos: farm.Point{X: 5}, want: false},
		{name: "harvester half", role: farm.RoleHarvester, capacity: 5, pos: farm.Point{X: 1}, want: false},
		{name: "planter empty", role: farm.RolePlanter, capacity: 0, pos: farm.Point{X: 20}, want: true},
		{name: "planter low near barn", role: farm.RolePlanter, capacity: 2, pos: farm.Point{X: 3}, want: true},
		{name: "planter low far away", role: farm.RolePlanter, capacity: 2, pos: farm.Point{X: 20}, want: false},
		{name: "irrigator stocked", role: farm.RoleIrrigator, capacity: 9, pos: farm.Point{X: 1}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAgent(tc.role, 1000, 10)
			a.Capacity = tc.capacity
			a.Pos = tc.pos
			if got := a.ShouldReturn(); got != tc.want {
				t.Fatalf("ShouldReturn mismatch: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestRechargeAtBarn_CompletesOnlyWhenTankIsFull(t *testing.T) {
	a := newTestAgent(farm.RoleHarvester, 500, 120)
	a.Pos = farm.Point{X: 1, Y: 2}
	a.Fuel = 50
	a.Capacity = 30
	a.Returning = true

	res := a.RechargeAtBarn(100)
	if !res.InProgress || res.Completed {
		t.Fatalf("first tick result mismatch: %+v", res)
	}
	if a.Capacity != 0 || a.Delivered != 30 {
		t.Fatalf("cargo not delivered on first tick: capacity=%d delivered=%d", a.Capacity, a.Delivered)
	}
	ticks := 1
	for !res.Completed && ticks < 10 {
		res = a.RechargeAtBarn(100)
		ticks++
	}
	if ticks != 5 {
		t.Fatalf("expected completion on tick 5, got %d", ticks)
	}
	if a.Returning || a.BarnVisits != 1 || a.FuelRefills != 1 || a.Fuel != 500 {
		t.Fatalf("completion state mismatch: returning=%v visits=%d refills=%d fuel=%v", a.Returning, a.BarnVisits, a.FuelRefills, a.Fuel)
	}
}

func TestRechargeAtBarn_SupplierRefillsAndFullTankTakesOneTick(t *testing.T) {
	a := newTestAgent(farm.RoleIrrigator, 550, 200)
	a.Pos = farm.Point{X: 2, Y: 0}
	a.Capacity = 3
	a.Returning = true

	res := a.RechargeAtBarn(100)
	if !res.Completed {
		t.Fatalf("full tank visit must complete in one tick")
	}
	if a.Capacity != 200 {
		t.Fatalf("expected refill to 200, got %d", a.Capacity)
	}
}

func TestRechargeAtBarn_AwayFromBarnDoesNothing(t *testing.T) {
	a := newTestAgent(farm.RolePlanter, 100, 10)
	a.Pos = farm.Point{X: 3, Y: 0}
	a.Fuel = 10
	if res := a.RechargeAtBarn(100); res.InProgress {
		t.Fatalf("expected no recharge outside the barn box")
	}

	a.Returning = true
	a.Pos = farm.Point{X: 2, Y: 0}
	if !a.InParkingZone() {
		t.Fatalf("expected parking zone for returning agent")
	}
}

func TestResourceBoundsHoldUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, role := range farm.AllRoles() {
		a := newTestAgent(role, 50, 8)
		for i := 0; i < 5000; i++ {
			switch rng.Intn(4) {
			case 0:
				a.ConsumeFuel(rng.Float64() * 5)
			case 1:
				a.UseCapacity(1 + rng.Intn(2))
			case 2:
				a.Pos = farm.Point{X: rng.Intn(5), Y: rng.Intn(5)}
				a.Returning = rng.Intn(2) == 0
				a.RechargeAtBarn(rng.Float64() * 30)
			case 3:
				a.ShouldReturn()
			}
			if a.Fuel < 0 || a.Fuel > a.MaxFuel {
				t.Fatalf("%s fuel out of bounds: %v", role, a.Fuel)
			}
			if a.Capacity < 0 || a.Capacity > a.MaxCapacity {
				t.Fatalf("%s capacity out of bounds: %d", role, a.Capacity)
			}
		}
	}
}

func TestEfficiency(t *testing.T) {
	a := newTestAgent(farm.RolePlanter, 100, 10)
	if got := a.Efficiency(); got != 100 {
		t.Fatalf("idle efficiency mismatch: got=%v", got)
	}
	a.UseCapacity(1)
	a.ConsumeFuel(4)
	if got := a.Efficiency(); got != 25 {
		t.Fatalf("efficiency mismatch: got=%v want=25", got)
	}
}
