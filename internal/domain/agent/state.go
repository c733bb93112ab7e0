package agent

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"farmcycle/internal/domain/farm"
)

const (
	MaxDelta        = 8
	CapacityLevels  = 5
	FuelLevels      = 5
	BarnBuckets     = 6
	barnBucketWidth = 10

	stateKeyVersion = "v1"
	stateKeyFields  = 7
)

var ErrBadStateKey = errors.New("bad state key")

type Observation struct {
	AgentID int
	Role    farm.Role
	Pos     farm.Point
	Goal    farm.Point
	// Nearby holds cells treated as occupied for the neighbour mask.
	Nearby farm.PointSet
}

// State is the discretised observation used as the Q-table key.
type State struct {
	DX        int8
	DY        int8
	Occupancy uint8
	Capacity  uint8
	BarnDist  uint8
	Fuel      uint8
	Returning bool
}

func (a *Agent) Discretize(obs Observation) State {
	var occ uint8
	for i, d := range farm.Neighbors4 {
		if obs.Nearby.Has(obs.Pos.Add(d.X, d.Y)) {
			occ |= 1 << i
		}
	}
	return State{
		DX:        int8(clampInt(obs.Goal.X-obs.Pos.X, -MaxDelta, MaxDelta)),
		DY:        int8(clampInt(obs.Goal.Y-obs.Pos.Y, -MaxDelta, MaxDelta)),
		Occupancy: occ,
		Capacity:  uint8(level(float64(a.Capacity), float64(a.MaxCapacity), CapacityLevels)),
		BarnDist:  uint8(min(BarnBuckets-1, farm.Manhattan(obs.Pos, a.Barn)/barnBucketWidth)),
		Fuel:      uint8(level(a.Fuel, a.MaxFuel, FuelLevels)),
		Returning: a.Returning,
	}
}

// Key encodes the state as "v1:dx,dy,occ,cap,barn,fuel,ret".
func (s State) Key() string {
	ret := 0
	if s.Returning {
		ret = 1
	}
	return fmt.Sprintf("%s:%d,%d,%d,%d,%d,%d,%d", stateKeyVersion, s.DX, s.DY, s.Occupancy, s.Capacity, s.BarnDist, s.Fuel, ret)
}

func ParseStateKey(key string) (State, error) {
	version, body, ok := strings.Cut(key, ":")
	if !ok || version != stateKeyVersion {
		return State{}, fmt.Errorf("%w: unsupported version in %q", ErrBadStateKey, key)
	}
	parts := strings.Split(body, ",")
	if len(parts) != stateKeyFields {
		return State{}, fmt.Errorf("%w: want %d fields in %q", ErrBadStateKey, stateKeyFields, key)
	}
	vals := make([]int, stateKeyFields)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return State{}, fmt.Errorf("%w: field %d of %q: %v", ErrBadStateKey, i, key, err)
		}
		vals[i] = n
	}
	bounds := [stateKeyFields][2]int{
		{-MaxDelta, MaxDelta},
		{-MaxDelta, MaxDelta},
		{0, 15},
		{0, CapacityLevels - 1},
		{0, BarnBuckets - 1},
		{0, FuelLevels - 1},
		{0, 1},
	}
	for i, b := range bounds {
		if vals[i] < b[0] || vals[i] > b[1] {
			return State{}, fmt.Errorf("%w: field %d of %q out of range", ErrBadStateKey, i, key)
		}
	}
	return State{
		DX:        int8(vals[0]),
		DY:        int8(vals[1]),
		Occupancy: uint8(vals[2]),
		Capacity:  uint8(vals[3]),
		BarnDist:  uint8(vals[4]),
		Fuel:      uint8(vals[5]),
		Returning: vals[6] == 1,
	}, nil
}

func level(v, maxV float64, levels int) int {
	if maxV <= 0 {
		return 0
	}
	return clampInt(int(v/maxV*float64(levels)), 0, levels-1)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
