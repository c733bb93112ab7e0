package inmemory

import (
	"sync"

	"farmcycle/internal/domain/farm"
)

type Snapshot struct {
	TickTotal       uint64            `json:"tick_total"`
	EpisodesEnded   uint64            `json:"episodes_ended"`
	Collisions      uint64            `json:"collisions"`
	OutOfFuelEvents uint64            `json:"out_of_fuel_events"`
	Recharges       uint64            `json:"recharges"`
	ActionTotal     uint64            `json:"action_total"`
	ByAction        map[string]uint64 `json:"by_action"`
	ByRole          map[string]uint64 `json:"by_role"`
}

type Recorder struct {
	mu         sync.Mutex
	ticks      uint64
	terminal   uint64
	collisions uint64
	outOfFuel  uint64
	recharges  uint64
	byAction   map[string]uint64
	byRole     map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byAction: map[string]uint64{},
		byRole:   map[string]uint64{},
	}
}

func (r *Recorder) RecordTick(terminal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	if terminal {
		r.terminal++
	}
}

func (r *Recorder) RecordCollisions(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collisions += uint64(n)
}

func (r *Recorder) RecordAction(role farm.Role, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAction[kind]++
	r.byRole[string(role)]++
}

func (r *Recorder) RecordOutOfFuel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outOfFuel++
}

func (r *Recorder) RecordRecharge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recharges++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		TickTotal:       r.ticks,
		EpisodesEnded:   r.terminal,
		Collisions:      r.collisions,
		OutOfFuelEvents: r.outOfFuel,
		Recharges:       r.recharges,
		ByAction:        make(map[string]uint64, len(r.byAction)),
		ByRole:          make(map[string]uint64, len(r.byRole)),
	}
	for k, v := range r.byAction {
		out.ByAction[k] = v
		out.ActionTotal += v
	}
	for k, v := range r.byRole {
		out.ByRole[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
