package sim

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"farmcycle/internal/app/ports"
	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"
)

// testLayout is a 12x10 field with one parcel whose interior is x 5..7,
// y 3..6. Barns sit in three corners, the manager in the fourth.
func testLayout() farm.Layout {
	return farm.Layout{
		Width:  12,
		Height: 10,
		Parcels: []farm.Parcel{
			{Name: "test", XStart: 4, XEnd: 9, YStart: 2, YEnd: 8},
		},
		Barns: map[farm.Role]farm.Point{
			farm.RolePlanter:   {X: 0, Y: 0},
			farm.RoleHarvester: {X: 10, Y: 0},
			farm.RoleIrrigator: {X: 0, Y: 8},
		},
		Manager:   farm.Point{X: 10, Y: 8},
		CropCount: 1,
		Seed:      7,
	}
}

func testAgentSpecs() []AgentSpec {
	return []AgentSpec{
		{Role: farm.RolePlanter, Start: farm.Point{X: 3, Y: 2}},
		{Role: farm.RoleHarvester, Start: farm.Point{X: 7, Y: 0}},
		{Role: farm.RoleIrrigator, Start: farm.Point{X: 3, Y: 9}},
	}
}

func mustWorld(t *testing.T, l farm.Layout) *farm.World {
	t.Helper()
	w, err := farm.NewWorld(l)
	if err != nil {
		t.Fatalf("NewWorld error: %v", err)
	}
	return w
}

func buildAgents(w *farm.World, specs []AgentSpec, tuning Tuning) []*agent.Agent {
	out := make([]*agent.Agent, 0, len(specs))
	for i, spec := range specs {
		rs := tuning.Roles[spec.Role]
		out = append(out, agent.New(i, agent.Profile{
			Role:        spec.Role,
			Start:       spec.Start,
			Barn:        w.BarnFor(spec.Role),
			MaxFuel:     rs.MaxFuel,
			MaxCapacity: rs.MaxCapacity,
		}, agent.RoleLearnParams(spec.Role)))
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		Layout: testLayout(),
		Agents: testAgentSpecs(),
		Tuning: DefaultTuning(),
		Run: RunDefaults{
			Episodes:        2,
			StepsPerEpisode: 40,
			SaveEvery:       2,
			ServeInterval:   2 * time.Millisecond,
			BaselineSteps:   1000,
		},
		Logger:   discardLogger(),
		Seed:     11,
		NewRunID: func() string { return "run-test" },
		Now:      func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	return e
}

func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("loop did not finish: %v", err)
	}
	if got := e.Mode(); got != ModeIdle {
		t.Fatalf("expected idle after loop exit, got %s", got)
	}
}

type fakePolicyRepo struct {
	mu    sync.Mutex
	snap  *ports.PolicySnapshot
	saves int
	loads int
	err   error
}

func (r *fakePolicyRepo) Save(_ context.Context, snap ports.PolicySnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves++
	r.snap = &snap
	return nil
}

func (r *fakePolicyRepo) Load(_ context.Context) (ports.PolicySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.err != nil {
		return ports.PolicySnapshot{}, r.err
	}
	if r.snap == nil {
		return ports.PolicySnapshot{}, ports.ErrNotFound
	}
	return *r.snap, nil
}

func (r *fakePolicyRepo) counts() (saves, loads int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves, r.loads
}

type fakeEpisodeRepo struct {
	mu   sync.Mutex
	recs []ports.EpisodeRecord
}

func (r *fakeEpisodeRepo) Append(_ context.Context, rec ports.EpisodeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *fakeEpisodeRepo) ListByRun(_ context.Context, runID string, limit int) ([]ports.EpisodeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ports.EpisodeRecord
	for i := len(r.recs) - 1; i >= 0; i-- {
		if r.recs[i].RunID == runID {
			out = append(out, r.recs[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeMetrics struct {
	mu         sync.Mutex
	ticks      int
	terminal   int
	collisions int
	actions    map[string]int
}

func (m *fakeMetrics) RecordTick(terminal bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
	if terminal {
		m.terminal++
	}
}

func (m *fakeMetrics) RecordCollisions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collisions += n
}

func (m *fakeMetrics) RecordAction(role farm.Role, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actions == nil {
		m.actions = make(map[string]int)
	}
	m.actions[string(role)+":"+kind]++
}

func (m *fakeMetrics) RecordOutOfFuel() {}

func (m *fakeMetrics) RecordRecharge() {}
