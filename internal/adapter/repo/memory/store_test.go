package memory

import (
	"context"
	"errors"
	"testing"

	"farmcycle/internal/app/ports"
	"farmcycle/internal/domain/farm"
)

func TestPolicyRepo_SaveLoadIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewPolicyRepo(NewStore())

	if _, err := repo.Load(ctx); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	snap := ports.PolicySnapshot{
		RunID:   "run-1",
		Episode: 4,
		Agents: []ports.AgentPolicy{
			{AgentID: 0, Role: farm.RolePlanter, Entries: map[string][]float64{"v1:0,0,0,0,0,0,0": {1, 2, 3, 4, 5}}},
		},
	}
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	snap.Agents[0].Entries["v1:0,0,0,0,0,0,0"][0] = 99

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.RunID != "run-1" || got.Episode != 4 || len(got.Agents) != 1 {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
	if v := got.Agents[0].Entries["v1:0,0,0,0,0,0,0"][0]; v != 1 {
		t.Fatalf("stored entry aliased caller slice: got=%v want=1", v)
	}
}

func TestEpisodeRepo_ListByRunNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewEpisodeRepo(NewStore())
	for ep := 1; ep <= 4; ep++ {
		if err := repo.Append(ctx, ports.EpisodeRecord{RunID: "a", Episode: ep}); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	if err := repo.Append(ctx, ports.EpisodeRecord{RunID: "b", Episode: 1}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := repo.Append(ctx, ports.EpisodeRecord{RunID: "a", Episode: 2}); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate episode, got %v", err)
	}

	got, err := repo.ListByRun(ctx, "a", 3)
	if err != nil {
		t.Fatalf("ListByRun error: %v", err)
	}
	if len(got) != 3 || got[0].Episode != 4 || got[2].Episode != 2 {
		t.Fatalf("list mismatch: %+v", got)
	}
	all, _ := repo.ListByRun(ctx, "b", 0)
	if len(all) != 1 {
		t.Fatalf("expected one record for run b, got %d", len(all))
	}
	none, _ := repo.ListByRun(ctx, "missing", 0)
	if len(none) != 0 {
		t.Fatalf("expected empty list, got %d", len(none))
	}
}
