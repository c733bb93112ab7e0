package policyfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"farmcycle/internal/app/ports"
	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "policies", "q.json.zst"))

	key := agent.State{DX: -3, DY: 4, Fuel: 2}.Key()
	snap := ports.PolicySnapshot{
		RunID:   "run-1",
		Episode: 20,
		SavedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		Agents: []ports.AgentPolicy{
			{AgentID: 0, Role: farm.RolePlanter, Entries: map[string][]float64{key: {0.1, -0.2, 0, 3.5, 1}}, Stats: agent.Stats{ID: 0, Planted: 12}},
			{AgentID: 1, Role: farm.RoleIrrigator, Entries: map[string][]float64{}},
		},
	}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.RunID != "run-1" || got.Episode != 20 || !got.SavedAt.Equal(snap.SavedAt) {
		t.Fatalf("header mismatch: %+v", got)
	}
	if v := got.Agents[0].Entries[key]; len(v) != 5 || v[3] != 3.5 {
		t.Fatalf("entries mismatch: %v", v)
	}
	if got.Agents[0].Stats.Planted != 12 || got.Agents[1].Role != farm.RoleIrrigator {
		t.Fatalf("agents mismatch: %+v", got.Agents)
	}

	info, _, err := s.Inspect(ctx)
	if err != nil {
		t.Fatalf("Inspect error: %v", err)
	}
	if info.Agents != 2 || info.Entries != 1 || info.CompressedBytes <= 0 || info.RawBytes <= 0 {
		t.Fatalf("info mismatch: %+v", info)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path), "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temporary files left behind: %v", matches)
	}
}

func TestStore_MissingFileIsNotFound(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent.zst"))
	if _, err := s.Load(context.Background()); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Inspect(context.Background()); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Inspect, got %v", err)
	}
}

func writeCompressed(t *testing.T, path string, body string) {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write([]byte(body)); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestStore_RejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"wrong format":   `{"format":"other","version":1,"agents":[]}`,
		"future version": `{"format":"farmcycle.policy","version":2,"agents":[]}`,
		"agents object":  `{"format":"farmcycle.policy","version":1,"agents":{}}`,
		"agent not obj":  `{"format":"farmcycle.policy","version":1,"agents":[3]}`,
		"not json":       `{"format":`,
	}
	dir := t.TempDir()
	for name, body := range cases {
		path := filepath.Join(dir, name+".zst")
		writeCompressed(t, path, body)
		if _, err := New(path).Load(context.Background()); !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("%s: expected ErrInvalidDocument, got %v", name, err)
		}
	}
}

func TestStore_WrongVectorLengthPassesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.zst")
	writeCompressed(t, path, `{"format":"farmcycle.policy","version":1,"agents":[{"id":0,"role":"planter","q_table":{"v1:0,0,0,0,0,0,0":[1,2]}}]}`)

	got, err := New(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got.Agents) != 1 || len(got.Agents[0].Entries["v1:0,0,0,0,0,0,0"]) != 2 {
		t.Fatalf("expected the short vector to reach import, got %+v", got.Agents)
	}
}

func TestStore_LoadKeepsDecodableEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.zst")
	good := agent.State{DX: 1}.Key()
	other := agent.State{DY: 2}.Key()
	writeCompressed(t, path, `{"format":"farmcycle.policy","version":1,"agents":[`+
		`{"id":0,"role":"planter","q_table":{"`+good+`":[1,2,3,4,5],"`+other+`":[1,null,3,4,5]},"stats":{"planted":"many"}},`+
		`{"id":1,"role":"harvester","q_table":{"`+good+`":[0,0,0,0,9],"`+other+`":["a"]}},`+
		`{"id":2,"role":"pilot","q_table":{"`+good+`":[0,0,0,0,0]}},`+
		`{"id":3,"role":"irrigator","q_table":[1,2]}]}`)

	got, err := New(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got.Agents) != 3 || got.Dropped != 3 {
		t.Fatalf("partial load mismatch: agents=%d dropped=%d", len(got.Agents), got.Dropped)
	}
	if v := got.Agents[0].Entries[good]; len(v) != 5 || v[4] != 5 {
		t.Fatalf("agent 0 good entry lost: %v", got.Agents[0].Entries)
	}
	if _, ok := got.Agents[0].Entries[other]; ok {
		t.Fatalf("null vector should have been dropped")
	}
	if v := got.Agents[1].Entries[good]; len(v) != 5 || v[4] != 9 || len(got.Agents[1].Entries) != 1 {
		t.Fatalf("agent 1 entries mismatch: %v", got.Agents[1].Entries)
	}
	if got.Agents[2].Role != farm.Role("pilot") {
		t.Fatalf("unknown role should reach the engine's role check, got %q", got.Agents[2].Role)
	}
	if len(got.BadStats) != 1 || got.BadStats[0] != 0 {
		t.Fatalf("bad stats mismatch: %v", got.BadStats)
	}
}
