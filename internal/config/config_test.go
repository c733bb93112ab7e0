package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"farmcycle/internal/app/sim"
	"farmcycle/internal/domain/farm"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "farmcycle.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Agents) != 6 || cfg.Grid.Width != 60 || cfg.Grid.Height != 40 {
		t.Fatalf("default shape mismatch: agents=%d grid=%dx%d", len(cfg.Agents), cfg.Grid.Width, cfg.Grid.Height)
	}
	if cfg.Learn() != nil {
		t.Fatalf("expected per-role learning params by default")
	}
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  stream_interval: 250ms
training:
  episodes: 7
  serve_interval: 50ms
grid:
  crop_count: 40
learning:
  pin: true
  alpha: 0.3
tuning:
  roles:
    planter:
      max_fuel: 300
      max_capacity: 80
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.StreamAddr != ":8081" || cfg.Server.StreamInterval != 250*time.Millisecond {
		t.Fatalf("server mismatch: %+v", cfg.Server)
	}
	if cfg.Training.Episodes != 7 || cfg.Training.StepsPerEpisode != 2000 || cfg.Training.ServeInterval != 50*time.Millisecond {
		t.Fatalf("training mismatch: %+v", cfg.Training)
	}
	if cfg.Grid.CropCount != 40 || len(cfg.Grid.Parcels) != 2 {
		t.Fatalf("grid mismatch: %+v", cfg.Grid)
	}
	p := cfg.Learn()
	if p == nil || p.Alpha != 0.3 || p.Gamma != 0.95 {
		t.Fatalf("pinned params mismatch: %+v", p)
	}
	if rs := cfg.Tuning.Roles[farm.RolePlanter]; rs.MaxFuel != 300 || rs.MaxCapacity != 80 {
		t.Fatalf("planter tuning mismatch: %+v", rs)
	}
	if rs := cfg.Tuning.Roles[farm.RoleIrrigator]; rs.MaxFuel != 550 {
		t.Fatalf("irrigator tuning should keep its default, got %+v", rs)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FARMCYCLE_ADDR", ":7000")
	t.Setenv("FARMCYCLE_EPISODES", "3")
	t.Setenv("FARMCYCLE_STEPS_PER_EPISODE", "not-a-number")
	t.Setenv("FARMCYCLE_EPS", "0.2")
	t.Setenv("FARMCYCLE_POLICY_STORE", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Addr != ":7000" || cfg.Training.Episodes != 3 {
		t.Fatalf("env overrides not applied: addr=%q episodes=%d", cfg.Server.Addr, cfg.Training.Episodes)
	}
	if cfg.Training.StepsPerEpisode != 2000 {
		t.Fatalf("unparsable env must fall back, got %d", cfg.Training.StepsPerEpisode)
	}
	if p := cfg.Learn(); p == nil || p.Epsilon != 0.2 {
		t.Fatalf("FARMCYCLE_EPS should pin params, got %+v", p)
	}
	if cfg.Storage.Policy != PolicyStoreMemory {
		t.Fatalf("policy store mismatch: %q", cfg.Storage.Policy)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"no agents":         func(c *Config) { c.Agents = nil },
		"degenerate grid":   func(c *Config) { c.Grid.Width = 2 },
		"overlap parcels":   func(c *Config) { c.Grid.Parcels[1].XStart = 20 },
		"missing barn":      func(c *Config) { delete(c.Grid.Barns, farm.RoleHarvester) },
		"too many crops":    func(c *Config) { c.Grid.CropCount = 100000 },
		"unknown role":      func(c *Config) { c.Agents[0].Role = "pilot" },
		"agent off grid":    func(c *Config) { c.Agents[0].Start = farm.Point{X: -1, Y: 0} },
		"shared start":      func(c *Config) { c.Agents[1].Start = c.Agents[0].Start },
		"pinned alpha zero": func(c *Config) { c.Learning.Pin, c.Learning.Alpha = true, 0 },
		"eps decay zero":    func(c *Config) { c.Learning.EpsilonDecay = 0 },
		"no episodes":       func(c *Config) { c.Training.Episodes = 0 },
		"file without path": func(c *Config) { c.Storage.PolicyPath = " " },
		"postgres sans dsn": func(c *Config) { c.Storage.Policy = PolicyStorePostgres },
		"unknown store":     func(c *Config) { c.Storage.Policy = "s3" },
		"bad log level":     func(c *Config) { c.Log.Level = "chatty" },
		"zero fuel":         func(c *Config) { c.Tuning.Roles[farm.RolePlanter] = sim.RoleSpec{MaxCapacity: 10} },
		"no recharge":       func(c *Config) { c.Tuning.RechargeRate = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Seed = 42
	opts := cfg.EngineOptions()
	if opts.Seed != 42 || len(opts.Agents) != 6 || opts.Layout.ObstacleCount != 30 || opts.Run.SaveEvery != 10 {
		t.Fatalf("engine options mismatch: %+v", opts)
	}
	if opts.Learn != nil || opts.Decay != 0.995 || opts.MinEpsilon != 0.01 {
		t.Fatalf("exploration schedule mismatch: learn=%v decay=%v min=%v", opts.Learn, opts.Decay, opts.MinEpsilon)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "farmcycle.example.yaml"))
	if err != nil {
		t.Fatalf("example config invalid: %v", err)
	}
	if cfg.Storage.StatsPath != "data/stats.db" || len(cfg.Agents) != 6 {
		t.Fatalf("example config mismatch: %+v", cfg.Storage)
	}
}
