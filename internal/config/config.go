// Package config loads the farm layout, agents, learning parameters and
// service settings from YAML with FARMCYCLE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"farmcycle/internal/app/sim"
	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	PolicyStoreMemory   = "memory"
	PolicyStoreFile     = "file"
	PolicyStorePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Storage  StorageConfig   `yaml:"storage"`
	Grid     GridConfig      `yaml:"grid"`
	Agents   []sim.AgentSpec `yaml:"agents"`
	Learning LearningConfig  `yaml:"learning"`
	Training sim.RunDefaults `yaml:"training"`
	Tuning   sim.Tuning      `yaml:"tuning"`
	// Seed drives exploration; 0 picks a time-based seed.
	Seed int64 `yaml:"seed"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	StreamAddr     string        `yaml:"stream_addr"`
	StreamInterval time.Duration `yaml:"stream_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StorageConfig struct {
	// Policy selects where policies and episode records go: memory, file
	// or postgres.
	Policy      string `yaml:"policy"`
	PolicyPath  string `yaml:"policy_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// StatsPath, when set, keeps episode records in a local SQLite file
	// regardless of the policy store.
	StatsPath string `yaml:"stats_path"`
	Migrate   bool   `yaml:"migrate"`
}

type GridConfig struct {
	Width        int                      `yaml:"width"`
	Height       int                      `yaml:"height"`
	Parcels      []farm.Parcel            `yaml:"parcels"`
	Barns        map[farm.Role]farm.Point `yaml:"barns"`
	Manager      farm.Point               `yaml:"manager"`
	CropCount    int                      `yaml:"crop_count"`
	InitialCrops int                      `yaml:"initial_crops"`
	Obstacles    int                      `yaml:"obstacles"`
	Seed         int64                    `yaml:"seed"`
}

// LearningConfig pins one parameter set for every role when Pin is set;
// otherwise the per-role defaults apply.
type LearningConfig struct {
	Pin               bool `yaml:"pin"`
	agent.LearnParams `yaml:",inline"`
}

func Default() Config {
	l := farm.DefaultLayout()
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			StreamAddr:     ":8081",
			StreamInterval: 100 * time.Millisecond,
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			Policy:     PolicyStoreFile,
			PolicyPath: "data/policy.json.zst",
		},
		Grid: GridConfig{
			Width:        l.Width,
			Height:       l.Height,
			Parcels:      l.Parcels,
			Barns:        l.Barns,
			Manager:      l.Manager,
			CropCount:    l.CropCount,
			InitialCrops: l.InitialCrops,
			Obstacles:    l.ObstacleCount,
		},
		Agents:   sim.DefaultAgents(l.Width, l.Height),
		Learning: LearningConfig{LearnParams: agent.DefaultLearnParams()},
		Training: sim.DefaultRunDefaults(),
		Tuning:   sim.DefaultTuning(),
	}
}

// Load reads path over Default, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = stringEnv("FARMCYCLE_ADDR", c.Server.Addr)
	c.Server.StreamAddr = stringEnv("FARMCYCLE_STREAM_ADDR", c.Server.StreamAddr)
	c.Log.Level = stringEnv("FARMCYCLE_LOG_LEVEL", c.Log.Level)

	c.Storage.Policy = stringEnv("FARMCYCLE_POLICY_STORE", c.Storage.Policy)
	c.Storage.PolicyPath = stringEnv("FARMCYCLE_POLICY_PATH", c.Storage.PolicyPath)
	c.Storage.PostgresDSN = stringEnv("FARMCYCLE_DB_DSN", c.Storage.PostgresDSN)
	c.Storage.StatsPath = stringEnv("FARMCYCLE_STATS_PATH", c.Storage.StatsPath)

	c.Training.Episodes = intEnv("FARMCYCLE_EPISODES", c.Training.Episodes)
	c.Training.StepsPerEpisode = intEnv("FARMCYCLE_STEPS_PER_EPISODE", c.Training.StepsPerEpisode)
	c.Training.SaveEvery = intEnv("FARMCYCLE_SAVE_EVERY", c.Training.SaveEvery)
	c.Grid.CropCount = intEnv("FARMCYCLE_CROP_COUNT", c.Grid.CropCount)
	c.Seed = int64(intEnv("FARMCYCLE_SEED", int(c.Seed)))

	pinned := false
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"FARMCYCLE_ALPHA", &c.Learning.Alpha},
		{"FARMCYCLE_GAMMA", &c.Learning.Gamma},
		{"FARMCYCLE_EPS", &c.Learning.Epsilon},
	} {
		if v, ok := floatEnv(f.key); ok {
			*f.dst = v
			pinned = true
		}
	}
	if pinned {
		c.Learning.Pin = true
	}
	if v, ok := floatEnv("FARMCYCLE_EPS_DECAY"); ok {
		c.Learning.EpsilonDecay = v
	}
}

func (c Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("%w: at least one agent is required", ErrInvalidConfig)
	}
	layout := c.Layout()
	if err := layout.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	seen := make(map[farm.Point]bool, len(c.Agents))
	for i, a := range c.Agents {
		if !a.Role.Valid() {
			return fmt.Errorf("%w: agent %d has unknown role %q", ErrInvalidConfig, i, a.Role)
		}
		if !layout.InBounds(a.Start) {
			return fmt.Errorf("%w: agent %d starts out of bounds", ErrInvalidConfig, i)
		}
		if seen[a.Start] {
			return fmt.Errorf("%w: agents share start cell (%d,%d)", ErrInvalidConfig, a.Start.X, a.Start.Y)
		}
		seen[a.Start] = true
	}
	for _, role := range farm.AllRoles() {
		rs, ok := c.Tuning.Roles[role]
		if !ok || rs.MaxFuel <= 0 || rs.MaxCapacity <= 0 {
			return fmt.Errorf("%w: tuning for %s needs positive max_fuel and max_capacity", ErrInvalidConfig, role)
		}
	}
	if c.Tuning.MoveCost < 0 || c.Tuning.RechargeRate <= 0 {
		return fmt.Errorf("%w: move_cost must be >= 0 and recharge_rate > 0", ErrInvalidConfig)
	}
	if err := c.validateLearning(); err != nil {
		return err
	}
	if c.Training.Episodes <= 0 || c.Training.StepsPerEpisode <= 0 {
		return fmt.Errorf("%w: training episodes and steps_per_episode must be positive", ErrInvalidConfig)
	}
	if c.Training.SaveEvery < 0 {
		return fmt.Errorf("%w: save_every must not be negative", ErrInvalidConfig)
	}
	switch c.Storage.Policy {
	case PolicyStoreMemory:
	case PolicyStoreFile:
		if strings.TrimSpace(c.Storage.PolicyPath) == "" {
			return fmt.Errorf("%w: policy_path is required for the file store", ErrInvalidConfig)
		}
	case PolicyStorePostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres_dsn (FARMCYCLE_DB_DSN) is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown policy store %q", ErrInvalidConfig, c.Storage.Policy)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c Config) validateLearning() error {
	p := c.Learning.LearnParams
	in := func(v, lo, hi float64) bool { return v >= lo && v <= hi }
	switch {
	case !in(p.EpsilonDecay, 0, 1) || p.EpsilonDecay == 0:
		return fmt.Errorf("%w: eps_decay must be in (0,1]", ErrInvalidConfig)
	case !in(p.EpsilonMin, 0, 1):
		return fmt.Errorf("%w: eps_min must be in [0,1]", ErrInvalidConfig)
	case !c.Learning.Pin:
		return nil
	case !in(p.Alpha, 0, 1) || p.Alpha == 0:
		return fmt.Errorf("%w: alpha must be in (0,1]", ErrInvalidConfig)
	case !in(p.Gamma, 0, 1):
		return fmt.Errorf("%w: gamma must be in [0,1]", ErrInvalidConfig)
	case !in(p.Epsilon, 0, 1):
		return fmt.Errorf("%w: eps must be in [0,1]", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Layout() farm.Layout {
	return farm.Layout{
		Width:         c.Grid.Width,
		Height:        c.Grid.Height,
		Parcels:       c.Grid.Parcels,
		Barns:         c.Grid.Barns,
		Manager:       c.Grid.Manager,
		CropCount:     c.Grid.CropCount,
		InitialCrops:  c.Grid.InitialCrops,
		ObstacleCount: c.Grid.Obstacles,
		Seed:          c.Grid.Seed,
	}
}

// Learn returns the pinned parameters, or nil for per-role defaults.
func (c Config) Learn() *agent.LearnParams {
	if !c.Learning.Pin {
		return nil
	}
	p := c.Learning.LearnParams
	return &p
}

func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return lvl, nil
}

// EngineOptions maps the config onto sim.Options; repositories, metrics
// and the logger are wired by the caller.
func (c Config) EngineOptions() sim.Options {
	return sim.Options{
		Layout: c.Layout(),
		Agents: c.Agents,
		Tuning: c.Tuning,
		Run:    c.Training,
		Learn:  c.Learn(),
		Seed:   c.Seed,

		Decay:      c.Learning.EpsilonDecay,
		MinEpsilon: c.Learning.EpsilonMin,
	}
}

func stringEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func floatEnv(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
