package ports

import (
	"context"
	"time"

	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"
)

type AgentPolicy struct {
	AgentID int                  `json:"id"`
	Role    farm.Role            `json:"role"`
	Entries map[string][]float64 `json:"q_table"`
	Stats   agent.Stats          `json:"stats"`
}

type PolicySnapshot struct {
	RunID   string        `json:"run_id,omitempty"`
	Episode int           `json:"episode"`
	SavedAt time.Time     `json:"saved_at"`
	Agents  []AgentPolicy `json:"agents"`

	// Dropped counts stored entries and agents the repository could not
	// decode. They never reach the Q-tables.
	Dropped  int   `json:"-"`
	// BadStats lists the agents whose stored stats were unreadable.
	BadStats []int `json:"-"`
}

type PolicyRepository interface {
	Save(ctx context.Context, snapshot PolicySnapshot) error
	// Load returns ErrNotFound when no policy has been stored yet.
	Load(ctx context.Context) (PolicySnapshot, error)
}

type EpisodeRecord struct {
	RunID             string    `json:"run_id"`
	Episode           int       `json:"episode"`
	Reward            float64   `json:"reward"`
	Harvested         int       `json:"harvested"`
	Planted           int       `json:"planted"`
	Irrigated         int       `json:"irrigated"`
	TaskComplete      bool      `json:"task_complete"`
	Steps             int       `json:"steps"`
	AvgEpsilon        float64   `json:"avg_epsilon"`
	StatesLearned     int       `json:"total_states_learned"`
	FuelConsumed      float64   `json:"fuel_consumed"`
	AvgFuelEfficiency float64   `json:"avg_fuel_efficiency"`
	TimeSavedPct      float64   `json:"time_saved_pct"`
	FinishedAt        time.Time `json:"finished_at"`
}

type EpisodeRepository interface {
	Append(ctx context.Context, rec EpisodeRecord) error
	// ListByRun returns the newest records first.
	ListByRun(ctx context.Context, runID string, limit int) ([]EpisodeRecord, error)
}
