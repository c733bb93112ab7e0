// Package sqliterepo keeps training statistics in a local SQLite file so
// headless runs can be inspected without a database server.
package sqliterepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"farmcycle/internal/app/ports"
)

type DB struct {
	conn *sqlx.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS episode_records (
		run_id TEXT NOT NULL,
		episode INTEGER NOT NULL,
		reward REAL NOT NULL,
		harvested INTEGER NOT NULL,
		planted INTEGER NOT NULL,
		irrigated INTEGER NOT NULL,
		task_complete INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		avg_epsilon REAL NOT NULL,
		states_learned INTEGER NOT NULL,
		fuel_consumed REAL NOT NULL,
		avg_fuel_efficiency REAL NOT NULL,
		time_saved_pct REAL NOT NULL,
		finished_at TEXT NOT NULL,
		PRIMARY KEY (run_id, episode)
	);

	CREATE INDEX IF NOT EXISTS idx_episode_records_finished ON episode_records(finished_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type episodeRow struct {
	RunID             string  `db:"run_id"`
	Episode           int     `db:"episode"`
	Reward            float64 `db:"reward"`
	Harvested         int     `db:"harvested"`
	Planted           int     `db:"planted"`
	Irrigated         int     `db:"irrigated"`
	TaskComplete      bool    `db:"task_complete"`
	Steps             int     `db:"steps"`
	AvgEpsilon        float64 `db:"avg_epsilon"`
	StatesLearned     int     `db:"states_learned"`
	FuelConsumed      float64 `db:"fuel_consumed"`
	AvgFuelEfficiency float64 `db:"avg_fuel_efficiency"`
	TimeSavedPct      float64 `db:"time_saved_pct"`
	FinishedAt        string  `db:"finished_at"`
}

func (r episodeRow) record() ports.EpisodeRecord {
	finished, _ := time.Parse(time.RFC3339Nano, r.FinishedAt)
	return ports.EpisodeRecord{
		RunID:             r.RunID,
		Episode:           r.Episode,
		Reward:            r.Reward,
		Harvested:         r.Harvested,
		Planted:           r.Planted,
		Irrigated:         r.Irrigated,
		TaskComplete:      r.TaskComplete,
		Steps:             r.Steps,
		AvgEpsilon:        r.AvgEpsilon,
		StatesLearned:     r.StatesLearned,
		FuelConsumed:      r.FuelConsumed,
		AvgFuelEfficiency: r.AvgFuelEfficiency,
		TimeSavedPct:      r.TimeSavedPct,
		FinishedAt:        finished,
	}
}

// Append implements ports.EpisodeRepository. A second record for the same
// run and episode is rejected with ports.ErrConflict.
func (db *DB) Append(ctx context.Context, rec ports.EpisodeRecord) error {
	row := episodeRow{
		RunID:             rec.RunID,
		Episode:           rec.Episode,
		Reward:            rec.Reward,
		Harvested:         rec.Harvested,
		Planted:           rec.Planted,
		Irrigated:         rec.Irrigated,
		TaskComplete:      rec.TaskComplete,
		Steps:             rec.Steps,
		AvgEpsilon:        rec.AvgEpsilon,
		StatesLearned:     rec.StatesLearned,
		FuelConsumed:      rec.FuelConsumed,
		AvgFuelEfficiency: rec.AvgFuelEfficiency,
		TimeSavedPct:      rec.TimeSavedPct,
		FinishedAt:        rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	}
	res, err := db.conn.NamedExecContext(ctx, `INSERT OR IGNORE INTO episode_records
		(run_id, episode, reward, harvested, planted, irrigated, task_complete, steps,
		 avg_epsilon, states_learned, fuel_consumed, avg_fuel_efficiency, time_saved_pct, finished_at)
		VALUES (:run_id, :episode, :reward, :harvested, :planted, :irrigated, :task_complete, :steps,
		 :avg_epsilon, :states_learned, :fuel_consumed, :avg_fuel_efficiency, :time_saved_pct, :finished_at)`, row)
	if err != nil {
		return fmt.Errorf("insert episode %s/%d: %w", rec.RunID, rec.Episode, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrConflict
	}
	return nil
}

// ListByRun returns the run's records newest first. limit <= 0 means all.
func (db *DB) ListByRun(ctx context.Context, runID string, limit int) ([]ports.EpisodeRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []episodeRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM episode_records WHERE run_id = ? ORDER BY episode DESC LIMIT ?",
		runID, limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]ports.EpisodeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

type RunSummary struct {
	RunID       string    `db:"run_id" json:"run_id"`
	Episodes    int       `db:"episodes" json:"episodes"`
	BestReward  float64   `db:"best_reward" json:"best_reward"`
	Completed   int       `db:"completed" json:"completed"`
	AvgSteps    float64   `db:"avg_steps" json:"avg_steps"`
	LastEpisode string    `db:"last_finished" json:"-"`
	FinishedAt  time.Time `db:"-" json:"finished_at"`
}

// Runs summarises every stored run, most recently finished first.
func (db *DB) Runs(ctx context.Context) ([]RunSummary, error) {
	var out []RunSummary
	err := db.conn.SelectContext(ctx, &out, `
		SELECT run_id,
		       COUNT(*) AS episodes,
		       MAX(reward) AS best_reward,
		       SUM(task_complete) AS completed,
		       AVG(steps) AS avg_steps,
		       MAX(finished_at) AS last_finished
		FROM episode_records
		GROUP BY run_id
		ORDER BY last_finished DESC`)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].FinishedAt, _ = time.Parse(time.RFC3339Nano, out[i].LastEpisode)
	}
	return out, nil
}
