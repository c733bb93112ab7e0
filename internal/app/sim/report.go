package sim

import (
	"fmt"
	"math"

	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"
)

type AgentView struct {
	ID             int        `json:"id"`
	Pos            farm.Point `json:"pos"`
	Role           farm.Role  `json:"role"`
	Goal           farm.Point `json:"goal"`
	Harvested      int        `json:"harvested"`
	Planted        int        `json:"planted"`
	Irrigated      int        `json:"irrigated"`
	Delivered      int        `json:"delivered"`
	CapacityPct    int        `json:"capacity_pct"`
	FuelPct        int        `json:"fuel_pct"`
	Fuel           float64    `json:"current_fuel"`
	IsReturning    bool       `json:"is_returning"`
	IsFuelLow      bool       `json:"is_fuel_low"`
	IsFuelCritical bool       `json:"is_fuel_critical"`
	Epsilon        float64    `json:"epsilon"`
	StatesLearned  int        `json:"states_learned"`
	FuelEfficiency float64    `json:"fuel_efficiency"`
}

type Objectives struct {
	Planted    string `json:"planted"`
	Irrigated  string `json:"irrigated"`
	Harvested  string `json:"harvested"`
	Completion int    `json:"completion"`
}

type FuelSummary struct {
	AvgFuelPct        float64 `json:"avg_fuel_pct"`
	LowFuelAgents     int     `json:"low_fuel_agents"`
	CriticalAgents    int     `json:"critical_fuel_agents"`
	ReturningAgents   int     `json:"returning_agents"`
	TotalRefills      int     `json:"total_refills"`
	TotalBarnVisits   int     `json:"total_barn_visits"`
	OutOfFuelEvents   int     `json:"out_of_fuel_events"`
	FuelConsumed      float64 `json:"fuel_consumed"`
	AvgFuelEfficiency float64 `json:"avg_fuel_efficiency"`
}

type WorldMetrics struct {
	Step              int          `json:"step"`
	CyclePhase        farm.Phase   `json:"cycle_phase"`
	PhaseProgress     float64      `json:"phase_progress"`
	Planted           int          `json:"planted"`
	Irrigated         int          `json:"irrigated"`
	Harvested         int          `json:"harvested"`
	RemainingCrops    int          `json:"remaining_crops"`
	Progress          Objectives   `json:"progress"`
	TaskComplete      bool         `json:"task_complete"`
	Parcels           int          `json:"parcels"`
	PhaseRequirements farm.Targets `json:"phase_requirements"`
}

type Meta struct {
	Step           int          `json:"step"`
	Harvested      int          `json:"harvested"`
	Planted        int          `json:"planted"`
	Irrigated      int          `json:"irrigated"`
	Mode           Mode         `json:"mode"`
	Running        bool         `json:"running"`
	RunningTrained bool         `json:"running_trained"`
	Objectives     Objectives   `json:"objectives"`
	TaskComplete   bool         `json:"task_complete"`
	Fuel           FuelSummary  `json:"fuel_stats"`
	Parcels        int          `json:"parcels"`
	World          WorldMetrics `json:"metrics"`
}

type Snapshot struct {
	Grid   [][]int     `json:"grid"`
	Agents []AgentView `json:"agents"`
	Meta   Meta        `json:"meta"`
}

type MetricsReport struct {
	WorldMetrics
	Fuel FuelSummary `json:"fuel_stats"`
}

type AgentsReport struct {
	Agents     []agent.Stats     `json:"agents"`
	RoleCounts map[farm.Role]int `json:"role_counts"`
	Fuel       FuelSummary       `json:"fuel_system"`
}

type TrainingProgress struct {
	Mode            Mode    `json:"mode"`
	Running         bool    `json:"running"`
	RunID           string  `json:"run_id"`
	Episode         int     `json:"episode"`
	Episodes        int     `json:"episodes"`
	Step            int     `json:"step"`
	StepsPerEpisode int     `json:"steps_per_episode"`
	Percent         float64 `json:"percent"`
	BestReward      float64 `json:"best_reward"`
	BestEpisode     int     `json:"best_episode"`
	AvgEpsilon      float64 `json:"avg_epsilon"`
	StatesLearned   int     `json:"states_learned"`
}

type TickReport struct {
	Step       int          `json:"step"`
	Phase      farm.Phase   `json:"phase"`
	Terminal   bool         `json:"terminal"`
	Reward     float64      `json:"reward"`
	Rewards    []float64    `json:"rewards"`
	Proposals  []Proposal   `json:"proposals"`
	Positions  []farm.Point `json:"positions"`
	Collisions int          `json:"collisions"`
	Events     []Event      `json:"events"`
}

func newTickReport(res TickResult) TickReport {
	return TickReport{
		Step:       res.Step,
		Phase:      res.Phase,
		Terminal:   res.Terminal,
		Reward:     res.TotalReward(),
		Rewards:    res.Rewards,
		Proposals:  res.Proposals,
		Positions:  res.Positions,
		Collisions: res.Collisions,
		Events:     res.Events,
	}
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]AgentView, 0, len(e.agents))
	for _, a := range e.agents {
		views = append(views, AgentView{
			ID:             a.ID,
			Pos:            a.Pos,
			Role:           a.Role,
			Goal:           a.Goal,
			Harvested:      a.Harvested,
			Planted:        a.Planted,
			Irrigated:      a.Irrigated,
			Delivered:      a.Delivered,
			CapacityPct:    a.CapacityPercent(),
			FuelPct:        a.FuelPercent(),
			Fuel:           round(a.Fuel, 1),
			IsReturning:    a.Returning,
			IsFuelLow:      a.FuelLow(),
			IsFuelCritical: a.FuelCritical(),
			Epsilon:        round(a.Epsilon, 4),
			StatesLearned:  a.Q.Len(),
			FuelEfficiency: round(a.Efficiency(), 1),
		})
	}
	wm := e.worldMetricsLocked()
	return Snapshot{
		Grid:   e.world.Grid(),
		Agents: views,
		Meta: Meta{
			Step:           wm.Step,
			Harvested:      wm.Harvested,
			Planted:        wm.Planted,
			Irrigated:      wm.Irrigated,
			Mode:           e.mode,
			Running:        e.mode == ModeTraining,
			RunningTrained: e.mode == ModeServing,
			Objectives:     wm.Progress,
			TaskComplete:   wm.TaskComplete,
			Fuel:           e.fuelSummaryLocked(),
			Parcels:        wm.Parcels,
			World:          wm,
		},
	}
}

func (e *Engine) Metrics() MetricsReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return MetricsReport{WorldMetrics: e.worldMetricsLocked(), Fuel: e.fuelSummaryLocked()}
}

func (e *Engine) Agents() AgentsReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	rep := AgentsReport{RoleCounts: make(map[farm.Role]int), Fuel: e.fuelSummaryLocked()}
	for _, a := range e.agents {
		rep.Agents = append(rep.Agents, a.Stats())
		rep.RoleCounts[a.Role]++
	}
	return rep
}

func (e *Engine) Parcels() []farm.ParcelSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.ParcelSummaries()
}

func (e *Engine) TrainingProgress() TrainingProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.progress
	out := TrainingProgress{
		Mode:            e.mode,
		Running:         e.mode == ModeTraining,
		RunID:           e.runID,
		Episode:         p.episode,
		Episodes:        p.episodes,
		Step:            p.step,
		StepsPerEpisode: p.stepsPerEpisode,
		BestEpisode:     e.stats.BestEpisode,
		AvgEpsilon:      round(avgEpsilon(e.agents), 4),
		StatesLearned:   e.statesLearnedLocked(),
	}
	if !math.IsInf(e.stats.BestReward, -1) {
		out.BestReward = round(e.stats.BestReward, 2)
	}
	if p.episodes > 0 {
		done := len(e.stats.Episodes)
		out.Percent = round(float64(done)/float64(p.episodes)*100, 1)
	}
	return out
}

func (e *Engine) worldMetricsLocked() WorldMetrics {
	w := e.world
	c, t := w.Counters(), w.Targets()
	return WorldMetrics{
		Step:           w.Step(),
		CyclePhase:     w.Phase(),
		PhaseProgress:  round(w.PhaseProgress(), 1),
		Planted:        c.Planted,
		Irrigated:      c.Irrigated,
		Harvested:      c.Harvested,
		RemainingCrops: w.CountKind(farm.CellCrop),
		Progress: Objectives{
			Planted:    fmt.Sprintf("%d/%d", c.Planted, t.Planted),
			Irrigated:  fmt.Sprintf("%d/%d", c.Irrigated, t.Irrigated),
			Harvested:  fmt.Sprintf("%d/%d", c.Harvested, t.Harvested),
			Completion: w.CompletionPercent(),
		},
		TaskComplete:      w.TaskComplete(),
		Parcels:           len(w.Layout().Parcels),
		PhaseRequirements: t,
	}
}

func (e *Engine) fuelSummaryLocked() FuelSummary {
	var s FuelSummary
	if len(e.agents) == 0 {
		return s
	}
	var pct, eff float64
	for _, a := range e.agents {
		pct += float64(a.FuelPercent())
		eff += a.Efficiency()
		if a.FuelLow() {
			s.LowFuelAgents++
		}
		if a.FuelCritical() {
			s.CriticalAgents++
		}
		if a.Returning {
			s.ReturningAgents++
		}
		s.TotalRefills += a.FuelRefills
		s.TotalBarnVisits += a.BarnVisits
		s.OutOfFuelEvents += a.OutOfFuel
		s.FuelConsumed += a.FuelConsumed
	}
	n := float64(len(e.agents))
	s.AvgFuelPct = round(pct/n, 1)
	s.AvgFuelEfficiency = round(eff/n, 1)
	s.FuelConsumed = round(s.FuelConsumed, 2)
	return s
}
