package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"farmcycle/internal/app/ports"
	"farmcycle/internal/domain/agent"
)

type TrainRequest struct {
	Episodes        int      `json:"episodes"`
	StepsPerEpisode int      `json:"steps_per_episode"`
	Alpha           *float64 `json:"alpha"`
	Gamma           *float64 `json:"gamma"`
	Epsilon         *float64 `json:"eps"`
	EpsilonDecay    *float64 `json:"eps_decay"`
}

type TrainingStats struct {
	RunID       string                `json:"run_id"`
	Episodes    []ports.EpisodeRecord `json:"episodes"`
	BestReward  float64               `json:"best_reward"`
	BestEpisode int                   `json:"best_episode"`
}

type progressState struct {
	episode         int
	episodes        int
	step            int
	stepsPerEpisode int
}

// StartTraining launches the training loop in the background and returns
// the run id.
func (e *Engine) StartTraining(ctx context.Context, req TrainRequest) (string, error) {
	if req.Episodes < 0 || req.StepsPerEpisode < 0 {
		return "", fmt.Errorf("%w: episodes and steps_per_episode must not be negative", ErrInvalidRequest)
	}
	if req.Episodes == 0 {
		req.Episodes = e.run.Episodes
	}
	if req.StepsPerEpisode == 0 {
		req.StepsPerEpisode = e.run.StepsPerEpisode
	}
	update := ParamsUpdate{Alpha: req.Alpha, Gamma: req.Gamma, Epsilon: req.Epsilon, EpsilonDecay: req.EpsilonDecay}
	if !update.empty() {
		if err := validateParams(update.apply(e.currentParams())); err != nil {
			return "", err
		}
	}

	runID := e.newRunID()
	prepare := func() {
		if !update.empty() {
			e.applyParamsLocked(update)
		}
	}
	err := e.startLoop(ctx, ModeTraining, prepare, func(ctx context.Context) {
		e.train(ctx, runID, req)
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

func (e *Engine) StopTraining() error {
	return e.stopLoop(ModeTraining, trainingStopTimeout)
}

func (e *Engine) train(ctx context.Context, runID string, req TrainRequest) {
	e.mu.Lock()
	e.runID = runID
	e.stats = TrainingStats{RunID: runID, BestReward: math.Inf(-1)}
	e.progress = progressState{episodes: req.Episodes, stepsPerEpisode: req.StepsPerEpisode}
	e.mu.Unlock()

	store := context.WithoutCancel(ctx)
	e.log.Info("training started", "run_id", runID, "episodes", req.Episodes, "steps_per_episode", humanize.Comma(int64(req.StepsPerEpisode)))

	for ep := 1; ep <= req.Episodes && e.keepRunning(ctx); ep++ {
		rec := e.runEpisode(ctx, runID, ep, req.StepsPerEpisode)
		if e.episodes != nil {
			if err := e.episodes.Append(store, rec); err != nil {
				e.log.Error("episode record not stored", "run_id", runID, "episode", ep, "error", err)
			}
		}
		if e.run.SaveEvery > 0 && ep%e.run.SaveEvery == 0 {
			e.persist(store, ep)
		}
	}

	e.mu.Lock()
	stats, last := e.stats, e.progress.episode
	e.mu.Unlock()
	e.persist(store, last)
	e.log.Info("training finished", "run_id", runID, "episodes", len(stats.Episodes), "best_reward", stats.BestReward, "best_episode", stats.BestEpisode)
}

// runEpisode plays one episode with exploration and Q updates, stopping at
// the cycle's completion, the step cap or a stop request.
func (e *Engine) runEpisode(ctx context.Context, runID string, ep, maxSteps int) ports.EpisodeRecord {
	e.mu.Lock()
	e.resetLocked()
	e.progress.episode, e.progress.step = ep, 0
	e.mu.Unlock()

	reward, steps, complete := 0.0, 0, false
	for steps < maxSteps && e.keepRunning(ctx) {
		e.mu.Lock()
		res := e.tickLocked(nil, true)
		for i, a := range e.agents {
			a.Update(res.States[i], res.Actions[i], res.Rewards[i], res.NextStates[i], res.Terminal)
			a.DecayEpsilon(a.Params.EpsilonDecay)
		}
		steps++
		e.progress.step = steps
		e.mu.Unlock()

		reward += res.TotalReward()
		if res.Terminal {
			complete = true
			break
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.episodeRecordLocked(runID, ep, steps, reward, complete)
	e.stats.Episodes = append(e.stats.Episodes, rec)
	if reward > e.stats.BestReward {
		e.stats.BestReward, e.stats.BestEpisode = reward, ep
	}
	e.log.Info("episode finished",
		"run_id", runID,
		"episode", ep,
		"reward", math.Round(reward*100)/100,
		"phase", e.world.Phase(),
		"planted", rec.Planted,
		"irrigated", rec.Irrigated,
		"harvested", rec.Harvested,
		"steps", steps,
		"complete", complete,
		"fuel_efficiency", rec.AvgFuelEfficiency,
	)
	return rec
}

func (e *Engine) episodeRecordLocked(runID string, ep, steps int, reward float64, complete bool) ports.EpisodeRecord {
	c := e.world.Counters()
	var epsSum, effSum, fuel float64
	states := 0
	for _, a := range e.agents {
		epsSum += a.Epsilon
		effSum += a.Efficiency()
		fuel += a.FuelConsumed
		states += a.Q.Len()
	}
	n := float64(len(e.agents))
	baseline := float64(e.run.BaselineSteps)
	saved := 0.0
	if baseline > 0 {
		saved = (baseline - float64(steps)) / baseline * 100
	}
	return ports.EpisodeRecord{
		RunID:             runID,
		Episode:           ep,
		Reward:            round(reward, 2),
		Harvested:         c.Harvested,
		Planted:           c.Planted,
		Irrigated:         c.Irrigated,
		TaskComplete:      complete,
		Steps:             steps,
		AvgEpsilon:        round(epsSum/n, 4),
		StatesLearned:     states,
		FuelConsumed:      round(fuel, 2),
		AvgFuelEfficiency: round(effSum/n, 1),
		TimeSavedPct:      round(saved, 1),
		FinishedAt:        e.now().UTC(),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (e *Engine) persist(ctx context.Context, episode int) {
	if e.policies == nil {
		return
	}
	if err := e.SavePolicy(ctx); err != nil {
		e.log.Error("policy not saved", "episode", episode, "error", err)
	}
}

func (e *Engine) Stats() TrainingStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.stats
	out.Episodes = append([]ports.EpisodeRecord(nil), e.stats.Episodes...)
	if math.IsInf(out.BestReward, -1) {
		out.BestReward = 0
	}
	return out
}

// History reads stored episode records of a run, newest first. An empty
// runID selects the latest run of this engine.
func (e *Engine) History(ctx context.Context, runID string, limit int) ([]ports.EpisodeRecord, error) {
	if e.episodes == nil {
		return nil, ports.ErrNotFound
	}
	if runID == "" {
		e.mu.Lock()
		runID = e.runID
		e.mu.Unlock()
	}
	if runID == "" {
		return nil, ports.ErrNotFound
	}
	return e.episodes.ListByRun(ctx, runID, limit)
}

func avgEpsilon(agents []*agent.Agent) float64 {
	if len(agents) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range agents {
		sum += a.Epsilon
	}
	return sum / float64(len(agents))
}
