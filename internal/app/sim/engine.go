package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"farmcycle/internal/app/ports"
	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"
)

var (
	ErrBusy           = errors.New("simulation busy")
	ErrNotRunning     = errors.New("simulation loop not running")
	ErrInvalidRequest = errors.New("invalid simulation request")
)

type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeTraining Mode = "training"
	ModeServing  Mode = "serving"
)

const (
	trainingStopTimeout = 2 * time.Second
	servingStopTimeout  = time.Second
)

type Options struct {
	Layout farm.Layout
	Agents []AgentSpec
	Tuning Tuning
	Run    RunDefaults
	// Learn pins alpha, gamma and epsilon for every role when set; otherwise
	// each role starts from its own defaults.
	Learn *agent.LearnParams
	// Decay and MinEpsilon override the exploration schedule of every role
	// when Learn is nil. Zero keeps the defaults.
	Decay      float64
	MinEpsilon float64

	Policies ports.PolicyRepository
	Episodes ports.EpisodeRepository
	Metrics  ports.SimMetrics
	Logger   *slog.Logger
	Now      func() time.Time
	NewRunID func() string
	Seed     int64
}

// Engine owns one world and its agents. Every tick and every report is
// built under mu; mode guards the single running loop.
type Engine struct {
	mu      sync.Mutex
	world   *farm.World
	agents  []*agent.Agent
	stepper Stepper
	rng     *rand.Rand
	params  agent.LearnParams
	pinned  bool
	run     RunDefaults

	mode    Mode
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	runID    string
	stats    TrainingStats
	progress progressState

	policies ports.PolicyRepository
	episodes ports.EpisodeRepository
	metrics  ports.SimMetrics
	log      *slog.Logger
	now      func() time.Time
	newRunID func() string
}

func NewEngine(opts Options) (*Engine, error) {
	if len(opts.Agents) == 0 {
		return nil, fmt.Errorf("%w: no agents configured", ErrInvalidRequest)
	}
	layout := opts.Layout
	layout.Reserved = append([]farm.Point(nil), layout.Reserved...)
	for _, spec := range opts.Agents {
		if !spec.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, spec.Role)
		}
		if !layout.InBounds(spec.Start) {
			return nil, fmt.Errorf("%w: %s start (%d,%d) out of bounds", ErrInvalidRequest, spec.Role, spec.Start.X, spec.Start.Y)
		}
		layout.Reserved = append(layout.Reserved, spec.Start)
	}
	world, err := farm.NewWorld(layout)
	if err != nil {
		return nil, err
	}

	tuning := opts.Tuning
	if tuning.Roles == nil {
		tuning = DefaultTuning()
	}
	run := opts.Run
	if run.Episodes <= 0 || run.StepsPerEpisode <= 0 {
		run = DefaultRunDefaults()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		world:    world,
		stepper:  Stepper{Tuning: tuning},
		rng:      rand.New(rand.NewSource(seed)),
		params:   agent.DefaultLearnParams(),
		run:      run,
		mode:     ModeIdle,
		policies: opts.Policies,
		episodes: opts.Episodes,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		now:      opts.Now,
		newRunID: opts.NewRunID,
	}
	if opts.Learn != nil {
		if err := validateParams(*opts.Learn); err != nil {
			return nil, err
		}
		e.params, e.pinned = *opts.Learn, true
	} else {
		if opts.Decay != 0 {
			e.params.EpsilonDecay = opts.Decay
		}
		if opts.MinEpsilon != 0 {
			e.params.EpsilonMin = opts.MinEpsilon
		}
		if err := validateParams(e.params); err != nil {
			return nil, err
		}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newRunID == nil {
		e.newRunID = uuid.NewString
	}

	for i, spec := range opts.Agents {
		rs, ok := tuning.Roles[spec.Role]
		if !ok {
			return nil, fmt.Errorf("%w: no resource limits for %s", ErrInvalidRequest, spec.Role)
		}
		profile := agent.Profile{
			Role:        spec.Role,
			Start:       spec.Start,
			Barn:        world.BarnFor(spec.Role),
			MaxFuel:     rs.MaxFuel,
			MaxCapacity: rs.MaxCapacity,
		}
		e.agents = append(e.agents, agent.New(i, profile, e.paramsFor(spec.Role)))
	}
	return e, nil
}

func (e *Engine) paramsFor(role farm.Role) agent.LearnParams {
	if e.pinned {
		return e.params
	}
	p := agent.RoleLearnParams(role)
	p.EpsilonDecay, p.EpsilonMin = e.params.EpsilonDecay, e.params.EpsilonMin
	return p
}

func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// StepOnce runs a single inference tick outside of any loop.
func (e *Engine) StepOnce(overrides map[int]agent.Action) (TickReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeIdle {
		return TickReport{}, ErrBusy
	}
	res := e.tickLocked(overrides, false)
	return newTickReport(res), nil
}

func (e *Engine) tickLocked(overrides map[int]agent.Action, explore bool) TickResult {
	res := e.stepper.Tick(e.world, e.agents, overrides, explore, e.rng)
	if res.PhaseChanged {
		e.log.Info("phase changed", "from", res.PhaseFrom, "to", res.Phase, "step", res.Step)
	}
	if e.metrics != nil {
		e.metrics.RecordTick(res.Terminal)
		e.metrics.RecordCollisions(res.Collisions)
		for _, ev := range res.Events {
			switch ev.Kind {
			case EventOutOfFuel:
				e.metrics.RecordOutOfFuel()
			case EventRecharged:
				e.metrics.RecordRecharge()
			default:
				e.metrics.RecordAction(ev.Role, string(ev.Kind))
			}
		}
	}
	return res
}

// resetLocked restores the world and every agent for a fresh episode.
func (e *Engine) resetLocked() {
	e.world.Reset()
	for _, a := range e.agents {
		a.ResetEpisode(e.startEpsilon(a))
	}
}

func (e *Engine) startEpsilon(a *agent.Agent) float64 {
	if e.pinned {
		return e.params.Epsilon
	}
	return a.Params.Epsilon
}

type ParamsUpdate struct {
	Alpha        *float64 `json:"alpha"`
	Gamma        *float64 `json:"gamma"`
	Epsilon      *float64 `json:"eps"`
	EpsilonDecay *float64 `json:"eps_decay"`
}

func (u ParamsUpdate) apply(p agent.LearnParams) agent.LearnParams {
	if u.Alpha != nil {
		p.Alpha = *u.Alpha
	}
	if u.Gamma != nil {
		p.Gamma = *u.Gamma
	}
	if u.Epsilon != nil {
		p.Epsilon = *u.Epsilon
	}
	if u.EpsilonDecay != nil {
		p.EpsilonDecay = *u.EpsilonDecay
	}
	return p
}

func (u ParamsUpdate) empty() bool {
	return u.Alpha == nil && u.Gamma == nil && u.Epsilon == nil && u.EpsilonDecay == nil
}

// UpdateParams applies a partial update to the learning parameters of every
// agent. Pinning alpha, gamma or epsilon overrides the per-role defaults.
func (e *Engine) UpdateParams(u ParamsUpdate) (agent.LearnParams, error) {
	next := u.apply(e.currentParams())
	if err := validateParams(next); err != nil {
		return agent.LearnParams{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyParamsLocked(u)
	return e.params, nil
}

func (e *Engine) applyParamsLocked(u ParamsUpdate) {
	e.params = u.apply(e.params)
	if u.Alpha != nil || u.Gamma != nil || u.Epsilon != nil {
		e.pinned = true
	}
	for _, a := range e.agents {
		a.Params = u.apply(a.Params)
		if u.Epsilon != nil {
			a.SetEpsilon(*u.Epsilon)
		}
	}
	e.log.Info("learning params updated", "alpha", e.params.Alpha, "gamma", e.params.Gamma, "eps", e.params.Epsilon, "eps_decay", e.params.EpsilonDecay)
}

func (e *Engine) currentParams() agent.LearnParams {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

func validateParams(p agent.LearnParams) error {
	switch {
	case !inRange(p.Alpha, 0, 1) || p.Alpha == 0:
		return fmt.Errorf("%w: alpha must be in (0,1]", ErrInvalidRequest)
	case !inRange(p.Gamma, 0, 1):
		return fmt.Errorf("%w: gamma must be in [0,1]", ErrInvalidRequest)
	case !inRange(p.Epsilon, 0, 1):
		return fmt.Errorf("%w: eps must be in [0,1]", ErrInvalidRequest)
	case !inRange(p.EpsilonDecay, 0, 1) || p.EpsilonDecay == 0:
		return fmt.Errorf("%w: eps_decay must be in (0,1]", ErrInvalidRequest)
	case !inRange(p.EpsilonMin, 0, 1):
		return fmt.Errorf("%w: eps_min must be in [0,1]", ErrInvalidRequest)
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// startLoop flips the mode from Idle, runs prepare under the lock and
// launches fn. The loop goroutine returns the engine to Idle when fn exits.
func (e *Engine) startLoop(ctx context.Context, mode Mode, prepare func(), fn func(ctx context.Context)) error {
	e.mu.Lock()
	if e.mode != ModeIdle {
		e.mu.Unlock()
		return ErrBusy
	}
	if prepare != nil {
		prepare()
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	e.mode, e.cancel, e.done = mode, cancel, done
	e.running.Store(true)
	e.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		fn(loopCtx)
		e.mu.Lock()
		e.mode, e.cancel = ModeIdle, nil
		e.running.Store(false)
		e.mu.Unlock()
	}()
	return nil
}

func (e *Engine) stopLoop(mode Mode, timeout time.Duration) error {
	e.mu.Lock()
	if e.mode != mode {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.running.Store(false)
	if e.cancel != nil {
		e.cancel()
	}
	done := e.done
	e.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		e.log.Warn("loop did not stop in time", "mode", mode, "timeout", timeout)
	}
	return nil
}

func (e *Engine) keepRunning(ctx context.Context) bool {
	return e.running.Load() && ctx.Err() == nil
}

// Wait blocks until the current loop, if any, has exited.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
