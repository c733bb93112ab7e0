package sim

import (
	"context"
	"errors"
	"time"

	"farmcycle/internal/app/ports"
)

// StartServing runs the learned policy without exploration or updates at a
// fixed interval until stopped. A stored policy is loaded first when the
// agents have not learned anything yet.
func (e *Engine) StartServing(ctx context.Context) error {
	interval := e.run.ServeInterval
	if interval <= 0 {
		interval = DefaultRunDefaults().ServeInterval
	}
	return e.startLoop(ctx, ModeServing, nil, func(ctx context.Context) {
		e.serve(ctx, interval)
	})
}

func (e *Engine) StopServing() error {
	return e.stopLoop(ModeServing, servingStopTimeout)
}

func (e *Engine) serve(ctx context.Context, interval time.Duration) {
	e.mu.Lock()
	learned := e.statesLearnedLocked()
	e.mu.Unlock()
	if learned == 0 && e.policies != nil {
		if _, err := e.loadPolicy(ctx); err != nil && !errors.Is(err, ports.ErrNotFound) {
			e.log.Warn("serving without stored policy", "error", err)
		}
	}

	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
	e.log.Info("serving started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for e.keepRunning(ctx) {
		select {
		case <-ctx.Done():
		case <-ticker.C:
			e.mu.Lock()
			e.tickLocked(nil, false)
			e.mu.Unlock()
		}
	}
	e.log.Info("serving stopped")
}
