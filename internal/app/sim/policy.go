package sim

import (
	"context"
	"errors"
	"fmt"

	"farmcycle/internal/app/ports"
)

type LoadReport struct {
	Agents  int `json:"agents"`
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// SavePolicy exports every agent's Q-table and stats through the policy
// repository.
func (e *Engine) SavePolicy(ctx context.Context) error {
	if e.policies == nil {
		return fmt.Errorf("%w: no policy store configured", ErrInvalidRequest)
	}
	e.mu.Lock()
	snap := ports.PolicySnapshot{
		RunID:   e.runID,
		Episode: e.progress.episode,
		SavedAt: e.now().UTC(),
		Agents:  make([]ports.AgentPolicy, 0, len(e.agents)),
	}
	for _, a := range e.agents {
		snap.Agents = append(snap.Agents, ports.AgentPolicy{
			AgentID: a.ID,
			Role:    a.Role,
			Entries: a.Q.Export(),
			Stats:   a.Stats(),
		})
	}
	e.mu.Unlock()

	if err := e.policies.Save(ctx, snap); err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	e.log.Info("policy saved", "agents", len(snap.Agents), "episode", snap.Episode)
	return nil
}

// LoadPolicy replaces the agents' Q-tables with the stored policy. It is
// refused while training. A missing policy surfaces as ports.ErrNotFound.
func (e *Engine) LoadPolicy(ctx context.Context) (LoadReport, error) {
	if e.Mode() == ModeTraining {
		return LoadReport{}, ErrBusy
	}
	return e.loadPolicy(ctx)
}

func (e *Engine) loadPolicy(ctx context.Context) (LoadReport, error) {
	if e.policies == nil {
		return LoadReport{}, fmt.Errorf("%w: no policy store configured", ErrInvalidRequest)
	}
	snap, err := e.policies.Load(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			e.log.Info("no prior policy")
		}
		return LoadReport{}, fmt.Errorf("load policy: %w", err)
	}

	byID := make(map[int]ports.AgentPolicy, len(snap.Agents))
	for _, p := range snap.Agents {
		byID[p.AgentID] = p
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	rep := LoadReport{Skipped: snap.Dropped}
	if len(snap.BadStats) > 0 {
		e.log.Warn("stored agent stats unreadable", "agent_ids", snap.BadStats)
	}
	for _, a := range e.agents {
		p, ok := byID[a.ID]
		if !ok {
			continue
		}
		if p.Role != a.Role {
			e.log.Warn("policy role mismatch", "agent_id", a.ID, "want", a.Role, "got", p.Role)
			rep.Skipped += len(p.Entries)
			continue
		}
		loaded, skipped := a.Q.Import(p.Entries)
		rep.Agents++
		rep.Loaded += loaded
		rep.Skipped += skipped
	}
	e.log.Info("policy loaded", "agents", rep.Agents, "entries", rep.Loaded, "skipped", rep.Skipped)
	return rep, nil
}

func (e *Engine) statesLearnedLocked() int {
	n := 0
	for _, a := range e.agents {
		n += a.Q.Len()
	}
	return n
}
