package memory

import (
	"sync"

	"farmcycle/internal/app/ports"
)

// Store keeps policies and episode records in process memory. It backs the
// server when no database is configured and is lost on restart.
type Store struct {
	mu       sync.RWMutex
	policy   *ports.PolicySnapshot
	episodes []ports.EpisodeRecord
}

func NewStore() *Store {
	return &Store{}
}

func clonePolicy(snap ports.PolicySnapshot) ports.PolicySnapshot {
	out := snap
	out.Agents = make([]ports.AgentPolicy, len(snap.Agents))
	for i, p := range snap.Agents {
		entries := make(map[string][]float64, len(p.Entries))
		for k, v := range p.Entries {
			entries[k] = append([]float64(nil), v...)
		}
		p.Entries = entries
		out.Agents[i] = p
	}
	return out
}
