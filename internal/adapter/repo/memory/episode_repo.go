package memory

import (
	"context"

	"farmcycle/internal/app/ports"
)

type EpisodeRepo struct {
	store *Store
}

func NewEpisodeRepo(store *Store) EpisodeRepo {
	return EpisodeRepo{store: store}
}

func (r EpisodeRepo) Append(_ context.Context, rec ports.EpisodeRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.episodes {
		if existing.RunID == rec.RunID && existing.Episode == rec.Episode {
			return ports.ErrConflict
		}
	}
	r.store.episodes = append(r.store.episodes, rec)
	return nil
}

// ListByRun returns the run's records newest first. limit <= 0 means all.
func (r EpisodeRepo) ListByRun(_ context.Context, runID string, limit int) ([]ports.EpisodeRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]ports.EpisodeRecord, 0)
	for i := len(r.store.episodes) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if rec := r.store.episodes[i]; rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}
