package memory

import (
	"context"

	"farmcycle/internal/app/ports"
)

type PolicyRepo struct {
	store *Store
}

func NewPolicyRepo(store *Store) PolicyRepo {
	return PolicyRepo{store: store}
}

func (r PolicyRepo) Save(_ context.Context, snap ports.PolicySnapshot) error {
	c := clonePolicy(snap)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.policy = &c
	return nil
}

func (r PolicyRepo) Load(_ context.Context) (ports.PolicySnapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.policy == nil {
		return ports.PolicySnapshot{}, ports.ErrNotFound
	}
	return clonePolicy(*r.store.policy), nil
}
