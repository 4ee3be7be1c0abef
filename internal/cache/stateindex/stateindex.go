// Package stateindex maintains a per-state index of cached plan keys so a
// fuel price reload can flush exactly the plans crossing the reloaded
// states instead of waiting out the TTL.
package stateindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/keys"
)

type Index struct {
	store cache.Interface
	ttl   time.Duration
	mu    sync.Mutex
}

// New builds an index on the same store as the plan cache. Index entries
// share the plan TTL: a key that outlives its plan only causes a no-op
// delete later.
func New(store cache.Interface, ttl time.Duration) *Index {
	return &Index{store: store, ttl: ttl}
}

// Add records planKey under each state the plan crosses.
func (ix *Index) Add(ctx context.Context, states []string, planKey string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, st := range states {
		key := keys.StateIndex(st)
		ids, err := ix.read(ctx, key)
		if err != nil {
			return err
		}
		if contains(ids, planKey) {
			continue
		}
		ids = append(ids, planKey)
		if err := ix.write(ctx, key, ids); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the plan keys currently indexed under a state.
func (ix *Index) Keys(ctx context.Context, state string) ([]string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.read(ctx, keys.StateIndex(state))
}

// Clear drops the index entry for a state.
func (ix *Index) Clear(ctx context.Context, state string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.store.Del(ctx, keys.StateIndex(state))
}

func (ix *Index) read(ctx context.Context, key string) ([]string, error) {
	raw, ok, err := ix.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("stateindex get %q: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("stateindex decode %q: %w", key, err)
	}
	return ids, nil
}

func (ix *Index) write(ctx context.Context, key string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("stateindex encode %q: %w", key, err)
	}
	if err := ix.store.Set(ctx, key, raw, ix.ttl); err != nil {
		return fmt.Errorf("stateindex set %q: %w", key, err)
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
