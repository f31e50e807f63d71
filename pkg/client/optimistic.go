package client

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned when a toggle is ignored because a mutation for
// the same entity is still in flight.
var ErrPending = errors.New("mutation already in flight for this entity")

// EngagementState is the client-side rendition of a toggleable edge: the
// viewer's flag plus the aggregate count shown next to it.
type EngagementState struct {
	Active bool
	Count  int64
}

// Mutator performs the server mutation for a toggle and returns the
// authoritative state from the response.
type Mutator func(ctx context.Context) (EngagementState, error)

// Optimistic tracks engagement state per entity and applies toggles
// optimistically: the UI state flips immediately, the mutation runs, and
// on failure the exact pre-toggle snapshot is restored. It never retries
// on its own.
type Optimistic struct {
	mu       sync.Mutex
	states   map[string]EngagementState
	inflight map[string]bool
}

// NewOptimistic creates an empty controller.
func NewOptimistic() *Optimistic {
	return &Optimistic{
		states:   make(map[string]EngagementState),
		inflight: make(map[string]bool),
	}
}

// Hydrate records the server-rendered state for an entity, e.g. when a
// feed page arrives.
func (o *Optimistic) Hydrate(key string, state EngagementState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	// Never clobber an optimistic value mid-mutation; the toggle's own
	// reconcile or rollback owns the final word.
	if o.inflight[key] {
		return
	}
	o.states[key] = state
}

// State returns the current state for an entity.
func (o *Optimistic) State(key string) (EngagementState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.states[key]
	return state, ok
}

// Toggle drives one optimistic mutation. While a mutation for key is in
// flight, further toggles return ErrPending and the current state, so
// rapid double-taps collapse into one request. On success the state is
// reconciled to the server's response; on failure it rolls back to the
// exact snapshot taken before the flip.
func (o *Optimistic) Toggle(ctx context.Context, key string, desired bool, mutate Mutator) (EngagementState, error) {
	o.mu.Lock()
	if o.inflight[key] {
		current := o.states[key]
		o.mu.Unlock()
		return current, ErrPending
	}

	snapshot := o.states[key]
	optimistic := applyToggle(snapshot, desired)
	o.states[key] = optimistic
	o.inflight[key] = true
	o.mu.Unlock()

	result, err := mutate(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, key)

	if err != nil {
		o.states[key] = snapshot
		return snapshot, err
	}
	o.states[key] = result
	return result, nil
}

// applyToggle computes the optimistic state. The count only moves when
// the flag actually changes, and never below zero.
func applyToggle(state EngagementState, desired bool) EngagementState {
	next := EngagementState{Active: desired, Count: state.Count}
	if desired && !state.Active {
		next.Count++
	}
	if !desired && state.Active {
		next.Count--
	}
	if next.Count < 0 {
		next.Count = 0
	}
	return next
}
