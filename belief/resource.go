// Package belief implements the per-agent belief store (messages plus
// bounded resources) and the predicate/query layer plans and goals
// evaluate against it.
package belief

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cortexagents/bdi/uid"
)

// ErrResourceBounds indicates a resource mutation would push count outside
// [min, max].
var ErrResourceBounds = errors.New("belief: resource mutation out of bounds")

// PerceptHook is invoked whenever a Resource mutates, so the owning agent
// can enqueue a percept event. The engine wires this to the agent's event
// queue; tests may use a no-op or recording hook.
type PerceptHook func(resourceName string, count int)

// Resource is a named, bounded integer counter used to de-conflict
// concurrent plans (§5: "no global locks" — resources belong to exactly
// one agent and are coordinated purely through lock/unlock accounting).
type Resource struct {
	mu          sync.Mutex
	name        string
	count       int
	min         int
	max         int
	owningAgent uid.ID
	onChange    PerceptHook
}

// NewResource constructs a Resource. count must satisfy min <= count <=
// max or NewResource returns an error.
func NewResource(name string, count, min, max int, owningAgent uid.ID, onChange PerceptHook) (*Resource, error) {
	if min > max || count < min || count > max {
		return nil, fmt.Errorf("%w: resource %q count=%d not within [%d,%d]", ErrResourceBounds, name, count, min, max)
	}
	return &Resource{name: name, count: count, min: min, max: max, owningAgent: owningAgent, onChange: onChange}, nil
}

// Name returns the resource's registered name.
func (r *Resource) Name() string { return r.name }

// Count returns the current counter value.
func (r *Resource) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Bounds returns the resource's configured [min, max] range.
func (r *Resource) Bounds() (min, max int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.min, r.max
}

// OwningAgent returns the ID of the agent this resource belongs to.
func (r *Resource) OwningAgent() uid.ID { return r.owningAgent }

// Set assigns the counter directly, rejecting values outside [min, max].
// A successful Set publishes a percept via the configured hook.
func (r *Resource) Set(count int) error {
	r.mu.Lock()
	if count < r.min || count > r.max {
		r.mu.Unlock()
		return fmt.Errorf("%w: resource %q cannot be set to %d (range [%d,%d])", ErrResourceBounds, r.name, count, r.min, r.max)
	}
	r.count = count
	hook := r.onChange
	name := r.name
	r.mu.Unlock()
	if hook != nil {
		hook(name, count)
	}
	return nil
}

// Consume decrements the counter by delta, failing if the result would
// fall below min. Consume(1) is the primitive behind Lock.
func (r *Resource) Consume(delta int) error {
	r.mu.Lock()
	newCount := r.count - delta
	if newCount < r.min {
		r.mu.Unlock()
		return fmt.Errorf("%w: resource %q would fall below min %d", ErrResourceBounds, r.name, r.min)
	}
	r.count = newCount
	hook := r.onChange
	name := r.name
	r.mu.Unlock()
	if hook != nil {
		hook(name, newCount)
	}
	return nil
}

// Lock is equivalent to Consume(1); it is the operation plans perform when
// acquiring a declared resource_lock.
func (r *Resource) Lock() error { return r.Consume(1) }

// Unlock is equivalent to Set(count+1); it is the operation performed when
// a plan releases a declared resource_lock on any terminal finish state.
func (r *Resource) Unlock() error {
	r.mu.Lock()
	next := r.count + 1
	r.mu.Unlock()
	return r.Set(next)
}

// LockSet acquires a set of resources by name, in sorted (deterministic)
// order, rolling back any partial acquisition on the first failure. This
// backs §4.5's resource-lock acquisition rule: "acquired atomically at
// plan start or plan selection fails".
func LockSet(resources map[string]*Resource, names []string) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	acquired := make([]string, 0, len(sorted))
	for _, name := range sorted {
		res, ok := resources[name]
		if !ok {
			// Plan commit validates resource names against the engine's
			// resource templates (see engine.Engine.CommitPlan), so a missing
			// resource here means the agent itself was created without it.
			UnlockSet(resources, acquired)
			return fmt.Errorf("belief: unknown resource %q", name)
		}
		if err := res.Lock(); err != nil {
			UnlockSet(resources, acquired)
			return err
		}
		acquired = append(acquired, name)
	}
	return nil
}

// UnlockSet releases resources by name in reverse order, matching §4.5's
// release discipline. Unlock errors are deliberately ignored: release
// failures (e.g. already at max) must not block an intention from
// reaching a terminal state.
func UnlockSet(resources map[string]*Resource, names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		if res, ok := resources[names[i]]; ok {
			_ = res.Unlock()
		}
	}
}
