// Package plan implements Plan templates and their per-intention running
// instances: the coroutine body, optional drop coroutine, resource lock
// acquisition/release, and the commit-once-on-success effects callback.
package plan

import (
	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/task"
)

// FinishState is the terminal classification of a running plan instance.
type FinishState int

const (
	NotYet FinishState = iota
	Success
	Failed
	Dropped
)

func (f FinishState) String() string {
	switch f {
	case NotYet:
		return "not-yet"
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Effects is run exactly once, after the plan body coroutine finishes on
// its success branch and before resource locks are released.
type Effects func(ctx *belief.Context)

// Plan is the immutable template a goal's tactic selects among. Each
// selection produces an independent Instance via Instantiate, since a
// Coroutine (and its tasks) carries per-run state that cannot be shared
// across concurrently running intentions.
type Plan struct {
	Name            string
	GoalName        string
	Precondition    belief.Query
	DropWhen        belief.Query
	ResourceLocks   []string
	Effects         Effects
	BodyFactory     func() *task.Coroutine
	DropBodyFactory func() *task.Coroutine
}

// NewPlan constructs a Plan template. Precondition/DropWhen default to
// Always/Never respectively when left zero-valued.
func NewPlan(name, goalName string, bodyFactory func() *task.Coroutine) *Plan {
	return &Plan{
		Name:         name,
		GoalName:     goalName,
		Precondition: belief.Always(),
		DropWhen:     belief.Never(),
		BodyFactory:  bodyFactory,
	}
}

// Instantiate builds a fresh running Instance of this plan: a new body
// Coroutine (and drop Coroutine, if configured), with no resources yet
// acquired.
func (p *Plan) Instantiate() *Instance {
	inst := &Instance{plan: p, body: p.BodyFactory()}
	if p.DropBodyFactory != nil {
		inst.dropBody = p.DropBodyFactory()
	}
	return inst
}

// Instance is one running attempt of a Plan, owned by exactly one
// Intention for its lifetime.
type Instance struct {
	plan     *Plan
	body     *task.Coroutine
	dropBody *task.Coroutine

	dropping       bool
	locksAcquired  bool
	effectsApplied bool
	finish         FinishState
}

// Plan returns the template this instance was spawned from.
func (inst *Instance) Plan() *Plan { return inst.plan }

// Finish returns the instance's terminal classification; NotYet until the
// body (or drop body) coroutine has run to completion.
func (inst *Instance) Finish() FinishState { return inst.finish }

// AcquireLocks locks every resource named in the plan's ResourceLocks, in
// sorted order, rolling back on partial failure. Called once at plan
// commit time before the first Tick.
func (inst *Instance) AcquireLocks(resources map[string]*belief.Resource) error {
	if len(inst.plan.ResourceLocks) == 0 {
		return nil
	}
	if err := belief.LockSet(resources, inst.plan.ResourceLocks); err != nil {
		return err
	}
	inst.locksAcquired = true
	return nil
}

// ReleaseLocks releases any acquired resources in reverse order. Safe to
// call multiple times; a no-op once already released.
func (inst *Instance) ReleaseLocks(resources map[string]*belief.Resource) {
	if !inst.locksAcquired {
		return
	}
	belief.UnlockSet(resources, inst.plan.ResourceLocks)
	inst.locksAcquired = false
}

// RequestDrop switches the instance onto its drop coroutine (if the plan
// declared one); otherwise the next Tick resolves directly to Dropped.
// Calling RequestDrop after the instance has already reached a terminal
// state is a no-op.
func (inst *Instance) RequestDrop() {
	if inst.finish != NotYet {
		return
	}
	inst.dropping = true
}

// ForceDrop resolves the instance straight to Dropped, skipping the drop
// coroutine even if the plan declared one (spec §5: a Force DropMode
// "skips it"). A no-op once the instance has already reached a terminal
// state.
func (inst *Instance) ForceDrop() {
	if inst.finish != NotYet {
		return
	}
	inst.finish = Dropped
}

// CurrentCoroutine returns whichever coroutine (body or drop body) is
// currently active, so the owning executor can route an ActionComplete /
// Pursue-finish / timer-fire event to the right task by id.
func (inst *Instance) CurrentCoroutine() *task.Coroutine {
	if inst.dropping && inst.dropBody != nil {
		return inst.dropBody
	}
	return inst.body
}

// Tick advances the active coroutine by one step and returns the
// instance's resulting FinishState (NotYet if still running). Effects
// run exactly once, the tick the body coroutine finishes on its success
// branch.
func (inst *Instance) Tick(env task.Env, ctx *belief.Context) FinishState {
	if inst.finish != NotYet {
		return inst.finish
	}

	if inst.dropping {
		if inst.dropBody == nil {
			inst.finish = Dropped
			return inst.finish
		}
		if inst.dropBody.Tick(env) {
			inst.finish = Dropped
		}
		return inst.finish
	}

	if !inst.body.Tick(env) {
		return NotYet
	}
	if inst.body.LastSuccess() {
		if !inst.effectsApplied && inst.plan.Effects != nil {
			inst.plan.Effects(ctx)
		}
		inst.effectsApplied = true
		inst.finish = Success
	} else {
		inst.finish = Failed
	}
	return inst.finish
}
