// Package intention implements the per-active-desire state machine of
// spec §4.6: select a plan, tick its body, apply effects, release
// resources, and retry or finish. One Executor is created per Intention
// and owned exclusively by its Agent.
package intention

import (
	"time"

	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/goal"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/uid"
)

// Status is the per-tick state of an Executor's governing state machine.
type Status int

const (
	Selecting Status = iota
	Executing
	Dropping
	FinishedSuccess
	FinishedFailed
	FinishedDropped
)

// Terminal reports whether s is one of the three Finished* states.
func (s Status) Terminal() bool { return s >= FinishedSuccess }

func (s Status) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Executing:
		return "executing"
	case Dropping:
		return "dropping"
	case FinishedSuccess:
		return "finished-success"
	case FinishedFailed:
		return "finished-failed"
	case FinishedDropped:
		return "finished-dropped"
	default:
		return "unknown"
	}
}

// Host is the seam an Executor uses to emit follow-up events, schedule
// timers, and write Print output, without importing the agent package
// (which owns Executors and would otherwise form an import cycle).
type Host interface {
	// EmitAction dispatches an ActionEvent for the given task, bound to
	// the issuing agent/goal/intention/plan context.
	EmitAction(agentID, goalID, intentionID uid.ID, planName string, taskID int, actionName string, request *model.Message, noWait bool)
	// EmitPursue dispatches a PursueEvent for a sub-goal, carrying the
	// parent intention/task id for completion routing.
	EmitPursue(agentID, parentIntentionID uid.ID, parentTaskID int, goalName string, params *model.Message)
	// EmitDrop dispatches a DropEvent targeting goalHandle.
	EmitDrop(agentID, goalHandle uid.ID, mode task.DropMode)
	// StartTimer arranges for the Executor's RouteTimerFire to be called
	// for taskID once d has elapsed on the engine clock.
	StartTimer(intentionID uid.ID, taskID int, d time.Duration)
	// Print writes a line to the runtime's configured sink.
	Print(line string)
	// LogBranch records a Cond task's evaluated branch for observability.
	LogBranch(goalName string, taskID int, outcome bool)
}

// Executor is the per-Intention state machine. It implements task.Env so
// a Plan Instance's body/drop coroutine can be ticked directly against it.
type Executor struct {
	ID       uid.ID
	AgentID  uid.ID
	GoalInst *goal.Instance
	ctx      *belief.Context
	resources map[string]*belief.Resource
	host     Host

	status Status
	reason string

	current *plan.Instance

	dropRequested bool
	dropMode      task.DropMode
}

// New constructs an Executor in the Selecting state for a freshly
// instantiated goal.
func New(agentID, id uid.ID, goalInst *goal.Instance, ctx *belief.Context, resources map[string]*belief.Resource, host Host) *Executor {
	return &Executor{
		ID:        id,
		AgentID:   agentID,
		GoalInst:  goalInst,
		ctx:       ctx,
		resources: resources,
		host:      host,
		status:    Selecting,
	}
}

// Status returns the executor's current state.
func (e *Executor) Status() Status { return e.status }

// Reason returns the human-readable reason attached to a terminal state
// (e.g. "dropped", "plans-exhausted"); empty otherwise.
func (e *Executor) Reason() string { return e.reason }

// RequestDrop marks the executor for cancellation. A Normal drop lets the
// current plan instance run its drop coroutine (if any); a Force drop
// resolves straight to Dropped, per spec §5.
func (e *Executor) RequestDrop(mode task.DropMode) {
	if e.status.Terminal() {
		return
	}
	e.dropRequested = true
	e.dropMode = mode
	if mode == task.DropForce {
		if e.current != nil {
			e.current.ForceDrop()
			e.current.ReleaseLocks(e.resources)
		}
		e.status = FinishedDropped
		e.reason = "dropped"
	}
}

// Tick advances the executor's state machine by one step and returns the
// resulting status.
func (e *Executor) Tick() Status {
	if e.status.Terminal() {
		return e.status
	}
	switch e.status {
	case Selecting:
		e.tickSelecting()
	case Executing:
		e.tickExecuting()
	case Dropping:
		e.tickDropping()
	}
	return e.status
}

func (e *Executor) tickSelecting() {
	e.ctx.SetCurrentGoal(e.GoalInst.Params)

	if e.dropRequested {
		e.beginDrop()
		return
	}
	if e.GoalInst.Satisfied(e.ctx) {
		e.status = FinishedSuccess
		return
	}
	if e.GoalInst.ShouldDrop(e.ctx) {
		e.status = FinishedDropped
		e.reason = "drop-when"
		return
	}

	p, ok := e.GoalInst.Selector.Next(e.ctx)
	if !ok {
		e.status = FinishedFailed
		e.reason = "plans-exhausted"
		return
	}

	inst := p.Instantiate()
	if err := inst.AcquireLocks(e.resources); err != nil {
		// Resource contention: the plan would have been a candidate but
		// could not lock its declared resources. Record a failed attempt
		// and remain Selecting; a later tick (after the contending
		// intention releases the resource) may succeed.
		e.GoalInst.Selector.Record(p.Name, false)
		return
	}

	e.current = inst
	e.status = Executing
	// Advance the freshly-selected plan immediately so the first task's
	// dispatch (e.g. an Action) is not delayed by an extra idle tick.
	e.tickExecuting()
}

func (e *Executor) tickExecuting() {
	if e.dropRequested {
		e.beginDrop()
		return
	}

	finish := e.current.Tick(e, e.ctx)
	switch finish {
	case plan.NotYet:
		return
	case plan.Success:
		e.current.ReleaseLocks(e.resources)
		e.GoalInst.Selector.Record(e.current.Plan().Name, true)
		if e.GoalInst.Persistent() {
			e.GoalInst.ResetSelection()
			e.current = nil
			e.status = Selecting
			return
		}
		e.status = FinishedSuccess
	case plan.Failed:
		e.current.ReleaseLocks(e.resources)
		e.GoalInst.Selector.Record(e.current.Plan().Name, false)
		e.current = nil
		e.status = Selecting
	case plan.Dropped:
		e.current.ReleaseLocks(e.resources)
		e.status = FinishedDropped
		e.reason = "dropped"
	}
}

func (e *Executor) beginDrop() {
	if e.current == nil {
		e.status = FinishedDropped
		e.reason = "dropped"
		return
	}
	e.current.RequestDrop()
	e.status = Dropping
	e.tickDropping()
}

func (e *Executor) tickDropping() {
	finish := e.current.Tick(e, e.ctx)
	if finish == plan.NotYet {
		return
	}
	e.current.ReleaseLocks(e.resources)
	e.status = FinishedDropped
	e.reason = "dropped"
}

// routeCompletable looks up taskID in the currently active coroutine
// (body, or drop body while Dropping) and delivers a completion, noting
// the async-outstanding decrement for nowait tasks.
func (e *Executor) routeCompletable(taskID int, success bool, reply *model.Message) {
	if e.current == nil {
		return
	}
	co := e.current.CurrentCoroutine()
	t, ok := co.TaskByID(taskID)
	if !ok {
		return
	}
	completable, ok := t.(task.Completable)
	if !ok {
		return
	}
	completable.Complete(success, reply)
	if t.NoWait() {
		co.NoteAsyncComplete()
	}
}

// RouteActionComplete delivers an ActionComplete event to the Action task
// with the given id.
func (e *Executor) RouteActionComplete(taskID int, success bool, reply *model.Message) {
	e.routeCompletable(taskID, success, reply)
}

// RouteTimerFire delivers a timer-fire signal to the Sleep task with the
// given id.
func (e *Executor) RouteTimerFire(taskID int) {
	e.routeCompletable(taskID, true, nil)
}

// RoutePursueComplete delivers a sub-goal's finish outcome to the Pursue
// task with the given id.
func (e *Executor) RoutePursueComplete(taskID int, success bool) {
	e.routeCompletable(taskID, success, nil)
}

// The methods below implement task.Env.

// Belief returns the goal's owning belief context.
func (e *Executor) Belief() *belief.Context { return e.ctx }

// EmitAction implements task.Env.
func (e *Executor) EmitAction(taskID int, actionName string, request *model.Message, noWait bool) {
	planName := ""
	if e.current != nil {
		planName = e.current.Plan().Name
	}
	e.host.EmitAction(e.AgentID, e.GoalInst.Handle.ID, e.ID, planName, taskID, actionName, request, noWait)
}

// EmitPursue implements task.Env.
func (e *Executor) EmitPursue(taskID int, goalName string, params *model.Message) {
	e.host.EmitPursue(e.AgentID, e.ID, taskID, goalName, params)
}

// EmitDrop implements task.Env.
func (e *Executor) EmitDrop(goalHandle uid.ID, mode task.DropMode) {
	e.host.EmitDrop(e.AgentID, goalHandle, mode)
}

// StartTimer implements task.Env.
func (e *Executor) StartTimer(taskID int, d time.Duration) {
	e.host.StartTimer(e.ID, taskID, d)
}

// Print implements task.Env.
func (e *Executor) Print(line string) { e.host.Print(line) }

// LogBranch implements task.Env.
func (e *Executor) LogBranch(taskID int, outcome bool) {
	e.host.LogBranch(e.GoalInst.Handle.Name, taskID, outcome)
}
