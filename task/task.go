// Package task implements the labelled task graph (Coroutine) that forms
// a Plan's body and optional drop coroutine, per spec §4.4.
package task

import (
	"time"

	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/uid"
)

// Result is one of the six outcomes a Task.Tick call can return.
type Result int

const (
	ResultReady Result = iota
	ResultRunning
	ResultWaiting
	ResultYield
	ResultDone
	ResultAsync
)

// Outcome is the full result of ticking a Task: the Result, and (when
// Result is ResultDone or ResultAsync) whether the task succeeded.
type Outcome struct {
	Result  Result
	Success bool
}

func done(success bool) Outcome  { return Outcome{Result: ResultDone, Success: success} }
func async(success bool) Outcome { return Outcome{Result: ResultAsync, Success: success} }
func waiting() Outcome           { return Outcome{Result: ResultWaiting} }
func yield() Outcome             { return Outcome{Result: ResultYield} }

// Completable is implemented by suspending tasks (Action, Pursue, Sleep)
// so the owning Env can deliver an asynchronous completion once the
// corresponding ActionComplete/goal-finish/timer-fire event arrives.
type Completable interface {
	Complete(success bool, reply *model.Message)
}

// Env is the thin seam a Task uses to read beliefs and emit follow-up
// events without importing the agent/intention packages (which in turn
// depend on task), avoiding an import cycle. The intention executor
// implements Env.
type Env interface {
	// Belief returns the owning agent's belief context.
	Belief() *belief.Context
	// EmitAction dispatches an ActionEvent for the given task id.
	EmitAction(taskID int, actionName string, request *model.Message, noWait bool)
	// EmitPursue dispatches a PursueEvent for a sub-goal tied to the given task id.
	EmitPursue(taskID int, goalName string, params *model.Message)
	// EmitDrop dispatches a DropEvent targeting goalHandle.
	EmitDrop(goalHandle uid.ID, mode DropMode)
	// StartTimer arranges for the task with taskID to be completed once d
	// has elapsed on the engine clock.
	StartTimer(taskID int, d time.Duration)
	// Print writes a line to the runtime's configured sink (stdout by
	// default; tests may substitute a buffer).
	Print(line string)
	// LogBranch records a Cond task's evaluated branch for observability.
	LogBranch(taskID int, outcome bool)
}

// DropMode distinguishes a graceful drop (runs the drop coroutine) from a
// forced one (skips it). Re-exported here (mirroring event.DropMode) so
// task bodies do not need to import the event package directly.
type DropMode int

const (
	DropNormal DropMode = iota
	DropForce
)

// ParamBinding is a Task parameter value: either a literal or a reference
// to a field of the current belief context ("from context").
type ParamBinding struct {
	literal     *model.Value
	fromMessage string
	fromField   string
}

// Lit constructs a literal parameter binding.
func Lit(v model.Value) ParamBinding { return ParamBinding{literal: &v} }

// FromContext constructs a parameter binding that reads a field from the
// named belief at tick time.
func FromContext(message, field string) ParamBinding {
	return ParamBinding{fromMessage: message, fromField: field}
}

// Resolve returns the bound value, reading live from ctx for
// context-bound bindings.
func (p ParamBinding) Resolve(ctx *belief.Context) model.Value {
	if p.literal != nil {
		return *p.literal
	}
	return ctx.Get(p.fromMessage, p.fromField, model.Value{})
}

// ResolveMessage materialises a set of named parameter bindings into a
// Message against the given schema name, reading context-bound values
// from ctx at call time.
func ResolveMessage(schemaName string, bindings map[string]ParamBinding, ctx *belief.Context) *model.Message {
	msg := model.NewMessage(schemaName)
	for name, binding := range bindings {
		msg.Set(name, binding.Resolve(ctx))
	}
	return msg
}

// Task is one node of a Coroutine's task graph.
type Task interface {
	// ID is the task's unique id within its owning Coroutine.
	ID() int
	// NoWait reports whether this task was declared async ("nowait"): on
	// Async outcome the coroutine advances immediately instead of
	// blocking on completion.
	NoWait() bool
	// Reset clears any per-run state (started flags, cached results) so
	// the task can be ticked again from a fresh Coroutine.Reset.
	Reset()
	// Tick advances the task by one step.
	Tick(env Env) Outcome
}
