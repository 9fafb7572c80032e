// Package agent implements Agent: the owner of a belief context, a set of
// active intentions, and a per-agent event dispatcher (spec §3, §4.1's
// "tick all agents" step, §4.2's dispatch contract). Agents never share
// mutable state; all inter-agent communication is through events.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/goal"
	"github.com/cortexagents/bdi/intention"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/telemetry"
	"github.com/cortexagents/bdi/uid"
)

// ActionHandler executes a committed action: given the acting agent's
// belief context and the request message materialised from the issuing
// Action task's parameter bindings, it returns a reply message and
// whether the action succeeded.
type ActionHandler func(ctx *belief.Context, request *model.Message) (*model.Message, bool)

// Registry is the subset of the engine's model registry an Agent needs to
// resolve Pursue and Action events locally. The engine implements this;
// Agent never imports the engine package (spec §9: "never hold a direct
// back-reference to the owning parent").
type Registry interface {
	GoalTemplate(name string) (*goal.Template, bool)
	ActionHandler(name string) (ActionHandler, bool)
}

// BDILogEntry records a Cond task's evaluated branch, the protocol-level
// observability event named in spec §6 ("BDILog").
type BDILogEntry struct {
	GoalName string
	TaskID   int
	Outcome  bool
	At       time.Duration
}

type pendingTimer struct {
	deadline    time.Duration
	intentionID uid.ID
	taskID      int
}

type parentRef struct {
	intentionID uid.ID
	taskID      int
}

// Agent owns a BeliefContext, a set of active Intentions (one per pursued
// desire), and a per-agent inbox queue. Proxy agents additionally mirror
// every dispatched event to the outbox for a remote BusAdapter.
type Agent struct {
	ID    uid.ID
	Name  string
	Proxy bool

	belief   *belief.Context
	registry Registry
	central  *event.Queue
	inbox    *event.Queue
	tel      telemetry.Telemetry
	printSink func(string)

	executors map[uid.ID]*intention.Executor
	order     []uid.ID

	goalToIntention map[uid.ID]uid.ID
	parentLink      map[uid.ID]parentRef
	rootPromises    map[uid.ID]*event.Promise

	pendingTimers []pendingTimer
	clock         time.Duration

	outbox  []*event.Event
	bdiLogs []BDILogEntry

	// PursueInterceptor, when set, is consulted before a Pursue event
	// installs a local intention. Team uses it to route delegate-eligible
	// goals to a member via auction instead of running them locally
	// (spec §4.7). Returning true means the event is already fully
	// handled (including resolving its Promise or queuing it for later
	// resolution); Agent then skips its normal local handling.
	PursueInterceptor func(ev *event.Event) bool
}

// New constructs an Agent bound to the given model Registry and engine
// central event queue. printSink defaults to writing to stdout via
// fmt.Println when nil.
func New(id uid.ID, name string, registry Registry, central *event.Queue, tel telemetry.Telemetry, printSink func(string)) *Agent {
	return &Agent{
		ID:              id,
		Name:            name,
		belief:          belief.New(),
		registry:        registry,
		central:         central,
		inbox:           event.NewQueue(),
		tel:             tel,
		printSink:       printSink,
		executors:       make(map[uid.ID]*intention.Executor),
		goalToIntention: make(map[uid.ID]uid.ID),
		parentLink:      make(map[uid.ID]parentRef),
		rootPromises:    make(map[uid.ID]*event.Promise),
	}
}

// Belief returns the agent's belief context.
func (a *Agent) Belief() *belief.Context { return a.belief }

// Enqueue pushes an event into the agent's own inbox; called by the
// engine's tick routing step once it has resolved the event's recipient.
func (a *Agent) Enqueue(e *event.Event) { a.inbox.Push(e) }

// ActiveIntentionCount returns the number of intentions currently
// in-flight, used by the engine's exit_when_done condition.
func (a *Agent) ActiveIntentionCount() int { return len(a.executors) }

// InboxEmpty reports whether the agent's own inbox currently has no
// pending events.
func (a *Agent) InboxEmpty() bool { return a.inbox.Empty() }

// DrainOutbox returns and clears the protocol-eligible events accumulated
// since the last call, for the engine to translate and forward to a
// BusAdapter.
func (a *Agent) DrainOutbox() []*event.Event {
	out := a.outbox
	a.outbox = nil
	return out
}

// DrainBDILogs returns and clears the Cond-branch log entries
// accumulated since the last call.
func (a *Agent) DrainBDILogs() []BDILogEntry {
	out := a.bdiLogs
	a.bdiLogs = nil
	return out
}

func (a *Agent) recordOutbox(ev *event.Event) {
	a.outbox = append(a.outbox, ev)
}

// RecordOutbox appends ev to the agent's outbox for the next DrainOutbox
// call. Team embeds *Agent but cannot reach the unexported recordOutbox
// from outside this package; this is the seam it uses to route
// Auction/Delegation protocol events (spec §4.7) to a BusAdapter.
func (a *Agent) RecordOutbox(ev *event.Event) {
	a.recordOutbox(ev)
}

// perceptHook is installed on every Resource this agent owns so a
// mutation always enqueues a percept event (spec §4.3).
func (a *Agent) perceptHook(resourceName string, count int) {
	ev := event.NewEvent(event.KindPercept, a.ID, a.ID)
	ev.Percept = &event.PerceptPayload{ResourceName: resourceName, Count: count}
	a.inbox.Push(ev)
}

// AddResource registers a resource owned by this agent, wiring its
// percept hook.
func (a *Agent) AddResource(name string, count, min, max int) error {
	res, err := belief.NewResource(name, count, min, max, a.ID, a.perceptHook)
	if err != nil {
		return err
	}
	return a.belief.AddResource(res)
}

// Pursue installs a new intention for the named goal on this agent and
// returns the Promise resolved when the intention reaches a terminal
// state. caller is the id of the agent or external actor that requested
// the pursue (uid.Nil for direct user calls).
func (a *Agent) Pursue(caller uid.ID, goalName string, params *model.Message) *event.Promise {
	ev := event.NewEvent(event.KindPursue, caller, a.ID)
	ev.Pursue = &event.PursuePayload{GoalName: goalName, Params: params}
	a.inbox.Push(ev)
	return ev.Promise
}

// Tick drains the agent's inbox, dispatching each event, then advances
// every active intention by one step, finalising any that reach a
// terminal state. clock is the engine's current internal clock.
func (a *Agent) Tick(clock time.Duration) {
	a.clock = clock
	a.fireDueTimers(clock)

	for _, ev := range a.inbox.Drain() {
		a.dispatch(ev)
	}

	for _, id := range append([]uid.ID(nil), a.order...) {
		ex, ok := a.executors[id]
		if !ok {
			continue
		}
		status := ex.Tick()
		if status.Terminal() {
			a.finish(ex, status)
		}
	}
}

func (a *Agent) fireDueTimers(clock time.Duration) {
	if len(a.pendingTimers) == 0 {
		return
	}
	remaining := a.pendingTimers[:0]
	for _, t := range a.pendingTimers {
		if t.deadline > clock {
			remaining = append(remaining, t)
			continue
		}
		if ex, ok := a.executors[t.intentionID]; ok {
			ex.RouteTimerFire(t.taskID)
		}
	}
	a.pendingTimers = remaining
}

func (a *Agent) finish(ex *intention.Executor, status intention.Status) {
	success := status == intention.FinishedSuccess
	reason := ex.Reason()

	delete(a.executors, ex.ID)
	a.removeFromOrder(ex.ID)
	delete(a.goalToIntention, ex.GoalInst.Handle.ID)

	if parent, ok := a.parentLink[ex.ID]; ok {
		delete(a.parentLink, ex.ID)
		if parentEx, ok := a.executors[parent.intentionID]; ok {
			parentEx.RoutePursueComplete(parent.taskID, success)
		}
		return
	}
	if p, ok := a.rootPromises[ex.ID]; ok {
		delete(a.rootPromises, ex.ID)
		st := event.Success
		if !success {
			st = event.Fail
		}
		p.Resolve(st, reason)
	}
}

func (a *Agent) removeFromOrder(id uid.ID) {
	for i, oid := range a.order {
		if oid.Equal(id) {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

// intention.Host implementation.

// EmitAction implements intention.Host by pushing a new ActionEvent onto
// the engine's central queue.
func (a *Agent) EmitAction(agentID, goalID, intentionID uid.ID, planName string, taskID int, actionName string, request *model.Message, noWait bool) {
	ev := event.NewEvent(event.KindAction, agentID, agentID)
	ev.Action = &event.ActionPayload{
		AgentID: agentID, GoalID: goalID, IntentionID: intentionID,
		PlanName: planName, TaskID: taskID, ActionName: actionName,
		Request: request, NoWait: noWait,
	}
	a.central.Push(ev)
}

// EmitPursue implements intention.Host.
func (a *Agent) EmitPursue(agentID, parentIntentionID uid.ID, parentTaskID int, goalName string, params *model.Message) {
	ev := event.NewEvent(event.KindPursue, agentID, agentID)
	ev.Pursue = &event.PursuePayload{GoalName: goalName, Params: params, ParentIntent: parentIntentionID, ParentTask: parentTaskID}
	a.central.Push(ev)
}

// EmitDrop implements intention.Host.
func (a *Agent) EmitDrop(agentID, goalHandle uid.ID, mode task.DropMode) {
	evMode := event.DropNormal
	if mode == task.DropForce {
		evMode = event.DropForce
	}
	ev := event.NewEvent(event.KindDrop, agentID, agentID)
	ev.Drop = &event.DropPayload{GoalHandle: goalHandle, Mode: evMode}
	a.central.Push(ev)
}

// StartTimer implements intention.Host.
func (a *Agent) StartTimer(intentionID uid.ID, taskID int, d time.Duration) {
	a.pendingTimers = append(a.pendingTimers, pendingTimer{deadline: a.clock + d, intentionID: intentionID, taskID: taskID})
}

// Print implements intention.Host.
func (a *Agent) Print(line string) {
	if a.printSink != nil {
		a.printSink(line)
		return
	}
	fmt.Println(line)
}

// LogBranch implements intention.Host.
func (a *Agent) LogBranch(goalName string, taskID int, outcome bool) {
	a.bdiLogs = append(a.bdiLogs, BDILogEntry{GoalName: goalName, TaskID: taskID, Outcome: outcome, At: a.clock})
	a.tel.Logger.Debug(context.Background(), "bdi cond branch", "agent", a.Name, "goal", goalName, "task", taskID, "outcome", outcome)
}
