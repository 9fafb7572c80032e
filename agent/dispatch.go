package agent

import (
	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/intention"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/uid"
)

// dispatch mutates agent-local state in response to one inbox event; it
// must never block (spec §4.2). Proxy agents mirror every event to the
// bus regardless of kind.
func (a *Agent) dispatch(ev *event.Event) {
	if a.Proxy {
		a.recordOutbox(ev)
	}

	switch ev.Kind {
	case event.KindPursue:
		a.handlePursue(ev)
	case event.KindDrop:
		a.handleDrop(ev)
	case event.KindAction:
		a.handleAction(ev)
	case event.KindActionComplete:
		a.handleActionComplete(ev)
	case event.KindMessage:
		if ev.Message != nil {
			_ = a.belief.SetMessage(ev.Message)
		}
		a.maybeRecordOutbox(ev)
	case event.KindShareBeliefSet:
		if ev.ShareBeliefSet != nil {
			_ = a.belief.SetMessage(ev.ShareBeliefSet)
		}
		a.maybeRecordOutbox(ev)
	default:
		// Percept, Timer, Control, Schedule, Delegation, Auction, Tactic,
		// Register: either purely observational at the base Agent level
		// (Team overrides Delegation/Auction) or already fully handled by
		// the synchronous mutation that produced them.
		a.maybeRecordOutbox(ev)
	}
}

func (a *Agent) maybeRecordOutbox(ev *event.Event) {
	if !a.Proxy {
		a.recordOutbox(ev)
	}
}

func (a *Agent) handlePursue(ev *event.Event) {
	payload := ev.Pursue
	if payload == nil {
		ev.Resolve(event.Fail, "malformed-pursue")
		return
	}
	if a.PursueInterceptor != nil && a.PursueInterceptor(ev) {
		return
	}
	tmpl, ok := a.registry.GoalTemplate(payload.GoalName)
	if !ok {
		ev.Resolve(event.Fail, "unknown-goal")
		return
	}
	if tmpl.ParamSchema != "" && payload.Params != nil && payload.Params.SchemaName != tmpl.ParamSchema {
		ev.Resolve(event.Fail, "param-schema-mismatch")
		return
	}

	inst := tmpl.Instantiate(payload.Params)
	id := uid.New()
	ex := intention.New(a.ID, id, inst, a.belief, a.belief.Resources(), a)
	a.executors[id] = ex
	a.order = append(a.order, id)
	a.goalToIntention[inst.Handle.ID] = id

	if payload.ParentIntent.Valid() {
		a.parentLink[id] = parentRef{intentionID: payload.ParentIntent, taskID: payload.ParentTask}
	} else {
		a.rootPromises[id] = ev.Promise
	}
	a.maybeRecordOutbox(ev)
}

func (a *Agent) handleDrop(ev *event.Event) {
	payload := ev.Drop
	if payload == nil {
		ev.Resolve(event.Fail, "malformed-drop")
		return
	}
	intentionID, ok := a.goalToIntention[payload.GoalHandle]
	if !ok {
		ev.Resolve(event.Fail, "no_recipient")
		return
	}
	ex, ok := a.executors[intentionID]
	if !ok {
		ev.Resolve(event.Fail, "no_recipient")
		return
	}
	mode := task.DropNormal
	if payload.Mode == event.DropForce {
		mode = task.DropForce
	}
	ex.RequestDrop(mode)
	ev.Resolve(event.Success, "")
	a.maybeRecordOutbox(ev)
}

func (a *Agent) handleAction(ev *event.Event) {
	payload := ev.Action
	if payload == nil {
		ev.Resolve(event.Fail, "malformed-action")
		return
	}

	var out event.ActionCompletePayload
	out.TaskID = payload.TaskID
	if handler, ok := a.registry.ActionHandler(payload.ActionName); ok {
		out.Reply, out.Success = handler(a.belief, payload.Request)
	}

	if ex, ok := a.executors[payload.IntentionID]; ok {
		ex.RouteActionComplete(payload.TaskID, out.Success, out.Reply)
	}
	st := event.Success
	if !out.Success {
		st = event.Fail
	}
	ev.Resolve(st, "")
	a.maybeRecordOutbox(ev)
}

// handleActionComplete supports proxy agents forwarding a remote action's
// completion back into the local dispatch loop; in the fully local flow
// handleAction resolves completions inline without this event kind ever
// reaching the inbox.
func (a *Agent) handleActionComplete(ev *event.Event) {
	payload := ev.ActionComplete
	if payload == nil {
		return
	}
	for _, ex := range a.executors {
		ex.RouteActionComplete(payload.TaskID, payload.Success, payload.Reply)
	}
	a.maybeRecordOutbox(ev)
}
