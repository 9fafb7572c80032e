package task

import "github.com/cortexagents/bdi/model"

// ActionTask invokes a named external/service action with bound
// parameters. It suspends (Waiting, or Async for a nowait task) until an
// ActionComplete event for its id arrives.
type ActionTask struct {
	id         int
	noWait     bool
	actionName string
	schemaName string
	params     map[string]ParamBinding

	started bool
	settled bool
	success bool
	reply   *model.Message
}

// NewActionTask builds an Action task. schemaName names the request
// message schema used to materialise params at dispatch time.
func NewActionTask(id int, actionName, schemaName string, params map[string]ParamBinding, noWait bool) *ActionTask {
	return &ActionTask{id: id, noWait: noWait, actionName: actionName, schemaName: schemaName, params: params}
}

func (a *ActionTask) ID() int      { return a.id }
func (a *ActionTask) NoWait() bool { return a.noWait }

func (a *ActionTask) Reset() {
	a.started = false
	a.settled = false
	a.success = false
	a.reply = nil
}

// Complete delivers the ActionComplete outcome; called by the intention
// executor once it dequeues the matching event.
func (a *ActionTask) Complete(success bool, reply *model.Message) {
	a.settled = true
	a.success = success
	a.reply = reply
}

// Reply returns the last ActionComplete payload, if any.
func (a *ActionTask) Reply() *model.Message { return a.reply }

func (a *ActionTask) Tick(env Env) Outcome {
	if !a.started {
		a.started = true
		request := ResolveMessage(a.schemaName, a.params, env.Belief())
		env.EmitAction(a.id, a.actionName, request, a.noWait)
		if a.noWait {
			return async(true)
		}
		return waiting()
	}
	if a.settled {
		return done(a.success)
	}
	return waiting()
}
