package task

import "github.com/cortexagents/bdi/model"

// PursueTask instantiates a goal template as a new intention and waits
// for that sub-goal's intention to finish before resolving Done with the
// sub-goal's outcome.
type PursueTask struct {
	id         int
	noWait     bool
	goalName   string
	schemaName string
	params     map[string]ParamBinding

	started bool
	settled bool
	success bool
}

// NewPursueTask builds a Pursue task.
func NewPursueTask(id int, goalName, schemaName string, params map[string]ParamBinding, noWait bool) *PursueTask {
	return &PursueTask{id: id, noWait: noWait, goalName: goalName, schemaName: schemaName, params: params}
}

func (p *PursueTask) ID() int      { return p.id }
func (p *PursueTask) NoWait() bool { return p.noWait }

func (p *PursueTask) Reset() {
	p.started = false
	p.settled = false
	p.success = false
}

// Complete delivers the sub-goal's finish outcome to the waiting task.
func (p *PursueTask) Complete(success bool, _ *model.Message) {
	p.settled = true
	p.success = success
}

func (p *PursueTask) Tick(env Env) Outcome {
	if !p.started {
		p.started = true
		params := ResolveMessage(p.schemaName, p.params, env.Belief())
		env.EmitPursue(p.id, p.goalName, params)
		if p.noWait {
			return async(true)
		}
		return waiting()
	}
	if p.settled {
		return done(p.success)
	}
	return waiting()
}
