package task

import "github.com/cortexagents/bdi/belief"

// YieldUntilTask re-evaluates a belief Query every tick, yielding control
// back to the engine while it is false and resolving Done success the
// first tick it becomes true. It never fails.
type YieldUntilTask struct {
	id    int
	query belief.Query
}

// NewYieldUntilTask builds a YieldUntil task over the given query.
func NewYieldUntilTask(id int, q belief.Query) *YieldUntilTask {
	return &YieldUntilTask{id: id, query: q}
}

func (y *YieldUntilTask) ID() int      { return y.id }
func (y *YieldUntilTask) NoWait() bool { return false }
func (y *YieldUntilTask) Reset()       {}

func (y *YieldUntilTask) Tick(env Env) Outcome {
	if y.query.Eval(env.Belief()) {
		return done(true)
	}
	return yield()
}
