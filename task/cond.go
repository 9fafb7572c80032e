package task

import "github.com/cortexagents/bdi/belief"

// CondTask evaluates a belief Query once and resolves Done immediately,
// branching success or fail on the result. It never suspends.
type CondTask struct {
	id    int
	query belief.Query
}

// NewCondTask builds a Cond task over the given query.
func NewCondTask(id int, q belief.Query) *CondTask {
	return &CondTask{id: id, query: q}
}

func (c *CondTask) ID() int      { return c.id }
func (c *CondTask) NoWait() bool { return false }
func (c *CondTask) Reset()       {}

func (c *CondTask) Tick(env Env) Outcome {
	result := c.query.Eval(env.Belief())
	env.LogBranch(c.id, result)
	return done(result)
}
