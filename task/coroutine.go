package task

// Terminal is the cursor value meaning "no more tasks"; a Coroutine is
// finished once its cursor reaches Terminal and no async task it launched
// is still outstanding.
const Terminal = -1

// Coroutine is a labelled graph of Tasks wired together by per-task
// success/fail edges. It is the body (or drop body) of a Plan clone: each
// active Intention owns one independently-cursored Coroutine instance.
type Coroutine struct {
	tasks       map[int]Task
	order       []int
	start       int
	successEdge map[int]int
	failEdge    map[int]int

	cursor           int
	asyncOutstanding int
	finished         bool
	lastSuccess      bool
}

// NewCoroutine builds a Coroutine from its task set and edge maps. tasks
// not present in successEdge/failEdge implicitly terminate the run on
// that branch.
func NewCoroutine(start int, tasks []Task, successEdge, failEdge map[int]int) *Coroutine {
	c := &Coroutine{
		tasks:       make(map[int]Task, len(tasks)),
		order:       make([]int, 0, len(tasks)),
		start:       start,
		successEdge: successEdge,
		failEdge:    failEdge,
	}
	for _, t := range tasks {
		c.tasks[t.ID()] = t
		c.order = append(c.order, t.ID())
	}
	c.cursor = start
	return c
}

// TaskByID looks up a task in the graph by its id, for routing an
// asynchronous completion (ActionComplete, goal finish, timer fire) to the
// task awaiting it.
func (c *Coroutine) TaskByID(id int) (Task, bool) {
	t, ok := c.tasks[id]
	return t, ok
}

// Finished reports whether the coroutine has run to completion: cursor at
// Terminal and no outstanding nowait task.
func (c *Coroutine) Finished() bool { return c.finished }

// LastSuccess reports the success/fail branch the coroutine terminated
// on. Only meaningful once Finished returns true.
func (c *Coroutine) LastSuccess() bool { return c.lastSuccess }

// NoteAsyncComplete decrements the outstanding-async counter when a nowait
// task's underlying event finally resolves. The coroutine only becomes
// Finished once this reaches zero and the cursor has already reached
// Terminal; the branch taken at dispatch time is never revisited.
func (c *Coroutine) NoteAsyncComplete() {
	if c.asyncOutstanding > 0 {
		c.asyncOutstanding--
	}
	if c.cursor == Terminal && c.asyncOutstanding == 0 {
		c.finished = true
	}
}

// Reset reassigns the coroutine to a fresh run: cursor back to start,
// outstanding counter cleared, and every task's own per-run state cleared.
func (c *Coroutine) Reset() {
	c.cursor = c.start
	c.asyncOutstanding = 0
	c.finished = false
	c.lastSuccess = false
	for _, id := range c.order {
		c.tasks[id].Reset()
	}
}

// Tick advances the coroutine as far as it can go without blocking:
// synchronous tasks (Done outcomes) chain immediately to their successor
// within the same call, stopping only at a Waiting/Yield outcome or at
// Terminal. It returns whether the coroutine is now fully finished.
func (c *Coroutine) Tick(env Env) (finished bool) {
	if c.finished {
		return true
	}
	for {
		if c.cursor == Terminal {
			if c.asyncOutstanding == 0 {
				c.finished = true
			}
			return c.finished
		}
		t, ok := c.tasks[c.cursor]
		if !ok {
			// Dangling edge: treat as an implicit terminal fail branch.
			c.cursor = Terminal
			c.lastSuccess = false
			continue
		}
		outcome := t.Tick(env)
		switch outcome.Result {
		case ResultWaiting, ResultYield:
			return false
		case ResultDone:
			c.lastSuccess = outcome.Success
			c.cursor = c.nextLabel(t.ID(), outcome.Success)
			continue
		case ResultAsync:
			c.asyncOutstanding++
			// A nowait task never blocks the cursor: advance immediately
			// along the success edge regardless of how it eventually
			// resolves, per the async-outstanding-counter discipline.
			c.cursor = c.nextLabel(t.ID(), true)
			continue
		default: // ResultReady, ResultRunning: not yet settled, re-tick next pass.
			return false
		}
	}
}

func (c *Coroutine) nextLabel(taskID int, success bool) int {
	if success {
		if next, ok := c.successEdge[taskID]; ok {
			return next
		}
		return Terminal
	}
	if next, ok := c.failEdge[taskID]; ok {
		return next
	}
	return Terminal
}
