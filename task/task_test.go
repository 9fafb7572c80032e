package task_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/uid"
)

type fakeEnv struct {
	ctx     *belief.Context
	printed []string
	branch  map[int]bool

	actions []int
	pursues []int
	drops   []uid.ID
	timers  []int
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{ctx: belief.New(), branch: make(map[int]bool)}
}

func (f *fakeEnv) Belief() *belief.Context { return f.ctx }
func (f *fakeEnv) EmitAction(taskID int, _ string, _ *model.Message, _ bool) {
	f.actions = append(f.actions, taskID)
}
func (f *fakeEnv) EmitPursue(taskID int, _ string, _ *model.Message) {
	f.pursues = append(f.pursues, taskID)
}
func (f *fakeEnv) EmitDrop(goalHandle uid.ID, _ task.DropMode) {
	f.drops = append(f.drops, goalHandle)
}
func (f *fakeEnv) StartTimer(taskID int, _ time.Duration) { f.timers = append(f.timers, taskID) }
func (f *fakeEnv) Print(line string)                      { f.printed = append(f.printed, line) }
func (f *fakeEnv) LogBranch(taskID int, outcome bool)     { f.branch[taskID] = outcome }

func TestActionTaskWaitsThenCompletes(t *testing.T) {
	env := newFakeEnv()
	at := task.NewActionTask(1, "doThing", "doThing.request", nil, false)

	out := at.Tick(env)
	assert.Equal(t, task.ResultWaiting, out.Result)
	require.Len(t, env.actions, 1)

	out = at.Tick(env)
	assert.Equal(t, task.ResultWaiting, out.Result, "still waiting before Complete")

	at.Complete(true, model.NewMessage("doThing.reply"))
	out = at.Tick(env)
	assert.Equal(t, task.ResultDone, out.Result)
	assert.True(t, out.Success)
}

func TestActionTaskNoWaitReturnsAsyncImmediately(t *testing.T) {
	env := newFakeEnv()
	at := task.NewActionTask(2, "fireAndForget", "x", nil, true)
	out := at.Tick(env)
	assert.Equal(t, task.ResultAsync, out.Result)
	assert.True(t, out.Success)
}

func TestDropTaskEmitsAndCompletesSameTick(t *testing.T) {
	env := newFakeEnv()
	target := uid.New()
	dt := task.NewDropTask(3, task.Lit(model.UniqueID(target)), task.DropNormal)
	out := dt.Tick(env)
	assert.Equal(t, task.ResultDone, out.Result)
	assert.True(t, out.Success)
	require.Len(t, env.drops, 1)
	assert.True(t, env.drops[0].Equal(target))
}

func TestCondTaskBranchesOnQuery(t *testing.T) {
	env := newFakeEnv()
	ct := task.NewCondTask(4, belief.Always())
	out := ct.Tick(env)
	assert.Equal(t, task.ResultDone, out.Result)
	assert.True(t, out.Success)
	assert.True(t, env.branch[4])
}

func TestYieldUntilTaskYieldsThenCompletes(t *testing.T) {
	env := newFakeEnv()
	require.NoError(t, env.ctx.SetMessage(model.NewMessage("flag")))

	q := belief.FromPredicate(func(ctx *belief.Context) bool {
		return ctx.Get("flag", "ready", model.Bool(false)).Bool
	})
	yt := task.NewYieldUntilTask(5, q)

	out := yt.Tick(env)
	assert.Equal(t, task.ResultYield, out.Result)

	ready := model.NewMessage("flag")
	ready.Set("ready", model.Bool(true))
	require.NoError(t, env.ctx.SetMessage(ready))

	out = yt.Tick(env)
	assert.Equal(t, task.ResultDone, out.Result)
	assert.True(t, out.Success)
}

func TestPrintTaskInterpolatesArgs(t *testing.T) {
	env := newFakeEnv()
	pt := task.NewPrintTask(6, "hello {}, count={}", task.Lit(model.String("world")), task.Lit(model.Int64(3)))
	out := pt.Tick(env)
	assert.Equal(t, task.ResultDone, out.Result)
	require.Len(t, env.printed, 1)
	assert.Equal(t, "hello world, count=3", env.printed[0])
}

func TestCoroutineChainsSynchronousTasksInOneTick(t *testing.T) {
	env := newFakeEnv()
	c1 := task.NewCondTask(1, belief.Always())
	p1 := task.NewPrintTask(2, "reached end")
	c := task.NewCoroutine(1, []task.Task{c1, p1}, map[int]int{1: 2}, map[int]int{1: task.Terminal})

	finished := c.Tick(env)
	assert.True(t, finished)
	assert.True(t, c.LastSuccess())
	require.Len(t, env.printed, 1)
}

func TestCoroutineStopsAtSuspendingTask(t *testing.T) {
	env := newFakeEnv()
	at := task.NewActionTask(1, "doThing", "x", nil, false)
	p1 := task.NewPrintTask(2, "done")
	c := task.NewCoroutine(1, []task.Task{at, p1}, map[int]int{1: 2}, map[int]int{1: task.Terminal})

	finished := c.Tick(env)
	assert.False(t, finished)
	assert.Empty(t, env.printed)

	at.Complete(true, nil)
	finished = c.Tick(env)
	assert.True(t, finished)
	require.Len(t, env.printed, 1)
}

func TestCoroutineAsyncTaskAdvancesImmediatelyAndTracksOutstanding(t *testing.T) {
	env := newFakeEnv()
	at := task.NewActionTask(1, "fireAndForget", "x", nil, true)
	p1 := task.NewPrintTask(2, "after async")
	c := task.NewCoroutine(1, []task.Task{at, p1}, map[int]int{1: 2}, map[int]int{1: task.Terminal})

	finished := c.Tick(env)
	assert.False(t, finished, "must wait for the outstanding async task before declaring done")
	require.Len(t, env.printed, 1, "print after the async task still runs in the same tick")

	c.NoteAsyncComplete()
	assert.True(t, c.Finished())
}

func TestCoroutineResetClearsTaskState(t *testing.T) {
	env := newFakeEnv()
	at := task.NewActionTask(1, "doThing", "x", nil, false)
	c := task.NewCoroutine(1, []task.Task{at}, nil, nil)

	c.Tick(env)
	at.Complete(true, nil)
	finished := c.Tick(env)
	assert.True(t, finished)

	c.Reset()
	assert.False(t, c.Finished())
	finished = c.Tick(env)
	assert.False(t, finished, "freshly reset task must re-emit and wait again")
}
