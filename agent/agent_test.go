package agent_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexagents/bdi/agent"
	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/goal"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/telemetry"
	"github.com/cortexagents/bdi/uid"
)

type fakeRegistry struct {
	goals   map[string]*goal.Template
	actions map[string]agent.ActionHandler
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{goals: map[string]*goal.Template{}, actions: map[string]agent.ActionHandler{}}
}

func (r *fakeRegistry) GoalTemplate(name string) (*goal.Template, bool) {
	t, ok := r.goals[name]
	return t, ok
}

func (r *fakeRegistry) ActionHandler(name string) (agent.ActionHandler, bool) {
	h, ok := r.actions[name]
	return h, ok
}

func printPlan(name, goalName string) *plan.Plan {
	return plan.NewPlan(name, goalName, func() *task.Coroutine {
		tk := task.NewPrintTask(1, "hi")
		return task.NewCoroutine(1, []task.Task{tk}, nil, nil)
	})
}

func TestPursueResolvesPromiseOnSuccess(t *testing.T) {
	reg := newFakeRegistry()
	reg.goals["greet"] = goal.NewTemplate("greet", &plan.Tactic{Name: "greet/tactic", Plans: []*plan.Plan{printPlan("say-hi", "greet")}})

	var lines []string
	a := agent.New(uid.New(), "a1", reg, event.NewQueue(), telemetry.Noop(), func(s string) { lines = append(lines, s) })

	promise := a.Pursue(uid.Nil, "greet", nil)
	for i := 0; i < 5; i++ {
		a.Tick(time.Duration(i) * time.Millisecond)
	}

	status, _ := promise.State()
	assert.Equal(t, event.Success, status)
	assert.Equal(t, 0, a.ActiveIntentionCount())
	assert.Contains(t, lines, "hi")
}

func TestPursueUnknownGoalFails(t *testing.T) {
	reg := newFakeRegistry()
	a := agent.New(uid.New(), "a1", reg, event.NewQueue(), telemetry.Noop(), nil)

	promise := a.Pursue(uid.Nil, "no-such-goal", nil)
	a.Tick(0)

	status, reason := promise.State()
	assert.Equal(t, event.Fail, status)
	assert.Equal(t, "unknown-goal", reason)
}

func TestActionDispatchInvokesRegisteredHandler(t *testing.T) {
	reg := newFakeRegistry()
	called := false
	reg.actions["noop"] = func(ctx *belief.Context, req *model.Message) (*model.Message, bool) {
		called = true
		return nil, true
	}
	a := agent.New(uid.New(), "a1", reg, event.NewQueue(), telemetry.Noop(), nil)

	ev := event.NewEvent(event.KindAction, a.ID, a.ID)
	ev.Action = &event.ActionPayload{ActionName: "noop", TaskID: 1}
	a.Enqueue(ev)
	a.Tick(0)

	status, _ := ev.Promise.State()
	assert.Equal(t, event.Success, status)
	assert.True(t, called)
}

func TestResourcePerceptEnqueuesOnMutation(t *testing.T) {
	reg := newFakeRegistry()
	a := agent.New(uid.New(), "a1", reg, event.NewQueue(), telemetry.Noop(), nil)
	require.NoError(t, a.AddResource("ammo", 3, 0, 10))

	res, ok := a.Belief().Resource("ammo")
	require.True(t, ok)
	require.NoError(t, res.Consume(1))

	assert.False(t, a.InboxEmpty())
}
