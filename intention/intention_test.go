package intention_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/goal"
	"github.com/cortexagents/bdi/intention"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/uid"
)

type fakeHost struct {
	printed []string
}

func (h *fakeHost) EmitAction(agentID, goalID, intentionID uid.ID, planName string, taskID int, actionName string, request *model.Message, noWait bool) {
}
func (h *fakeHost) EmitPursue(agentID, parentIntentionID uid.ID, parentTaskID int, goalName string, params *model.Message) {
}
func (h *fakeHost) EmitDrop(agentID, goalHandle uid.ID, mode task.DropMode)         {}
func (h *fakeHost) StartTimer(intentionID uid.ID, taskID int, d time.Duration)      {}
func (h *fakeHost) Print(line string)                                              { h.printed = append(h.printed, line) }
func (h *fakeHost) LogBranch(goalName string, taskID int, outcome bool)             {}

func printPlan(name, goalName string) *plan.Plan {
	return plan.NewPlan(name, goalName, func() *task.Coroutine {
		tk := task.NewPrintTask(1, "done")
		return task.NewCoroutine(1, []task.Task{tk}, nil, nil)
	})
}

func TestExecutorRunsSelectedPlanToSuccess(t *testing.T) {
	p := printPlan("p1", "g")
	tmpl := goal.NewTemplate("g", &plan.Tactic{Name: "g/tactic", Plans: []*plan.Plan{p}})
	inst := tmpl.Instantiate(nil)
	ctx := belief.New()
	host := &fakeHost{}

	ex := intention.New(uid.New(), uid.New(), inst, ctx, ctx.Resources(), host)
	assert.Equal(t, intention.Selecting, ex.Status())

	var status intention.Status
	for i := 0; i < 5 && !status.Terminal(); i++ {
		status = ex.Tick()
	}
	assert.Equal(t, intention.FinishedSuccess, status)
	assert.Contains(t, host.printed, "done")
}

func TestExecutorFailsWhenPlansExhausted(t *testing.T) {
	blocked := printPlan("blocked", "g")
	blocked.Precondition = belief.Never()
	tmpl := goal.NewTemplate("g", &plan.Tactic{Name: "g/tactic", Plans: []*plan.Plan{blocked}})
	inst := tmpl.Instantiate(nil)
	ctx := belief.New()

	ex := intention.New(uid.New(), uid.New(), inst, ctx, ctx.Resources(), &fakeHost{})

	var status intention.Status
	for i := 0; i < 5 && !status.Terminal(); i++ {
		status = ex.Tick()
	}
	assert.Equal(t, intention.FinishedFailed, status)
	assert.Equal(t, "plans-exhausted", ex.Reason())
}

func TestForceDropResolvesImmediately(t *testing.T) {
	p := printPlan("p1", "g")
	tmpl := goal.NewTemplate("g", &plan.Tactic{Name: "g/tactic", Plans: []*plan.Plan{p}})
	inst := tmpl.Instantiate(nil)
	ctx := belief.New()

	ex := intention.New(uid.New(), uid.New(), inst, ctx, ctx.Resources(), &fakeHost{})
	require.Equal(t, intention.Selecting, ex.Status())

	ex.RequestDrop(task.DropForce)
	assert.Equal(t, intention.FinishedDropped, ex.Status())
	assert.Equal(t, "dropped", ex.Reason())
}
