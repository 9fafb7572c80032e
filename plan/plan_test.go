package plan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/uid"
)

type noopEnv struct{ ctx *belief.Context }

func (e noopEnv) Belief() *belief.Context              { return e.ctx }
func (e noopEnv) EmitAction(int, string, *model.Message, bool) {}
func (e noopEnv) EmitPursue(int, string, *model.Message)       {}
func (e noopEnv) EmitDrop(uid.ID, task.DropMode)               {}
func (e noopEnv) StartTimer(int, time.Duration)                {}
func (e noopEnv) Print(string)                                 {}
func (e noopEnv) LogBranch(int, bool)                          {}

func successPlan(name string) *plan.Plan {
	return plan.NewPlan(name, "goal", func() *task.Coroutine {
		t := task.NewCondTask(1, belief.Always())
		return task.NewCoroutine(1, []task.Task{t}, nil, nil)
	})
}

func failPlan(name string) *plan.Plan {
	return plan.NewPlan(name, "goal", func() *task.Coroutine {
		t := task.NewCondTask(1, belief.Never())
		return task.NewCoroutine(1, []task.Task{t}, nil, nil)
	})
}

func TestPlanInstanceSuccessRunsEffectsOnce(t *testing.T) {
	ctx := belief.New()
	runs := 0
	p := successPlan("p1")
	p.Effects = func(*belief.Context) { runs++ }

	inst := p.Instantiate()
	env := noopEnv{ctx: ctx}
	finish := inst.Tick(env, ctx)
	assert.Equal(t, plan.Success, finish)
	assert.Equal(t, 1, runs)

	// Re-ticking a terminal instance must not re-run effects.
	finish = inst.Tick(env, ctx)
	assert.Equal(t, plan.Success, finish)
	assert.Equal(t, 1, runs)
}

func TestPlanInstanceFailureSkipsEffects(t *testing.T) {
	ctx := belief.New()
	runs := 0
	p := failPlan("p2")
	p.Effects = func(*belief.Context) { runs++ }

	inst := p.Instantiate()
	finish := inst.Tick(noopEnv{ctx: ctx}, ctx)
	assert.Equal(t, plan.Failed, finish)
	assert.Zero(t, runs)
}

func TestPlanInstanceLocksReleasedOnTerminal(t *testing.T) {
	ctx := belief.New()
	res, err := belief.NewResource("widget", 1, 0, 1, uid.New(), nil)
	require.NoError(t, err)
	resources := map[string]*belief.Resource{"widget": res}

	p := successPlan("p3")
	p.ResourceLocks = []string{"widget"}
	inst := p.Instantiate()

	require.NoError(t, inst.AcquireLocks(resources))
	assert.Equal(t, 0, res.Count())

	inst.Tick(noopEnv{ctx: ctx}, ctx)
	inst.ReleaseLocks(resources)
	assert.Equal(t, 1, res.Count())
}

func TestPlanInstanceDropWithoutDropBodyIsImmediate(t *testing.T) {
	ctx := belief.New()
	p := plan.NewPlan("p4", "goal", func() *task.Coroutine {
		at := task.NewActionTask(1, "long", "x", nil, false)
		return task.NewCoroutine(1, []task.Task{at}, nil, nil)
	})
	inst := p.Instantiate()
	env := noopEnv{ctx: ctx}
	inst.Tick(env, ctx) // starts the action, suspends waiting

	inst.RequestDrop()
	finish := inst.Tick(env, ctx)
	assert.Equal(t, plan.Dropped, finish)
}

func TestTacticStrictCyclesPlanList(t *testing.T) {
	tac := &plan.Tactic{Name: "t", Order: plan.Strict, Plans: []*plan.Plan{failPlan("a"), failPlan("b")}, LoopPlansCount: 2}
	sel := plan.NewSelector(tac, nil)
	ctx := belief.New()

	names := []string{}
	for {
		p, ok := sel.Next(ctx)
		if !ok {
			break
		}
		names = append(names, p.Name)
		sel.Record(p.Name, false)
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, names)
}

func TestTacticExcludeAfterAttemptDropsTriedPlans(t *testing.T) {
	tac := &plan.Tactic{Name: "t", Order: plan.ExcludePlanAfterAttempt, Plans: []*plan.Plan{failPlan("a"), successPlan("b")}}
	sel := plan.NewSelector(tac, nil)
	ctx := belief.New()

	p1, ok := sel.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", p1.Name)
	sel.Record(p1.Name, false)

	p2, ok := sel.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "b", p2.Name)
	sel.Record(p2.Name, true)

	_, ok = sel.Next(ctx)
	assert.False(t, ok, "both plans attempted once, nothing left to offer")
}

func TestTacticChooseBestPlanWithoutHeuristicPrefersHigherScore(t *testing.T) {
	tac := &plan.Tactic{Name: "t", Order: plan.ChooseBestPlan, Plans: []*plan.Plan{failPlan("a"), successPlan("b")}}
	sel := plan.NewSelector(tac, nil)
	ctx := belief.New()

	// Both start at score 0; tie-break picks declared order, "a" first.
	p, ok := sel.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", p.Name)
	sel.Record("a", false)
	sel.Record("b", true)

	p, ok = sel.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "b", p.Name, "b now scores higher after a success and a failure, fallback ranks highest-wins")
}

func TestTacticChooseBestPlanSelectsMinimumHeuristicScore(t *testing.T) {
	a, b := failPlan("a"), successPlan("b")
	tac := &plan.Tactic{Name: "t", Order: plan.ChooseBestPlan, Plans: []*plan.Plan{a, b}}

	scores := map[string]float64{"a": 5, "b": 1}
	heuristic := func(_ *belief.Context, candidate *plan.Plan) float64 {
		return scores[candidate.Name]
	}
	sel := plan.NewSelector(tac, heuristic)
	ctx := belief.New()

	p, ok := sel.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "b", p.Name, "b has the lower heuristic score and must be selected")

	scores["b"] = 9
	p, ok = sel.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", p.Name, "selection re-evaluates the heuristic every call")
}
