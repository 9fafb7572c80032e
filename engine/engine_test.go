package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/engine"
	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/goal"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/uid"
)

func printTaskPlan(name, goalName string) *plan.Plan {
	return plan.NewPlan(name, goalName, func() *task.Coroutine {
		t := task.NewPrintTask(1, "done")
		return task.NewCoroutine(1, []task.Task{t}, nil, nil)
	})
}

func simpleGoal(name string, p *plan.Plan) *goal.Template {
	return goal.NewTemplate(name, &plan.Tactic{Name: name + "/tactic", Plans: []*plan.Plan{p}})
}

func TestCommitPlanRejectsUnknownGoal(t *testing.T) {
	e := engine.New()
	p := printTaskPlan("p1", "no-such-goal")
	err := e.CommitPlan(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrUnknownTemplate))
}

func TestCommitPlanRejectsUnknownResource(t *testing.T) {
	e := engine.New()
	require.NoError(t, e.CommitGoal(simpleGoal("g1", printTaskPlan("p1", "g1"))))
	p := printTaskPlan("p2", "g1")
	p.ResourceLocks = []string{"no-such-resource"}
	err := e.CommitPlan(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrUnknownTemplate))
}

func TestCommitGoalRejectsDuplicateName(t *testing.T) {
	e := engine.New()
	require.NoError(t, e.CommitGoal(simpleGoal("g1", printTaskPlan("p1", "g1"))))
	err := e.CommitGoal(simpleGoal("g1", printTaskPlan("p2", "g1")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrDuplicateTemplate))
}

func TestCommitActionRejectsUnknownSchema(t *testing.T) {
	e := engine.New()
	err := e.CommitAction("noop", func(*belief.Context, *model.Message) (*model.Message, bool) {
		return nil, true
	}, "no-such-schema", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrUnknownTemplate))
}

func TestCommitResourceRejectsCountOutOfBounds(t *testing.T) {
	e := engine.New()
	err := e.CommitResource("ammo", 5, 0, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrValidation))
}

func TestCreateAgentClonesTemplateResources(t *testing.T) {
	e := engine.New()
	require.NoError(t, e.CommitResource("ammo", 3, 0, 10))
	require.NoError(t, e.CommitAgentTemplate(&engine.AgentTemplate{
		Name:      "scout",
		Resources: []engine.ResourceSpec{{Name: "ammo", Count: 3, Min: 0, Max: 10}},
	}))

	ag, err := e.CreateAgent("scout", "scout-1", uid.Nil)
	require.NoError(t, err)

	ctx, ok := e.Belief(ag.ID)
	require.True(t, ok)
	res, ok := ctx.Resource("ammo")
	require.True(t, ok)
	assert.Equal(t, 3, res.Count())
}

// TestMinimalPursueSucceeds runs a scenario where pursuing a goal with exactly
// one precondition-eligible plan succeeds and resolves its Promise.
func TestMinimalPursueSucceeds(t *testing.T) {
	e := engine.New(engine.WithExitWhenDone(true))
	require.NoError(t, e.CommitAgentTemplate(&engine.AgentTemplate{Name: "plain"}))
	require.NoError(t, e.CommitGoal(simpleGoal("greet", printTaskPlan("say-hi", "greet"))))

	ag, err := e.CreateAgent("plain", "a1", uid.Nil)
	require.NoError(t, err)

	promise, err := e.Pursue(ag.ID, "greet", nil)
	require.NoError(t, err)

	e.Poll(200 * time.Millisecond)

	status, _ := promise.State()
	assert.Equal(t, event.Success, status)
}

// TestPlanFallbackTriesNextPlanOnFailedPrecondition verifies that when the first candidate
// plan's precondition fails, the tactic falls through to the next plan in
// the list.
func TestPlanFallbackTriesNextPlanOnFailedPrecondition(t *testing.T) {
	e := engine.New(engine.WithExitWhenDone(true))
	require.NoError(t, e.CommitAgentTemplate(&engine.AgentTemplate{Name: "plain"}))

	blocked := plan.NewPlan("blocked", "g", func() *task.Coroutine {
		tk := task.NewPrintTask(1, "unreachable")
		return task.NewCoroutine(1, []task.Task{tk}, nil, nil)
	})
	blocked.Precondition = belief.Never()
	fallback := printTaskPlan("fallback", "g")

	tmpl := goal.NewTemplate("g", &plan.Tactic{Name: "g/tactic", Order: plan.Strict, Plans: []*plan.Plan{blocked, fallback}})
	require.NoError(t, e.CommitGoal(tmpl))

	ag, err := e.CreateAgent("plain", "a1", uid.Nil)
	require.NoError(t, err)

	promise, err := e.Pursue(ag.ID, "g", nil)
	require.NoError(t, err)

	e.Poll(200 * time.Millisecond)
	status, _ := promise.State()
	assert.Equal(t, event.Success, status)
}

// TestResourceContentionSerialisesPlans checks that a plan's resource
// lock prevents a second concurrent intention on the same agent from
// acquiring the same resource until the first releases it; both eventually
// succeed once serialised.
func TestResourceContentionSerialisesPlans(t *testing.T) {
	e := engine.New(engine.WithExitWhenDone(true))
	require.NoError(t, e.CommitResource("slot", 1, 0, 1))
	require.NoError(t, e.CommitAgentTemplate(&engine.AgentTemplate{
		Name:      "worker",
		Resources: []engine.ResourceSpec{{Name: "slot", Count: 1, Min: 0, Max: 1}},
	}))

	body := func() *task.Coroutine {
		tk := task.NewPrintTask(1, "holding slot")
		return task.NewCoroutine(1, []task.Task{tk}, nil, nil)
	}
	p := plan.NewPlan("use-slot", "use", body)
	p.ResourceLocks = []string{"slot"}
	require.NoError(t, e.CommitGoal(simpleGoal("use", p)))

	ag, err := e.CreateAgent("worker", "w1", uid.Nil)
	require.NoError(t, err)

	p1, err := e.Pursue(ag.ID, "use", nil)
	require.NoError(t, err)
	p2, err := e.Pursue(ag.ID, "use", nil)
	require.NoError(t, err)

	e.Poll(200 * time.Millisecond)

	s1, _ := p1.State()
	s2, _ := p2.State()
	assert.Equal(t, event.Success, s1)
	assert.Equal(t, event.Success, s2)
}

// TestTeamDelegationPicksLowestBid exercises the team auction path: the member
// with the lower bid score wins delegation of a goal the team itself does
// not advertise locally.
func TestTeamDelegationPicksLowestBid(t *testing.T) {
	e := engine.New(engine.WithExitWhenDone(true))
	require.NoError(t, e.CommitAgentTemplate(&engine.AgentTemplate{Name: "member"}))
	require.NoError(t, e.CommitTeamTemplate(&engine.TeamTemplate{
		AgentTemplate:  engine.AgentTemplate{Name: "squad"},
		AuctionTimeout: 50 * time.Millisecond,
	}))
	require.NoError(t, e.CommitGoal(simpleGoal("haul", printTaskPlan("haul-it", "haul"))))

	tm, err := e.CreateTeam("squad", "team-1", uid.Nil)
	require.NoError(t, err)

	cheap, err := e.CreateAgent("member", "cheap", uid.Nil)
	require.NoError(t, err)
	pricey, err := e.CreateAgent("member", "pricey", uid.Nil)
	require.NoError(t, err)

	require.NoError(t, e.AddTeamMember(tm.ID, cheap.ID, []string{"haul"}, func(*belief.Context, string, *model.Message) (float64, bool) {
		return 1.0, true
	}))
	require.NoError(t, e.AddTeamMember(tm.ID, pricey.ID, []string{"haul"}, func(*belief.Context, string, *model.Message) (float64, bool) {
		return 5.0, true
	}))

	promise, err := e.Pursue(tm.ID, "haul", nil)
	require.NoError(t, err)

	e.Poll(200 * time.Millisecond)
	status, _ := promise.State()
	assert.Equal(t, event.Success, status)

	var winner uid.ID
	for _, ev := range tm.DrainOutbox() {
		if ev.Kind == event.KindDelegation && ev.Delegation != nil && !ev.Delegation.Analyse {
			winner = ev.Recipient
		}
	}
	assert.True(t, winner.Equal(cheap.ID), "the lower bid must win the delegation")
}

func TestDestroyAgentRemovesFromTickOrder(t *testing.T) {
	e := engine.New()
	require.NoError(t, e.CommitAgentTemplate(&engine.AgentTemplate{Name: "plain"}))
	ag, err := e.CreateAgent("plain", "a1", uid.Nil)
	require.NoError(t, err)

	require.NoError(t, e.DestroyAgent(ag.ID))
	_, err = e.Pursue(ag.ID, "anything", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrNoRecipient))
}
