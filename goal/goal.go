// Package goal implements Goal templates and their per-pursue running
// instances: precondition/satisfied/drop-when predicates, priority and
// heuristic scoring, and the plan-selection history a Tactic consults
// while an intention is in its Selecting state (spec §3, §4.6).
package goal

import (
	"fmt"

	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/uid"
)

// Heuristic scores a candidate plan's tentative post-state; lower is
// better (§4.6: ChooseBestPlan selects the minimum-score passing plan).
// It is an alias for plan.Heuristic so a Template's Heuristic can be
// handed straight to plan.NewSelector without conversion; plan.Selector
// applies its own successes-minus-failures scoring when none is supplied.
type Heuristic = plan.Heuristic

// Template is the immutable, engine-registered definition of a goal: its
// required parameter schema, the predicates governing its lifecycle, and
// the Tactic used to pick among the plans that handle it.
type Template struct {
	Name         string
	ParamSchema  string // required message schema name for pursue parameters; empty means any/none
	Precondition belief.Query
	Satisfied    belief.Query
	DropWhen     belief.Query
	Priority     int
	Heuristic    Heuristic
	// Persistent goals re-enter Selecting on every successful plan
	// execution instead of finishing (spec §4.6, property 7).
	Persistent bool
	Tactic     *plan.Tactic
}

// NewTemplate constructs a goal Template with Always/Never defaults for
// the predicates a caller does not supply.
func NewTemplate(name string, tactic *plan.Tactic) *Template {
	return &Template{
		Name:         name,
		Precondition: belief.Always(),
		Satisfied:    belief.Never(),
		DropWhen:     belief.Never(),
		Tactic:       tactic,
	}
}

// Handle names one running goal instance: the template name plus a fresh
// per-pursue unique id, matching spec §3's `{name,id}` goal handle.
type Handle struct {
	Name string
	ID   uid.ID
}

func (h Handle) String() string { return fmt.Sprintf("%s/%s", h.Name, h.ID) }

// Instance is a goal currently being pursued: the template it was cloned
// from, the parameter message it was pursued with, and the live
// plan-selection state (cursor, loop iteration, per-plan history) a
// Tactic's Selector tracks across attempts.
type Instance struct {
	Handle   Handle
	Template *Template
	Params   *model.Message
	Selector *plan.Selector
}

// Instantiate clones t into a fresh Instance bound to the given pursue
// parameters. The only check made before this call is the agent's
// handlePursue rejecting non-nil params whose schema name differs from
// ParamSchema; fields are not validated, and Instantiate itself does no
// schema checking.
func (t *Template) Instantiate(params *model.Message) *Instance {
	return &Instance{
		Handle:   Handle{Name: t.Name, ID: uid.New()},
		Template: t,
		Params:   params,
		Selector: plan.NewSelector(t.Tactic, t.Heuristic),
	}
}

// Satisfied reports whether the goal's satisfaction predicate currently
// holds.
func (inst *Instance) Satisfied(ctx *belief.Context) bool {
	return inst.Template.Satisfied.Eval(ctx)
}

// ShouldDrop reports whether the goal's drop-when predicate currently
// holds.
func (inst *Instance) ShouldDrop(ctx *belief.Context) bool {
	return inst.Template.DropWhen.Eval(ctx)
}

// Persistent reports whether a successful plan run should re-enter
// Selecting instead of finishing the intention.
func (inst *Instance) Persistent() bool { return inst.Template.Persistent }

// ResetSelection clears plan-selection history, as happens when a
// persistent goal re-enters Selecting after a successful run.
func (inst *Instance) ResetSelection() {
	inst.Selector.Reset()
}
