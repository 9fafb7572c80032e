package engine

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cortexagents/bdi/agent"
	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/goal"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/uid"
)

// YAMLField declares one Schema field: a name and a type tag resolved by
// parseFieldType. Default is always the type's zero value; YAML bootstrap
// does not support custom defaults.
type YAMLField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// YAMLSchema declares a model.Schema by name and field list.
type YAMLSchema struct {
	Name   string      `yaml:"name"`
	Fields []YAMLField `yaml:"fields"`
}

// YAMLResource declares a bounded counter resource template.
type YAMLResource struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
	Min   int    `yaml:"min"`
	Max   int    `yaml:"max"`
}

// YAMLRole declares a named role as the goal names it advertises.
type YAMLRole struct {
	Name  string   `yaml:"name"`
	Goals []string `yaml:"goals"`
}

// YAMLTactic is a goal's inline plan-selection policy: the plan names to
// choose among (resolved against this file's own Plans section, in
// declared order if PlanNames is empty), the ordering policy, and an
// optional attempt/loop cap.
type YAMLTactic struct {
	PlanNames      []string `yaml:"plans"`
	Order          string   `yaml:"order"`
	LoopPlansCount int      `yaml:"loop_plans_count"`
}

// YAMLGoal declares a goal Template shape. Precondition/Satisfied/DropWhen
// are belief.ParseExpr source strings; empty means the Always/Never
// default matching goal.NewTemplate. Heuristic is Go-only and, if needed,
// attached afterward with BindGoalHeuristic.
type YAMLGoal struct {
	Name         string     `yaml:"name"`
	ParamSchema  string     `yaml:"param_schema"`
	Precondition string     `yaml:"precondition"`
	Satisfied    string     `yaml:"satisfied"`
	DropWhen     string     `yaml:"drop_when"`
	Priority     int        `yaml:"priority"`
	Persistent   bool       `yaml:"persistent"`
	Tactic       YAMLTactic `yaml:"tactic"`
}

// YAMLPlan declares a Plan template's shape: everything except the body
// coroutine, drop coroutine, and effects callback, which have no YAML
// representation and must be attached with BindPlanBody / BindPlanDropBody
// / BindPlanEffects before the plan is selectable.
type YAMLPlan struct {
	Name          string   `yaml:"name"`
	GoalName      string   `yaml:"goal"`
	Precondition  string   `yaml:"precondition"`
	DropWhen      string   `yaml:"drop_when"`
	ResourceLocks []string `yaml:"resource_locks"`
}

// YAMLAction declares a committed action's request/reply schema names; the
// handler itself is Go-only and attached with BindAction.
type YAMLAction struct {
	Name          string `yaml:"name"`
	RequestSchema string `yaml:"request_schema"`
	ReplySchema   string `yaml:"reply_schema"`
}

// YAMLAgentTemplate declares an agent shape for create_agent.
type YAMLAgentTemplate struct {
	Name      string         `yaml:"name"`
	Resources []YAMLResource `yaml:"resources"`
}

// YAMLTeamTemplate declares a team shape for create_team.
type YAMLTeamTemplate struct {
	Name              string         `yaml:"name"`
	Resources         []YAMLResource `yaml:"resources"`
	AuctionTimeoutMS  int            `yaml:"auction_timeout_ms"`
	LocalGoals        []string       `yaml:"local_goals"`
}

// YAMLModel is the top-level shape of a model bootstrap file: the
// declarative parts of every committed template, in the order a well
// formed file commits them (schemas and resources first, then goals,
// which may reference schemas, then roles and plans, which reference
// goals, then actions, then agent/team templates).
type YAMLModel struct {
	Schemas   []YAMLSchema        `yaml:"schemas"`
	Resources []YAMLResource      `yaml:"resources"`
	Goals     []YAMLGoal          `yaml:"goals"`
	Roles     []YAMLRole          `yaml:"roles"`
	Plans     []YAMLPlan          `yaml:"plans"`
	Actions   []YAMLAction        `yaml:"actions"`
	Agents    []YAMLAgentTemplate `yaml:"agents"`
	Teams     []YAMLTeamTemplate  `yaml:"teams"`
}

func parseFieldType(t string) (model.Kind, error) {
	switch strings.ToLower(t) {
	case "bool":
		return model.KindBool, nil
	case "i8":
		return model.KindI8, nil
	case "i16":
		return model.KindI16, nil
	case "i32":
		return model.KindI32, nil
	case "i64":
		return model.KindI64, nil
	case "u8":
		return model.KindU8, nil
	case "u16":
		return model.KindU16, nil
	case "u32":
		return model.KindU32, nil
	case "u64":
		return model.KindU64, nil
	case "f32":
		return model.KindF32, nil
	case "f64":
		return model.KindF64, nil
	case "string":
		return model.KindString, nil
	case "uid":
		return model.KindUniqueID, nil
	case "message":
		return model.KindMessage, nil
	case "array":
		return model.KindArray, nil
	default:
		return model.KindInvalid, fmt.Errorf("%w: unknown field type %q", ErrValidation, t)
	}
}

func zeroValue(k model.Kind) model.Value {
	switch k {
	case model.KindBool:
		return model.Bool(false)
	case model.KindI8, model.KindI16, model.KindI32, model.KindI64:
		return model.Int64(0)
	case model.KindU8, model.KindU16, model.KindU32, model.KindU64:
		return model.Uint64(0)
	case model.KindF32, model.KindF64:
		return model.Float64(0)
	case model.KindString:
		return model.String("")
	case model.KindUniqueID:
		return model.UniqueID(uid.Nil)
	default:
		return model.Value{Kind: k}
	}
}

func exprOrDefault(source string, def belief.Query) (belief.Query, error) {
	if strings.TrimSpace(source) == "" {
		return def, nil
	}
	return belief.ParseExpr(source)
}

func parsePlanOrder(s string) plan.PlanOrder {
	switch strings.ToLower(s) {
	case "exclude-after-attempt":
		return plan.ExcludePlanAfterAttempt
	case "choose-best":
		return plan.ChooseBestPlan
	default:
		return plan.Strict
	}
}

// LoadModelYAML reads path and commits every schema, resource, goal, role,
// plan shape, action shape, agent template, and team template it declares.
// Goals commit fully (their Tactic directly holds the *plan.Plan pointers
// this call builds, per spec §4.6 — a goal never requires its plans to
// already be registered in the engine's plan registry). Plans, lacking a
// YAML representation for their body coroutine, commit one at a time, each
// when BindPlanBody is called for it; until then a plan is held pending
// and PlansForGoal will not see it.
//
// Call BindPlanBody/BindPlanDropBody/BindPlanEffects/BindAction/
// BindGoalHeuristic afterward to attach the closures YAML cannot express;
// each commits its own pending entry. Binding must happen before first use
// (declarative shape from the file, behavior wired in Go immediately
// after load).
func (e *Engine) LoadModelYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("engine: read model file: %w", err)
	}
	var m YAMLModel
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("engine: parse model file: %w", err)
	}
	return e.loadModel(&m)
}

func (e *Engine) loadModel(m *YAMLModel) error {
	for _, s := range m.Schemas {
		schema := &model.Schema{Name: s.Name}
		for _, f := range s.Fields {
			kind, err := parseFieldType(f.Type)
			if err != nil {
				return fmt.Errorf("schema %q field %q: %w", s.Name, f.Name, err)
			}
			schema.Fields = append(schema.Fields, model.Field{Name: f.Name, Type: kind, Default: zeroValue(kind)})
		}
		if err := e.CommitMessageSchema(schema); err != nil {
			return fmt.Errorf("schema %q: %w", s.Name, err)
		}
	}

	for _, r := range m.Resources {
		if err := e.CommitResource(r.Name, r.Count, r.Min, r.Max); err != nil {
			return fmt.Errorf("resource %q: %w", r.Name, err)
		}
	}

	e.pendingMu.Lock()
	if e.pendingPlans == nil {
		e.pendingPlans = make(map[string]*plan.Plan)
	}
	for _, yp := range m.Plans {
		precond, err := exprOrDefault(yp.Precondition, belief.Always())
		if err != nil {
			e.pendingMu.Unlock()
			return fmt.Errorf("plan %q precondition: %w", yp.Name, err)
		}
		dropWhen, err := exprOrDefault(yp.DropWhen, belief.Never())
		if err != nil {
			e.pendingMu.Unlock()
			return fmt.Errorf("plan %q drop_when: %w", yp.Name, err)
		}
		if _, dup := e.pendingPlans[yp.Name]; dup {
			e.pendingMu.Unlock()
			return fmt.Errorf("%w: plan %q", ErrDuplicateTemplate, yp.Name)
		}
		e.pendingPlans[yp.Name] = &plan.Plan{
			Name:          yp.Name,
			GoalName:      yp.GoalName,
			Precondition:  precond,
			DropWhen:      dropWhen,
			ResourceLocks: append([]string(nil), yp.ResourceLocks...),
		}
	}
	e.pendingMu.Unlock()

	for _, yg := range m.Goals {
		precond, err := exprOrDefault(yg.Precondition, belief.Always())
		if err != nil {
			return fmt.Errorf("goal %q precondition: %w", yg.Name, err)
		}
		satisfied, err := exprOrDefault(yg.Satisfied, belief.Never())
		if err != nil {
			return fmt.Errorf("goal %q satisfied: %w", yg.Name, err)
		}
		dropWhen, err := exprOrDefault(yg.DropWhen, belief.Never())
		if err != nil {
			return fmt.Errorf("goal %q drop_when: %w", yg.Name, err)
		}
		names := yg.Tactic.PlanNames
		if len(names) == 0 {
			for _, yp := range m.Plans {
				if yp.GoalName == yg.Name {
					names = append(names, yp.Name)
				}
			}
		}
		e.pendingMu.Lock()
		plans := make([]*plan.Plan, 0, len(names))
		for _, n := range names {
			p, ok := e.pendingPlans[n]
			if !ok {
				e.pendingMu.Unlock()
				return fmt.Errorf("%w: goal %q tactic references undeclared plan %q", ErrUnknownTemplate, yg.Name, n)
			}
			plans = append(plans, p)
		}
		e.pendingMu.Unlock()
		tmpl := &goal.Template{
			Name:         yg.Name,
			ParamSchema:  yg.ParamSchema,
			Precondition: precond,
			Satisfied:    satisfied,
			DropWhen:     dropWhen,
			Priority:     yg.Priority,
			Persistent:   yg.Persistent,
			Tactic: &plan.Tactic{
				Name:           yg.Name + "/tactic",
				Plans:          plans,
				Order:          parsePlanOrder(yg.Tactic.Order),
				LoopPlansCount: yg.Tactic.LoopPlansCount,
			},
		}
		if err := e.CommitGoal(tmpl); err != nil {
			return fmt.Errorf("goal %q: %w", yg.Name, err)
		}
	}

	for _, r := range m.Roles {
		if err := e.CommitRole(r.Name, r.Goals...); err != nil {
			return fmt.Errorf("role %q: %w", r.Name, err)
		}
	}

	e.pendingMu.Lock()
	if e.pendingActions == nil {
		e.pendingActions = make(map[string]YAMLAction)
	}
	for _, ya := range m.Actions {
		if _, dup := e.pendingActions[ya.Name]; dup {
			e.pendingMu.Unlock()
			return fmt.Errorf("%w: action %q", ErrDuplicateTemplate, ya.Name)
		}
		e.pendingActions[ya.Name] = ya
	}
	e.pendingMu.Unlock()

	for _, at := range m.Agents {
		tmpl := &AgentTemplate{Name: at.Name, Resources: convertResources(at.Resources)}
		if err := e.CommitAgentTemplate(tmpl); err != nil {
			return fmt.Errorf("agent template %q: %w", at.Name, err)
		}
	}

	for _, tt := range m.Teams {
		tmpl := &TeamTemplate{
			AgentTemplate:  AgentTemplate{Name: tt.Name, Resources: convertResources(tt.Resources)},
			AuctionTimeout: msToDuration(tt.AuctionTimeoutMS),
			LocalGoals:     append([]string(nil), tt.LocalGoals...),
		}
		if err := e.CommitTeamTemplate(tmpl); err != nil {
			return fmt.Errorf("team template %q: %w", tt.Name, err)
		}
	}

	return nil
}

func convertResources(rs []YAMLResource) []ResourceSpec {
	out := make([]ResourceSpec, 0, len(rs))
	for _, r := range rs {
		out = append(out, ResourceSpec{Name: r.Name, Count: r.Count, Min: r.Min, Max: r.Max})
	}
	return out
}

// BindPlanBody attaches the body coroutine factory a YAML plan declaration
// cannot express, then commits the plan: validates its goal and resource
// lock names and adds it to PlansForGoal's commit-order listing. Must be
// called once per plan named in the loaded file before that plan is ever
// selected.
func (e *Engine) BindPlanBody(name string, bodyFactory func() *task.Coroutine) error {
	e.pendingMu.Lock()
	p, ok := e.pendingPlans[name]
	e.pendingMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: plan %q was not declared in the loaded model", ErrUnknownTemplate, name)
	}
	p.BodyFactory = bodyFactory
	if err := e.CommitPlan(p); err != nil {
		return err
	}
	e.pendingMu.Lock()
	delete(e.pendingPlans, name)
	e.pendingMu.Unlock()
	return nil
}

// BindPlanDropBody attaches a plan's optional drop coroutine factory.
// Valid both before and after BindPlanBody, since it mutates the same
// *plan.Plan a goal's Tactic already holds a pointer to.
func (e *Engine) BindPlanDropBody(name string, dropFactory func() *task.Coroutine) error {
	p, err := e.lookupPlan(name)
	if err != nil {
		return err
	}
	p.DropBodyFactory = dropFactory
	return nil
}

// BindPlanEffects attaches a plan's post-success effects callback.
func (e *Engine) BindPlanEffects(name string, fx plan.Effects) error {
	p, err := e.lookupPlan(name)
	if err != nil {
		return err
	}
	p.Effects = fx
	return nil
}

func (e *Engine) lookupPlan(name string) (*plan.Plan, error) {
	e.pendingMu.Lock()
	p, ok := e.pendingPlans[name]
	e.pendingMu.Unlock()
	if ok {
		return p, nil
	}
	e.mu.RLock()
	p, ok = e.plans[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: plan %q was not declared in the loaded model", ErrUnknownTemplate, name)
	}
	return p, nil
}

// BindGoalHeuristic overrides an already-committed goal's scoring
// heuristic; YAML has no expression form for it.
func (e *Engine) BindGoalHeuristic(name string, h goal.Heuristic) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tmpl, ok := e.goals[name]
	if !ok {
		return fmt.Errorf("%w: goal %q", ErrUnknownTemplate, name)
	}
	tmpl.Heuristic = h
	return nil
}

// BindAction attaches the handler a YAML action declaration cannot
// express, then commits it against the request/reply schema names
// declared in the file.
func (e *Engine) BindAction(name string, handler agent.ActionHandler) error {
	e.pendingMu.Lock()
	ya, ok := e.pendingActions[name]
	e.pendingMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: action %q was not declared in the loaded model", ErrUnknownTemplate, name)
	}
	if err := e.CommitAction(name, handler, ya.RequestSchema, ya.ReplySchema); err != nil {
		return err
	}
	e.pendingMu.Lock()
	delete(e.pendingActions, name)
	e.pendingMu.Unlock()
	return nil
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
