package engine

import (
	"fmt"
	"time"

	"github.com/cortexagents/bdi/agent"
	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/goal"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/team"
	"github.com/cortexagents/bdi/uid"
)

// ResourceSpec is a committed resource template: the bounded counter
// create_agent/create_service clone onto each new instance (spec §3's
// resource declarations, §4.1's commit_resource).
type ResourceSpec struct {
	Name  string
	Count int
	Min   int
	Max   int
}

// actionDef pairs a committed action's handler with the request/reply
// schema names the engine validates at commit time.
type actionDef struct {
	handler       agent.ActionHandler
	requestSchema string
	replySchema   string
}

// AgentTemplate is a committed agent shape: the resources a create_agent
// call clones onto the new instance (spec §3: agents are created from
// templates, not built ad hoc).
type AgentTemplate struct {
	Name      string
	Resources []ResourceSpec
}

// TeamTemplate extends AgentTemplate with the auction timeout and the
// goal names the team advertises locally (never delegated even when a
// member also handles them, per spec §4.7).
type TeamTemplate struct {
	AgentTemplate
	AuctionTimeout time.Duration
	LocalGoals     []string
}

// host is the subset of *agent.Agent / *team.Team the engine's tick loop
// and routing step need. *team.Team satisfies it via its embedded
// *agent.Agent plus its own overriding Tick.
type host interface {
	Tick(clock time.Duration)
	ActiveIntentionCount() int
	InboxEmpty() bool
	DrainOutbox() []*event.Event
	Enqueue(ev *event.Event)
}

// GoalTemplate implements agent.Registry, resolving a committed goal by
// name for an agent's handlePursue.
func (e *Engine) GoalTemplate(name string) (*goal.Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.goals[name]
	return t, ok
}

// ActionHandler implements agent.Registry, resolving a committed action's
// handler by name for an agent's handleAction.
func (e *Engine) ActionHandler(name string) (agent.ActionHandler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.actions[name]
	if !ok {
		return nil, false
	}
	return d.handler, true
}

// CommitMessageSchema registers a field-based Schema. It fails if the
// name is already registered or the schema does not pass Verify (spec
// §4.1: "committing a template with duplicate name fails").
func (e *Engine) CommitMessageSchema(s *model.Schema) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.schemas[s.Name]; dup {
		return fmt.Errorf("%w: message schema %q", ErrDuplicateTemplate, s.Name)
	}
	if err := s.Verify(); err != nil {
		return err
	}
	e.schemas[s.Name] = s
	return nil
}

// CommitMessageSchemaFromJSON compiles and registers a JSON-Schema-backed
// SchemaDocument under name, for stricter structural validation of
// payloads arriving off a BusAdapter (spec's schema bootstrap extension).
func (e *Engine) CommitMessageSchemaFromJSON(name string, raw []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.schemaDocs[name]; dup {
		return fmt.Errorf("%w: schema document %q", ErrDuplicateTemplate, name)
	}
	doc, err := model.CompileSchemaDocument(name, raw)
	if err != nil {
		return err
	}
	e.schemaDocs[name] = doc
	return nil
}

// MessageSchema returns a committed field-based Schema by name.
func (e *Engine) MessageSchema(name string) (*model.Schema, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.schemas[name]
	return s, ok
}

// SchemaDocument returns a committed JSON-Schema-backed SchemaDocument by
// name.
func (e *Engine) SchemaDocument(name string) (*model.SchemaDocument, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.schemaDocs[name]
	return d, ok
}

// CommitResource registers a resource template. Fails on a duplicate name
// or a count outside [min, max].
func (e *Engine) CommitResource(name string, count, min, max int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.resourceTmpls[name]; dup {
		return fmt.Errorf("%w: resource %q", ErrDuplicateTemplate, name)
	}
	if min > max || count < min || count > max {
		return fmt.Errorf("%w: resource %q count=%d not within [%d,%d]", ErrValidation, name, count, min, max)
	}
	e.resourceTmpls[name] = ResourceSpec{Name: name, Count: count, Min: min, Max: max}
	return nil
}

// CommitAction registers a named action handler, optionally validating
// its request/reply message schemas are already known (spec §4.1: "fails
// if ... a message type it declares is unknown").
func (e *Engine) CommitAction(name string, handler agent.ActionHandler, requestSchema, replySchema string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.actions[name]; dup {
		return fmt.Errorf("%w: action %q", ErrDuplicateTemplate, name)
	}
	if handler == nil {
		return fmt.Errorf("%w: action %q has no handler", ErrValidation, name)
	}
	if requestSchema != "" {
		if _, ok := e.schemas[requestSchema]; !ok {
			return fmt.Errorf("%w: action %q request schema %q", ErrUnknownTemplate, name, requestSchema)
		}
	}
	if replySchema != "" {
		if _, ok := e.schemas[replySchema]; !ok {
			return fmt.Errorf("%w: action %q reply schema %q", ErrUnknownTemplate, name, replySchema)
		}
	}
	e.actions[name] = actionDef{handler: handler, requestSchema: requestSchema, replySchema: replySchema}
	return nil
}

// CommitRole registers a named role as the set of goal names it
// advertises; create_agent/create_service callers resolve role names
// into goal names through this registry when joining a team.
func (e *Engine) CommitRole(name string, goalNames ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.roles[name]; dup {
		return fmt.Errorf("%w: role %q", ErrDuplicateTemplate, name)
	}
	for _, g := range goalNames {
		if _, ok := e.goals[g]; !ok {
			return fmt.Errorf("%w: role %q references unknown goal %q", ErrUnknownTemplate, name, g)
		}
	}
	e.roles[name] = append([]string(nil), goalNames...)
	return nil
}

func (e *Engine) expandRoles(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		goals, ok := e.roles[n]
		if !ok {
			// Treat an unresolved role name as a bare goal name, so
			// callers may pass goal names directly without a role
			// indirection for simple single-goal members.
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
			continue
		}
		for _, g := range goals {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

// CommitGoal registers a goal Template. tmpl.Tactic may reference Plan
// values that have not yet been committed (commit_plan validates the
// reverse direction); fails on a duplicate name or an unknown
// ParamSchema.
func (e *Engine) CommitGoal(tmpl *goal.Template) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.goals[tmpl.Name]; dup {
		return fmt.Errorf("%w: goal %q", ErrDuplicateTemplate, tmpl.Name)
	}
	if tmpl.ParamSchema != "" {
		if _, ok := e.schemas[tmpl.ParamSchema]; !ok {
			return fmt.Errorf("%w: goal %q param schema %q", ErrUnknownTemplate, tmpl.Name, tmpl.ParamSchema)
		}
	}
	e.goals[tmpl.Name] = tmpl
	return nil
}

// CommitPlan registers a Plan template, validating it against the
// open-question resolution in spec §4.5: a plan naming an unknown goal or
// an unknown resource lock is a hard validation error at commit time,
// not a deferred runtime failure.
func (e *Engine) CommitPlan(p *plan.Plan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.plans[p.Name]; dup {
		return fmt.Errorf("%w: plan %q", ErrDuplicateTemplate, p.Name)
	}
	if _, ok := e.goals[p.GoalName]; !ok {
		return fmt.Errorf("%w: plan %q references unknown goal %q", ErrUnknownTemplate, p.Name, p.GoalName)
	}
	for _, r := range p.ResourceLocks {
		if _, ok := e.resourceTmpls[r]; !ok {
			return fmt.Errorf("%w: plan %q references unknown resource %q", ErrUnknownTemplate, p.Name, r)
		}
	}
	if p.BodyFactory == nil {
		return fmt.Errorf("%w: plan %q has no body", ErrValidation, p.Name)
	}
	e.plans[p.Name] = p
	e.planOrder = append(e.planOrder, p.Name)
	return nil
}

// CommitTactic registers a named, reusable Tactic. Every plan in
// t.Plans must already be committed by name.
func (e *Engine) CommitTactic(t *plan.Tactic) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.tactics[t.Name]; dup {
		return fmt.Errorf("%w: tactic %q", ErrDuplicateTemplate, t.Name)
	}
	for _, p := range t.Plans {
		if _, ok := e.plans[p.Name]; !ok {
			return fmt.Errorf("%w: tactic %q references uncommitted plan %q", ErrUnknownTemplate, t.Name, p.Name)
		}
	}
	e.tactics[t.Name] = t
	return nil
}

// PlansForGoal returns every committed plan naming goalName, in commit
// order; this is the fallback set a Tactic with an empty plan_list uses
// (spec §4.6: "if empty, the global set of plans that handle this goal is
// used in commit order").
func (e *Engine) PlansForGoal(goalName string) []*plan.Plan {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*plan.Plan
	for _, name := range e.planOrder {
		p := e.plans[name]
		if p.GoalName == goalName {
			out = append(out, p)
		}
	}
	return out
}

// CommitAgentTemplate registers a named agent shape for create_agent.
func (e *Engine) CommitAgentTemplate(tmpl *AgentTemplate) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.agentTmpls[tmpl.Name]; dup {
		return fmt.Errorf("%w: agent template %q", ErrDuplicateTemplate, tmpl.Name)
	}
	if err := e.validateResourceSpecs(tmpl.Resources); err != nil {
		return fmt.Errorf("agent template %q: %w", tmpl.Name, err)
	}
	e.agentTmpls[tmpl.Name] = tmpl
	return nil
}

// CommitTeamTemplate registers a named team shape for create_team.
func (e *Engine) CommitTeamTemplate(tmpl *TeamTemplate) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.teamTmpls[tmpl.Name]; dup {
		return fmt.Errorf("%w: team template %q", ErrDuplicateTemplate, tmpl.Name)
	}
	if err := e.validateResourceSpecs(tmpl.Resources); err != nil {
		return fmt.Errorf("team template %q: %w", tmpl.Name, err)
	}
	for _, g := range tmpl.LocalGoals {
		if _, ok := e.goals[g]; !ok {
			return fmt.Errorf("%w: team template %q local goal %q", ErrUnknownTemplate, tmpl.Name, g)
		}
	}
	e.teamTmpls[tmpl.Name] = tmpl
	return nil
}

func (e *Engine) validateResourceSpecs(specs []ResourceSpec) error {
	for _, r := range specs {
		if r.Min > r.Max || r.Count < r.Min || r.Count > r.Max {
			return fmt.Errorf("%w: resource %q count=%d not within [%d,%d]", ErrValidation, r.Name, r.Count, r.Min, r.Max)
		}
	}
	return nil
}

// CreateAgent instantiates templateName as a new Agent bound to this
// engine's registry and central event queue. If id is uid.Nil a fresh one
// is generated.
func (e *Engine) CreateAgent(templateName, name string, id uid.ID) (*agent.Agent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tmpl, ok := e.agentTmpls[templateName]
	if !ok {
		return nil, fmt.Errorf("%w: agent template %q", ErrUnknownTemplate, templateName)
	}
	if id == uid.Nil {
		id = uid.New()
	}
	if _, dup := e.agents[id]; dup {
		return nil, fmt.Errorf("%w: agent id already in use", ErrValidation)
	}
	ag := agent.New(id, name, e, e.central, e.tel, e.printSink)
	if err := e.applyResources(ag, tmpl.Resources); err != nil {
		return nil, err
	}
	e.agents[id] = ag
	e.order = append(e.order, id)
	return ag, nil
}

// CreateService instantiates templateName as a proxy Agent: every
// dispatched event is additionally mirrored to the bus adapter (spec §1's
// external-collaborator surface; agent.Agent.Proxy already implements the
// mirroring, CreateService just sets it).
func (e *Engine) CreateService(templateName, name string, id uid.ID) (*agent.Agent, error) {
	ag, err := e.CreateAgent(templateName, name, id)
	if err != nil {
		return nil, err
	}
	ag.Proxy = true
	return ag, nil
}

// CreateTeam instantiates templateName as a new Team: a base Agent plus
// the auction timeout and locally-handled goals declared on the template.
func (e *Engine) CreateTeam(templateName, name string, id uid.ID) (*team.Team, error) {
	e.mu.Lock()
	tmpl, ok := e.teamTmpls[templateName]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: team template %q", ErrUnknownTemplate, templateName)
	}
	if id == uid.Nil {
		id = uid.New()
	}
	if _, dup := e.agents[id]; dup {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: agent id already in use", ErrValidation)
	}
	base := agent.New(id, name, e, e.central, e.tel, e.printSink)
	if err := e.applyResources(base, tmpl.Resources); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	tm := team.New(base, tmpl.AuctionTimeout)
	tm.MarkLocallyHandled(tmpl.LocalGoals...)
	e.agents[id] = tm
	e.teams[id] = tm
	e.order = append(e.order, id)
	e.mu.Unlock()
	return tm, nil
}

// AddTeamMember joins agentID to teamID, expanding roleNames (role names
// or bare goal names) into the goal names the member advertises.
func (e *Engine) AddTeamMember(teamID, agentID uid.ID, roleNames []string, bid team.BidFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tm, ok := e.teams[teamID]
	if !ok {
		return fmt.Errorf("%w: team %s", ErrUnknownTemplate, teamID)
	}
	h, ok := e.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: agent %s", ErrUnknownTemplate, agentID)
	}
	ag, ok := h.(*agent.Agent)
	if !ok {
		return fmt.Errorf("%w: %s is a team, not a plain agent", ErrValidation, agentID)
	}
	return tm.AddMember(ag, e.expandRoles(roleNames), bid)
}

func (e *Engine) applyResources(ag *agent.Agent, specs []ResourceSpec) error {
	for _, r := range specs {
		if err := ag.AddResource(r.Name, r.Count, r.Min, r.Max); err != nil {
			return err
		}
	}
	return nil
}

// DestroyAgent removes an agent or team from the registry and the tick
// order. It is never ticked again, so events already in its inbox are never
// dispatched; future central-queue events naming this id as recipient are
// failed with reason "no_recipient" by the routing step.
func (e *Engine) DestroyAgent(id uid.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.agents[id]; !ok {
		return fmt.Errorf("%w: agent %s", ErrUnknownTemplate, id)
	}
	delete(e.agents, id)
	delete(e.teams, id)
	for i, oid := range e.order {
		if oid.Equal(id) {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return nil
}

// Belief returns the belief context owned by the given registered agent
// or team, used by callers seeding initial messages/resources after
// creation but before the first tick.
func (e *Engine) Belief(id uid.ID) (*belief.Context, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.agents[id]
	if !ok {
		return nil, false
	}
	if ag, ok := h.(*agent.Agent); ok {
		return ag.Belief(), true
	}
	if tm, ok := h.(*team.Team); ok {
		return tm.Belief(), true
	}
	return nil, false
}
