// Package engine implements the model registry and the single-threaded
// cooperative tick loop that drives every committed agent and team
// (spec §4.1). The engine never spawns a goroutine per agent: all
// dispatch and intention ticking happens on whichever goroutine calls
// Poll/Execute, matching §5's "the recipient agent's event_dispatch is
// invoked on the engine thread only" discipline.
package engine

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cortexagents/bdi/bus"
	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/goal"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/plan"
	"github.com/cortexagents/bdi/task"
	"github.com/cortexagents/bdi/team"
	"github.com/cortexagents/bdi/telemetry"
	"github.com/cortexagents/bdi/uid"
)

// Engine is the model registry plus the tick loop that advances every
// committed agent and team. The zero value is not usable; construct with
// New.
type Engine struct {
	mu sync.RWMutex

	schemas       map[string]*model.Schema
	schemaDocs    map[string]*model.SchemaDocument
	resourceTmpls map[string]ResourceSpec
	actions       map[string]actionDef
	roles         map[string][]string
	goals         map[string]*goal.Template
	plans         map[string]*plan.Plan
	planOrder     []string
	tactics       map[string]*plan.Tactic
	agentTmpls    map[string]*AgentTemplate
	teamTmpls     map[string]*TeamTemplate

	// pendingMu guards pendingPlans/pendingActions independently of mu,
	// since binding one calls back into the Commit* methods above, which
	// take mu themselves.
	pendingMu      sync.Mutex
	pendingPlans   map[string]*plan.Plan
	pendingActions map[string]YAMLAction

	central *event.Queue
	agents  map[uid.ID]host
	teams   map[uid.ID]*team.Team
	order   []uid.ID

	tel       telemetry.Telemetry
	bus       bus.Adapter
	printSink func(string)

	clockMu      sync.Mutex
	clock        time.Duration
	exitWhenDone bool
	stopped      atomic.Bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithTelemetry overrides the engine's telemetry bundle, threaded into
// every created agent/team.
func WithTelemetry(tel telemetry.Telemetry) Option {
	return func(e *Engine) { e.tel = tel }
}

// WithBusAdapter attaches a bus.Adapter; engine behavior is identical
// whether or not one is attached (spec §4.8), except that outgoing events
// are mirrored and Poll additionally drains inbound protocol events.
func WithBusAdapter(b bus.Adapter) Option {
	return func(e *Engine) { e.bus = b }
}

// WithBusAdapterRateLimited attaches b wrapped in a bus.RateLimitedAdapter,
// capping outbound mirrored events to eventsPerSec (bursting up to burst)
// so a fast tick loop cannot overrun a slow transport.
func WithBusAdapterRateLimited(b bus.Adapter, eventsPerSec float64, burst int) Option {
	return func(e *Engine) { e.bus = bus.NewRateLimitedAdapter(b, eventsPerSec, burst) }
}

// WithExitWhenDone makes Poll/Execute return as soon as the central queue
// and every agent's inbox are empty and no intention is active, rather
// than running until the deadline (spec §4.1 step 5).
func WithExitWhenDone(v bool) Option {
	return func(e *Engine) { e.exitWhenDone = v }
}

// WithPrintSink overrides where Print tasks write their output; threaded
// into every created agent.
func WithPrintSink(sink func(string)) Option {
	return func(e *Engine) { e.printSink = sink }
}

// New constructs an empty Engine: no committed templates, no agents, a
// zeroed internal clock.
func New(opts ...Option) *Engine {
	e := &Engine{
		schemas:       make(map[string]*model.Schema),
		schemaDocs:    make(map[string]*model.SchemaDocument),
		resourceTmpls: make(map[string]ResourceSpec),
		actions:       make(map[string]actionDef),
		roles:         make(map[string][]string),
		goals:         make(map[string]*goal.Template),
		plans:         make(map[string]*plan.Plan),
		tactics:       make(map[string]*plan.Tactic),
		agentTmpls:    make(map[string]*AgentTemplate),
		teamTmpls:     make(map[string]*TeamTemplate),
		central:       event.NewQueue(),
		agents:        make(map[uid.ID]host),
		teams:         make(map[uid.ID]*team.Team),
		tel:           telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Telemetry returns the engine's configured telemetry bundle (spec
// §4.1's `Telemetry()` accessor).
func (e *Engine) Telemetry() telemetry.Telemetry { return e.tel }

// InternalClock returns the engine's current simulated clock, the sum of
// elapsed wall time passed across every Poll call so far.
func (e *Engine) InternalClock() time.Duration {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()
	return e.clock
}

// Stop requests that a running Execute/Poll loop return at the start of
// its next iteration.
func (e *Engine) Stop() { e.stopped.Store(true) }

// Pursue installs a new intention for goalName on the given agent/team,
// returning the Promise resolved once the intention reaches a terminal
// state.
func (e *Engine) Pursue(id uid.ID, goalName string, params *model.Message) (*event.Promise, error) {
	e.mu.RLock()
	h, ok := e.agents[id]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrNoRecipient
	}
	type pursuer interface {
		Pursue(caller uid.ID, goalName string, params *model.Message) *event.Promise
	}
	p, ok := h.(pursuer)
	if !ok {
		return nil, ErrNoRecipient
	}
	return p.Pursue(uid.Nil, goalName, params), nil
}

// Drop requests cancellation of the intention pursuing goalHandle on the
// given agent/team, returning the Promise resolved once the drop event
// itself has been dispatched (not once the intention has finished
// dropping; see the intention's own finish Promise for that).
func (e *Engine) Drop(id uid.ID, goalHandle uid.ID, mode task.DropMode) (*event.Promise, error) {
	e.mu.RLock()
	h, ok := e.agents[id]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrNoRecipient
	}
	evMode := event.DropNormal
	if mode == task.DropForce {
		evMode = event.DropForce
	}
	ev := event.NewEvent(event.KindDrop, uid.Nil, id)
	ev.Drop = &event.DropPayload{GoalHandle: goalHandle, Mode: evMode}
	h.Enqueue(ev)
	return ev.Promise, nil
}

// tick runs one iteration of the algorithm in spec §4.1: advance the
// clock, route centrally-queued events, tick every agent in insertion
// order, then flush the bus adapter.
func (e *Engine) tick(elapsed time.Duration) {
	e.clockMu.Lock()
	e.clock += elapsed
	clock := e.clock
	e.clockMu.Unlock()

	for _, ev := range e.central.Drain() {
		e.route(ev)
	}

	e.mu.RLock()
	order := append([]uid.ID(nil), e.order...)
	e.mu.RUnlock()

	for _, id := range order {
		e.mu.RLock()
		h, ok := e.agents[id]
		e.mu.RUnlock()
		if !ok {
			continue
		}
		h.Tick(clock)
	}

	if e.bus != nil {
		e.flushBus()
	}
}

func (e *Engine) route(ev *event.Event) {
	e.mu.RLock()
	h, ok := e.agents[ev.Recipient]
	e.mu.RUnlock()
	if !ok {
		ev.Resolve(event.Fail, "no_recipient")
		return
	}
	h.Enqueue(ev)
}

func (e *Engine) flushBus() {
	e.mu.RLock()
	agents := make([]host, 0, len(e.agents))
	for _, h := range e.agents {
		agents = append(agents, h)
	}
	e.mu.RUnlock()

	for _, h := range agents {
		for _, ev := range h.DrainOutbox() {
			pe, ok := bus.FromEngineEvent(ev)
			if !ok {
				continue
			}
			_ = e.bus.SendEvent(pe)
		}
	}

	inbound, err := e.bus.Poll(0)
	if err != nil {
		e.tel.Logger.Warn(context.Background(), "bus poll failed", "error", err)
		return
	}
	for _, pe := range inbound {
		e.routeInbound(pe)
	}
}

// routeInbound handles an inbound protocol event from a remote
// collaborator. Pursue, Drop, and Message events are logged at debug
// level; every other kind is discarded without a log line. No inbound
// event is transcoded back into an engine event or routed to an agent, so
// inbound traffic never changes engine or agent state.
func (e *Engine) routeInbound(pe *bus.ProtocolEvent) {
	switch pe.Type {
	case bus.KindPursue, bus.KindDrop, bus.KindMessage:
		e.tel.Logger.Debug(context.Background(), "bus inbound event", "type", string(pe.Type), "sender", pe.SenderNode.String())
	default:
	}
}

func (e *Engine) queueEmpty() bool {
	if !e.central.Empty() {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, h := range e.agents {
		if !h.InboxEmpty() {
			return false
		}
	}
	return true
}

// Poll runs ticks until maxWallTime has elapsed (measuring actual wall
// time between iterations to advance the internal clock) or, if
// WithExitWhenDone was set, until the central queue and every agent's
// inbox are empty and no intention is active (spec §4.1 step 5).
func (e *Engine) Poll(maxWallTime time.Duration) {
	deadline := time.Now().Add(maxWallTime)
	last := time.Now()
	for {
		if e.stopped.Load() {
			return
		}
		now := time.Now()
		if now.After(deadline) {
			return
		}
		elapsed := now.Sub(last)
		last = now
		e.tick(elapsed)
		if e.exitWhenDone && e.queueEmpty() && !e.hasActiveIntentions() {
			return
		}
	}
}

func (e *Engine) hasActiveIntentions() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, h := range e.agents {
		if h.ActiveIntentionCount() > 0 {
			return true
		}
	}
	return false
}

// Execute runs Poll until an explicit Stop call, the cooperative
// counterpart to spec §4.1's "run until told to stop" entrypoint.
func (e *Engine) Execute() {
	e.stopped.Store(false)
	e.Poll(time.Duration(math.MaxInt64))
}
