package belief

import (
	"fmt"
	"sync"

	"github.com/cortexagents/bdi/model"
)

// Context is the per-agent in-memory store of messages (beliefsets) and
// resources. It is owned exclusively by its Agent and mutated only on the
// engine thread; the invariant in spec §3 ("the context reflects exactly
// the beliefs visible after the last processed event") is maintained by
// never mutating it outside of event dispatch and intention ticking.
type Context struct {
	mu          sync.RWMutex
	messages    map[string]*model.Message
	resources   map[string]*Resource
	currentGoal *model.Message
	pendingReplies []*model.Message
}

// New constructs an empty belief context.
func New() *Context {
	return &Context{
		messages:  make(map[string]*model.Message),
		resources: make(map[string]*Resource),
	}
}

// SetMessage replaces or inserts a message by its schema name. Setting a
// message whose schema name is empty is rejected.
func (c *Context) SetMessage(m *model.Message) error {
	if m == nil || m.SchemaName == "" {
		return fmt.Errorf("belief: cannot set message with empty schema name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[m.SchemaName] = m
	return nil
}

// Message returns the current belief for the given message/schema name.
func (c *Context) Message(name string) (*model.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.messages[name]
	return m, ok
}

// Get returns the current value of a field within the named message, or
// def if the message or field is absent.
func (c *Context) Get(messageName, field string, def model.Value) model.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.messages[messageName]
	if !ok {
		return def
	}
	return m.GetOr(field, def)
}

// AddResource registers a resource under its own name. Returns an error if
// a resource with that name is already registered.
func (c *Context) AddResource(r *Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.resources[r.Name()]; dup {
		return fmt.Errorf("belief: resource %q already registered", r.Name())
	}
	c.resources[r.Name()] = r
	return nil
}

// Resource returns the named resource and whether it was found.
func (c *Context) Resource(name string) (*Resource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.resources[name]
	return r, ok
}

// Resources returns a copy of the resource map. The map itself is a fresh
// snapshot, but the *Resource values it holds are the context's own, so
// locking through them mutates the live counters. Used by
// belief.LockSet/UnlockSet during plan resource acquisition.
func (c *Context) Resources() map[string]*Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*Resource, len(c.resources))
	for k, v := range c.resources {
		out[k] = v
	}
	return out
}

// SetCurrentGoal records the parameter message of the goal this context is
// currently evaluating plan selection for. BeliefQuery callbacks and
// coroutine "from context" parameter bindings read goal fields through
// CurrentGoal.
func (c *Context) SetCurrentGoal(params *model.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentGoal = params
}

// CurrentGoal returns the parameter message set by SetCurrentGoal, or nil.
func (c *Context) CurrentGoal() *model.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentGoal
}

// QueuePendingReply buffers an action reply message to be applied once the
// owning intention reaches a terminal state (§3: "a buffer of pending
// action reply messages to be applied on intention completion").
func (c *Context) QueuePendingReply(reply *model.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingReplies = append(c.pendingReplies, reply)
}

// DrainPendingReplies returns and clears all buffered reply messages.
func (c *Context) DrainPendingReplies() []*model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pendingReplies
	c.pendingReplies = nil
	return out
}
