package event

import (
	"time"

	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/uid"
)

// Kind identifies the payload/purpose of an Event, per §4.2.
type Kind int

const (
	KindTimer Kind = iota
	KindControl
	KindAction
	KindActionComplete
	KindMessage
	KindPercept
	KindPursue
	KindDrop
	KindSchedule
	KindDelegation
	KindAuction
	KindShareBeliefSet
	KindTactic
	KindRegister
)

func (k Kind) String() string {
	switch k {
	case KindTimer:
		return "Timer"
	case KindControl:
		return "Control"
	case KindAction:
		return "Action"
	case KindActionComplete:
		return "ActionComplete"
	case KindMessage:
		return "Message"
	case KindPercept:
		return "Percept"
	case KindPursue:
		return "Pursue"
	case KindDrop:
		return "Drop"
	case KindSchedule:
		return "Schedule"
	case KindDelegation:
		return "Delegation"
	case KindAuction:
		return "Auction"
	case KindShareBeliefSet:
		return "ShareBeliefSet"
	case KindTactic:
		return "Tactic"
	case KindRegister:
		return "Register"
	default:
		return "Unknown"
	}
}

// DropMode distinguishes a graceful drop (runs the plan's drop coroutine)
// from a forced one (skips it), per §5.
type DropMode int

const (
	DropNormal DropMode = iota
	DropForce
)

// Event is the single tagged record flowing through every queue in the
// runtime. Every producer receives the Promise back and observes
// resolution asynchronously; the dispatcher mutating agent-local state is
// the only code permitted to call Promise.Resolve.
type Event struct {
	ID        uid.ID
	Kind      Kind
	Status    Status
	Promise   *Promise
	Caller    uid.ID
	Recipient uid.ID
	Reason    string
	CreatedAt time.Time

	// Payload fields. Only the subset relevant to Kind is populated; this
	// mirrors the closed Kind enumeration rather than growing one struct
	// field per event type into an ever-expanding union.
	Action         *ActionPayload
	ActionComplete *ActionCompletePayload
	Percept        *PerceptPayload
	Pursue         *PursuePayload
	Drop           *DropPayload
	Timer          *TimerPayload
	Delegation     *DelegationPayload
	Auction        *AuctionPayload
	Message        *model.Message
	ShareBeliefSet *model.Message
	Schedule       *SchedulePayload
}

// ActionPayload binds an Action event to the agent/goal/intention/plan/task
// context that issued it.
type ActionPayload struct {
	AgentID     uid.ID
	GoalID      uid.ID
	IntentionID uid.ID
	PlanName    string
	TaskID      int
	ActionName  string
	Request     *model.Message
	NoWait      bool
}

// ActionCompletePayload carries the handler's reply and outcome back to
// the waiting Action task.
type ActionCompletePayload struct {
	TaskID  int
	Reply   *model.Message
	Success bool
}

// PerceptPayload mirrors a Resource mutation as an event on the owning
// agent's queue.
type PerceptPayload struct {
	ResourceName string
	Count        int
}

// PursuePayload requests that a goal template be instantiated with the
// given parameter message and pursued by the recipient agent. ParentIntent
// and ParentTask are populated when the pursue was issued by a Pursue
// task inside another intention, so the resulting child intention's
// finish can be routed back to the waiting task.
type PursuePayload struct {
	GoalName     string
	Params       *model.Message
	ParentIntent uid.ID
	ParentTask   int
}

// DropPayload requests cancellation of a running goal/intention.
type DropPayload struct {
	GoalHandle uid.ID
	Mode       DropMode
}

// TimerPayload schedules a Sleep task's wake-up.
type TimerPayload struct {
	Duration time.Duration
	TaskID   int
}

// DelegationPayload carries an auction analyse/commit round trip between a
// Team and a candidate member.
type DelegationPayload struct {
	ScheduleID    uint64
	GoalName      string
	Params        *model.Message
	Analyse       bool
	Score         float64
	SimulatedPlan string // advisory only; §9: must not be consumed by the scheduler.
}

// AuctionPayload announces a new auction round to a Team's members.
type AuctionPayload struct {
	ScheduleID uint64
	GoalName   string
}

// SchedulePayload is reserved for schedule-integration events (§2 row F);
// the core ships the id allocation and event shape used by auctions.
type SchedulePayload struct {
	ScheduleID uint64
}

// NewEvent allocates an Event with a fresh ID, a Pending promise, and
// CreatedAt set to now.
func NewEvent(kind Kind, caller, recipient uid.ID) *Event {
	return &Event{
		ID:        uid.New(),
		Kind:      kind,
		Status:    Pending,
		Promise:   NewPromise(),
		Caller:    caller,
		Recipient: recipient,
		CreatedAt: time.Now(),
	}
}

// Resolve marks the event resolved and propagates the outcome to its
// Promise.
func (e *Event) Resolve(status Status, reason string) {
	e.Status = status
	e.Reason = reason
	if e.Promise != nil {
		e.Promise.Resolve(status, reason)
	}
}
