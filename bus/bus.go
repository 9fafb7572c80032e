// Package bus defines the protocol-level event schema and the pluggable
// BusAdapter interface used to mirror engine events to external
// collaborators (the SFML visualiser, remote agents, debugging tools).
// Per spec §1 these collaborators are out of scope; only the adapter
// interface and wire schema are specified here. See json.go, websocket.go,
// redis.go, and nats.go for concrete transports.
package bus

import (
	"encoding/json"
	"time"

	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/uid"
)

// Kind identifies a protocol event's purpose on the wire, per spec §6.
type Kind string

const (
	KindControl        Kind = "Control"
	KindPercept        Kind = "Percept"
	KindPursue         Kind = "Pursue"
	KindDrop           Kind = "Drop"
	KindDelegation     Kind = "Delegation"
	KindMessage        Kind = "Message"
	KindRegister       Kind = "Register"
	KindDeregister     Kind = "Deregister"
	KindAgentJoinTeam  Kind = "AgentJoinTeam"
	KindAgentLeaveTeam Kind = "AgentLeaveTeam"
	KindActionBegin    Kind = "ActionBegin"
	KindActionUpdate   Kind = "ActionUpdate"
	KindBDILog         Kind = "BDILog"
)

// ProtocolEvent is the wire record every BusAdapter sends and receives, per
// spec §6: `{type, senderNode, timestamp, payload}`.
type ProtocolEvent struct {
	Type       Kind            `json:"type"`
	SenderNode uid.ID          `json:"senderNode"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// Adapter is the pluggable sink/source spec §4.8 describes: connect,
// disconnect, send, and poll for inbound events. If no adapter is attached
// to an engine, all bus operations are no-ops (§4.8).
//
// Implementations must be safe to Connect repeatedly after Disconnect
// (spec §6).
type Adapter interface {
	Connect() error
	Disconnect()
	SendEvent(ev *ProtocolEvent) error
	Poll(max int) ([]*ProtocolEvent, error)
}

// eligibleKinds maps an internal event.Kind to the protocol Kind it mirrors
// as, when it is eligible for bus transcoding at all. Timer, Schedule, and
// Tactic are internal-only and never cross the bus; ActionComplete is not
// listed here because FromEngineEvent transcodes it as ActionUpdate itself.
func eligibleKinds(k event.Kind) (Kind, bool) {
	switch k {
	case event.KindControl:
		return KindControl, true
	case event.KindPercept:
		return KindPercept, true
	case event.KindPursue:
		return KindPursue, true
	case event.KindDrop:
		return KindDrop, true
	case event.KindDelegation:
		return KindDelegation, true
	case event.KindAuction:
		return KindDelegation, true
	case event.KindMessage, event.KindShareBeliefSet:
		return KindMessage, true
	case event.KindRegister:
		return KindRegister, true
	case event.KindAction:
		return KindActionBegin, true
	default:
		return "", false
	}
}

// actionUpdatePayload mirrors an ActionCompletePayload as an ActionUpdate
// protocol event; FromEngineEvent special-cases it since ActionComplete
// has no direct Kind mapping of its own (it always follows an ActionBegin
// mirrored earlier for the same task id).
type actionUpdatePayload struct {
	TaskID  int             `json:"taskId"`
	Success bool            `json:"success"`
	Reply   json.RawMessage `json:"reply,omitempty"`
}

// FromEngineEvent transcodes an internal runtime event into a wire
// ProtocolEvent, returning ok=false for event kinds that are internal-only
// and never cross the bus (spec §4.2's dispatch contract: "Proxy agents'
// dispatch additionally forwards the event to the bus adapter").
func FromEngineEvent(ev *event.Event) (*ProtocolEvent, bool) {
	if ev.Kind == event.KindActionComplete {
		payload, err := json.Marshal(actionUpdatePayload{
			TaskID:  ev.ActionComplete.TaskID,
			Success: ev.ActionComplete.Success,
		})
		if err != nil {
			return nil, false
		}
		return &ProtocolEvent{Type: KindActionUpdate, SenderNode: ev.Recipient, Timestamp: ev.CreatedAt, Payload: payload}, true
	}

	kind, ok := eligibleKinds(ev.Kind)
	if !ok {
		return nil, false
	}
	raw, err := marshalEventPayload(ev)
	if err != nil {
		return nil, false
	}
	return &ProtocolEvent{Type: kind, SenderNode: ev.Caller, Timestamp: ev.CreatedAt, Payload: raw}, true
}

func marshalEventPayload(ev *event.Event) (json.RawMessage, error) {
	switch ev.Kind {
	case event.KindPercept:
		return json.Marshal(ev.Percept)
	case event.KindPursue:
		return json.Marshal(ev.Pursue)
	case event.KindDrop:
		return json.Marshal(ev.Drop)
	case event.KindDelegation:
		return json.Marshal(ev.Delegation)
	case event.KindAuction:
		return json.Marshal(ev.Auction)
	case event.KindMessage:
		return json.Marshal(ev.Message)
	case event.KindShareBeliefSet:
		return json.Marshal(ev.ShareBeliefSet)
	case event.KindRegister:
		return json.Marshal(map[string]string{"reason": ev.Reason})
	case event.KindAction:
		return json.Marshal(ev.Action)
	default:
		return json.Marshal(map[string]string{"reason": ev.Reason})
	}
}
