// Package team implements Team, an Agent that routes delegate-eligible
// goals to member agents through an auction instead of running them
// locally (spec §3 Team, §4.7).
package team

import (
	"errors"
	"fmt"
	"time"

	"github.com/cortexagents/bdi/agent"
	"github.com/cortexagents/bdi/belief"
	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/model"
	"github.com/cortexagents/bdi/uid"
)

// ErrDuplicateMember indicates a member was already added to the team
// (spec §3 invariant: "a member can only be added once").
var ErrDuplicateMember = errors.New("team: member already added")

// ErrUnknownMember indicates a member id is not currently part of the
// team.
var ErrUnknownMember = errors.New("team: unknown member")

// BidFunc computes a member's bid score for a candidate goal by
// simulating its own schedule (spec §4.7 step 2). Lower scores win.
// Returning ok=false means the member cannot accommodate the goal.
type BidFunc func(ctx *belief.Context, goalName string, params *model.Message) (score float64, ok bool)

// Member is one agent belonging to the team: its role-advertised goal
// names and the bid function used when it is a delegation candidate.
type Member struct {
	Agent *agent.Agent
	Roles []string
	Bid   BidFunc
}

func (m *Member) handles(goalName string) bool {
	for _, r := range m.Roles {
		if r == goalName {
			return true
		}
	}
	return false
}

// Team is an Agent plus a member roster and in-flight auction state. It
// embeds *agent.Agent so it satisfies the engine's host interface (the
// tick loop, the model registry's agent map) while overriding Tick to layer auction bookkeeping on top of normal dispatch.
type Team struct {
	*agent.Agent

	members []*Member
	byID    map[uid.ID]*Member

	// localGoals marks goal names the team itself advertises a plan for;
	// those are never delegated even if a member also handles them
	// (spec §4.7: delegation requires the team NOT to advertise locally).
	localGoals map[string]bool

	timeout time.Duration
	clock   time.Duration

	auctions         map[uint64]*auctionState
	scheduleCounter  uint64
	pendingDelegates []*pendingDelegation
}

type pendingDelegation struct {
	ev       *event.Event
	promise  *event.Promise
	memberID uid.ID
	goalName string
	params   *model.Message
}

// New wraps base as a Team. timeout bounds how long an auction waits for
// bids before treating missing responses as failures (spec §5).
func New(base *agent.Agent, timeout time.Duration) *Team {
	t := &Team{
		Agent:      base,
		byID:       make(map[uid.ID]*Member),
		localGoals: make(map[string]bool),
		timeout:    timeout,
		auctions:   make(map[uint64]*auctionState),
	}
	base.PursueInterceptor = t.interceptPursue
	return t
}

// MarkLocallyHandled records that the team itself advertises a plan for
// the given goal names, so pursuing them never delegates.
func (t *Team) MarkLocallyHandled(goalNames ...string) {
	for _, name := range goalNames {
		t.localGoals[name] = true
	}
}

// AddMember adds ag as a team member advertising the given goal names via
// its role membership.
func (t *Team) AddMember(ag *agent.Agent, roles []string, bid BidFunc) error {
	if _, dup := t.byID[ag.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateMember, ag.Name)
	}
	m := &Member{Agent: ag, Roles: roles, Bid: bid}
	t.members = append(t.members, m)
	t.byID[ag.ID] = m
	return nil
}

// RemoveMember removes a member, discarding any in-flight auction bids
// from it and failing (for re-auction by the caller) any delegation
// already committed to it.
func (t *Team) RemoveMember(id uid.ID) error {
	m, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMember, id)
	}
	delete(t.byID, id)
	for i, mm := range t.members {
		if mm == m {
			t.members = append(t.members[:i], t.members[i+1:]...)
			break
		}
	}
	for _, st := range t.auctions {
		delete(st.bids, id)
		delete(st.responded, id)
		for i, c := range st.candidates {
			if c.Equal(id) {
				st.candidates = append(st.candidates[:i], st.candidates[i+1:]...)
				break
			}
		}
	}
	for _, pd := range t.pendingDelegates {
		if pd.memberID.Equal(id) {
			pd.promise.Resolve(event.Fail, "delegate_removed")
		}
	}
	return nil
}

// Tick runs the embedded Agent's normal dispatch/intention tick, then
// advances outstanding auctions and in-flight delegations.
func (t *Team) Tick(clock time.Duration) {
	t.clock = clock
	t.Agent.Tick(clock)
	t.advanceAuctions()
	t.advanceDelegations()
}

func (t *Team) candidatesFor(goalName string) []*Member {
	var out []*Member
	for _, m := range t.members {
		if m.handles(goalName) {
			out = append(out, m)
		}
	}
	return out
}

// interceptPursue implements agent.Agent's PursueInterceptor hook: when
// this goal is delegate-eligible, run the auction and return true so the
// base Agent skips creating a local intention for it.
func (t *Team) interceptPursue(ev *event.Event) bool {
	payload := ev.Pursue
	if payload == nil || t.localGoals[payload.GoalName] {
		return false
	}
	candidates := t.candidatesFor(payload.GoalName)
	if len(candidates) == 0 {
		return false
	}
	t.startAuction(ev, payload.GoalName, payload.Params, candidates)
	return true
}

func (t *Team) startAuction(ev *event.Event, goalName string, params *model.Message, candidates []*Member) {
	t.scheduleCounter++
	scheduleID := t.scheduleCounter

	st := &auctionState{
		scheduleID: scheduleID,
		goalName:   goalName,
		params:     params,
		ev:         ev,
		bids:       make(map[uid.ID]float64),
		responded:  make(map[uid.ID]bool),
		deadline:   t.clock + t.timeout,
	}
	for _, m := range candidates {
		st.candidates = append(st.candidates, m.Agent.ID)
	}

	// Emit the observability-level auction + per-candidate analyse
	// delegation events so a bus adapter can mirror the round trip, even
	// though bid collection itself runs as a direct synchronous call
	// below (see DESIGN.md: auctions resolve within the tick that starts
	// them rather than waiting on a real per-member event round trip).
	auctionEv := event.NewEvent(event.KindAuction, t.ID, t.ID)
	auctionEv.Auction = &event.AuctionPayload{ScheduleID: scheduleID, GoalName: goalName}
	t.recordAuctionEvent(auctionEv)

	for _, m := range candidates {
		analyseEv := event.NewEvent(event.KindDelegation, t.ID, m.Agent.ID)
		analyseEv.Delegation = &event.DelegationPayload{ScheduleID: scheduleID, GoalName: goalName, Params: params, Analyse: true}

		score, ok := 0.0, false
		if m.Bid != nil {
			score, ok = m.Bid(m.Agent.Belief(), goalName, params)
		}
		analyseEv.Delegation.Score = score
		st.responded[m.Agent.ID] = true
		if ok {
			st.bids[m.Agent.ID] = score
		}
		t.recordAuctionEvent(analyseEv)
	}

	t.auctions[scheduleID] = st
	t.resolveAuction(st)
}

func (t *Team) recordAuctionEvent(ev *event.Event) {
	// Auction/Delegation protocol events are observability-only; route
	// them through the embedded Agent's outbox so a BusAdapter can still
	// mirror them via bus.FromEngineEvent's KindAuction/KindDelegation
	// transcoding.
	t.Agent.RecordOutbox(ev)
}

func (t *Team) advanceAuctions() {
	for _, st := range t.auctions {
		if len(st.responded) < len(st.candidates) && t.clock < st.deadline {
			continue
		}
		t.resolveAuction(st)
	}
}

func (t *Team) resolveAuction(st *auctionState) {
	if len(st.responded) < len(st.candidates) && t.clock < st.deadline {
		return
	}
	delete(t.auctions, st.scheduleID)

	var (
		winner uid.ID
		best   float64
		found  bool
	)
	for id, score := range st.bids {
		if !found || score < best {
			winner, best, found = id, score, true
		}
	}
	if !found {
		st.ev.Resolve(event.Fail, "no_delegate")
		return
	}

	member := t.byID[winner]
	if member == nil {
		st.ev.Resolve(event.Fail, "no_delegate")
		return
	}

	finalEv := event.NewEvent(event.KindDelegation, t.ID, winner)
	finalEv.Delegation = &event.DelegationPayload{ScheduleID: st.scheduleID, GoalName: st.goalName, Params: st.params, Analyse: false}
	t.recordAuctionEvent(finalEv)

	promise := member.Agent.Pursue(t.ID, st.goalName, st.params)
	t.pendingDelegates = append(t.pendingDelegates, &pendingDelegation{
		ev: st.ev, promise: promise, memberID: winner, goalName: st.goalName, params: st.params,
	})
}

func (t *Team) advanceDelegations() {
	if len(t.pendingDelegates) == 0 {
		return
	}
	remaining := t.pendingDelegates[:0]
	for _, pd := range t.pendingDelegates {
		status, reason := pd.promise.State()
		if status == event.Pending {
			remaining = append(remaining, pd)
			continue
		}
		pd.ev.Resolve(status, reason)
	}
	t.pendingDelegates = remaining
}

type auctionState struct {
	scheduleID uint64
	goalName   string
	params     *model.Message
	ev         *event.Event

	candidates []uid.ID
	bids       map[uid.ID]float64
	responded  map[uid.ID]bool
	deadline   time.Duration
}
