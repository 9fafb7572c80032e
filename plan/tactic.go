package plan

import "github.com/cortexagents/bdi/belief"

// PlanOrder is the policy a Tactic uses to pick the next candidate plan
// out of its plan_list.
type PlanOrder int

const (
	// Strict always retries the plan_list from its declared order,
	// looping up to LoopPlansCount times (unbounded if zero).
	Strict PlanOrder = iota
	// ExcludePlanAfterAttempt removes a plan from the candidate rotation
	// the moment it has been attempted once, regardless of outcome.
	ExcludePlanAfterAttempt
	// ChooseBestPlan scores each eligible plan by the goal's Heuristic
	// evaluated against the plan's tentative post-state and selects the
	// minimum scorer, breaking ties by declared order. When no Heuristic
	// is supplied it falls back to ranking by (successes - failures) and
	// selecting the highest scorer.
	ChooseBestPlan
)

func (o PlanOrder) String() string {
	switch o {
	case Strict:
		return "strict"
	case ExcludePlanAfterAttempt:
		return "exclude-after-attempt"
	case ChooseBestPlan:
		return "choose-best"
	default:
		return "unknown"
	}
}

// Tactic is the plan-selection policy a goal consults while in its
// Selecting state: a candidate plan_list, an ordering policy, and an
// optional cap on how many times the list may be cycled (Strict /
// ExcludePlanAfterAttempt) or how many times any one plan may be
// reattempted (ChooseBestPlan).
type Tactic struct {
	Name           string
	Plans          []*Plan
	Order          PlanOrder
	LoopPlansCount int
}

// Heuristic scores a candidate plan's tentative post-state; lower is
// better. ChooseBestPlan selects the minimum-scoring eligible plan.
type Heuristic func(ctx *belief.Context, candidate *Plan) float64

type planStats struct {
	attempts, successes, failures int
}

// Selector holds one goal instance's live plan-selection state for a
// Tactic: the current loop/cursor position and the per-plan attempt
// history the policy consults.
type Selector struct {
	tactic    *Tactic
	heuristic Heuristic
	cursor    int
	loopCount int
	history   map[string]*planStats
	excluded  map[string]bool
}

// NewSelector starts a fresh selection run over t. heuristic is consulted
// only when t.Order is ChooseBestPlan; it may be nil, in which case
// ChooseBestPlan falls back to its successes-minus-failures scoring.
func NewSelector(t *Tactic, heuristic Heuristic) *Selector {
	return &Selector{tactic: t, heuristic: heuristic, history: make(map[string]*planStats), excluded: make(map[string]bool)}
}

// Reset clears all selection history, as happens when a persistent goal
// re-enters Selecting after a successful intention run.
func (s *Selector) Reset() {
	s.cursor = 0
	s.loopCount = 0
	s.history = make(map[string]*planStats)
	s.excluded = make(map[string]bool)
}

// Next returns the next candidate plan whose precondition currently
// holds, or (nil, false) once the policy has no more candidates to offer.
func (s *Selector) Next(ctx *belief.Context) (*Plan, bool) {
	if len(s.tactic.Plans) == 0 {
		return nil, false
	}
	if s.tactic.Order == ChooseBestPlan {
		return s.nextBest(ctx)
	}
	return s.nextOrdered(ctx)
}

func (s *Selector) nextOrdered(ctx *belief.Context) (*Plan, bool) {
	plans := s.tactic.Plans
	limit := 2*len(plans) + 1
	for scanned := 0; scanned < limit; scanned++ {
		if s.cursor >= len(plans) {
			s.cursor = 0
			s.loopCount++
			if s.tactic.LoopPlansCount > 0 && s.loopCount >= s.tactic.LoopPlansCount {
				return nil, false
			}
		}
		candidate := plans[s.cursor]
		s.cursor++
		if s.tactic.Order == ExcludePlanAfterAttempt && s.excluded[candidate.Name] {
			continue
		}
		if !candidate.Precondition.Eval(ctx) {
			continue
		}
		return candidate, true
	}
	return nil, false
}

func (s *Selector) nextBest(ctx *belief.Context) (*Plan, bool) {
	if s.heuristic != nil {
		return s.nextByHeuristic(ctx)
	}
	var best *Plan
	bestScore := 0
	found := false
	for _, p := range s.tactic.Plans {
		if !p.Precondition.Eval(ctx) {
			continue
		}
		st := s.statsFor(p.Name)
		if s.tactic.LoopPlansCount > 0 && st.attempts >= s.tactic.LoopPlansCount {
			continue
		}
		score := st.successes - st.failures
		if !found || score > bestScore {
			best, bestScore, found = p, score, true
		}
	}
	return best, found
}

// nextByHeuristic implements ChooseBestPlan's primary policy (spec §4.6):
// score every eligible candidate via the goal's Heuristic and pick the
// minimum scorer, breaking ties by declared order.
func (s *Selector) nextByHeuristic(ctx *belief.Context) (*Plan, bool) {
	var best *Plan
	bestScore := 0.0
	found := false
	for _, p := range s.tactic.Plans {
		if !p.Precondition.Eval(ctx) {
			continue
		}
		st := s.statsFor(p.Name)
		if s.tactic.LoopPlansCount > 0 && st.attempts >= s.tactic.LoopPlansCount {
			continue
		}
		score := s.heuristic(ctx, p)
		if !found || score < bestScore {
			best, bestScore, found = p, score, true
		}
	}
	return best, found
}

func (s *Selector) statsFor(name string) *planStats {
	st, ok := s.history[name]
	if !ok {
		st = &planStats{}
		s.history[name] = st
	}
	return st
}

// Record logs the outcome of an attempted plan so future Next calls can
// apply the tactic's policy (excluding it, or scoring it for
// ChooseBestPlan).
func (s *Selector) Record(planName string, success bool) {
	st := s.statsFor(planName)
	st.attempts++
	if success {
		st.successes++
	} else {
		st.failures++
	}
	if s.tactic.Order == ExcludePlanAfterAttempt {
		s.excluded[planName] = true
	}
}
