// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assign resolves a multi-concept pattern against one shared pool of
// candidates.
//
// Resolution is a heuristic local search. Concepts are ranked by best score
// and margin, assigned greedily, then improved by a bounded repair loop that
// fills unassigned concepts from free candidates or by swapping a contested
// candidate away from its holder when the exchange raises the total score.
// No candidate is ever held by two concepts, every repair step leaves the
// total realized score no lower than before, and the loop stops after
// max_repairs passes or the first pass that changes nothing. The result is
// not guaranteed to be a global optimum.
package assign

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pdiddy/concept-engine/internal/match"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// ErrMissingConcept is returned when a pattern includes a concept id that is
// not in the supplied concept set.
var ErrMissingConcept = errors.New("missing concept")

// swapEpsilon is the minimum total-score gain for a swap, so that
// floating-point noise does not cause churn.
const swapEpsilon = 1e-4

// Options override pattern strategy values that the pattern leaves unset.
type Options struct {
	TopK       int
	MaxRepairs int
}

// Resolver assigns candidates to the concepts of a pattern.
type Resolver struct {
	engine *match.Engine
	opts   Options
}

// NewResolver returns a Resolver that scores with engine.
func NewResolver(engine *match.Engine, opts Options) *Resolver {
	return &Resolver{engine: engine, opts: opts}
}

// ranking is one concept's state during resolution.
type ranking struct {
	conceptID string
	minConf   float64
	top       []types.ScoredCandidate
	bestP     float64
	margin    float64
	// scores holds the concept's score for every candidate in the observation.
	scores map[string]float64
}

// state is the mutable assignment under construction.
type state struct {
	assigned map[string]string // concept -> candidate
	holder   map[string]string // candidate -> concept
}

func (s *state) claim(conceptID, candidateID string) {
	s.assigned[conceptID] = candidateID
	s.holder[candidateID] = conceptID
}

// Resolve assigns candidates of obs to the concepts included by p. Every
// included id must be present in concepts, otherwise ErrMissingConcept is
// returned. Each concept is scored exactly once, through Explain.
func (r *Resolver) Resolve(p *types.Pattern, concepts []types.Concept, obs *types.Observation) (*types.Assignment, error) {
	byID := make(map[string]*types.Concept, len(concepts))
	for i := range concepts {
		if _, dup := byID[concepts[i].ConceptID]; !dup {
			byID[concepts[i].ConceptID] = &concepts[i]
		}
	}

	topK := p.Strategy.TopK
	if topK <= 0 && r.opts.TopK > 0 {
		topK = r.opts.TopK
	}
	maxRepairs := p.Strategy.MaxRepairs
	if maxRepairs <= 0 && r.opts.MaxRepairs > 0 {
		maxRepairs = r.opts.MaxRepairs
	}
	strategy := types.Strategy{TopK: topK, MaxRepairs: maxRepairs}

	rankings, err := r.rank(p.Includes, byID, obs, strategy.EffectiveTopK())
	if err != nil {
		return nil, err
	}

	st := &state{
		assigned: make(map[string]string, len(rankings)),
		holder:   make(map[string]string, len(rankings)),
	}
	greedy(rankings, st)
	repairs, passes := repair(rankings, st, strategy.EffectiveMaxRepairs())

	return buildAssignment(p, rankings, st, repairs, passes), nil
}

// rank explains every included concept, keeps its top-k candidates, and
// orders concepts by best score then margin, both descending.
func (r *Resolver) rank(includes []string, byID map[string]*types.Concept, obs *types.Observation, topK int) ([]*ranking, error) {
	seen := make(map[string]bool, len(includes))
	rankings := make([]*ranking, 0, len(includes))

	for _, cid := range includes {
		if seen[cid] {
			continue
		}
		seen[cid] = true

		c, ok := byID[cid]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingConcept, cid)
		}
		ex, err := r.engine.Explain(c, obs)
		if err != nil {
			return nil, fmt.Errorf("concept %s: %w", cid, err)
		}

		scores := make(map[string]float64, len(ex.Candidates))
		for _, tr := range ex.Candidates {
			if _, dup := scores[tr.CandidateID]; !dup {
				scores[tr.CandidateID] = tr.P
			}
		}

		top := match.TopK(ex.Ranked, topK)
		rk := &ranking{
			conceptID: cid,
			minConf:   c.Resolution.Decision.MinConf,
			top:       top,
			scores:    scores,
		}
		if len(top) > 0 {
			rk.bestP = top[0].P
			rk.margin = top[0].P
		}
		if len(top) > 1 {
			rk.margin = top[0].P - top[1].P
		}
		rankings = append(rankings, rk)
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].bestP != rankings[j].bestP {
			return rankings[i].bestP > rankings[j].bestP
		}
		return rankings[i].margin > rankings[j].margin
	})
	return rankings, nil
}

// greedy gives each concept, in ranked order, its best unclaimed candidate
// that meets the concept's min_conf.
func greedy(rankings []*ranking, st *state) {
	for _, rk := range rankings {
		if x, ok := firstFree(rk, st, ""); ok {
			st.claim(rk.conceptID, x.CandidateID)
		}
	}
}

// firstFree returns the best unclaimed top-k candidate of rk meeting its
// min_conf, skipping exclude.
func firstFree(rk *ranking, st *state, exclude string) (types.ScoredCandidate, bool) {
	for _, x := range rk.top {
		if x.CandidateID == exclude {
			continue
		}
		if _, taken := st.holder[x.CandidateID]; taken {
			continue
		}
		if x.P < rk.minConf {
			continue
		}
		return x, true
	}
	return types.ScoredCandidate{}, false
}

// repair runs up to maxRepairs passes over the unassigned concepts. It
// returns the applied operations and the number of passes executed.
func repair(rankings []*ranking, st *state, maxRepairs int) ([]types.RepairOp, int) {
	byID := make(map[string]*ranking, len(rankings))
	for _, rk := range rankings {
		byID[rk.conceptID] = rk
	}

	var ops []types.RepairOp
	passes := 0
	for passes < maxRepairs {
		unassigned := unassignedIDs(rankings, st)
		if len(unassigned) == 0 {
			break
		}
		passes++

		changed := false
		for _, cid := range unassigned {
			rk := byID[cid]

			if x, ok := firstFree(rk, st, ""); ok {
				st.claim(cid, x.CandidateID)
				ops = append(ops, types.RepairOp{
					Type: types.RepairAssignFree, Pass: passes,
					ConceptID: cid, CandidateID: x.CandidateID, P: x.P,
				})
				changed = true
				continue
			}

			if op, ok := trySwap(rk, byID, st); ok {
				op.Pass = passes
				ops = append(ops, op)
				changed = true
			}
		}

		if !changed {
			break
		}
	}
	return ops, passes
}

// trySwap looks for the first contested top-k candidate of rk whose holder
// can move to a free alternative such that the combined score strictly
// improves. The swap is applied to st in full or not at all.
func trySwap(rk *ranking, byID map[string]*ranking, st *state) (types.RepairOp, bool) {
	for _, wish := range rk.top {
		holderID, held := st.holder[wish.CandidateID]
		if !held {
			continue
		}
		holder := byID[holderID]

		alt, ok := firstFree(holder, st, wish.CandidateID)
		if !ok {
			continue
		}

		current := holder.scores[wish.CandidateID]
		proposedHolder := holder.scores[alt.CandidateID]
		proposedThis := rk.scores[wish.CandidateID]

		if proposedThis+proposedHolder > current+swapEpsilon && proposedThis >= rk.minConf {
			st.claim(holderID, alt.CandidateID)
			st.claim(rk.conceptID, wish.CandidateID)
			return types.RepairOp{
				Type:        types.RepairSwap,
				ConceptID:   rk.conceptID,
				CandidateID: wish.CandidateID,
				P:           proposedThis,
				Holder:      holderID,
				HolderTo:    alt.CandidateID,
			}, true
		}
	}
	return types.RepairOp{}, false
}

func unassignedIDs(rankings []*ranking, st *state) []string {
	var ids []string
	for _, rk := range rankings {
		if _, ok := st.assigned[rk.conceptID]; !ok {
			ids = append(ids, rk.conceptID)
		}
	}
	return ids
}

func buildAssignment(p *types.Pattern, rankings []*ranking, st *state, repairs []types.RepairOp, passes int) *types.Assignment {
	out := &types.Assignment{
		PatternID:  p.PatternID,
		Assigned:   st.assigned,
		Unassigned: unassignedIDs(rankings, st),
		Trace: types.AssignmentTrace{
			Rankings:        make([]types.ConceptRanking, len(rankings)),
			Repairs:         repairs,
			Passes:          passes,
			MissingRequired: []string{},
		},
	}
	if out.Unassigned == nil {
		out.Unassigned = []string{}
	}
	if out.Trace.Repairs == nil {
		out.Trace.Repairs = []types.RepairOp{}
	}

	for i, rk := range rankings {
		out.Trace.Rankings[i] = types.ConceptRanking{
			ConceptID: rk.conceptID,
			BestP:     rk.bestP,
			Margin:    rk.margin,
			Top:       rk.top,
		}
	}

	for _, cid := range p.RequiredConcepts() {
		if _, ok := st.assigned[cid]; !ok {
			out.Trace.MissingRequired = append(out.Trace.MissingRequired, cid)
		}
	}
	return out
}

// TotalScore sums each assigned concept's score for its candidate, using the
// top-k scores recorded in the assignment trace.
func TotalScore(a *types.Assignment) float64 {
	var total float64
	for _, rk := range a.Trace.Rankings {
		cand, ok := a.Assigned[rk.ConceptID]
		if !ok {
			continue
		}
		for _, x := range rk.Top {
			if x.CandidateID == cand {
				total += x.P
				break
			}
		}
	}
	return total
}
