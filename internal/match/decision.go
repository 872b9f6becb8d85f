// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"sort"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// WinnerTakeAll ranks scored candidates and decides whether the best one is
// an acceptable match. Ties keep their input order.
//
// Acceptance (min_conf, min_margin) and confirmation (confirm_threshold) are
// independent: an accepted match still needs confirmation when its absolute
// score is below confirm_threshold.
func WinnerTakeAll(params types.DecisionParams, scored []types.ScoredCandidate) types.Decision {
	ranked := rank(scored)

	d := types.Decision{Ranked: ranked}
	if len(ranked) > 0 {
		best := ranked[0]
		d.Best = &best
		d.Margin = best.P
	}
	if len(ranked) > 1 {
		runnerUp := ranked[1]
		d.RunnerUp = &runnerUp
		d.Margin = d.Best.P - runnerUp.P
	}

	d.Accepted = d.Best != nil && d.Best.P >= params.MinConf && d.Margin >= params.MinMargin

	var bestP float64
	if d.Best != nil {
		bestP = d.Best.P
	}
	d.NeedsUserConfirmation = !d.Accepted || bestP < params.EffectiveConfirmThreshold()
	return d
}

// TopK returns the k best candidates, best first. k <= 0 means the default of 3.
func TopK(scored []types.ScoredCandidate, k int) []types.ScoredCandidate {
	if k <= 0 {
		k = types.DefaultDecisionTopK
	}
	ranked := rank(scored)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// rank returns a copy of scored sorted by descending score, stable on ties.
func rank(scored []types.ScoredCandidate) []types.ScoredCandidate {
	ranked := make([]types.ScoredCandidate, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].P > ranked[j].P
	})
	return ranked
}
