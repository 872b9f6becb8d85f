// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"sort"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// Explain scores every candidate of obs against c, recording each signal's
// raw value and logit contribution, and applies WinnerTakeAll to the traced
// scores. Candidates in the result are ordered best first; ties keep
// observation order.
//
// Explain allocates a trace per candidate; use ScorePair when only the score
// is needed.
func (e *Engine) Explain(c *types.Concept, obs *types.Observation) (*types.Explanation, error) {
	m := c.Resolution.ScoreModel
	eps := m.EffectiveEpsilon()

	traces := make([]types.CandidateTrace, 0, len(obs.Candidates))
	for i := range obs.Candidates {
		x := &obs.Candidates[i]
		l := m.PriorLogit
		sigs := make([]types.SignalTrace, 0, len(c.Signals))

		for j := range c.Signals {
			sig := &c.Signals[j]
			raw, contrib, err := e.contribution(sig, x, eps)
			if err != nil {
				return nil, err
			}
			l += contrib
			sigs = append(sigs, types.SignalTrace{
				SignalID:     sig.SignalID,
				Evaluator:    sig.Evaluator,
				Mode:         sig.EffectiveMode(),
				Raw:          raw,
				Contribution: contrib,
			})
		}

		traces = append(traces, types.CandidateTrace{
			CandidateID: x.CandidateID,
			PriorLogit:  m.PriorLogit,
			TotalLogit:  l,
			P:           calibrate(m.Calibration, l),
			Signals:     sigs,
		})
	}

	sort.SliceStable(traces, func(i, j int) bool {
		return traces[i].P > traces[j].P
	})

	scored := make([]types.ScoredCandidate, len(traces))
	for i, tr := range traces {
		scored[i] = types.ScoredCandidate{CandidateID: tr.CandidateID, P: tr.P}
	}

	return &types.Explanation{
		ConceptID:  c.ConceptID,
		Decision:   WinnerTakeAll(c.Resolution.Decision, scored),
		Candidates: traces,
	}, nil
}
