// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/concept-engine/pkg/types"
)

const defaultWorkers = 4

// Score returns every candidate's score for c in observation order.
func (e *Engine) Score(c *types.Concept, obs *types.Observation) ([]types.ScoredCandidate, error) {
	scored := make([]types.ScoredCandidate, len(obs.Candidates))
	for i := range obs.Candidates {
		p, err := e.ScorePair(c, &obs.Candidates[i])
		if err != nil {
			return nil, err
		}
		scored[i] = types.ScoredCandidate{CandidateID: obs.Candidates[i].CandidateID, P: p}
	}
	return scored, nil
}

// Match scores c against obs and applies the concept's decision policy:
// winner_take_all yields a Decision, any other policy yields the top k
// candidates with no decision semantics.
func (e *Engine) Match(c *types.Concept, obs *types.Observation) (*types.MatchResult, error) {
	scored, err := e.Score(c, obs)
	if err != nil {
		return nil, err
	}

	params := c.Resolution.Decision
	res := &types.MatchResult{ConceptID: c.ConceptID, Policy: params.EffectivePolicy()}
	switch res.Policy {
	case types.PolicyWinnerTakeAll:
		d := WinnerTakeAll(params, scored)
		res.Decision = &d
	default:
		res.Top = TopK(scored, params.EffectiveTopK())
	}
	return res, nil
}

// MatchMany explains each concept against obs using at most workers
// goroutines (default 4). Results are in input order. The first error
// cancels the remaining work.
func (e *Engine) MatchMany(ctx context.Context, concepts []types.Concept, obs *types.Observation, workers int) ([]*types.Explanation, error) {
	if workers <= 0 {
		workers = defaultWorkers
	}

	out := make([]*types.Explanation, len(concepts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range concepts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ex, err := e.Explain(&concepts[i], obs)
			if err != nil {
				return fmt.Errorf("concept %s: %w", concepts[i].ConceptID, err)
			}
			out[i] = ex
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
