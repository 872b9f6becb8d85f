// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match scores concepts against observed candidates and turns the
// scores into decisions.
//
// Scoring uses a hybrid logit model: each signal's evaluator output is either
// converted to a weighted logit (fuzzy) or mapped to a fixed log-likelihood
// ratio (bayes), contributions are summed onto the prior, and the total is
// optionally calibrated with the logistic function. Every function here is
// pure; an Engine may be shared across goroutines once its registry is
// populated.
package match

import (
	"fmt"
	"math"

	"github.com/pdiddy/concept-engine/internal/evaluate"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// Engine scores concepts with the evaluators of one registry.
type Engine struct {
	reg *evaluate.Registry
}

// New returns an Engine backed by reg.
func New(reg *evaluate.Registry) *Engine {
	return &Engine{reg: reg}
}

// Registry returns the evaluator registry the engine was built with.
func (e *Engine) Registry() *evaluate.Registry {
	return e.reg
}

// ScorePair returns the confidence of candidate x for concept c. With
// sigmoid calibration the result lies strictly inside (0,1); with
// calibration none it is the raw accumulated logit.
func (e *Engine) ScorePair(c *types.Concept, x *types.Candidate) (float64, error) {
	m := c.Resolution.ScoreModel
	eps := m.EffectiveEpsilon()
	l := m.PriorLogit

	for i := range c.Signals {
		_, contrib, err := e.contribution(&c.Signals[i], x, eps)
		if err != nil {
			return 0, err
		}
		l += contrib
	}
	return calibrate(m.Calibration, l), nil
}

// contribution evaluates one signal and returns its clamped raw value and
// its additive logit contribution.
func (e *Engine) contribution(sig *types.Signal, x *types.Candidate, eps float64) (raw, contrib float64, err error) {
	v, err := e.reg.Eval(sig.Evaluator, x, sig.Params)
	if err != nil {
		return 0, 0, fmt.Errorf("signal %s: %w", sig.SignalID, err)
	}
	raw = clamp(v, 0, 1)

	if sig.EffectiveMode() == types.ModeBayes {
		if raw >= 0.5 {
			return raw, sig.LLRWhenTrue, nil
		}
		return raw, sig.LLRWhenFalse, nil
	}
	return raw, sig.EffectiveWeight() * logit(raw, eps), nil
}

// calibrate maps an accumulated logit to the concept's output scale.
func calibrate(cal types.Calibration, l float64) float64 {
	if cal == types.CalibrationNone {
		return l
	}
	return sigmoid(l)
}

var (
	minOpen = math.Nextafter(0, 1)
	maxOpen = math.Nextafter(1, 0)
)

// sigmoid is the logistic function, kept inside the open interval (0,1)
// where float64 rounding would otherwise reach the bounds.
func sigmoid(x float64) float64 {
	p := 1 / (1 + math.Exp(-x))
	return clamp(p, minOpen, maxOpen)
}

func logit(p, eps float64) float64 {
	pp := clamp(p, eps, 1-eps)
	return math.Log(pp / (1 - pp))
}

// clamp bounds x to [lo, hi]. NaN maps to lo.
func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
