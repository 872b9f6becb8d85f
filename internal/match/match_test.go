// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/internal/evaluate"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// --- fixtures ---

func emailConcept() types.Concept {
	return types.Concept{
		ConceptID:   "concept:email@1.0.0",
		ConceptType: "type:email_field",
		Signals: []types.Signal{
			{
				SignalID: "ac", AppliesTo: []string{"dom"}, Evaluator: evaluate.AttrIn,
				Params: map[string]any{"attr": "autocomplete", "values": []any{"email", "username"}},
				Mode:   types.ModeBayes, LLRWhenTrue: 3, LLRWhenFalse: 0,
			},
			{
				SignalID: "terms", AppliesTo: []string{"dom"}, Evaluator: evaluate.TextContainsAny,
				Params: map[string]any{"terms": []any{"email", "e-mail", "username"}},
				Mode:   types.ModeFuzzy, Weight: types.Float(1.2),
			},
		},
		Resolution: types.Resolution{
			ScoreModel: types.ScoreModel{Type: "hybrid_logit", PriorLogit: -1, Epsilon: 1e-4, Calibration: types.CalibrationSigmoid},
			Decision:   types.DecisionParams{Policy: types.PolicyWinnerTakeAll, MinConf: 0.75, MinMargin: 0.10, ConfirmThreshold: types.Float(0.90)},
		},
	}
}

func loginObservation() *types.Observation {
	return &types.Observation{
		PageID: "fixture:login",
		Candidates: []types.Candidate{
			{CandidateID: "cand_email", DOM: &types.DOMEvidence{
				Attrs: map[string]string{"autocomplete": "email", "name": "email"}, LabelText: "Email",
			}},
			{CandidateID: "cand_pass", DOM: &types.DOMEvidence{
				Attrs: map[string]string{"autocomplete": "current-password", "name": "password"}, LabelText: "Password",
			}},
		},
	}
}

func localizedObservation() *types.Observation {
	return &types.Observation{
		PageID: "fixture:login_multilingual",
		Candidates: []types.Candidate{
			{CandidateID: "cand_localized_email", DOM: &types.DOMEvidence{
				LabelText:   "Correo electrónico",
				Placeholder: "tu@ejemplo.com",
				NearbyText:  types.TextList{"✉️", "Requerido"},
				Attrs:       map[string]string{"id": "correo", "name": "correo"},
			}},
			{CandidateID: "cand_username", DOM: &types.DOMEvidence{
				LabelText:   "Nombre de usuario",
				Placeholder: "juan23",
				Attrs:       map[string]string{"id": "usuario", "name": "usuario"},
			}},
		},
	}
}

// affineConcept scores with bayes autocomplete evidence and fuzzy type evidence.
func affineConcept(cal types.Calibration) types.Concept {
	return types.Concept{
		ConceptID: "concept:affine@1.0.0",
		Signals: []types.Signal{
			{SignalID: "ac", Evaluator: evaluate.AttrIn, Params: map[string]any{"attr": "autocomplete", "values": []any{"email"}}, Mode: types.ModeBayes, LLRWhenTrue: 2, LLRWhenFalse: -1},
			{SignalID: "type", Evaluator: evaluate.TypeIs, Params: map[string]any{"types": []any{"email"}}, Mode: types.ModeFuzzy, Weight: types.Float(0.5)},
		},
		Resolution: types.Resolution{
			ScoreModel: types.ScoreModel{Type: "hybrid_logit", PriorLogit: -0.5, Epsilon: 1e-3, Calibration: cal},
			Decision:   types.DecisionParams{Policy: types.PolicyWinnerTakeAll, MinConf: 0.6, MinMargin: 0.05, ConfirmThreshold: types.Float(0.8)},
		},
	}
}

var (
	goodCandidate = &types.Candidate{CandidateID: "good", DOM: &types.DOMEvidence{Attrs: map[string]string{"autocomplete": "email", "type": "email"}, Type: "email"}}
	badCandidate  = &types.Candidate{CandidateID: "bad", DOM: &types.DOMEvidence{Attrs: map[string]string{"autocomplete": "text", "type": "text"}, Type: "text"}}
)

func newEngine() *Engine {
	return New(evaluate.Builtin())
}

// --- scoring ---

func TestScorePair_AddsFuzzyAndBayesEvidence(t *testing.T) {
	e := newEngine()
	c := affineConcept(types.CalibrationNone)

	good, err := e.ScorePair(&c, goodCandidate)
	require.NoError(t, err)
	bad, err := e.ScorePair(&c, badCandidate)
	require.NoError(t, err)

	assert.Greater(t, good, 0.0)
	assert.Less(t, bad, 0.0)

	// -0.5 + 2 + 0.5*logit(1-1e-3)
	want := -0.5 + 2 + 0.5*math.Log((1-1e-3)/1e-3)
	assert.InDelta(t, want, good, 1e-12)
}

func TestScorePair_SigmoidCalibration(t *testing.T) {
	e := newEngine()
	c := affineConcept(types.CalibrationSigmoid)

	good, err := e.ScorePair(&c, goodCandidate)
	require.NoError(t, err)
	bad, err := e.ScorePair(&c, badCandidate)
	require.NoError(t, err)

	assert.Greater(t, good, 0.9)
	assert.Less(t, bad, 0.2)
}

func TestScorePair_DefaultsApplied(t *testing.T) {
	reg := evaluate.NewRegistry()
	reg.Register("half", func(*types.Candidate, map[string]any) float64 { return 0.75 })
	e := New(reg)

	// No mode, no weight, no epsilon: fuzzy with weight 1.
	c := types.Concept{
		Signals:    []types.Signal{{SignalID: "s", Evaluator: "half"}},
		Resolution: types.Resolution{ScoreModel: types.ScoreModel{Calibration: types.CalibrationNone}},
	}
	got, err := e.ScorePair(&c, &types.Candidate{})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(3), got, 1e-12)
}

func TestScorePair_ClampsEvaluatorOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		want float64
	}{
		{"above one", 7, math.Log((1 - 1e-4) / 1e-4)},
		{"below zero", -3, math.Log(1e-4 / (1 - 1e-4))},
		{"nan", math.NaN(), math.Log(1e-4 / (1 - 1e-4))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := evaluate.NewRegistry()
			reg.Register("wild", func(*types.Candidate, map[string]any) float64 { return tt.raw })
			c := types.Concept{
				Signals:    []types.Signal{{SignalID: "s", Evaluator: "wild", Mode: types.ModeFuzzy}},
				Resolution: types.Resolution{ScoreModel: types.ScoreModel{Calibration: types.CalibrationNone}},
			}
			got, err := New(reg).ScorePair(&c, &types.Candidate{})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScorePair_BayesThreshold(t *testing.T) {
	for _, tt := range []struct {
		raw  float64
		want float64
	}{
		{0.5, 4}, {0.49, -2}, {1, 4}, {0, -2},
	} {
		reg := evaluate.NewRegistry()
		reg.Register("fixed", func(*types.Candidate, map[string]any) float64 { return tt.raw })
		c := types.Concept{
			Signals:    []types.Signal{{SignalID: "s", Evaluator: "fixed", Mode: types.ModeBayes, LLRWhenTrue: 4, LLRWhenFalse: -2}},
			Resolution: types.Resolution{ScoreModel: types.ScoreModel{Calibration: types.CalibrationNone}},
		}
		got, err := New(reg).ScorePair(&c, &types.Candidate{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "raw=%v", tt.raw)
	}
}

func TestScorePair_UnknownEvaluatorPropagates(t *testing.T) {
	c := types.Concept{
		Signals:    []types.Signal{{SignalID: "x", Evaluator: "dom.not_real"}},
		Resolution: types.Resolution{ScoreModel: types.ScoreModel{}},
	}
	_, err := newEngine().ScorePair(&c, goodCandidate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, evaluate.ErrUnknownEvaluator))

	_, err = newEngine().Explain(&c, loginObservation())
	assert.True(t, errors.Is(err, evaluate.ErrUnknownEvaluator))

	_, err = newEngine().Match(&c, loginObservation())
	assert.True(t, errors.Is(err, evaluate.ErrUnknownEvaluator))
}

func TestScorePair_SigmoidStrictlyInsideUnitInterval(t *testing.T) {
	reg := evaluate.NewRegistry()
	var raw float64
	reg.Register("v", func(*types.Candidate, map[string]any) float64 { return raw })
	e := New(reg)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		raw = rng.Float64()
		c := types.Concept{
			Signals: []types.Signal{
				{SignalID: "f", Evaluator: "v", Weight: types.Float(rng.Float64()*20 - 10)},
				{SignalID: "b", Evaluator: "v", Mode: types.ModeBayes, LLRWhenTrue: rng.Float64()*40 - 20, LLRWhenFalse: rng.Float64()*40 - 20},
			},
			Resolution: types.Resolution{ScoreModel: types.ScoreModel{PriorLogit: rng.Float64()*200 - 100}},
		}
		p, err := e.ScorePair(&c, &types.Candidate{})
		require.NoError(t, err)
		require.Greater(t, p, 0.0)
		require.Less(t, p, 1.0)
	}
}

func TestScorePair_Deterministic(t *testing.T) {
	e := newEngine()
	c := emailConcept()
	obs := loginObservation()
	first, err := e.ScorePair(&c, &obs.Candidates[0])
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := e.ScorePair(&c, &obs.Candidates[0])
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// --- decision ---

func TestWinnerTakeAll(t *testing.T) {
	params := affineConcept(types.CalibrationNone).Resolution.Decision

	tests := []struct {
		name        string
		scored      []types.ScoredCandidate
		wantAccept  bool
		wantConfirm bool
		wantBest    string
		wantMargin  float64
	}{
		{"clear winner", []types.ScoredCandidate{{CandidateID: "a", P: 0.95}, {CandidateID: "b", P: 0.6}}, true, false, "a", 0.35},
		{"margin too small", []types.ScoredCandidate{{CandidateID: "a", P: 0.65}, {CandidateID: "b", P: 0.62}}, false, true, "a", 0.03},
		{"accepted but below confirm threshold", []types.ScoredCandidate{{CandidateID: "b", P: 0.1}, {CandidateID: "a", P: 0.7}}, true, true, "a", 0.6},
		{"single candidate margin is its score", []types.ScoredCandidate{{CandidateID: "a", P: 0.85}}, true, false, "a", 0.85},
		{"below min_conf", []types.ScoredCandidate{{CandidateID: "a", P: 0.5}, {CandidateID: "b", P: 0.1}}, false, true, "a", 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := WinnerTakeAll(params, tt.scored)
			assert.Equal(t, tt.wantAccept, d.Accepted)
			assert.Equal(t, tt.wantConfirm, d.NeedsUserConfirmation)
			require.NotNil(t, d.Best)
			assert.Equal(t, tt.wantBest, d.Best.CandidateID)
			assert.InDelta(t, tt.wantMargin, d.Margin, 1e-9)
		})
	}
}

func TestWinnerTakeAll_Empty(t *testing.T) {
	d := WinnerTakeAll(types.DecisionParams{}, nil)
	assert.False(t, d.Accepted)
	assert.True(t, d.NeedsUserConfirmation)
	assert.Nil(t, d.Best)
	assert.Nil(t, d.RunnerUp)
	assert.Equal(t, 0.0, d.Margin)
	assert.Empty(t, d.Ranked)
}

func TestWinnerTakeAll_StableTies(t *testing.T) {
	scored := []types.ScoredCandidate{
		{CandidateID: "x", P: 0.4}, {CandidateID: "y", P: 0.9}, {CandidateID: "z", P: 0.9},
	}
	d := WinnerTakeAll(types.DecisionParams{}, scored)
	want := []types.ScoredCandidate{{CandidateID: "y", P: 0.9}, {CandidateID: "z", P: 0.9}, {CandidateID: "x", P: 0.4}}
	if diff := cmp.Diff(want, d.Ranked); diff != "" {
		t.Errorf("ranked mismatch (-want +got):\n%s", diff)
	}
	// Input is not reordered.
	assert.Equal(t, "x", scored[0].CandidateID)
}

func TestWinnerTakeAll_DefaultConfirmThreshold(t *testing.T) {
	d := WinnerTakeAll(types.DecisionParams{}, []types.ScoredCandidate{{CandidateID: "a", P: 0.89}})
	assert.True(t, d.Accepted)
	assert.True(t, d.NeedsUserConfirmation)

	d = WinnerTakeAll(types.DecisionParams{}, []types.ScoredCandidate{{CandidateID: "a", P: 0.9}})
	assert.False(t, d.NeedsUserConfirmation)
}

func TestWinnerTakeAll_RaisingBestNeverRevokesAcceptance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		params := types.DecisionParams{
			MinConf:          rng.Float64(),
			MinMargin:        rng.Float64() * 0.5,
			ConfirmThreshold: types.Float(rng.Float64()),
		}
		n := 1 + rng.Intn(5)
		scored := make([]types.ScoredCandidate, n)
		for j := range scored {
			scored[j] = types.ScoredCandidate{CandidateID: string(rune('a' + j)), P: rng.Float64()}
		}
		before := WinnerTakeAll(params, scored)

		// Raise the current best.
		bestID := before.Best.CandidateID
		raised := make([]types.ScoredCandidate, n)
		copy(raised, scored)
		for j := range raised {
			if raised[j].CandidateID == bestID {
				raised[j].P += rng.Float64()
			}
		}
		after := WinnerTakeAll(params, raised)

		if before.Accepted {
			require.True(t, after.Accepted, "iteration %d: raising best revoked acceptance", i)
		}
		if after.Best.P < params.EffectiveConfirmThreshold() {
			require.True(t, after.NeedsUserConfirmation)
		}
	}
}

func TestTopK(t *testing.T) {
	scored := []types.ScoredCandidate{
		{CandidateID: "a", P: 0.1}, {CandidateID: "b", P: 0.5}, {CandidateID: "c", P: 0.3}, {CandidateID: "d", P: 0.9},
	}
	assert.Equal(t, []types.ScoredCandidate{{CandidateID: "d", P: 0.9}, {CandidateID: "b", P: 0.5}, {CandidateID: "c", P: 0.3}}, TopK(scored, 0))
	assert.Len(t, TopK(scored, 10), 4)
	assert.Len(t, TopK(scored, 1), 1)
}

// --- explain and match ---

func TestExplain_LoginEmail(t *testing.T) {
	c := emailConcept()
	ex, err := newEngine().Explain(&c, loginObservation())
	require.NoError(t, err)

	require.NotNil(t, ex.Best)
	assert.Equal(t, "cand_email", ex.Best.CandidateID)
	assert.True(t, ex.Accepted)
	assert.Equal(t, "concept:email@1.0.0", ex.ConceptID)

	require.Len(t, ex.Candidates, 2)
	top := ex.Candidates[0]
	assert.Equal(t, "cand_email", top.CandidateID)
	assert.Equal(t, -1.0, top.PriorLogit)
	require.Len(t, top.Signals, 2)
	assert.Equal(t, types.ModeBayes, top.Signals[0].Mode)
	assert.Equal(t, 1.0, top.Signals[0].Raw)
	assert.Equal(t, 3.0, top.Signals[0].Contribution)

	sum := top.PriorLogit
	for _, s := range top.Signals {
		sum += s.Contribution
	}
	assert.InDelta(t, sum, top.TotalLogit, 1e-12)
}

func TestExplain_AgreesWithScorePair(t *testing.T) {
	e := newEngine()
	for _, cal := range []types.Calibration{types.CalibrationSigmoid, types.CalibrationNone} {
		c := affineConcept(cal)
		obs := &types.Observation{Candidates: []types.Candidate{*badCandidate, *goodCandidate}}

		ex, err := e.Explain(&c, obs)
		require.NoError(t, err)
		for _, tr := range ex.Candidates {
			var x *types.Candidate
			for i := range obs.Candidates {
				if obs.Candidates[i].CandidateID == tr.CandidateID {
					x = &obs.Candidates[i]
				}
			}
			p, err := e.ScorePair(&c, x)
			require.NoError(t, err)
			assert.Equal(t, p, tr.P)
		}

		m, err := e.Match(&c, obs)
		require.NoError(t, err)
		if diff := cmp.Diff(ex.Decision, *m.Decision); diff != "" {
			t.Errorf("explain and match decisions differ (-explain +match):\n%s", diff)
		}
	}
}

func TestMatch_LocalizedTermsNeedExtraSignal(t *testing.T) {
	e := newEngine()
	naive := emailConcept()
	naive.ConceptID = "concept:email_localized@1.0.0"

	res, err := e.Match(&naive, localizedObservation())
	require.NoError(t, err)
	require.NotNil(t, res.Decision)
	assert.False(t, res.Decision.Accepted)
	assert.Equal(t, "cand_localized_email", res.Decision.Best.CandidateID)

	improved := naive
	improved.Signals = append(append([]types.Signal{}, naive.Signals...), types.Signal{
		SignalID: "multilingual_terms", AppliesTo: []string{"dom"}, Evaluator: evaluate.TextContainsAny,
		Params: map[string]any{"terms": []any{"correo", "メール", "почта", "郵便", "✉"}},
		Mode:   types.ModeFuzzy, Weight: types.Float(1.5),
	})
	assert.Len(t, naive.Signals, 2, "building the improved concept must not alias the naive one")

	res, err = e.Match(&improved, localizedObservation())
	require.NoError(t, err)
	assert.True(t, res.Decision.Accepted)
	assert.Equal(t, "cand_localized_email", res.Decision.Best.CandidateID)
	assert.Greater(t, res.Decision.Best.P, 0.75)
}

func TestMatch_TopKPolicy(t *testing.T) {
	c := emailConcept()
	c.Resolution.Decision = types.DecisionParams{Policy: types.PolicyTopK, TopK: 1}

	res, err := newEngine().Match(&c, loginObservation())
	require.NoError(t, err)
	assert.Equal(t, types.PolicyTopK, res.Policy)
	assert.Nil(t, res.Decision)
	require.Len(t, res.Top, 1)
	assert.Equal(t, "cand_email", res.Top[0].CandidateID)
}

func TestMatchMany(t *testing.T) {
	concepts := []types.Concept{emailConcept(), affineConcept(types.CalibrationSigmoid), emailConcept()}
	out, err := newEngine().MatchMany(context.Background(), concepts, loginObservation(), 2)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "concept:email@1.0.0", out[0].ConceptID)
	assert.Equal(t, "concept:affine@1.0.0", out[1].ConceptID)
	assert.Equal(t, "cand_email", out[2].Best.CandidateID)
}

func TestMatchMany_ErrorAndCancellation(t *testing.T) {
	bad := types.Concept{ConceptID: "concept:bad", Signals: []types.Signal{{SignalID: "x", Evaluator: "nope"}}}
	_, err := newEngine().MatchMany(context.Background(), []types.Concept{emailConcept(), bad}, loginObservation(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, evaluate.ErrUnknownEvaluator))
	assert.Contains(t, err.Error(), "concept:bad")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newEngine().MatchMany(ctx, []types.Concept{emailConcept()}, loginObservation(), 1)
	assert.True(t, errors.Is(err, context.Canceled))
}
