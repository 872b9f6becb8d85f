// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the documents exchanged with the concept-engine core
// and the results it produces.
//
// Concepts, Patterns, and Observations are inputs: they arrive already
// validated and are never modified by the engine. Decisions, Explanations, and
// Assignments are derived on every call and are not persisted by the core.
package types

// SignalMode selects how an evaluator's raw value contributes to a logit.
type SignalMode string

const (
	// ModeFuzzy adds weight * logit(raw).
	ModeFuzzy SignalMode = "fuzzy"

	// ModeBayes adds llr_when_true when raw >= 0.5, llr_when_false otherwise.
	ModeBayes SignalMode = "bayes"
)

// Calibration selects the transform applied to the accumulated logit.
type Calibration string

const (
	CalibrationSigmoid Calibration = "sigmoid"
	CalibrationNone    Calibration = "none"
)

// Decision policy names.
const (
	PolicyWinnerTakeAll = "winner_take_all"
	PolicyTopK          = "top_k"
)

// Defaults applied when a document omits a numeric parameter.
const (
	DefaultEpsilon          = 1e-4
	DefaultWeight           = 1.0
	DefaultConfirmThreshold = 0.90
	DefaultDecisionTopK     = 3
)

// Signal is one piece of evidence attached to a Concept. It names an
// evaluator in the registry and says how the evaluator's output is weighted.
type Signal struct {
	// SignalID is unique within the owning concept.
	SignalID string `json:"signal_id" yaml:"signal_id" validate:"required"`

	// AppliesTo lists the candidate modalities the signal is meant for
	// (e.g. "dom", "vision"). Informational; the engine evaluates every signal.
	AppliesTo []string `json:"applies_to,omitempty" yaml:"applies_to,omitempty"`

	// Evaluator is the registry name of the evaluator function.
	Evaluator string `json:"evaluator" yaml:"evaluator" validate:"required"`

	// Params are passed to the evaluator unchanged.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Mode is fuzzy or bayes. Empty means fuzzy.
	Mode SignalMode `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=fuzzy bayes"`

	// Weight scales the fuzzy logit. Nil means DefaultWeight.
	Weight *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`

	// LLRWhenTrue is the bayes contribution when raw >= 0.5.
	LLRWhenTrue float64 `json:"llr_when_true,omitempty" yaml:"llr_when_true,omitempty"`

	// LLRWhenFalse is the bayes contribution when raw < 0.5.
	LLRWhenFalse float64 `json:"llr_when_false,omitempty" yaml:"llr_when_false,omitempty"`
}

// EffectiveMode returns the signal mode with the fuzzy default applied.
func (s Signal) EffectiveMode() SignalMode {
	if s.Mode == "" {
		return ModeFuzzy
	}
	return s.Mode
}

// EffectiveWeight returns the fuzzy weight with the default applied.
func (s Signal) EffectiveWeight() float64 {
	if s.Weight == nil {
		return DefaultWeight
	}
	return *s.Weight
}

// ScoreModel configures the hybrid logit model.
type ScoreModel struct {
	// Type names the model; only "hybrid_logit" exists today.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// PriorLogit is the starting log-odds before any signal (default 0).
	PriorLogit float64 `json:"prior_logit" yaml:"prior_logit"`

	// Epsilon clamps fuzzy raw values into [eps, 1-eps]. Zero or negative
	// means DefaultEpsilon.
	Epsilon float64 `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`

	// Calibration is sigmoid (default) or none.
	Calibration Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty" validate:"omitempty,oneof=sigmoid none"`
}

// EffectiveEpsilon returns the epsilon with the default applied.
func (m ScoreModel) EffectiveEpsilon() float64 {
	if m.Epsilon <= 0 {
		return DefaultEpsilon
	}
	return m.Epsilon
}

// DecisionParams configures how a ranked score list becomes a decision.
type DecisionParams struct {
	// Policy is winner_take_all (default) or top_k.
	Policy string `json:"policy,omitempty" yaml:"policy,omitempty"`

	// MinConf is the minimum best score for acceptance (default 0). The
	// pattern engine also uses it as the per-concept assignment floor.
	MinConf float64 `json:"min_conf" yaml:"min_conf"`

	// MinMargin is the minimum best-minus-runner-up gap for acceptance.
	MinMargin float64 `json:"min_margin" yaml:"min_margin"`

	// ConfirmThreshold is the absolute score below which user confirmation
	// is requested even for an accepted match. Nil means 0.90.
	ConfirmThreshold *float64 `json:"confirm_threshold,omitempty" yaml:"confirm_threshold,omitempty"`

	// TopK is the list length for the top_k policy. Zero means 3.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// EffectivePolicy returns the policy name with the default applied.
func (d DecisionParams) EffectivePolicy() string {
	if d.Policy == "" {
		return PolicyWinnerTakeAll
	}
	return d.Policy
}

// EffectiveConfirmThreshold returns the confirm threshold with the default applied.
func (d DecisionParams) EffectiveConfirmThreshold() float64 {
	if d.ConfirmThreshold == nil {
		return DefaultConfirmThreshold
	}
	return *d.ConfirmThreshold
}

// EffectiveTopK returns the top_k list length with the default applied.
func (d DecisionParams) EffectiveTopK() int {
	if d.TopK <= 0 {
		return DefaultDecisionTopK
	}
	return d.TopK
}

// Resolution groups the scoring model and decision parameters of a Concept.
type Resolution struct {
	ScoreModel ScoreModel     `json:"score_model" yaml:"score_model"`
	Decision   DecisionParams `json:"decision" yaml:"decision"`
}

// Concept describes one kind of matchable thing, e.g. an email input field.
type Concept struct {
	// ConceptID is the stable identifier referenced by patterns
	// (e.g. "concept:email@1.0.0").
	ConceptID string `json:"concept_id" yaml:"concept_id" validate:"required"`

	// UUID identifies this document revision in the library.
	UUID string `json:"uuid,omitempty" yaml:"uuid,omitempty"`

	// ConceptType is the prototype type (e.g. "type:email_field").
	ConceptType string `json:"concept_type,omitempty" yaml:"concept_type,omitempty"`

	// Labels are human-readable names.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// Status is draft or active. Only the library reads it.
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// Signals are evaluated in order.
	Signals []Signal `json:"signals" yaml:"signals" validate:"dive"`

	Resolution Resolution `json:"resolution" yaml:"resolution"`
}

// Float returns a pointer to v, for optional numeric document fields.
func Float(v float64) *float64 {
	return &v
}
