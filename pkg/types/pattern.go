// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConstraintRequiredConcepts lists concept ids that must end up assigned.
const ConstraintRequiredConcepts = "required_concepts"

// Pattern defaults.
const (
	DefaultPatternTopK = 7
	DefaultMaxRepairs  = 10
)

// Strategy configures the greedy-plus-repair assignment search.
type Strategy struct {
	// Type names the strategy; only "greedy_repair" exists today.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// TopK bounds how many candidates per concept are considered (default 7).
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`

	// MaxRepairs bounds the repair passes (default 10).
	MaxRepairs int `json:"max_repairs,omitempty" yaml:"max_repairs,omitempty"`
}

// EffectiveTopK returns the per-concept candidate bound with the default applied.
func (s Strategy) EffectiveTopK() int {
	if s.TopK <= 0 {
		return DefaultPatternTopK
	}
	return s.TopK
}

// EffectiveMaxRepairs returns the repair pass bound with the default applied.
func (s Strategy) EffectiveMaxRepairs() int {
	if s.MaxRepairs <= 0 {
		return DefaultMaxRepairs
	}
	return s.MaxRepairs
}

// ConstraintParams holds constraint arguments.
type ConstraintParams struct {
	IDs []string `json:"ids,omitempty" yaml:"ids,omitempty"`
}

// Constraint is a pattern-level requirement on the final assignment.
type Constraint struct {
	Type   string           `json:"type" yaml:"type"`
	Params ConstraintParams `json:"params" yaml:"params"`
}

// Pattern is a set of concepts resolved jointly against one Observation,
// e.g. a whole login form.
type Pattern struct {
	PatternID string   `json:"pattern_id" yaml:"pattern_id" validate:"required"`
	UUID      string   `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Labels    []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Status    string   `json:"status,omitempty" yaml:"status,omitempty"`

	// Includes lists concept ids in declaration order.
	Includes []string `json:"includes" yaml:"includes" validate:"required,min=1"`

	Strategy    Strategy     `json:"strategy" yaml:"strategy"`
	Constraints []Constraint `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// RequiredConcepts returns the ids named by every required_concepts
// constraint, in declaration order.
func (p *Pattern) RequiredConcepts() []string {
	var ids []string
	for _, c := range p.Constraints {
		if c.Type == ConstraintRequiredConcepts {
			ids = append(ids, c.Params.IDs...)
		}
	}
	return ids
}
