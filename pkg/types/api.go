// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// MatchRequest is the body of /cpms/match and /cpms/match_explain.
type MatchRequest struct {
	Concept     *Concept     `json:"concept" validate:"required"`
	Observation *Observation `json:"observation" validate:"required"`
}

// MatchResponse is the body returned by /cpms/match.
type MatchResponse struct {
	Result *MatchResult `json:"result"`
}

// ExplainResponse is the body returned by /cpms/match_explain.
type ExplainResponse struct {
	Result  *MatchResult `json:"result"`
	Explain *Explanation `json:"explain"`
}

// PatternRequest is the body of /cpms/match_pattern. When Concepts is empty
// the service resolves the pattern's includes from its library.
type PatternRequest struct {
	Pattern     *Pattern     `json:"pattern" validate:"required"`
	Concepts    []Concept    `json:"concepts,omitempty" validate:"dive"`
	Observation *Observation `json:"observation" validate:"required"`
}

// PatternResponse is the body returned by /cpms/match_pattern.
type PatternResponse struct {
	Result *Assignment `json:"result"`
}

// PersistConceptRequest is the body of /cpms/concepts/persist.
type PersistConceptRequest struct {
	Concept *Concept `json:"concept" validate:"required"`
}

// PersistConceptResponse echoes the stored concept with its uuid and status.
type PersistConceptResponse struct {
	OK      bool     `json:"ok"`
	Concept *Concept `json:"concept"`
}

// PersistPatternRequest is the body of /cpms/patterns/persist.
type PersistPatternRequest struct {
	Pattern *Pattern `json:"pattern" validate:"required"`
}

// PersistPatternResponse echoes the stored pattern with its uuid and status.
type PersistPatternResponse struct {
	OK      bool     `json:"ok"`
	Pattern *Pattern `json:"pattern"`
}

// ActivateRequest is the body of /cpms/activate.
type ActivateRequest struct {
	Kind string `json:"kind" validate:"required,oneof=concept pattern"`
	UUID string `json:"uuid" validate:"required"`
}

// ActivateResponse reports the activated revision.
type ActivateResponse struct {
	OK     bool     `json:"ok"`
	Active Revision `json:"active"`
}

// Revision describes one stored revision of a library document.
type Revision struct {
	Kind        string     `json:"kind" yaml:"kind"`
	UUID        string     `json:"uuid" yaml:"uuid"`
	DocID       string     `json:"doc_id" yaml:"doc_id"`
	Status      string     `json:"status" yaml:"status"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty" yaml:"activated_at,omitempty"`
}

// EvaluatorsResponse lists registered evaluator names.
type EvaluatorsResponse struct {
	Evaluators []string `json:"evaluators"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
