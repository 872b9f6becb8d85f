// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ScoredCandidate is one candidate's score for one concept.
type ScoredCandidate struct {
	CandidateID string  `json:"candidate_id" yaml:"candidate_id"`
	P           float64 `json:"p" yaml:"p"`
}

// Decision is the winner-take-all outcome for one concept.
type Decision struct {
	// Accepted is true when the best score meets min_conf and the margin
	// meets min_margin.
	Accepted bool `json:"accepted" yaml:"accepted"`

	// NeedsUserConfirmation is true when the match was not accepted or the
	// best score is below confirm_threshold.
	NeedsUserConfirmation bool `json:"needs_user_confirmation" yaml:"needs_user_confirmation"`

	Best     *ScoredCandidate `json:"best,omitempty" yaml:"best,omitempty"`
	RunnerUp *ScoredCandidate `json:"runner_up,omitempty" yaml:"runner_up,omitempty"`

	// Margin is best minus runner-up, best alone when there is no
	// runner-up, and 0 when there are no candidates.
	Margin float64 `json:"margin" yaml:"margin"`

	// Ranked holds every candidate, best first.
	Ranked []ScoredCandidate `json:"ranked" yaml:"ranked"`
}

// MatchResult is the output of the concept's configured decision policy.
// Decision is set for winner_take_all; Top is set for top_k.
type MatchResult struct {
	ConceptID string            `json:"concept_id" yaml:"concept_id"`
	Policy    string            `json:"policy" yaml:"policy"`
	Decision  *Decision         `json:"decision,omitempty" yaml:"decision,omitempty"`
	Top       []ScoredCandidate `json:"top,omitempty" yaml:"top,omitempty"`
}

// SignalTrace records one signal's evaluation for one candidate.
type SignalTrace struct {
	SignalID     string     `json:"signal_id" yaml:"signal_id"`
	Evaluator    string     `json:"evaluator" yaml:"evaluator"`
	Mode         SignalMode `json:"mode" yaml:"mode"`
	Raw          float64    `json:"raw" yaml:"raw"`
	Contribution float64    `json:"contribution" yaml:"contribution"`
}

// CandidateTrace is the audit trail of scoring one candidate against one concept.
type CandidateTrace struct {
	CandidateID string        `json:"candidate_id" yaml:"candidate_id"`
	PriorLogit  float64       `json:"prior_logit" yaml:"prior_logit"`
	TotalLogit  float64       `json:"total_logit" yaml:"total_logit"`
	P           float64       `json:"p" yaml:"p"`
	Signals     []SignalTrace `json:"signals" yaml:"signals"`
}

// Explanation is a winner-take-all decision plus the per-candidate traces it
// was computed from. Candidates are ordered best first.
type Explanation struct {
	ConceptID  string `json:"concept_id" yaml:"concept_id"`
	Decision   `yaml:",inline"`
	Candidates []CandidateTrace `json:"candidates" yaml:"candidates"`
}

// RepairType names a repair operation in an assignment trace.
type RepairType string

const (
	RepairAssignFree RepairType = "assign_free"
	RepairSwap       RepairType = "swap"
)

// RepairOp is one operation applied by the repair loop.
type RepairOp struct {
	Type RepairType `json:"type" yaml:"type"`

	// Pass is the 1-based repair pass that applied the operation.
	Pass int `json:"pass" yaml:"pass"`

	// ConceptID is the previously unassigned concept.
	ConceptID string `json:"concept_id" yaml:"concept_id"`

	// CandidateID is the candidate it received.
	CandidateID string `json:"candidate_id" yaml:"candidate_id"`

	// P is the concept's score for CandidateID.
	P float64 `json:"p" yaml:"p"`

	// Holder is the concept that gave up CandidateID (swap only).
	Holder string `json:"holder,omitempty" yaml:"holder,omitempty"`

	// HolderTo is the holder's replacement candidate (swap only).
	HolderTo string `json:"holder_to,omitempty" yaml:"holder_to,omitempty"`
}

// ConceptRanking summarises one concept's top candidates in an assignment.
type ConceptRanking struct {
	ConceptID string            `json:"concept_id" yaml:"concept_id"`
	BestP     float64           `json:"best_p" yaml:"best_p"`
	Margin    float64           `json:"margin" yaml:"margin"`
	Top       []ScoredCandidate `json:"top" yaml:"top"`
}

// AssignmentTrace explains how an Assignment was reached.
type AssignmentTrace struct {
	// Rankings are in resolution order (best score, then margin, descending).
	Rankings []ConceptRanking `json:"rankings" yaml:"rankings"`

	// Repairs lists every repair operation in the order applied.
	Repairs []RepairOp `json:"repairs" yaml:"repairs"`

	// Passes is the number of repair passes executed.
	Passes int `json:"passes" yaml:"passes"`

	// MissingRequired lists required concepts left unassigned.
	MissingRequired []string `json:"missing_required" yaml:"missing_required"`
}

// Assignment maps concepts of a pattern to candidates of an observation.
type Assignment struct {
	PatternID string `json:"pattern_id" yaml:"pattern_id"`

	// Assigned maps concept_id to candidate_id. Unassigned concepts are absent.
	Assigned map[string]string `json:"assigned" yaml:"assigned"`

	// Unassigned lists concept ids without a candidate, in resolution order.
	Unassigned []string `json:"unassigned" yaml:"unassigned"`

	Trace AssignmentTrace `json:"trace" yaml:"trace"`
}
