// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/pkg/types"
)

const testConcept = `concept_id: "concept:email@1.0.0"
signals:
  - signal_id: ac
    evaluator: dom.attr_in
    params: {attr: autocomplete, values: [email]}
    mode: bayes
    llr_when_true: 3
resolution:
  score_model: {prior_logit: -1}
  decision: {policy: winner_take_all, min_conf: 0.75, min_margin: 0.1}
`

const testObservation = `{
	"page_id": "fixture:login",
	"candidates": [
		{"candidate_id": "cand_email", "dom": {"attrs": {"autocomplete": "email"}}},
		{"candidate_id": "cand_pass", "dom": {"attrs": {"autocomplete": "current-password"}}}
	]
}`

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestMatchCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	concept := writeTestFile(t, dir, "email.yaml", testConcept)
	obs := writeTestFile(t, dir, "login.json", testObservation)

	out := execute(t, "match", "--concept", concept, "--observation", obs, "--format", "json")

	var res types.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "concept:email@1.0.0", res.ConceptID)
	require.NotNil(t, res.Decision)
	require.NotNil(t, res.Decision.Best)
	assert.Equal(t, "cand_email", res.Decision.Best.CandidateID)
	assert.True(t, res.Decision.Accepted)
	// sigmoid(2) is below the default confirm threshold of 0.9.
	assert.True(t, res.Decision.NeedsUserConfirmation)
}

func TestPatternCommand_Examples(t *testing.T) {
	dir := filepath.Join("..", "..", "examples", "login")
	out := execute(t, "pattern",
		"--pattern", filepath.Join(dir, "login_form.yaml"),
		"--concept", filepath.Join(dir, "email.yaml"),
		"--concept", filepath.Join(dir, "password.yaml"),
		"--observation", filepath.Join(dir, "observation.json"),
		"--format", "json",
	)

	var a types.Assignment
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, map[string]string{
		"concept:email@1.0.0":    "cand_email",
		"concept:password@1.0.0": "cand_pass",
	}, a.Assigned)
	assert.Empty(t, a.Unassigned)
	assert.Empty(t, a.Trace.MissingRequired)
}

func TestLibraryCommands(t *testing.T) {
	dir := t.TempDir()
	concept := writeTestFile(t, dir, "email.yaml", testConcept)
	libDir := filepath.Join(dir, "lib")

	out := execute(t, "--library-dir", libDir, "library", "add", "--activate", concept)
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "concept:email@1.0.0")

	out = execute(t, "--library-dir", libDir, "library", "list")
	assert.Contains(t, out, "concept:email@1.0.0")
	assert.Contains(t, out, "1 documents")
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.Equal(t, "concept-engine dev\n", out)
}

func TestPrintAssignment(t *testing.T) {
	a := &types.Assignment{
		PatternID: "pattern:login_form",
		Assigned:  map[string]string{"concept:email": "cand_email"},
		Trace: types.AssignmentTrace{
			Rankings: []types.ConceptRanking{
				{ConceptID: "concept:email", BestP: 0.98, Margin: 0.5},
				{ConceptID: "concept:otp", BestP: 0.2, Margin: 0.2},
			},
			Repairs: []types.RepairOp{{
				Type: types.RepairSwap, Pass: 1, ConceptID: "concept:email",
				CandidateID: "cand_email", Holder: "concept:user", HolderTo: "cand_user",
			}},
			Passes:          1,
			MissingRequired: []string{"concept:otp"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printAssignment(&buf, a))
	out := buf.String()

	assert.Contains(t, out, "Pattern: pattern:login_form")
	assert.Contains(t, out, "(unassigned)")
	assert.Contains(t, out, "pass 1: swap concept:email -> cand_email (concept:user moved to cand_user)")
	assert.Contains(t, out, "Missing required: [concept:otp]")
}

func TestPrintMatchResults_TopK(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printMatchResults(&buf, []*types.MatchResult{{
		ConceptID: "concept:email",
		Policy:    types.PolicyTopK,
		Top:       []types.ScoredCandidate{{CandidateID: "a", P: 0.9}, {CandidateID: "b", P: 0.4}},
	}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "0.9000")
	assert.Contains(t, lines[2], "0.4000")
}
