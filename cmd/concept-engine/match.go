// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/document"
	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/pkg/types"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match concepts against an observation",
	Long: `Score every candidate of an observation against one or more concepts and
apply each concept's decision policy.

Concept files may hold a single concept or a list. Examples:
  concept-engine match --concept email.yaml --observation login.json
  concept-engine match -c concepts.yaml -O page.json -o json`,
	RunE: runMatch,
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Match concepts and print per-signal traces",
	Long: `Like match, but always applies winner-take-all and prints, for every
candidate, the prior logit, each signal's raw value and logit contribution,
the total logit, and the calibrated score.

Several concepts are explained concurrently (engine.workers).`,
	RunE: runExplain,
}

func init() {
	for _, cmd := range []*cobra.Command{matchCmd, explainCmd} {
		cmd.Flags().StringSliceP("concept", "c", nil, "concept file (repeatable)")
		cmd.Flags().StringP("observation", "O", "", "observation file")
		cmd.MarkFlagRequired("concept")
		cmd.MarkFlagRequired("observation")
		addFormatFlag(cmd)
		rootCmd.AddCommand(cmd)
	}
}

func loadMatchInputs(cmd *cobra.Command) ([]types.Concept, *types.Observation, error) {
	conceptPaths, _ := cmd.Flags().GetStringSlice("concept")
	obsPath, _ := cmd.Flags().GetString("observation")

	concepts, err := document.LoadConcepts(conceptPaths...)
	if err != nil {
		return nil, nil, err
	}
	if len(concepts) == 0 {
		return nil, nil, fmt.Errorf("no concepts in %v", conceptPaths)
	}
	obs, err := document.LoadObservation(obsPath)
	if err != nil {
		return nil, nil, err
	}
	return concepts, obs, nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	concepts, obs, err := loadMatchInputs(cmd)
	if err != nil {
		return err
	}

	engine := newEngine()
	logger := logging.New("match")
	results := make([]*types.MatchResult, 0, len(concepts))
	for i := range concepts {
		res, err := engine.Match(&concepts[i], obs)
		if err != nil {
			return fmt.Errorf("matching %s: %w", concepts[i].ConceptID, err)
		}
		logger.Debug("matched", "concept", res.ConceptID, "policy", res.Policy, "candidates", len(obs.Candidates))
		results = append(results, res)
	}

	var out any = results
	if len(results) == 1 {
		out = results[0]
	}
	return writeDocument(cmd, out, func(w io.Writer) error {
		return printMatchResults(w, results)
	})
}

func runExplain(cmd *cobra.Command, args []string) error {
	concepts, obs, err := loadMatchInputs(cmd)
	if err != nil {
		return err
	}

	explanations, err := newEngine().MatchMany(cmd.Context(), concepts, obs, cfg.Engine.Workers)
	if err != nil {
		return err
	}

	var out any = explanations
	if len(explanations) == 1 {
		out = explanations[0]
	}
	return writeDocument(cmd, out, func(w io.Writer) error {
		for i, ex := range explanations {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := printExplanation(w, ex); err != nil {
				return err
			}
		}
		return nil
	})
}
