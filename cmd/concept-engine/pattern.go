// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/document"
	"github.com/pdiddy/concept-engine/internal/library"
	"github.com/pdiddy/concept-engine/pkg/types"
)

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Resolve a pattern against an observation",
	Long: `Assign each concept of a pattern to a distinct candidate of an observation
using greedy selection followed by bounded repair passes.

The pattern and its concepts come from files, or from the library with
--library (the pattern flag is then a pattern id). Examples:
  concept-engine pattern -p login.yaml -c email.yaml -c password.yaml -O page.json
  concept-engine pattern --library -p pattern:login_form@1.0.0 -O page.json`,
	RunE: runPattern,
}

func init() {
	patternCmd.Flags().StringP("pattern", "p", "", "pattern file, or pattern id with --library")
	patternCmd.Flags().StringSliceP("concept", "c", nil, "concept file (repeatable)")
	patternCmd.Flags().StringP("observation", "O", "", "observation file")
	patternCmd.Flags().Bool("library", false, "load the pattern and its concepts from the library")
	patternCmd.MarkFlagRequired("pattern")
	patternCmd.MarkFlagRequired("observation")
	addFormatFlag(patternCmd)
	rootCmd.AddCommand(patternCmd)
}

func runPattern(cmd *cobra.Command, args []string) error {
	patternArg, _ := cmd.Flags().GetString("pattern")
	conceptPaths, _ := cmd.Flags().GetStringSlice("concept")
	obsPath, _ := cmd.Flags().GetString("observation")
	fromLibrary, _ := cmd.Flags().GetBool("library")

	var (
		p        *types.Pattern
		concepts []types.Concept
		err      error
	)
	if fromLibrary {
		p, concepts, err = loadPatternFromLibrary(cmd, patternArg)
	} else {
		if len(conceptPaths) == 0 {
			return fmt.Errorf("--concept is required without --library")
		}
		if p, err = document.LoadPattern(patternArg); err == nil {
			concepts, err = document.LoadConcepts(conceptPaths...)
		}
	}
	if err != nil {
		return err
	}

	obs, err := document.LoadObservation(obsPath)
	if err != nil {
		return err
	}

	a, err := newResolver(newEngine()).Resolve(p, concepts, obs)
	if err != nil {
		return err
	}
	return writeDocument(cmd, a, func(w io.Writer) error {
		return printAssignment(w, a)
	})
}

func loadPatternFromLibrary(cmd *cobra.Command, patternID string) (*types.Pattern, []types.Concept, error) {
	store, err := library.Open(cfg.Library)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	ctx := cmd.Context()
	p, err := store.Pattern(ctx, patternID)
	if err != nil {
		return nil, nil, err
	}
	concepts, err := store.Concepts(ctx, p.Includes)
	if err != nil {
		return nil, nil, err
	}
	return &p, concepts, nil
}
