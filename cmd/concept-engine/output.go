// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/assign"
	"github.com/pdiddy/concept-engine/internal/document"
	"github.com/pdiddy/concept-engine/internal/evaluate"
	"github.com/pdiddy/concept-engine/internal/match"
	"github.com/pdiddy/concept-engine/pkg/types"
)

const formatText = "text"

// addFormatFlag registers --format on cmd.
func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "o", formatText, "output format: text, yaml, or json")
}

// writeDocument encodes v as yaml or json, or calls text for the text format.
func writeDocument(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	format, _ := cmd.Flags().GetString("format")
	w := cmd.OutOrStdout()
	if format == formatText || format == "" {
		return text(w)
	}
	return document.Encode(w, v, format)
}

func newEngine() *match.Engine {
	return match.New(evaluate.Builtin())
}

func newResolver(engine *match.Engine) *assign.Resolver {
	return assign.NewResolver(engine, assign.Options{
		TopK:       cfg.Engine.TopK,
		MaxRepairs: cfg.Engine.MaxRepairs,
	})
}

func printMatchResults(w io.Writer, results []*types.MatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONCEPT\tPOLICY\tBEST\tP\tMARGIN\tACCEPTED\tCONFIRM")
	for _, r := range results {
		if r.Decision == nil {
			for _, sc := range r.Top {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t-\t-\t-\n", r.ConceptID, r.Policy, sc.CandidateID, sc.P)
			}
			continue
		}
		d := r.Decision
		best, p := "-", 0.0
		if d.Best != nil {
			best, p = d.Best.CandidateID, d.Best.P
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%t\t%t\n",
			r.ConceptID, r.Policy, best, p, d.Margin, d.Accepted, d.NeedsUserConfirmation)
	}
	return tw.Flush()
}

func printExplanation(w io.Writer, ex *types.Explanation) error {
	best := "-"
	if ex.Best != nil {
		best = ex.Best.CandidateID
	}
	fmt.Fprintf(w, "Concept: %s\n", ex.ConceptID)
	fmt.Fprintf(w, "Best: %s  margin %.4f  accepted %t  confirm %t\n\n",
		best, ex.Margin, ex.Accepted, ex.NeedsUserConfirmation)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tSIGNAL\tMODE\tRAW\tCONTRIB")
	for _, ct := range ex.Candidates {
		fmt.Fprintf(tw, "%s\t(prior)\t\t\t%+.4f\n", ct.CandidateID, ct.PriorLogit)
		for _, st := range ct.Signals {
			fmt.Fprintf(tw, "\t%s\t%s\t%.4f\t%+.4f\n", st.SignalID, st.Mode, st.Raw, st.Contribution)
		}
		fmt.Fprintf(tw, "\t(total)\t\t\t%+.4f  p=%.4f\n", ct.TotalLogit, ct.P)
	}
	return tw.Flush()
}

func printAssignment(w io.Writer, a *types.Assignment) error {
	fmt.Fprintf(w, "Pattern: %s\n\n", a.PatternID)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONCEPT\tCANDIDATE\tBEST_P\tMARGIN")
	for _, rk := range a.Trace.Rankings {
		cand, ok := a.Assigned[rk.ConceptID]
		if !ok {
			cand = "(unassigned)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\n", rk.ConceptID, cand, rk.BestP, rk.Margin)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nRepair passes: %d\n", a.Trace.Passes)
	for _, op := range a.Trace.Repairs {
		switch op.Type {
		case types.RepairSwap:
			fmt.Fprintf(w, "  pass %d: swap %s -> %s (%s moved to %s)\n", op.Pass, op.ConceptID, op.CandidateID, op.Holder, op.HolderTo)
		default:
			fmt.Fprintf(w, "  pass %d: %s %s -> %s\n", op.Pass, op.Type, op.ConceptID, op.CandidateID)
		}
	}
	if len(a.Trace.MissingRequired) > 0 {
		fmt.Fprintf(w, "Missing required: %v\n", a.Trace.MissingRequired)
	}
	return nil
}
