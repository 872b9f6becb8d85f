// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/pkg/types"
)

var evaluatorsCmd = &cobra.Command{
	Use:   "evaluators",
	Short: "List registered evaluator names",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := newEngine().Registry().Names()
		return writeDocument(cmd, types.EvaluatorsResponse{Evaluators: names}, func(w io.Writer) error {
			for _, n := range names {
				fmt.Fprintln(w, n)
			}
			return nil
		})
	},
}

func init() {
	addFormatFlag(evaluatorsCmd)
	rootCmd.AddCommand(evaluatorsCmd)
}
