// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/client"
	"github.com/pdiddy/concept-engine/internal/document"
	"github.com/pdiddy/concept-engine/internal/secrets"
	"github.com/pdiddy/concept-engine/pkg/types"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Call a running concept-engine service",
	Long: `Remote sends documents to a concept-engine service and prints the result.
The bearer token is read from --token or .secrets/remote-token.`,
}

// --- match subcommand ---

var remoteMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "POST /cpms/match",
	RunE:  runRemoteMatch,
}

func runRemoteMatch(cmd *cobra.Command, args []string) error {
	req, err := remoteMatchRequest(cmd)
	if err != nil {
		return err
	}
	resp, err := remoteClient(cmd).Match(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeDocument(cmd, resp, func(w io.Writer) error {
		return printMatchResults(w, []*types.MatchResult{resp.Result})
	})
}

// --- explain subcommand ---

var remoteExplainCmd = &cobra.Command{
	Use:   "explain",
	Short: "POST /cpms/match_explain",
	RunE:  runRemoteExplain,
}

func runRemoteExplain(cmd *cobra.Command, args []string) error {
	req, err := remoteMatchRequest(cmd)
	if err != nil {
		return err
	}
	resp, err := remoteClient(cmd).Explain(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeDocument(cmd, resp, func(w io.Writer) error {
		return printExplanation(w, resp.Explain)
	})
}

// --- pattern subcommand ---

var remotePatternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "POST /cpms/match_pattern",
	Long: `Send a pattern and an observation. Concepts given with --concept are sent
inline; without them the service resolves the pattern's includes from its
library.`,
	RunE: runRemotePattern,
}

func runRemotePattern(cmd *cobra.Command, args []string) error {
	patternPath, _ := cmd.Flags().GetString("pattern")
	conceptPaths, _ := cmd.Flags().GetStringSlice("concept")
	obsPath, _ := cmd.Flags().GetString("observation")

	p, err := document.LoadPattern(patternPath)
	if err != nil {
		return err
	}
	var concepts []types.Concept
	if len(conceptPaths) > 0 {
		if concepts, err = document.LoadConcepts(conceptPaths...); err != nil {
			return err
		}
	}
	obs, err := document.LoadObservation(obsPath)
	if err != nil {
		return err
	}

	resp, err := remoteClient(cmd).MatchPattern(cmd.Context(), types.PatternRequest{
		Pattern:     p,
		Concepts:    concepts,
		Observation: obs,
	})
	if err != nil {
		return err
	}
	return writeDocument(cmd, resp, func(w io.Writer) error {
		return printAssignment(w, resp.Result)
	})
}

// --- evaluators subcommand ---

var remoteEvaluatorsCmd = &cobra.Command{
	Use:   "evaluators",
	Short: "GET /cpms/evaluators",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := remoteClient(cmd).Evaluators(cmd.Context())
		if err != nil {
			return err
		}
		return writeDocument(cmd, types.EvaluatorsResponse{Evaluators: names}, func(w io.Writer) error {
			for _, n := range names {
				fmt.Fprintln(w, n)
			}
			return nil
		})
	},
}

func remoteMatchRequest(cmd *cobra.Command) (types.MatchRequest, error) {
	conceptPath, _ := cmd.Flags().GetString("concept")
	obsPath, _ := cmd.Flags().GetString("observation")

	c, err := document.LoadConcept(conceptPath)
	if err != nil {
		return types.MatchRequest{}, err
	}
	obs, err := document.LoadObservation(obsPath)
	if err != nil {
		return types.MatchRequest{}, err
	}
	return types.MatchRequest{Concept: c, Observation: obs}, nil
}

func remoteClient(cmd *cobra.Command) *client.Client {
	serverURL, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	retries, _ := cmd.Flags().GetInt("retries")

	return client.New(serverURL,
		client.WithToken(secretDefault(secrets.RemoteToken, token)),
		client.WithMaxRetries(retries),
	)
}

func init() {
	pf := remoteCmd.PersistentFlags()
	pf.String("server", "http://localhost:8787", "service base URL")
	pf.String("token", "", "bearer token (default: .secrets/remote-token)")
	pf.Int("retries", 5, "retries on 429 responses")

	for _, cmd := range []*cobra.Command{remoteMatchCmd, remoteExplainCmd} {
		cmd.Flags().StringP("concept", "c", "", "concept file")
		cmd.Flags().StringP("observation", "O", "", "observation file")
		cmd.MarkFlagRequired("concept")
		cmd.MarkFlagRequired("observation")
	}
	remotePatternCmd.Flags().StringP("pattern", "p", "", "pattern file")
	remotePatternCmd.Flags().StringSliceP("concept", "c", nil, "concept file (repeatable)")
	remotePatternCmd.Flags().StringP("observation", "O", "", "observation file")
	remotePatternCmd.MarkFlagRequired("pattern")
	remotePatternCmd.MarkFlagRequired("observation")

	for _, cmd := range []*cobra.Command{remoteMatchCmd, remoteExplainCmd, remotePatternCmd, remoteEvaluatorsCmd} {
		addFormatFlag(cmd)
		remoteCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(remoteCmd)
}
