// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/library"
	"github.com/pdiddy/concept-engine/internal/metrics"
	"github.com/pdiddy/concept-engine/internal/secrets"
	"github.com/pdiddy/concept-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP matching service",
	Long: `Serve exposes the engine over HTTP under /cpms (match, match_explain,
match_pattern, evaluators, concepts/persist, patterns/persist, activate),
plus /health and Prometheus /metrics.

When an API token is configured (server.api_token or .secrets/api-token),
/cpms routes require it as a bearer token.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("no-library", false, "run without the document library")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	scfg := cfg.Server
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		scfg.Addr = addr
	}
	scfg.APIToken = secretDefault(secrets.APIToken, scfg.APIToken)

	engine := newEngine()
	deps := server.Deps{
		Engine:   engine,
		Resolver: newResolver(engine),
		Metrics:  metrics.New(),
	}

	if noLib, _ := cmd.Flags().GetBool("no-library"); !noLib {
		store, err := library.Open(cfg.Library)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Library = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(scfg, deps).Run(ctx)
}
