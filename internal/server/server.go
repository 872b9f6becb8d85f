// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the matching engine and the document library over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/pdiddy/concept-engine/internal/assign"
	"github.com/pdiddy/concept-engine/internal/library"
	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/internal/match"
	"github.com/pdiddy/concept-engine/internal/metrics"
	"github.com/pdiddy/concept-engine/pkg/types"
)

const (
	defaultAddr         = "0.0.0.0:8787"
	defaultBurst        = 20
	defaultMaxBodyBytes = 4 << 20
	shutdownTimeout     = 10 * time.Second
)

// Library is the subset of the document library the service uses.
type Library interface {
	AppendConcept(ctx context.Context, c types.Concept) (types.Concept, error)
	AppendPattern(ctx context.Context, p types.Pattern) (types.Pattern, error)
	Activate(ctx context.Context, kind, uuid string) (library.Record, error)
	Concepts(ctx context.Context, ids []string) ([]types.Concept, error)
}

// Deps are the collaborators a Server routes requests to. Library may be
// nil, in which case the persistence routes answer 503.
type Deps struct {
	Engine   *match.Engine
	Resolver *assign.Resolver
	Library  Library
	Metrics  *metrics.Metrics
}

// Server is the HTTP service.
type Server struct {
	cfg      types.ServerConfig
	engine   *match.Engine
	resolver *assign.Resolver
	lib      Library
	metrics  *metrics.Metrics
	validate *validator.Validate
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New returns a Server with defaults applied to zero config values.
func New(cfg types.ServerConfig, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Resolver == nil {
		deps.Resolver = assign.NewResolver(deps.Engine, assign.Options{})
	}

	s := &Server{
		cfg:      cfg,
		engine:   deps.Engine,
		resolver: deps.Resolver,
		lib:      deps.Library,
		metrics:  deps.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logging.New("server"),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	return s
}

// Router builds the gin engine with every route and middleware attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog(), s.limitBody())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/cpms", s.auth(), s.rateLimit())
	api.GET("/evaluators", s.handleEvaluators)
	api.POST("/match", s.handleMatch)
	api.POST("/match_explain", s.handleExplain)
	api.POST("/match_pattern", s.handlePattern)
	api.POST("/concepts/persist", s.handlePersistConcept)
	api.POST("/patterns/persist", s.handlePersistPattern)
	api.POST("/activate", s.handleActivate)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "auth", s.cfg.APIToken != "", "rate_limit", s.cfg.RateLimit)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
