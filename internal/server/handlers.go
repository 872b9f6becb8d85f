// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/concept-engine/internal/assign"
	"github.com/pdiddy/concept-engine/internal/evaluate"
	"github.com/pdiddy/concept-engine/internal/library"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// errNoLibrary is returned by persistence routes when the service runs
// without a library.
var errNoLibrary = errors.New("library not configured")

// errInvalidRequest marks a body that failed to decode or validate.
var errInvalidRequest = errors.New("invalid request")

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleEvaluators(c *gin.Context) {
	c.JSON(http.StatusOK, types.EvaluatorsResponse{Evaluators: s.engine.Registry().Names()})
}

// handleMatch handles POST /cpms/match.
//
//	200 OK: MatchResponse
//	400 Bad Request: malformed or invalid body
//	422 Unprocessable Entity: unknown evaluator
func (s *Server) handleMatch(c *gin.Context) {
	var req types.MatchRequest
	if !s.bind(c, &req) {
		return
	}

	start := time.Now()
	res, err := s.engine.Match(req.Concept, req.Observation)
	s.metrics.RecordOperation("match", time.Since(start))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.RecordDecision(res.Decision)
	c.JSON(http.StatusOK, types.MatchResponse{Result: res})
}

// handleExplain handles POST /cpms/match_explain. The response carries the
// policy result and the full trace.
func (s *Server) handleExplain(c *gin.Context) {
	var req types.MatchRequest
	if !s.bind(c, &req) {
		return
	}

	start := time.Now()
	res, err := s.engine.Match(req.Concept, req.Observation)
	if err != nil {
		s.fail(c, err)
		return
	}
	ex, err := s.engine.Explain(req.Concept, req.Observation)
	s.metrics.RecordOperation("explain", time.Since(start))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.RecordDecision(res.Decision)
	c.JSON(http.StatusOK, types.ExplainResponse{Result: res, Explain: ex})
}

// handlePattern handles POST /cpms/match_pattern. Without inline concepts
// the pattern's includes are resolved from the library.
//
//	200 OK: PatternResponse
//	404 Not Found: an included concept is not in the library
//	422 Unprocessable Entity: missing concept or unknown evaluator
func (s *Server) handlePattern(c *gin.Context) {
	var req types.PatternRequest
	if !s.bind(c, &req) {
		return
	}

	concepts := req.Concepts
	if len(concepts) == 0 && s.lib != nil {
		var err error
		if concepts, err = s.lib.Concepts(c.Request.Context(), req.Pattern.Includes); err != nil {
			s.fail(c, err)
			return
		}
	}

	start := time.Now()
	a, err := s.resolver.Resolve(req.Pattern, concepts, req.Observation)
	s.metrics.RecordOperation("pattern", time.Since(start))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.RecordAssignment(a)

	s.logger.Debug("pattern resolved",
		"request_id", c.GetString(requestIDKey),
		"pattern_id", a.PatternID,
		"assigned", len(a.Assigned),
		"repairs", len(a.Trace.Repairs),
		"missing_required", len(a.Trace.MissingRequired),
	)
	c.JSON(http.StatusOK, types.PatternResponse{Result: a})
}

func (s *Server) handlePersistConcept(c *gin.Context) {
	var req types.PersistConceptRequest
	if !s.bind(c, &req) {
		return
	}
	if s.lib == nil {
		s.fail(c, errNoLibrary)
		return
	}
	stored, err := s.lib.AppendConcept(c.Request.Context(), *req.Concept)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.PersistConceptResponse{OK: true, Concept: &stored})
}

func (s *Server) handlePersistPattern(c *gin.Context) {
	var req types.PersistPatternRequest
	if !s.bind(c, &req) {
		return
	}
	if s.lib == nil {
		s.fail(c, errNoLibrary)
		return
	}
	stored, err := s.lib.AppendPattern(c.Request.Context(), *req.Pattern)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.PersistPatternResponse{OK: true, Pattern: &stored})
}

func (s *Server) handleActivate(c *gin.Context) {
	var req types.ActivateRequest
	if !s.bind(c, &req) {
		return
	}
	if s.lib == nil {
		s.fail(c, errNoLibrary)
		return
	}
	rec, err := s.lib.Activate(c.Request.Context(), req.Kind, req.UUID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ActivateResponse{OK: true, Active: rec.Revision})
}

// bind decodes and validates the JSON body into req. On failure it writes a
// 400 response and returns false.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errInvalidRequest, err))
		return false
	}
	return true
}

// fail maps err to a status code and writes an ErrorResponse.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	resp := types.ErrorResponse{Error: err.Error()}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Error = errInvalidRequest.Error()
		for _, fe := range verrs {
			resp.Details = append(resp.Details, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	level := s.logger.Warn
	if status >= http.StatusInternalServerError {
		level = s.logger.Error
	}
	level("request failed", "request_id", c.GetString(requestIDKey), "status", status, "error", err)

	c.AbortWithStatusJSON(status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidRequest), errors.Is(err, library.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, evaluate.ErrUnknownEvaluator), errors.Is(err, assign.ErrMissingConcept):
		return http.StatusUnprocessableEntity
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoLibrary):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
