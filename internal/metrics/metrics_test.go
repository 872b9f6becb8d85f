// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/pkg/types"
)

func TestRecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("/cpms/match", http.StatusOK)
	m.RecordRequest("/cpms/match", http.StatusOK)
	m.RecordRequest("/cpms/match", http.StatusBadRequest)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/cpms/match", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/cpms/match", "400")))
}

func TestRecordDecision(t *testing.T) {
	m := New()
	m.RecordDecision(&types.Decision{Accepted: true})
	m.RecordDecision(&types.Decision{Accepted: true, NeedsUserConfirmation: true})
	m.RecordDecision(&types.Decision{NeedsUserConfirmation: true})
	m.RecordDecision(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("confirm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("rejected")))
}

func TestRecordAssignment(t *testing.T) {
	m := New()
	m.RecordAssignment(&types.Assignment{Trace: types.AssignmentTrace{
		Repairs: []types.RepairOp{
			{Type: types.RepairSwap},
			{Type: types.RepairSwap},
			{Type: types.RepairAssignFree},
		},
		MissingRequired: []string{"concept:cvv"},
	}})
	m.RecordAssignment(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.repairs.WithLabelValues("swap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.repairs.WithLabelValues("assign_free")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.missingRequired))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.RecordOperation("match", 3*time.Millisecond)
	m.RecordRequest("/health", http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "concept_engine_operation_duration_seconds_count{operation=\"match\"} 1")
	assert.Contains(t, body, "concept_engine_http_requests_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordRequest("/health", http.StatusOK)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.requests.WithLabelValues("/health", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.requests.WithLabelValues("/health", "200")))
}
