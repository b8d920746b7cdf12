package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceDomainCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordClassroomCreated(0)
	m.RecordClassroomCreated(2)
	m.RecordEnrollment("pending")
	m.RecordEnrollmentRejected("full")
	m.RecordSessionTransition("start", true)
	m.RecordSessionTransition("start", false)
	m.RecordRateLimited("auth")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.classroomsCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.classCodeRedraws))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.enrollments.WithLabelValues("pending")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.enrollmentRejects.WithLabelValues("full")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sessionTransitions.WithLabelValues("start", "rejected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rateLimited.WithLabelValues("auth")))
}

func TestMetricsServiceHandlerExposesRequests(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/classes", http.StatusOK, 12*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/v1/classes",status="200"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordClassroomCreated(1)
	m.RecordEnrollment("pending")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
