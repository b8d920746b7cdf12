package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for HTTP and domain instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	classroomsCreated  prometheus.Counter
	classCodeRedraws   prometheus.Counter
	enrollments        *prometheus.CounterVec
	enrollmentRejects  *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	classroomsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classrooms_created_total",
		Help: "Classrooms created",
	})

	classCodeRedraws := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classroom_code_redraws_total",
		Help: "Join codes drawn again after colliding with an existing classroom",
	})

	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollments_created_total",
		Help: "Enrollments accepted, by initial status",
	}, []string{"status"})

	enrollmentRejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollments_rejected_total",
		Help: "Enrollment intakes rejected, by reason",
	}, []string{"reason"})

	sessionTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_transitions_total",
		Help: "Session lifecycle actions, by action and outcome",
	}, []string{"action", "outcome"})

	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"scope"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		classroomsCreated, classCodeRedraws, enrollments, enrollmentRejects, sessionTransitions, rateLimited,
		goroutines,
	)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		classroomsCreated:  classroomsCreated,
		classCodeRedraws:   classCodeRedraws,
		enrollments:        enrollments,
		enrollmentRejects:  enrollmentRejects,
		sessionTransitions: sessionTransitions,
		rateLimited:        rateLimited,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request latency and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordClassroomCreated counts a created classroom and the code redraws it needed.
func (m *MetricsService) RecordClassroomCreated(redraws int) {
	if m == nil {
		return
	}
	m.classroomsCreated.Inc()
	if redraws > 0 {
		m.classCodeRedraws.Add(float64(redraws))
	}
}

// RecordEnrollment counts an accepted enrollment.
func (m *MetricsService) RecordEnrollment(status string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(status).Inc()
}

// RecordEnrollmentRejected counts an intake turned down for reason.
func (m *MetricsService) RecordEnrollmentRejected(reason string) {
	if m == nil {
		return
	}
	m.enrollmentRejects.WithLabelValues(reason).Inc()
}

// RecordSessionTransition counts a lifecycle action such as start, end or regenerate.
func (m *MetricsService) RecordSessionTransition(action string, ok bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !ok {
		outcome = "rejected"
	}
	m.sessionTransitions.WithLabelValues(action, outcome).Inc()
}

// RecordRateLimited counts a throttled request.
func (m *MetricsService) RecordRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}
