// Package metrics provides Prometheus metrics for the CodeBench server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebench_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codebench_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	treeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebench_tree_operations_total",
			Help: "Total number of file tree operations",
		},
		[]string{"operation", "status"},
	)

	treeSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codebench_tree_size",
			Help: "Number of nodes in the workspace tree",
		},
	)

	terminalCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebench_terminal_commands_total",
			Help: "Total number of terminal commands executed",
		},
		[]string{"status"},
	)

	autoSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebench_autosaves_total",
			Help: "Total number of file session saves",
		},
		[]string{"trigger", "status"},
	)

	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codebench_sse_connections_active",
			Help: "Number of active SSE subscribers",
		},
	)

	sseEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebench_sse_events_total",
			Help: "Total number of SSE events published",
		},
		[]string{"type"},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebench_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"success"},
	)

	dbConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codebench_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// RecordTreeOp records a file tree operation outcome.
func RecordTreeOp(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	treeOpsTotal.WithLabelValues(operation, status).Inc()
}

// SetTreeSize updates the workspace tree size gauge.
func SetTreeSize(n int) {
	treeSize.Set(float64(n))
}

// RecordTerminalCommand records a finished terminal command.
func RecordTerminalCommand(status string) {
	terminalCommandsTotal.WithLabelValues(status).Inc()
}

// RecordSave records a file session save attempt.
func RecordSave(trigger string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	autoSavesTotal.WithLabelValues(trigger, status).Inc()
}

// SetSSEConnectionsActive updates the active SSE subscriber gauge.
func SetSSEConnectionsActive(n int64) {
	sseConnectionsActive.Set(float64(n))
}

// RecordSSEEvent records a published SSE event.
func RecordSSEEvent(eventType string) {
	sseEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	authAttemptsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// SetDBConnectionsOpen updates the open database connection gauge.
func SetDBConnectionsOpen(n int) {
	dbConnectionsOpen.Set(float64(n))
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush passes through so the SSE stream keeps working behind the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware instruments HTTP handlers with request count and duration.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
