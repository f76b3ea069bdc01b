package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsSubmitted          = prometheus.NewCounter(prometheus.CounterOpts{Name: "a11y_jobs_submitted_total", Help: "Jobs accepted at submission"})
	JobsCompleted          = prometheus.NewCounter(prometheus.CounterOpts{Name: "a11y_jobs_completed_total", Help: "Jobs that reached the completed stage"})
	JobsFailed             = prometheus.NewCounter(prometheus.CounterOpts{Name: "a11y_jobs_failed_total", Help: "Jobs that failed in any stage"})
	RateLimitRejects       = prometheus.NewCounter(prometheus.CounterOpts{Name: "a11y_rate_limit_rejects_total", Help: "Submissions rejected by the rate limiter"})
	AnalyzerFailures       = prometheus.NewCounter(prometheus.CounterOpts{Name: "a11y_analyzer_failures_total", Help: "Analyzer invocations that failed or timed out"})
	ArtifactsUploaded      = prometheus.NewCounter(prometheus.CounterOpts{Name: "a11y_artifacts_uploaded_total", Help: "Report artifacts persisted to the object store"})
	ArtifactUploadFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "a11y_artifact_upload_failures_total", Help: "Artifacts downgraded to local-only after a failed upload"})
	CleanupFailures        = prometheus.NewCounter(prometheus.CounterOpts{Name: "a11y_cleanup_failures_total", Help: "Temp resource deletions that failed during sweeps"})
	JobsInFlight           = prometheus.NewGauge(prometheus.GaugeOpts{Name: "a11y_jobs_inflight", Help: "Jobs currently running their pipeline"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsSubmitted,
			JobsCompleted,
			JobsFailed,
			RateLimitRejects,
			AnalyzerFailures,
			ArtifactsUploaded,
			ArtifactUploadFailures,
			CleanupFailures,
			JobsInFlight,
		)
	})
	return promhttp.Handler()
}
