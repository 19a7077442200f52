// Package metrics provides Prometheus metrics for the remote file core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Repository call metrics
	repositoryCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "damfs_repository_calls_total",
			Help: "Total repository HTTP calls by operation and status",
		},
		[]string{"op", "status"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "damfs_fetch_duration_seconds",
			Help:    "Time to materialize a remote object into the staging copy",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Transfer metrics
	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "damfs_bytes_downloaded_total",
			Help: "Total bytes fetched from the repository",
		},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "damfs_bytes_uploaded_total",
			Help: "Total bytes pushed to the repository",
		},
	)

	// Staging metrics
	stagedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "damfs_staged_files",
			Help: "Number of live local staging copies",
		},
	)

	flushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "damfs_flushes_total",
			Help: "Total flush operations by result",
		},
		[]string{"result"},
	)
)

// RepositoryCall records one repository HTTP call.
func RepositoryCall(op, status string) {
	repositoryCallsTotal.WithLabelValues(op, status).Inc()
}

// ObserveFetchDuration records the duration of one staging fetch in seconds.
func ObserveFetchDuration(seconds float64) {
	fetchDuration.Observe(seconds)
}

// AddBytesDownloaded adds to the download byte counter.
func AddBytesDownloaded(n int64) {
	bytesDownloaded.Add(float64(n))
}

// AddBytesUploaded adds to the upload byte counter.
func AddBytesUploaded(n int64) {
	bytesUploaded.Add(float64(n))
}

// StagedFileCreated increments the live staging copy gauge.
func StagedFileCreated() {
	stagedFiles.Inc()
}

// StagedFileRemoved decrements the live staging copy gauge.
func StagedFileRemoved() {
	stagedFiles.Dec()
}

// Flush records one flush operation outcome ("ok", "error", "noop").
func Flush(result string) {
	flushesTotal.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
