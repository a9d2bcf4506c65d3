// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_runs_total",
			Help: "Total number of report pipeline runs by outcome",
		},
		[]string{"outcome", "source"},
	)

	ReportStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_stage_duration_seconds",
			Help:    "Duration of each report pipeline stage in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
		[]string{"stage"},
	)

	PhotoUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_photo_uploads_total",
			Help: "Photo uploads by result",
		},
		[]string{"result"},
	)

	RenderPollAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_render_poll_attempts",
			Help:    "Status checks made per render job",
			Buckets: []float64{1, 2, 3, 5, 10, 15, 20, 30},
		},
		[]string{"outcome"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_notifications_total",
			Help: "Notifications dispatched by channel and status",
		},
		[]string{"channel", "status"},
	)

	PipelinesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_pipelines_active",
			Help: "Number of report pipelines currently running",
		},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
