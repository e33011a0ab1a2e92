package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exposed on the metrics endpoint.
var (
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padlock_uploads_total",
		Help: "Number of accepted attachment uploads.",
	})

	UploadRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "padlock_upload_rejected_total",
		Help: "Number of rejected attachment uploads by reason.",
	}, []string{"reason"})

	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padlock_sweeps_total",
		Help: "Number of completed expiration sweep passes.",
	})

	SweptAttachmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padlock_swept_attachments_total",
		Help: "Number of expired attachments purged by sweep or lazy access.",
	})

	SweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padlock_sweep_errors_total",
		Help: "Number of per-entry failures during expiration sweeps.",
	})
)
