package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AlertsCreated   prometheus.Counter
	AlertDuplicates prometheus.Counter
	SweepRuns       prometheus.Counter
	SweepDuration   prometheus.Histogram
	SweepDocuments  prometheus.Counter

	HistoryAppended  *prometheus.CounterVec
	ActivityAppended prometheus.Counter

	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter

	OutboxPublished      prometheus.Counter
	OutboxPublishRetries prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return with(prometheus.DefaultRegisterer)
}

// NewForTesting registers metrics on a private registry so parallel tests do
// not collide on the default one.
func NewForTesting() *Metrics {
	return with(prometheus.NewRegistry())
}

func with(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AlertsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_expiry_alerts_created_total",
			Help: "Expiry alerts inserted (excludes duplicate-bucket no-ops)",
		}),
		AlertDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_expiry_alert_duplicates_total",
			Help: "Alert inserts skipped because the (document, bucket) pair already had one",
		}),
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_expiry_sweep_runs_total",
			Help: "Completed expiry sweeps",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vendorhub_expiry_sweep_duration_seconds",
			Help:    "Wall time of a full expiry sweep",
			Buckets: prometheus.DefBuckets,
		}),
		SweepDocuments: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_expiry_sweep_documents_total",
			Help: "Documents evaluated across all sweeps",
		}),
		HistoryAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorhub_status_history_appended_total",
			Help: "Status history rows appended, by entity kind",
		}, []string{"entity"}),
		ActivityAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_activity_log_appended_total",
			Help: "Activity log rows appended",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_alert_notifications_sent_total",
			Help: "Pending alerts confirmed delivered by the notifier",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_alert_notifications_failed_total",
			Help: "Notifier deliveries that reported failure",
		}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_activity_outbox_published_total",
			Help: "Activity outbox entries published to Kafka",
		}),
		OutboxPublishRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendorhub_activity_outbox_retries_total",
			Help: "Outbox entries left unpublished for a later relay pass",
		}),
	}
}
