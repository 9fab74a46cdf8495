// Package metrics holds the Prometheus collectors of the comment server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	writeJobsTotal   *prometheus.CounterVec
	writeJobDuration prometheus.Histogram
	resolutionsTotal *prometheus.CounterVec
	backupsTotal     *prometheus.CounterVec
	backupDuration   prometheus.Histogram
	commentsCreated  *prometheus.CounterVec
	listCacheLookups *prometheus.CounterVec
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()

	for _, c := range []prometheus.Collector{
		m.writeJobsTotal,
		m.writeJobDuration,
		m.resolutionsTotal,
		m.backupsTotal,
		m.backupDuration,
		m.commentsCreated,
		m.listCacheLookups,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.writeJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comments_write_jobs_total",
			Help: "Write jobs by terminal state",
		},
		[]string{"state"}, // committed, failed, rejected
	)

	m.writeJobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comments_write_job_duration_seconds",
			Help:    "Time a write job held the writer connection",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	m.resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comments_claim_resolutions_total",
			Help: "Claim resolution requests by result",
		},
		[]string{"result"}, // found, not_found, error
	)

	m.backupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comments_backups_total",
			Help: "Database snapshots by status",
		},
		[]string{"status"}, // success, failure, upload_failure
	)

	m.backupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comments_backup_duration_seconds",
			Help:    "Time taken to snapshot the database",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	m.commentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comments_created_total",
			Help: "Stored comments by authorship",
		},
		[]string{"kind"}, // anonymous, signed
	)

	m.listCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comments_list_cache_lookups_total",
			Help: "Listing cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordWriteJob(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.writeJobsTotal.WithLabelValues(state).Inc()
	if d > 0 {
		m.writeJobDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) RecordResolution(result string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordBackup(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.backupsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.backupDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) RecordCommentCreated(anonymous bool) {
	if m == nil {
		return
	}
	kind := "signed"
	if anonymous {
		kind = "anonymous"
	}
	m.commentsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordListCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.listCacheLookups.WithLabelValues(result).Inc()
}
