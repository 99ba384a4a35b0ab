// Package metrics records ingestion counters and stage timings in a
// Prometheus registry. Batch runs write the registry to a node-exporter
// textfile when they finish.
//
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeDryRun          = "dry_run"
	OutcomeAlreadyIngested = "already_ingested"
	OutcomeFailed          = "failed"
)

// Sync statuses.
const (
	SyncOK       = "ok"
	SyncFailed   = "failed"
	SyncDisabled = "disabled"
)

// Recorder owns the ingestion metrics.
type Recorder struct {
	registry *prometheus.Registry

	runs                 *prometheus.CounterVec
	entitiesCreated      prometheus.Counter
	entitiesSkipped      prometheus.Counter
	relationshipsCreated prometheus.Counter
	relationshipsFailed  prometheus.Counter
	syncs                *prometheus.CounterVec
	stageDuration        *prometheus.HistogramVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kgingest_runs_total",
				Help: "Ingestion runs by outcome",
			},
			[]string{"outcome"},
		),
		entitiesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kgingest_entities_created_total",
				Help: "Entities written to the store",
			},
		),
		entitiesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kgingest_entities_skipped_total",
				Help: "Candidate entities skipped as invalid or duplicate",
			},
		),
		relationshipsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kgingest_relationships_created_total",
				Help: "Relationships written to the store",
			},
		),
		relationshipsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kgingest_relationships_failed_total",
				Help: "Relationships that could not be resolved or written",
			},
		),
		syncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kgingest_sync_total",
				Help: "Dual-write attempts by status",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kgingest_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"stage"},
		),
	}

	r.registry.MustRegister(
		r.runs,
		r.entitiesCreated,
		r.entitiesSkipped,
		r.relationshipsCreated,
		r.relationshipsFailed,
		r.syncs,
		r.stageDuration,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RunFinished(outcome string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
}

func (r *Recorder) EntitiesCreated(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.entitiesCreated.Add(float64(n))
}

func (r *Recorder) EntitiesSkipped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.entitiesSkipped.Add(float64(n))
}

func (r *Recorder) RelationshipsCreated(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.relationshipsCreated.Add(float64(n))
}

func (r *Recorder) RelationshipsFailed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.relationshipsFailed.Add(float64(n))
}

func (r *Recorder) Sync(status string) {
	if r == nil {
		return
	}
	r.syncs.WithLabelValues(status).Inc()
}

// ObserveStage records how long stage took since start.
func (r *Recorder) ObserveStage(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the registry in the text exposition format to
// path, atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
