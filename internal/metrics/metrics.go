package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts processed events by trigger data format and outcome
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trgmatch_events_total",
			Help: "Total number of events processed",
		},
		[]string{"format", "status"},
	)

	// TriggerObjectsTotal counts trigger objects cached for matching
	TriggerObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trgmatch_trigger_objects_total",
			Help: "Total number of trigger objects cached per species",
		},
		[]string{"species"},
	)

	// CandidatesTotal counts matched candidates, split on whether any filter bit was set
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trgmatch_candidates_total",
			Help: "Total number of candidates matched against trigger objects",
		},
		[]string{"species", "matched"},
	)

	// ErrorsTotal counts event errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trgmatch_errors_total",
			Help: "Total number of event errors by type",
		},
		[]string{"type"},
	)

	// FillDuration tracks the time spent loading an event's trigger objects
	FillDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trgmatch_fill_duration_seconds",
			Help:    "Trigger cache fill duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"format"},
	)
)

// Event status constants
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Error type constants
const (
	ErrorTypeMissingData   = "missing_data"
	ErrorTypeMalformedData = "malformed_data"
	ErrorTypeDecode        = "decode"
	ErrorTypeOutput        = "output"
	ErrorTypeOther         = "other"
)
