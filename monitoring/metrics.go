// Package monitoring tracks service counters and streams prediction
// events to live observers.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Metrics is a set of process-lifetime counters. All methods are safe
// for concurrent use.
type Metrics struct {
	startTime time.Time

	requestsTotal      atomic.Int64
	validationFailures atomic.Int64
	predictionsServed  atomic.Int64
	delayedPredicted   atomic.Int64
	unknownCategories  atomic.Int64
	trainingRuns       atomic.Int64
	trainingFailures   atomic.Int64
}

// MetricsSnapshot is the JSON view of the counters.
type MetricsSnapshot struct {
	UptimeSeconds      int64 `json:"uptime_seconds"`
	RequestsTotal      int64 `json:"requests_total"`
	ValidationFailures int64 `json:"validation_failures"`
	PredictionsServed  int64 `json:"predictions_served"`
	DelayedPredicted   int64 `json:"delayed_predicted"`
	UnknownCategories  int64 `json:"unknown_categories"`
	TrainingRuns       int64 `json:"training_runs"`
	TrainingFailures   int64 `json:"training_failures"`
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) IncRequests()           { m.requestsTotal.Add(1) }
func (m *Metrics) IncValidationFailures() { m.validationFailures.Add(1) }
func (m *Metrics) IncTrainingRuns()       { m.trainingRuns.Add(1) }
func (m *Metrics) IncTrainingFailures()   { m.trainingFailures.Add(1) }

// IncUnknownCategory counts one inference-time category value that fell
// outside the training vocabulary. A rising rate here usually means data
// drift, not client error.
func (m *Metrics) IncUnknownCategory() { m.unknownCategories.Add(1) }

// AddPredictions records a served batch.
func (m *Metrics) AddPredictions(total, delayed int) {
	m.predictionsServed.Add(int64(total))
	m.delayedPredicted.Add(int64(delayed))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds:      int64(time.Since(m.startTime).Seconds()),
		RequestsTotal:      m.requestsTotal.Load(),
		ValidationFailures: m.validationFailures.Load(),
		PredictionsServed:  m.predictionsServed.Load(),
		DelayedPredicted:   m.delayedPredicted.Load(),
		UnknownCategories:  m.unknownCategories.Load(),
		TrainingRuns:       m.trainingRuns.Load(),
		TrainingFailures:   m.trainingFailures.Load(),
	}
}
