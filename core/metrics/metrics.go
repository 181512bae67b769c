// Package metrics defines the observability interfaces for the dispatch
// loop. Sinks like the Prometheus and Influx implementations in infra/metrics
// record cycle results and state transitions and can be combined with a
// multi-sink.
package metrics

import (
	"time"

	"github.com/gridpilot/gridpilot/core/model"
)

// CycleRecord captures one optimizer cycle.
type CycleRecord struct {
	RequestID   string
	Backend     string
	Kind        string // "quarter_aligned", "gap_fill" or "manual"
	Runtime     time.Duration
	Slots       int
	TotalCost   float64
	TotalRev    float64
	MeanPriceCt float64
	Err         string
	Time        time.Time
}

// StateRecord captures a derived overall-state transition.
type StateRecord struct {
	From model.OverallState
	To   model.OverallState
	Time time.Time
}

// SOCRecord captures the optimizer's SOC forecast for telemetry.
type SOCRecord struct {
	RequestID string
	SOCPct    []float64
	Time      time.Time
}

// MetricsSink records cycle results for observability purposes.
type MetricsSink interface {
	RecordCycle(rec CycleRecord) error
}

// StateRecorder records overall-state transitions.
type StateRecorder interface {
	RecordState(rec StateRecord) error
}

// SOCRecorder records SOC forecasts.
type SOCRecorder interface {
	RecordSOCForecast(rec SOCRecord) error
}

// NopSink discards everything. Used when no sink is configured or a sink is
// unreachable at startup.
type NopSink struct{}

func (NopSink) RecordCycle(CycleRecord) error     { return nil }
func (NopSink) RecordState(StateRecord) error     { return nil }
func (NopSink) RecordSOCForecast(SOCRecord) error { return nil }

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}
