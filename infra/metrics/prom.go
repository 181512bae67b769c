// Package metrics provides the Prometheus and InfluxDB implementations of
// the core metrics sinks.
package metrics

import (
	coremetrics "github.com/gridpilot/gridpilot/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records dispatch-loop events in Prometheus metrics.
type PromSink struct {
	cycles  *prometheus.CounterVec
	runtime *prometheus.HistogramVec
	cost    prometheus.Gauge
	state   *prometheus.GaugeVec
	socMean prometheus.Gauge
}

// NewPromSink registers the dispatch metrics on the default Prometheus
// registerer. The metrics server is started separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_cycles_total",
		Help: "Total number of optimizer cycles",
	}, []string{"backend", "kind", "failed"})
	runtime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimizer_runtime_seconds",
		Help:    "Duration of one optimizer call",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	}, []string{"backend", "kind"})
	cost := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plan_total_cost",
		Help: "Total cost of the latest accepted plan",
	})
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "control_overall_state",
		Help: "Current overall state, one-hot per state name",
	}, []string{"state"})
	socMean := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plan_soc_forecast_mean_percent",
		Help: "Mean forecast battery SOC of the latest plan",
	})

	for _, c := range []prometheus.Collector{cycles, runtime, cost, state, socMean} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{cycles: cycles, runtime: runtime, cost: cost, state: state, socMean: socMean}, nil
}

// RecordCycle counts the cycle and observes its runtime.
func (s *PromSink) RecordCycle(rec coremetrics.CycleRecord) error {
	failed := "false"
	if rec.Err != "" {
		failed = "true"
	}
	s.cycles.WithLabelValues(rec.Backend, rec.Kind, failed).Inc()
	s.runtime.WithLabelValues(rec.Backend, rec.Kind).Observe(rec.Runtime.Seconds())
	if rec.Err == "" {
		s.cost.Set(rec.TotalCost)
	}
	return nil
}

// RecordState flips the one-hot state gauge.
func (s *PromSink) RecordState(rec coremetrics.StateRecord) error {
	s.state.WithLabelValues(rec.From.String()).Set(0)
	s.state.WithLabelValues(rec.To.String()).Set(1)
	return nil
}

// RecordSOCForecast sets the mean SOC gauge.
func (s *PromSink) RecordSOCForecast(rec coremetrics.SOCRecord) error {
	if len(rec.SOCPct) == 0 {
		return nil
	}
	var sum float64
	for _, v := range rec.SOCPct {
		sum += v
	}
	s.socMean.Set(sum / float64(len(rec.SOCPct)))
	return nil
}
