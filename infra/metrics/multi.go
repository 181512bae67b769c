package metrics

import (
	"errors"

	coremetrics "github.com/gridpilot/gridpilot/core/metrics"
)

// MultiSink fans records out to several sinks; every sink sees every record
// even when one fails.
type MultiSink struct {
	sinks []coremetrics.MetricsSink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordCycle forwards to all sinks and joins their errors.
func (m *MultiSink) RecordCycle(rec coremetrics.CycleRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordCycle(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordState forwards to all sinks implementing StateRecorder.
func (m *MultiSink) RecordState(rec coremetrics.StateRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if sr, ok := s.(coremetrics.StateRecorder); ok {
			if err := sr.RecordState(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordSOCForecast forwards to all sinks implementing SOCRecorder.
func (m *MultiSink) RecordSOCForecast(rec coremetrics.SOCRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if sr, ok := s.(coremetrics.SOCRecorder); ok {
			if err := sr.RecordSOCForecast(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
