package metrics

import (
	"errors"
	"testing"

	coremetrics "github.com/gridpilot/gridpilot/core/metrics"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordCycle(coremetrics.CycleRecord) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordState(coremetrics.StateRecord) error {
	r.count++
	return r.err
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordCycle(coremetrics.CycleRecord{}); err != nil {
		t.Fatalf("record cycle: %v", err)
	}
	if err := m.RecordState(coremetrics.StateRecord{}); err != nil {
		t.Fatalf("record state: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("records not forwarded")
	}
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	err := m.RecordCycle(coremetrics.CycleRecord{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if s2.count != 1 {
		t.Fatalf("second sink skipped after first failed")
	}
}

func TestMultiSinkSkipsNonRecorders(t *testing.T) {
	// a sink without SOC support must not break the fan-out
	m := NewMultiSink(coremetrics.NopSink{}, &recordSink{})
	if err := m.RecordSOCForecast(coremetrics.SOCRecord{}); err != nil {
		t.Fatalf("soc fan-out: %v", err)
	}
}
