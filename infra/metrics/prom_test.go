package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/gridpilot/gridpilot/core/metrics"
	"github.com/gridpilot/gridpilot/core/model"
)

func TestPromSinkRecordCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	rec := coremetrics.CycleRecord{
		RequestID: "req-1",
		Backend:   "direct",
		Kind:      "quarter_aligned",
		Runtime:   12 * time.Second,
		TotalCost: 3.5,
		Time:      time.Now(),
	}
	if err := sink.RecordCycle(rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	expected := `
# HELP optimizer_cycles_total Total number of optimizer cycles
# TYPE optimizer_cycles_total counter
optimizer_cycles_total{backend="direct",failed="false",kind="quarter_aligned"} 1
`
	if err := testutil.CollectAndCompare(sink.cycles, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.cost); v != 3.5 {
		t.Errorf("cost gauge = %v, want 3.5", v)
	}
	if c := testutil.CollectAndCount(sink.runtime); c == 0 {
		t.Errorf("runtime not recorded")
	}
}

func TestPromSinkFailedCycleKeepsCost(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	if err := sink.RecordCycle(coremetrics.CycleRecord{Backend: "direct", Kind: "manual", TotalCost: 2}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordCycle(coremetrics.CycleRecord{Backend: "direct", Kind: "manual", Err: "boom"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if v := testutil.ToFloat64(sink.cost); v != 2 {
		t.Errorf("cost gauge = %v, failed cycle must not reset it", v)
	}
}

func TestPromSinkRecordState(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	rec := coremetrics.StateRecord{
		From: model.StateAvoidDischarge,
		To:   model.StateChargeFromGrid,
		Time: time.Now(),
	}
	if err := sink.RecordState(rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if v := testutil.ToFloat64(sink.state.WithLabelValues(model.StateChargeFromGrid.String())); v != 1 {
		t.Errorf("new state gauge = %v, want 1", v)
	}
	if v := testutil.ToFloat64(sink.state.WithLabelValues(model.StateAvoidDischarge.String())); v != 0 {
		t.Errorf("old state gauge = %v, want 0", v)
	}
}

func TestPromSinkRecordSOCForecast(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	if err := sink.RecordSOCForecast(coremetrics.SOCRecord{SOCPct: []float64{40, 60}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if v := testutil.ToFloat64(sink.socMean); v != 50 {
		t.Errorf("soc mean = %v, want 50", v)
	}
}
