package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/gridpilot/gridpilot/core/logger"
	coremetrics "github.com/gridpilot/gridpilot/core/metrics"
)

// InfluxSink writes dispatch-loop events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config, log logger.Logger) *InfluxSink {
	if log == nil {
		log = logger.Nop{}
	}
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing Influx never blocks
// dispatch.
func NewInfluxSinkWithFallback(cfg coremetrics.Config, log logger.Logger) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCycle writes one optimizer cycle as line protocol.
func (s *InfluxSink) RecordCycle(rec coremetrics.CycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimizer_cycle").
		AddTag("backend", rec.Backend).
		AddTag("kind", rec.Kind).
		AddTag("failed", strconv.FormatBool(rec.Err != "")).
		AddField("runtime_s", rec.Runtime.Seconds()).
		AddField("slots", rec.Slots).
		AddField("total_cost", rec.TotalCost).
		AddField("total_revenue", rec.TotalRev).
		AddField("mean_price", rec.MeanPriceCt).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordState writes a state transition event.
func (s *InfluxSink) RecordState(rec coremetrics.StateRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("control_state").
		AddTag("from", rec.From.String()).
		AddTag("to", rec.To.String()).
		AddField("value", 1).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSOCForecast writes the plan's SOC trajectory, one point per slot.
func (s *InfluxSink) RecordSOCForecast(rec coremetrics.SOCRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i, v := range rec.SOCPct {
		p := write.NewPointWithMeasurement("plan_soc_forecast").
			AddTag("request_id", rec.RequestID).
			AddField("slot", i).
			AddField("soc_percent", v).
			SetTime(rec.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
