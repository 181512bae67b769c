// Package app assembles the control state, scheduler, dispatch loop and
// telemetry plumbing from the configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apiplanlog "github.com/gridpilot/gridpilot/api/planlog"
	"github.com/gridpilot/gridpilot/config"
	"github.com/gridpilot/gridpilot/core/control"
	"github.com/gridpilot/gridpilot/core/dispatch"
	"github.com/gridpilot/gridpilot/core/logger"
	coremetrics "github.com/gridpilot/gridpilot/core/metrics"
	"github.com/gridpilot/gridpilot/core/planlog"
	"github.com/gridpilot/gridpilot/core/scheduler"
	"github.com/gridpilot/gridpilot/infra/backend"
	"github.com/gridpilot/gridpilot/infra/device"
	"github.com/gridpilot/gridpilot/infra/forecast"
	infralogger "github.com/gridpilot/gridpilot/infra/logger"
	"github.com/gridpilot/gridpilot/infra/metrics"
	"github.com/gridpilot/gridpilot/infra/mqtt"
	"github.com/gridpilot/gridpilot/internal/eventbus"
)

// Service owns the running control loop and its collaborators.
type Service struct {
	State        *control.State
	Orchestrator *scheduler.Orchestrator
	dispatchLoop *dispatch.Loop
	mqttClient   *mqtt.Client
	store        planlog.Store
	sink         coremetrics.MetricsSink
	bus          eventbus.EventBus
	log          logger.Logger
	promEnabled  bool
	promPort     string
	api          config.APIConfig
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := infralogger.New("service")
	bus := eventbus.New()

	st := control.New(cfg.Control, infralogger.New("control"), bus)

	opt, err := backend.New(cfg.Backend, cfg.Control.SlotDuration, infralogger.New("backend"))
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	var store planlog.Store
	switch cfg.Logging.Backend {
	case "sqlite":
		store, err = planlog.NewSQLiteStore(cfg.Logging.Path)
	default:
		store, err = planlog.NewJSONLStore(cfg.Logging.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("plan log: %w", err)
	}

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics, infralogger.New("influx")))
	}
	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	tel := device.NewHTTP(cfg.Device, infralogger.New("device"))
	pv, load, gridPrice, feedIn, temp := forecast.Build(cfg.Forecast, infralogger.New("forecast"))
	prov := scheduler.Providers{
		PV:          pv,
		Load:        load,
		GridPrice:   gridPrice,
		FeedInPrice: feedIn,
		Temperature: temp,
	}

	orch := scheduler.New(cfg.Scheduler, cfg.Control.SlotDuration, opt, st, tel, prov,
		store, sink, bus, infralogger.New("scheduler"))

	var ctrl dispatch.InverterController = device.NopInverter{}
	if cfg.Device.ControlURL != "" {
		ctrl = device.NewHTTPInverter(cfg.Device, infralogger.New("inverter"))
	}
	loop := dispatch.NewLoop(st, ctrl, 0, infralogger.New("dispatch"))

	svc := &Service{
		State:        st,
		Orchestrator: orch,
		dispatchLoop: loop,
		store:        store,
		sink:         sink,
		bus:          bus,
		log:          logg,
		promEnabled:  cfg.Metrics.PrometheusEnabled,
		promPort:     cfg.Metrics.PrometheusPort,
		api:          cfg.API,
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(cfg.MQTT, infralogger.New("mqtt"))
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		if err := client.SubscribeCommands(st); err != nil {
			return nil, fmt.Errorf("mqtt subscribe: %w", err)
		}
		svc.mqttClient = client
	}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go metrics.Collect(ctx, s.bus, s.sink, s.log)
	if s.mqttClient != nil {
		go s.mqttClient.PublishLoop(ctx, s.bus, s.State.Snapshot)
	}
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.api.Enabled {
		go func() {
			if err := s.serveAPI(ctx); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	go func() {
		if err := s.dispatchLoop.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Errorf("dispatch loop: %v", err)
		}
	}()
	return s.Orchestrator.Run(ctx)
}

// serveAPI exposes the persisted cycle records until the context is
// cancelled.
func (s *Service) serveAPI(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/api/plan/records", apiplanlog.NewHandler(s.store, s.api.Token))
	srv := &http.Server{Addr: s.api.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqttClient != nil {
		s.mqttClient.Close()
	}
	s.bus.Close()
	return s.store.Close()
}
