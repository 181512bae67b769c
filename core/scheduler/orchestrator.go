package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridpilot/gridpilot/core/backend"
	"github.com/gridpilot/gridpilot/core/control"
	"github.com/gridpilot/gridpilot/core/device"
	"github.com/gridpilot/gridpilot/core/events"
	"github.com/gridpilot/gridpilot/core/forecast"
	"github.com/gridpilot/gridpilot/core/logger"
	"github.com/gridpilot/gridpilot/core/metrics"
	"github.com/gridpilot/gridpilot/core/model"
	"github.com/gridpilot/gridpilot/core/planlog"
	"github.com/gridpilot/gridpilot/internal/eventbus"
)

// ErrCycleInFlight is returned when a cycle is requested while another one is
// still running. The caller defers, never runs two concurrently.
var ErrCycleInFlight = errors.New("optimizer cycle already in flight")

// Providers bundles the forecast collaborators feeding the request builder.
type Providers struct {
	PV          forecast.Provider
	GridPrice   forecast.Provider
	FeedInPrice forecast.Provider
	Load        forecast.Provider
	Temperature forecast.Provider
}

// slotControl is one buffered slot worth of control values, keyed by the
// slot's index into the midnight-aligned plan arrays.
type slotControl struct {
	index     int
	ac        float64
	dc        float64
	discharge bool
	valid     bool
}

// Orchestrator owns the solver-call cycle and the fast re-application tick.
// Only the cycle may block on network I/O.
type Orchestrator struct {
	cfg       Config
	log       logger.Logger
	bus       eventbus.EventBus
	opt       backend.Optimizer
	state     *control.State
	telemetry device.Telemetry
	providers Providers
	slotDur   time.Duration
	store     planlog.Store
	sink      metrics.MetricsSink
	now       func() time.Time

	runMu   sync.Mutex // held while a cycle runs
	bufMu   sync.Mutex // guards buffer, plan day and warm start
	buf     [2]slotControl
	planDay time.Time // midnight the buffered plan is aligned to
	warm    []float64
}

// New creates an Orchestrator. store and sink may be nil.
func New(cfg Config, slotDur time.Duration, opt backend.Optimizer, st *control.State,
	tel device.Telemetry, prov Providers, store planlog.Store, sink metrics.MetricsSink,
	bus eventbus.EventBus, log logger.Logger) *Orchestrator {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	o := &Orchestrator{
		cfg:       cfg,
		log:       log,
		bus:       bus,
		opt:       opt,
		state:     st,
		telemetry: tel,
		providers: prov,
		slotDur:   slotDur,
		store:     store,
		sink:      sink,
		now:       time.Now,
	}
	return o
}

// slots returns the number of canonical horizon slots.
func (o *Orchestrator) slots() int {
	return int(time.Duration(model.HorizonHours) * time.Hour / o.slotDur)
}

// planIndex maps t onto the midnight-aligned plan arrays of day.
func planIndex(t, day time.Time, slot time.Duration) int {
	return int(t.Sub(day) / slot)
}

// Run starts the cycle loop and the fast tick and blocks until the context is
// cancelled. The first cycle runs immediately.
func (o *Orchestrator) Run(ctx context.Context) error {
	go o.tickLoop(ctx)

	if err := o.runCycle(ctx, RunManual); err != nil {
		o.log.Errorf("initial cycle: %v", err)
	}
	for {
		runAt, kind := NextRun(o.now(), o.opt.AverageRuntime(), o.cfg.Interval())
		o.log.Debugw("next cycle scheduled", map[string]any{
			"at":   runAt.Format(time.RFC3339),
			"kind": string(kind),
		})
		timer := time.NewTimer(time.Until(runAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if err := o.runCycle(ctx, kind); err != nil {
				if errors.Is(err, ErrCycleInFlight) {
					// defer, the loop reschedules shortly
					time.Sleep(time.Duration(o.cfg.DeferSeconds) * time.Second)
					continue
				}
				o.log.Errorf("cycle failed: %v", err)
			}
		}
	}
}

// RunCycle runs one optimizer cycle outside the regular cadence, e.g. from
// the CLI. It returns ErrCycleInFlight instead of overlapping.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	return o.runCycle(ctx, RunManual)
}

func (o *Orchestrator) runCycle(ctx context.Context, kind RunKind) error {
	if !o.runMu.TryLock() {
		return ErrCycleInFlight
	}
	defer o.runMu.Unlock()

	req := o.buildRequest(ctx)
	start := o.now()

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout())
	resp, err := o.opt.Optimize(callCtx, req)
	cancel()
	runtime := o.now().Sub(start)

	if err == nil {
		if verr := resp.Validate(req.Slots()); verr != nil {
			err = backend.NewValidationError("control arrays", verr)
		}
	}
	o.record(req, resp, kind, runtime, err)
	if err != nil {
		// last good control snapshot stays in place, next cadence retries
		return err
	}

	o.applyResponse(resp, start)
	return nil
}

// buildRequest assembles the canonical request from forecasts, telemetry and
// the stored warm start. Short or empty forecasts are padded defensively; a
// forecast failure must never kill the cycle.
func (o *Orchestrator) buildRequest(ctx context.Context) model.OptimizeRequest {
	slots := o.slots()
	req := model.OptimizeRequest{
		ID:            uuid.NewString(),
		SlotDuration:  o.slotDur,
		Battery:       o.cfg.Battery,
		InverterMaxW:  o.cfg.InverterMaxW,
		PVForecastW:   o.fetch(ctx, o.providers.PV, "pv", slots, 0),
		GridPrice:     o.fetch(ctx, o.providers.GridPrice, "grid_price", slots, 0),
		FeedInPrice:   o.fetch(ctx, o.providers.FeedInPrice, "feed_in_price", slots, 0),
		LoadForecastW: o.fetch(ctx, o.providers.Load, "load", slots, 0),
		TempForecastC: o.fetch(ctx, o.providers.Temperature, "temperature", slots, 20),
	}

	if o.telemetry != nil {
		if soc, err := o.telemetry.CurrentSOC(ctx); err == nil {
			req.Battery.SOCPercent = soc
		} else {
			o.log.Warnf("soc read failed, using %.1f%%: %v", req.Battery.SOCPercent, err)
		}
		if maxW, err := o.telemetry.MaxChargePower(ctx); err == nil && maxW > 0 {
			req.Battery.MaxChargePowerW = maxW
			o.state.SetBatteryMaxChargePower(maxW)
		}
		if active, mode, err := o.telemetry.EvccState(ctx); err == nil {
			o.state.SetEvccState(active, model.ParseEvccMode(mode))
		}
	}
	// conversion reference for the whole coming plan window
	o.state.SetReferenceMaxChargePower(req.Battery.MaxChargePowerW)

	o.bufMu.Lock()
	req.WarmStart = o.warm
	o.bufMu.Unlock()
	return req
}

func (o *Orchestrator) fetch(ctx context.Context, p forecast.Provider, name string, slots int, fill float64) []float64 {
	if p == nil {
		return forecast.Normalize(nil, slots, fill)
	}
	values, err := p.Forecast(ctx, slots)
	if err != nil {
		o.log.Warnf("forecast %s unavailable: %v", name, err)
	}
	if len(values) < slots {
		o.log.Debugf("forecast %s short (%d/%d), padding", name, len(values), slots)
	}
	return forecast.Normalize(values, slots, fill)
}

// applyResponse stores the warm start, fills the two-slot buffer and applies
// the "now" slot to the control state.
func (o *Orchestrator) applyResponse(resp *model.OptimizeResponse, at time.Time) {
	day := model.Midnight(at)
	idx := planIndex(at, day, o.slotDur)

	o.bufMu.Lock()
	o.warm = resp.WarmStart
	o.planDay = day
	o.buf[0] = slotControl{
		index:     idx,
		ac:        resp.ACCharge[idx],
		dc:        resp.DCCharge[idx],
		discharge: resp.DischargeAllowed[idx],
		valid:     true,
	}
	o.buf[1] = slotControl{valid: false}
	if idx+1 < len(resp.ACCharge) {
		o.buf[1] = slotControl{
			index:     idx + 1,
			ac:        resp.ACCharge[idx+1],
			dc:        resp.DCCharge[idx+1],
			discharge: resp.DischargeAllowed[idx+1],
			valid:     true,
		}
	}
	cur := o.buf[0]
	o.bufMu.Unlock()

	o.apply(cur)
}

func (o *Orchestrator) apply(sc slotControl) {
	o.state.SetChargeDemand(sc.ac, model.ChargeAC)
	o.state.SetChargeDemand(sc.dc, model.ChargeDC)
	o.state.SetDischargeAllowed(sc.discharge)
}

// tickLoop re-applies buffered control values whenever the wall-clock slot
// advances, so control stays correct between solver calls. It never blocks on
// I/O.
func (o *Orchestrator) tickLoop(ctx context.Context) {
	tick := time.NewTicker(time.Duration(o.cfg.TickSeconds) * time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			o.Tick()
		}
	}
}

// Tick applies the buffered slot matching the current wall clock, promoting
// the "next" slot once its time has come. Safe to call from tests directly.
func (o *Orchestrator) Tick() {
	o.bufMu.Lock()
	var toApply slotControl
	if o.planDay.IsZero() {
		o.bufMu.Unlock()
		return
	}
	idx := planIndex(o.now(), o.planDay, o.slotDur)
	switch {
	case o.buf[0].valid && o.buf[0].index == idx:
		toApply = o.buf[0]
	case o.buf[1].valid && o.buf[1].index == idx:
		o.buf[0] = o.buf[1]
		o.buf[1] = slotControl{valid: false}
		toApply = o.buf[0]
		o.log.Infof("slot advanced to %d, applying buffered plan values", idx)
	}
	o.bufMu.Unlock()

	if toApply.valid {
		o.apply(toApply)
	}
}

// record logs, persists and publishes the cycle outcome.
func (o *Orchestrator) record(req model.OptimizeRequest, resp *model.OptimizeResponse,
	kind RunKind, runtime time.Duration, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	var sum Summary
	if err == nil && resp != nil {
		sum = Summarize(resp.Result, req.GridPrice)
	}

	if o.bus != nil {
		o.bus.Publish(events.CycleEvent{
			RequestID: req.ID,
			Kind:      string(kind),
			Runtime:   runtime,
			TotalCost: sum.TotalCost,
			Err:       err,
		})
	}
	if o.sink != nil {
		rec := metrics.CycleRecord{
			RequestID:   req.ID,
			Backend:     o.opt.Name(),
			Kind:        string(kind),
			Runtime:     runtime,
			Slots:       req.Slots(),
			TotalCost:   sum.TotalCost,
			TotalRev:    sum.TotalRevenue,
			MeanPriceCt: sum.MeanPrice,
			Err:         errStr,
			Time:        o.now(),
		}
		if serr := o.sink.RecordCycle(rec); serr != nil {
			o.log.Errorf("metrics sink: %v", serr)
		}
		if sr, ok := o.sink.(metrics.SOCRecorder); ok && err == nil && resp != nil {
			if rerr := sr.RecordSOCForecast(metrics.SOCRecord{
				RequestID: req.ID,
				SOCPct:    resp.Result.SOCPerSlot,
				Time:      o.now(),
			}); rerr != nil {
				o.log.Errorf("soc metrics: %v", rerr)
			}
		}
	}
	if o.store != nil {
		rec := planlog.Record{
			Timestamp: o.now(),
			RequestID: req.ID,
			Backend:   o.opt.Name(),
			Kind:      string(kind),
			Runtime:   runtime,
			Slots:     req.Slots(),
			TotalCost: sum.TotalCost,
			TotalRev:  sum.TotalRevenue,
			Error:     errStr,
		}
		if serr := o.store.Append(context.Background(), rec); serr != nil {
			o.log.Errorf("plan log: %v", serr)
		}
	}
	if err != nil {
		o.log.Warnf("cycle %s (%s) failed after %s: %v", req.ID, kind, runtime, err)
		return
	}
	o.log.Infof("cycle %s (%s) done in %s, cost=%.2f", req.ID, kind, runtime, sum.TotalCost)
}
