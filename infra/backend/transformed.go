package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/gridpilot/gridpilot/auth"
	corebackend "github.com/gridpilot/gridpilot/core/backend"
	"github.com/gridpilot/gridpilot/core/logger"
	"github.com/gridpilot/gridpilot/core/model"
)

// TransformedConfig configures the Transformed adapter.
type TransformedConfig struct {
	BaseURL string    `json:"base_url"`
	Auth    auth.Conf `json:"auth"`
}

// Transformed targets a rolling-horizon backend whose arrays start at the
// current slot instead of midnight: 48 entries for hourly slots, 192 for
// 15-minute slots. The adapter re-slices, pads and re-aligns both ways so
// callers only ever see the canonical midnight-aligned format.
type Transformed struct {
	corebackend.RuntimeTracker
	cfg     TransformedConfig
	slotDur time.Duration
	client  *http.Client
	log     logger.Logger
	now     func() time.Time
}

// NewTransformed creates the adapter for the given planning slot duration.
func NewTransformed(cfg TransformedConfig, slotDur time.Duration, log logger.Logger) *Transformed {
	if log == nil {
		log = logger.Nop{}
	}
	t := &Transformed{
		cfg:     cfg,
		slotDur: slotDur,
		client:  &http.Client{},
		log:     log,
		now:     time.Now,
	}
	if cfg.Auth.Enabled() {
		t.client.Transport = auth.NewClientCred(cfg.Auth).Transport(nil)
	}
	return t
}

// Name identifies the adapter in logs and metrics.
func (t *Transformed) Name() string { return "transformed" }

// horizon returns the backend's fixed array length.
func (t *Transformed) horizon() int {
	return int(time.Duration(model.HorizonHours) * time.Hour / t.slotDur)
}

type wireBattery struct {
	CapacityWh     float64 `json:"capacity_wh"`
	SOCWh          float64 `json:"soc_wh"`
	SOCMinWh       float64 `json:"soc_min_wh"`
	SOCMaxWh       float64 `json:"soc_max_wh"`
	PChargeMaxW    float64 `json:"p_charge_max_w"`
	PDischargeMaxW float64 `json:"p_discharge_max_w"`
	EtaCharge      float64 `json:"eta_charge"`
	EtaDischarge   float64 `json:"eta_discharge"`
}

type wireRequest struct {
	TimestepS   []float64   `json:"timestep_seconds"`
	PVW         []float64   `json:"pv_w"`
	LoadW       []float64   `json:"load_w"`
	PriceImport []float64   `json:"price_import"`
	PriceExport []float64   `json:"price_export"`
	TempC       []float64   `json:"temp_c"`
	Battery     wireBattery `json:"battery"`
	WarmStart   []float64   `json:"warm_start,omitempty"`
}

type wireResponse struct {
	Status          string    `json:"status"`
	ChargePowerW    []float64 `json:"charging_power_w"`
	DischargePowerW []float64 `json:"discharging_power_w"`
	GridImportW     []float64 `json:"grid_import_w"`
	GridExportW     []float64 `json:"grid_export_w"`
	SOCWh           []float64 `json:"soc_wh"`
	Cost            []float64 `json:"cost"`
	Revenue         []float64 `json:"revenue"`
	WarmStart       []float64 `json:"warm_start"`
}

// Optimize converts the canonical request to the rolling-horizon wire format,
// calls the backend and converts the response back.
func (t *Transformed) Optimize(ctx context.Context, req model.OptimizeRequest) (*model.OptimizeResponse, error) {
	now := t.now()
	wire := t.toWire(req, now)

	start := time.Now()
	var resp wireResponse
	err := doJSON(ctx, t.client, t.Name(), http.MethodPost, t.cfg.BaseURL+"/optimize", wire, &resp)
	t.Observe(time.Since(start))
	if err != nil {
		var se *httpStatusError
		if errors.As(err, &se) {
			if se.status >= 500 {
				return nil, corebackend.NewOptimizationError(t.Name(), fmt.Sprintf("status %d", se.status), se)
			}
			return nil, corebackend.NewValidationError(fmt.Sprintf("status %d", se.status), se)
		}
		return nil, err
	}
	return t.fromWire(resp, now, req.Battery)
}

// toWire slices the midnight-aligned arrays at the current slot and pads to
// the fixed horizon. The first timestep is only the remainder of the current
// slot so the backend's time integration is correct from "now".
func (t *Transformed) toWire(req model.OptimizeRequest, now time.Time) wireRequest {
	n := t.horizon()
	idx := model.SlotIndex(now, t.slotDur)
	slotSec := t.slotDur.Seconds()

	steps := make([]float64, n)
	sinceMidnight := now.Sub(model.Midnight(now)).Seconds()
	steps[0] = slotSec - math.Mod(sinceMidnight, slotSec)
	for i := 1; i < n; i++ {
		steps[i] = slotSec
	}

	bat := req.Battery
	socWh := bat.SOCPercent / 100 * bat.CapacityWh
	minWh := bat.MinSOCPercent / 100 * bat.CapacityWh
	maxWh := bat.MaxSOCPercent / 100 * bat.CapacityWh
	if socWh < minWh || socWh > maxWh {
		clamped := math.Min(math.Max(socWh, minWh), maxWh)
		t.log.Warnf("initial soc %.0f Wh outside [%.0f, %.0f], clamping to %.0f",
			socWh, minWh, maxWh, clamped)
		socWh = clamped
	}

	return wireRequest{
		TimestepS:   steps,
		PVW:         sliceRepeat(req.PVForecastW, idx, n),
		LoadW:       sliceRepeat(req.LoadForecastW, idx, n),
		PriceImport: sliceRepeat(req.GridPrice, idx, n),
		PriceExport: sliceRepeat(req.FeedInPrice, idx, n),
		TempC:       sliceRepeat(req.TempForecastC, idx, n),
		Battery: wireBattery{
			CapacityWh:     bat.CapacityWh,
			SOCWh:          socWh,
			SOCMinWh:       minWh,
			SOCMaxWh:       maxWh,
			PChargeMaxW:    bat.MaxChargePowerW,
			PDischargeMaxW: req.InverterMaxW,
			EtaCharge:      bat.ChargeEfficiency,
			EtaDischarge:   bat.DischargeEfficiency,
		},
		WarmStart: sliceZero(req.WarmStart, idx, n),
	}
}

// fromWire re-aligns the rolling-horizon response to midnight. Control and
// warm-start arrays are zero-padded over the already-elapsed part of today;
// analytics arrays stay defined from "now" onward, as the solver meant them.
func (t *Transformed) fromWire(resp wireResponse, now time.Time, bat model.BatteryParams) (*model.OptimizeResponse, error) {
	switch resp.Status {
	case "", "ok", "optimal":
	case "infeasible":
		// a plan that cannot exist must not look like one
		t.log.Warnf("backend reported infeasible problem, returning no-op plan")
		return &model.OptimizeResponse{}, corebackend.NewOptimizationError(t.Name(), "infeasible", nil)
	default:
		return nil, corebackend.NewOptimizationError(t.Name(), resp.Status, nil)
	}
	if len(resp.ChargePowerW) == 0 || len(resp.DischargePowerW) == 0 {
		return nil, corebackend.NewValidationError("missing power arrays", nil)
	}

	slots := t.horizon()
	idx := model.SlotIndex(now, t.slotDur)
	cMax := bat.MaxChargePowerW

	out := &model.OptimizeResponse{
		ACCharge:         make([]float64, slots),
		DCCharge:         make([]float64, slots),
		DischargeAllowed: make([]bool, slots),
		WarmStart:        make([]float64, slots),
	}
	for i := 0; i < len(resp.ChargePowerW); i++ {
		pos := idx + i
		if pos >= slots {
			break
		}
		charge := resp.ChargePowerW[i]
		var imp float64
		if i < len(resp.GridImportW) {
			imp = resp.GridImportW[i]
		}
		if imp > 0 && cMax > 0 {
			out.ACCharge[pos] = math.Min(charge, imp) / cMax
		}
		if charge > 0 {
			out.DCCharge[pos] = 1
		}
		if i < len(resp.DischargePowerW) && resp.DischargePowerW[i] > 0 {
			out.DischargeAllowed[pos] = true
		}
		if i < len(resp.WarmStart) {
			out.WarmStart[pos] = resp.WarmStart[i]
		}
	}

	socPct := make([]float64, len(resp.SOCWh))
	for i, wh := range resp.SOCWh {
		if bat.CapacityWh > 0 {
			// full capacity, not the solver's usable window, or the
			// percentage skews high
			socPct[i] = wh / bat.CapacityWh * 100
		}
	}
	out.Result = model.PlanResult{
		CostPerSlot:    resp.Cost,
		RevenuePerSlot: resp.Revenue,
		SOCPerSlot:     socPct,
	}
	if len(resp.Cost) > 0 {
		out.Result.TotalCost = floats.Sum(resp.Cost)
	}
	if len(resp.Revenue) > 0 {
		out.Result.TotalRevenue = floats.Sum(resp.Revenue)
	}
	return out, nil
}

// sliceRepeat returns values[idx:] normalized to n entries, repeating the
// last value to pad.
func sliceRepeat(values []float64, idx, n int) []float64 {
	if idx < len(values) {
		values = values[idx:]
	} else {
		values = nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case i < len(values):
			out[i] = values[i]
		case len(values) > 0:
			out[i] = values[len(values)-1]
		}
	}
	return out
}

// sliceZero returns values[idx:] truncated or zero-padded to n entries.
func sliceZero(values []float64, idx, n int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if idx < len(values) {
		values = values[idx:]
	} else {
		values = nil
	}
	out := make([]float64, n)
	copy(out, values)
	return out
}
