package model

import (
	"fmt"
	"time"
)

// HorizonHours is the canonical planning horizon covered by every request and
// response, starting at local midnight of the current day.
const HorizonHours = 48

// ChargeKind distinguishes grid (AC) charging from PV (DC) charging demands.
type ChargeKind int

const (
	ChargeAC ChargeKind = iota
	ChargeDC
)

// String returns "ac" or "dc".
func (k ChargeKind) String() string {
	if k == ChargeDC {
		return "dc"
	}
	return "ac"
}

// BatteryParams describes the storage system as seen by the optimizer.
type BatteryParams struct {
	CapacityWh          float64 `json:"capacity_wh"`
	ChargeEfficiency    float64 `json:"charge_efficiency"`
	DischargeEfficiency float64 `json:"discharge_efficiency"`
	SOCPercent          float64 `json:"soc_percent"`
	MinSOCPercent       float64 `json:"min_soc_percent"`
	MaxSOCPercent       float64 `json:"max_soc_percent"`
	MaxChargePowerW     float64 `json:"max_charge_power_w"`
}

// EVParams describes an attached EV charging session, if any.
type EVParams struct {
	CapacityWh       float64 `json:"capacity_wh"`
	ChargeEfficiency float64 `json:"charge_efficiency"`
	SOCPercent       float64 `json:"soc_percent"`
	MinSOCPercent    float64 `json:"min_soc_percent"`
	MaxChargePowerW  float64 `json:"max_charge_power_w"`
}

// ApplianceParams describes one flexible home appliance run the optimizer may
// place anywhere in the horizon.
type ApplianceParams struct {
	ConsumptionWh float64 `json:"consumption_wh"`
	DurationH     int     `json:"duration_h"`
}

// OptimizeRequest is the canonical, backend-agnostic optimization request.
// All per-slot series are midnight-aligned and cover the full horizon.
type OptimizeRequest struct {
	ID            string          `json:"id"`
	SlotDuration  time.Duration   `json:"-"`
	PVForecastW   []float64       `json:"pv_forecast_w"`
	GridPrice     []float64       `json:"grid_price"`
	FeedInPrice   []float64       `json:"feed_in_price"`
	LoadForecastW []float64       `json:"load_forecast_w"`
	TempForecastC []float64       `json:"temp_forecast_c"`
	Battery       BatteryParams   `json:"battery"`
	InverterMaxW  float64         `json:"inverter_max_w"`
	EV            *EVParams       `json:"ev,omitempty"`
	Appliance     *ApplianceParams `json:"appliance,omitempty"`
	WarmStart     []float64       `json:"warm_start,omitempty"`
}

// Slots returns the number of planning slots in the canonical horizon for the
// request's slot duration.
func (r OptimizeRequest) Slots() int {
	if r.SlotDuration <= 0 {
		return 0
	}
	return int(time.Duration(HorizonHours) * time.Hour / r.SlotDuration)
}

// PlanResult carries the optimizer's own accounting of the returned plan.
// All series start at "now", not at midnight.
type PlanResult struct {
	CostPerSlot    []float64 `json:"cost_per_slot"`
	RevenuePerSlot []float64 `json:"revenue_per_slot"`
	LossesPerSlot  []float64 `json:"losses_per_slot"`
	SOCPerSlot     []float64 `json:"soc_per_slot"`
	TotalCost      float64   `json:"total_cost"`
	TotalRevenue   float64   `json:"total_revenue"`
	TotalLossesWh  float64   `json:"total_losses_wh"`
}

// OptimizeResponse is the canonical optimization response. The three control
// arrays are midnight-aligned and equally long; elapsed slots are zeroed.
type OptimizeResponse struct {
	ACCharge           []float64   `json:"ac_charge"`
	DCCharge           []float64   `json:"dc_charge"`
	DischargeAllowed   []bool      `json:"discharge_allowed"`
	Result             PlanResult  `json:"result"`
	WarmStart          []float64   `json:"warm_start,omitempty"`
	ApplianceStartSlot *int        `json:"home_appliance_start_slot,omitempty"`
}

// Validate checks the control-array invariant: all three arrays present,
// equally long and covering the full horizon of slots slots. A warm start, if
// the backend produced one, must carry at least two entries to be usable as a
// prior solution.
func (r OptimizeResponse) Validate(slots int) error {
	if len(r.ACCharge) == 0 || len(r.DCCharge) == 0 || len(r.DischargeAllowed) == 0 {
		return fmt.Errorf("response missing control arrays")
	}
	if len(r.ACCharge) != slots || len(r.DCCharge) != slots || len(r.DischargeAllowed) != slots {
		return fmt.Errorf("control arrays cover %d/%d/%d slots, want %d",
			len(r.ACCharge), len(r.DCCharge), len(r.DischargeAllowed), slots)
	}
	if len(r.WarmStart) < 2 {
		return fmt.Errorf("warm start carries %d entries, want at least 2", len(r.WarmStart))
	}
	return nil
}

// Empty reports whether the response carries no plan at all, e.g. after an
// infeasible solve was degraded to a no-op.
func (r OptimizeResponse) Empty() bool {
	return len(r.ACCharge) == 0 && len(r.DCCharge) == 0 && len(r.DischargeAllowed) == 0
}
