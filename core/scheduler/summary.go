package scheduler

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gridpilot/gridpilot/core/model"
)

// Summary condenses a plan result for telemetry and the cycle log.
type Summary struct {
	TotalCost    float64 `json:"total_cost"`
	TotalRevenue float64 `json:"total_revenue"`
	MeanSOCPct   float64 `json:"mean_soc_pct"`
	MinSOCPct    float64 `json:"min_soc_pct"`
	MeanPrice    float64 `json:"mean_price"`
}

// Summarize aggregates the optimizer's per-slot accounting. Totals reported
// by the backend win; missing totals are recomputed from the per-slot series.
func Summarize(res model.PlanResult, gridPrice []float64) Summary {
	s := Summary{TotalCost: res.TotalCost, TotalRevenue: res.TotalRevenue}
	if s.TotalCost == 0 && len(res.CostPerSlot) > 0 {
		s.TotalCost = floats.Sum(res.CostPerSlot)
	}
	if s.TotalRevenue == 0 && len(res.RevenuePerSlot) > 0 {
		s.TotalRevenue = floats.Sum(res.RevenuePerSlot)
	}
	if len(res.SOCPerSlot) > 0 {
		s.MeanSOCPct = stat.Mean(res.SOCPerSlot, nil)
		s.MinSOCPct = floats.Min(res.SOCPerSlot)
	}
	if len(gridPrice) > 0 {
		s.MeanPrice = stat.Mean(gridPrice, nil)
	}
	return s
}
