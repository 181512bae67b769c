package control

import (
	"errors"
	"testing"
	"time"

	"github.com/gridpilot/gridpilot/core/backend"
	"github.com/gridpilot/gridpilot/core/model"
)

func TestOverridePinsState(t *testing.T) {
	st, _ := newTestState(time.Hour)
	st.SetReferenceMaxChargePower(5000)
	st.SetDischargeAllowed(true)

	if err := st.SetOverride(model.StateAvoidDischarge, 0, time.Hour); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if got := st.OverallState(); got != model.StateAvoidDischarge {
		t.Fatalf("state = %s, want avoid_discharge", got)
	}

	// optimizer writes land in the shadow, not the live fields
	st.SetChargeDemand(0.8, model.ChargeAC)
	st.SetDischargeAllowed(true)
	if got := st.OverallState(); got != model.StateAvoidDischarge {
		t.Fatalf("state = %s, override not protected", got)
	}
}

func TestOverrideChargeRateReturnedUnconverted(t *testing.T) {
	st, now := newTestState(time.Hour)
	st.SetReferenceMaxChargePower(5000)

	if err := st.SetOverride(model.StateChargeFromGrid, 3000, time.Hour); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if p := st.GetNeededPower(model.ChargeAC); p != 3000 {
		t.Fatalf("power = %v, want 3000", p)
	}
	// no catch-up ramp on override powers
	*now = now.Add(45 * time.Minute)
	if p := st.GetNeededPower(model.ChargeAC); p != 3000 {
		t.Fatalf("power late in slot = %v, want 3000", p)
	}
}

func TestOverrideClearRestoresDemands(t *testing.T) {
	st, _ := newTestState(time.Hour)
	st.SetReferenceMaxChargePower(5000)
	st.SetChargeDemand(0.5, model.ChargeAC)

	if err := st.SetOverride(model.StateDischargeAllowed, 0, time.Hour); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if got := st.OverallState(); got != model.StateDischargeAllowed {
		t.Fatalf("state = %s", got)
	}
	// a newer optimizer demand arrives during the override
	st.SetChargeDemand(0.2, model.ChargeAC)

	st.ClearOverride()
	if got := st.OverallState(); got != model.StateChargeFromGrid {
		t.Fatalf("state after clear = %s, want charge_from_grid", got)
	}
	if snap := st.Snapshot(); snap.ACEnergyWh != 1000 {
		t.Fatalf("restored energy = %v, want latest shadow 1000", snap.ACEnergyWh)
	}
}

func TestOverrideExpires(t *testing.T) {
	st, now := newTestState(time.Hour)
	st.SetReferenceMaxChargePower(5000)
	st.SetChargeDemand(0.5, model.ChargeAC)

	if err := st.SetOverride(model.StateAvoidDischarge, 0, 10*time.Minute); err != nil {
		t.Fatalf("set override: %v", err)
	}
	*now = now.Add(9 * time.Minute)
	if got := st.OverallState(); got != model.StateAvoidDischarge {
		t.Fatalf("state = %s, override expired early", got)
	}
	*now = now.Add(2 * time.Minute)
	if got := st.OverallState(); got != model.StateChargeFromGrid {
		t.Fatalf("state = %s, override did not expire", got)
	}
	if snap := st.Snapshot(); snap.ManualOverride != nil {
		t.Fatalf("override still present after expiry")
	}
}

func TestOverrideValidation(t *testing.T) {
	st, _ := newTestState(time.Hour)

	cases := []struct {
		name string
		mode model.OverallState
		rate float64
		dur  time.Duration
	}{
		{"evcc mode not selectable", model.StateChargeFromGridEvccFast, 0, time.Hour},
		{"uninitialized not selectable", model.StateUninitialized, 0, time.Hour},
		{"zero duration", model.StateAvoidDischarge, 0, 0},
		{"negative duration", model.StateAvoidDischarge, 0, -time.Minute},
		{"duration beyond cap", model.StateAvoidDischarge, 0, 25 * time.Hour},
		{"negative rate", model.StateChargeFromGrid, -100, time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := st.SetOverride(tc.mode, tc.rate, tc.dur)
			if err == nil {
				t.Fatalf("expected rejection")
			}
			var cfgErr *backend.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %T", err)
			}
			if st.OverallState() != model.StateUninitialized {
				t.Fatalf("rejected override mutated state")
			}
		})
	}
}

func TestOverrideRateIgnoredForNonChargeModes(t *testing.T) {
	st, _ := newTestState(time.Hour)
	st.SetReferenceMaxChargePower(5000)

	if err := st.SetOverride(model.StateDischargeAllowed, 2000, time.Hour); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if snap := st.Snapshot(); snap.ACEnergyWh != 0 {
		t.Fatalf("rate seeded demand for non-charge mode: %v", snap.ACEnergyWh)
	}
}

func TestEvccAppliesOnTopOfOverride(t *testing.T) {
	st, _ := newTestState(time.Hour)
	st.SetReferenceMaxChargePower(5000)

	if err := st.SetOverride(model.StateChargeFromGrid, 2000, time.Hour); err != nil {
		t.Fatalf("set override: %v", err)
	}
	st.SetEvccState(true, model.EvccModeFast)
	if got := st.OverallState(); got != model.StateChargeFromGridEvccFast {
		t.Fatalf("state = %s, want charge_from_grid_evcc_fast", got)
	}
	st.SetEvccState(false, model.EvccModeNone)
	if got := st.OverallState(); got != model.StateChargeFromGrid {
		t.Fatalf("state = %s, want override base back", got)
	}
}
