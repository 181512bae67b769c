package control

import (
	"fmt"
	"time"

	"github.com/gridpilot/gridpilot/core/backend"
	"github.com/gridpilot/gridpilot/core/events"
	"github.com/gridpilot/gridpilot/core/model"
)

// Override is a manual operator command that pins the overall state until it
// expires or is cleared. The expiry is absolute wall clock, checked on every
// recompute, so a delayed timer cannot extend it.
type Override struct {
	Mode        model.OverallState `json:"mode"`
	ChargeRateW float64            `json:"charge_rate_w"`
	Duration    time.Duration      `json:"-"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

// SetOverride pins the overall state to mode for the given duration. A
// positive charge rate seeds the grid-charge demand with that power value;
// it is stored as a power, not an energy, and GetNeededPower returns it
// unconverted. Out-of-range modes and durations are rejected, never clamped.
func (s *State) SetOverride(mode model.OverallState, chargeRateW float64, duration time.Duration) error {
	switch mode {
	case model.StateChargeFromGrid, model.StateAvoidDischarge, model.StateDischargeAllowed:
	default:
		err := backend.NewConfigError(fmt.Sprintf("override mode %q not allowed", mode), nil)
		s.log.Errorf("override rejected: %v", err)
		return err
	}
	if duration <= 0 || duration > s.cfg.MaxOverrideDuration {
		err := backend.NewConfigError(fmt.Sprintf("override duration %s out of range (0, %s]",
			duration, s.cfg.MaxOverrideDuration), nil)
		s.log.Errorf("override rejected: %v", err)
		return err
	}
	if chargeRateW < 0 {
		err := backend.NewConfigError(fmt.Sprintf("override charge rate %.0f W negative", chargeRateW), nil)
		s.log.Errorf("override rejected: %v", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireOverrideLocked()

	if s.override == nil {
		// first override since normal operation: keep the demand fields
		// for restoration on clear
		s.shadowACWh = s.acEnergyWh
		s.shadowDCWh = s.dcEnergyWh
		s.shadowDisch = s.discharge
	}
	ov := &Override{
		Mode:        mode,
		ChargeRateW: chargeRateW,
		Duration:    duration,
		ExpiresAt:   s.now().Add(duration),
	}
	s.override = ov
	if chargeRateW > 0 {
		if mode == model.StateChargeFromGrid {
			s.acEnergyWh = chargeRateW
			s.overrideIsPow = true
		} else {
			s.log.Warnf("override charge rate %.0f W ignored for mode %s", chargeRateW, mode)
		}
	}
	switch mode {
	case model.StateDischargeAllowed:
		s.discharge = dischargeGranted
	case model.StateAvoidDischarge, model.StateChargeFromGrid:
		s.discharge = dischargeDenied
	}
	s.log.Infof("override set: mode=%s rate=%.0fW until=%s", mode, chargeRateW, ov.ExpiresAt.Format(time.RFC3339))
	if s.bus != nil {
		s.bus.Publish(events.OverrideEvent{Action: "set", Mode: mode, ChargeRateW: chargeRateW, ExpiresAt: ov.ExpiresAt})
	}
	s.deriveLocked(true)
	return nil
}

// ClearOverride removes an active override, restores the pre-override demand
// values and recomputes the state normally. Clearing when no override is
// active is a no-op.
func (s *State) ClearOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override == nil {
		return
	}
	mode := s.override.Mode
	s.restoreShadowLocked()
	s.log.Infof("override cleared (was %s)", mode)
	if s.bus != nil {
		s.bus.Publish(events.OverrideEvent{Action: "cleared", Mode: mode})
	}
	s.deriveLocked(true)
}

// expireOverrideLocked drops an override whose wall-clock expiry has passed.
// Runs on every recompute so an override cannot outlive its duration even if
// the responsible timer is delayed. Caller holds s.mu.
func (s *State) expireOverrideLocked() {
	if s.override == nil || !s.now().After(s.override.ExpiresAt) {
		return
	}
	mode := s.override.Mode
	s.restoreShadowLocked()
	s.log.Infof("override expired (was %s)", mode)
	if s.bus != nil {
		s.bus.Publish(events.OverrideEvent{Action: "expired", Mode: mode})
	}
	s.deriveLocked(true)
}

// restoreShadowLocked puts the no-override demand values back. Caller holds
// s.mu.
func (s *State) restoreShadowLocked() {
	s.override = nil
	s.overrideIsPow = false
	s.acEnergyWh = s.shadowACWh
	s.dcEnergyWh = s.shadowDCWh
	s.discharge = s.shadowDisch
}
