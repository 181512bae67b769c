// Package control implements the dispatch state machine. It converts the
// optimizer's relative charge/discharge demands, the EVCC session state and
// manual overrides into one discrete operating mode plus the absolute power
// the inverter needs right now.
package control

import (
	"sync"
	"time"

	"github.com/gridpilot/gridpilot/core/events"
	"github.com/gridpilot/gridpilot/core/logger"
	"github.com/gridpilot/gridpilot/core/model"
	"github.com/gridpilot/gridpilot/internal/eventbus"
)

// DefaultChangeWindow is how far back a consumed transition still counts as
// recent. The value is a debounce heuristic carried over unchanged; treat it
// as a tunable, not a contract.
const DefaultChangeWindow = time.Second

// Undecided marks the discharge permission before the first optimizer cycle.
const (
	dischargeUnknown int8 = -1
	dischargeDenied  int8 = 0
	dischargeGranted int8 = 1
)

// Config holds the static parameters of the state machine.
type Config struct {
	// SlotDuration is the planning slot length (1 hour or 15 minutes).
	SlotDuration time.Duration `json:"-"`
	SlotMinutes  int           `json:"slot_minutes"`
	// MaxGridChargeW caps the AC (grid) charge power. Zero disables the cap.
	MaxGridChargeW float64 `json:"max_grid_charge_w"`
	// MaxPVChargeW caps the DC (PV) charge power. Zero disables the cap.
	MaxPVChargeW float64 `json:"max_pv_charge_w"`
	// MaxOverrideDuration bounds operator overrides. Zero means 24h.
	MaxOverrideDuration time.Duration `json:"-"`
	MaxOverrideMinutes  int           `json:"max_override_minutes"`
	// ChangeWindow is the recent-change debounce window. Zero means
	// DefaultChangeWindow.
	ChangeWindow time.Duration `json:"-"`
}

// SetDefaults fills zero values with their defaults.
func (c *Config) SetDefaults() {
	if c.SlotMinutes == 0 {
		c.SlotMinutes = 60
	}
	if c.SlotDuration == 0 {
		c.SlotDuration = time.Duration(c.SlotMinutes) * time.Minute
	}
	if c.MaxOverrideMinutes == 0 {
		c.MaxOverrideMinutes = 24 * 60
	}
	if c.MaxOverrideDuration == 0 {
		c.MaxOverrideDuration = time.Duration(c.MaxOverrideMinutes) * time.Minute
	}
	if c.ChangeWindow == 0 {
		c.ChangeWindow = DefaultChangeWindow
	}
}

// Snapshot is a consistent copy of the state machine's fields, taken under
// the lock. The hardware dispatcher and telemetry consume it read-only.
type Snapshot struct {
	ACEnergyWh               float64            `json:"ac_energy_wh"`
	DCEnergyWh               float64            `json:"dc_energy_wh"`
	DischargeAllowed         bool               `json:"discharge_allowed"`
	ReferenceMaxChargePowerW float64            `json:"reference_max_charge_power_w"`
	BatteryMaxChargePowerW   float64            `json:"battery_max_charge_power_w"`
	OverallState             model.OverallState `json:"overall_state"`
	EvccActive               bool               `json:"evcc_active"`
	EvccMode                 model.EvccMode     `json:"evcc_mode"`
	ManualOverride           *Override          `json:"manual_override,omitempty"`
}

// State is the mutable dispatch state shared by the orchestrator, the fast
// re-application tick and the override command path. A single mutex
// serializes every mutation; the overall state is recomputed under the same
// lock so the cross-field invariant always holds.
type State struct {
	mu  sync.Mutex
	cfg Config
	log logger.Logger
	bus eventbus.EventBus
	now func() time.Time

	acEnergyWh     float64
	dcEnergyWh     float64
	discharge      int8
	refMaxChargeW  float64
	battMaxChargeW float64
	evccActive     bool
	evccMode       model.EvccMode
	overall        model.OverallState

	override      *Override
	overrideIsPow bool // demand fields hold W, not Wh, while set
	shadowACWh    float64
	shadowDCWh    float64
	shadowDisch   int8

	lastACPowerW float64
	lastDCPowerW float64

	edges []time.Time
}

// New creates a State with everything uninitialized until the first cycle.
func New(cfg Config, log logger.Logger, bus eventbus.EventBus) *State {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &State{
		cfg:       cfg,
		log:       log,
		bus:       bus,
		now:       time.Now,
		discharge: dischargeUnknown,
		overall:   model.StateUninitialized,
	}
}

// SetReferenceMaxChargePower captures the battery charge power limit used for
// every energy/power conversion until the next capture. The orchestrator
// calls this once per request build so conversions stay self-consistent even
// if the live limit moves mid-slot.
func (s *State) SetReferenceMaxChargePower(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refMaxChargeW = w
	if s.battMaxChargeW == 0 {
		s.battMaxChargeW = w
	}
}

// SetBatteryMaxChargePower records the live charge power limit reported by
// the battery. Used only as a clamp, never for conversions.
func (s *State) SetBatteryMaxChargePower(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battMaxChargeW = w
}

// SetChargeDemand stores the optimizer's relative demand (0..1) for the
// current slot as an absolute energy target. Redundant writes are suppressed
// so repeated fast ticks do not flood the log or the edge queue. During an
// active override the shadow value is still recorded for restoration, but the
// live field is left to the override.
func (s *State) SetChargeDemand(relative float64, kind model.ChargeKind) {
	if relative < 0 {
		relative = 0
	} else if relative > 1 {
		relative = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireOverrideLocked()

	energyWh := relative * s.refMaxChargeW * s.cfg.SlotDuration.Hours()
	if s.override != nil {
		// keep the no-override value for ClearOverride
		if kind == model.ChargeAC {
			s.shadowACWh = energyWh
		} else {
			s.shadowDCWh = energyWh
		}
		return
	}

	changed := false
	switch kind {
	case model.ChargeAC:
		if s.acEnergyWh != energyWh {
			s.acEnergyWh = energyWh
			changed = true
		}
	case model.ChargeDC:
		if s.dcEnergyWh != energyWh {
			s.dcEnergyWh = energyWh
			changed = true
		}
	}
	if !changed {
		return
	}
	s.overrideIsPow = false
	s.log.Debugw("charge demand updated", map[string]any{
		"kind":      kind.String(),
		"relative":  relative,
		"energy_wh": energyWh,
	})
	s.recomputeLocked(true)
}

// SetDischargeAllowed stores the optimizer's discharge permission for the
// current slot.
func (s *State) SetDischargeAllowed(allowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireOverrideLocked()
	v := dischargeDenied
	if allowed {
		v = dischargeGranted
	}
	if s.override != nil {
		s.shadowDisch = v
		return
	}
	if s.discharge == v {
		return
	}
	s.discharge = v
	s.recomputeLocked(true)
}

// SetEvccState records the EV-charging controller session. An active session
// with a recognized mode overrides the base state per a fixed table.
func (s *State) SetEvccState(active bool, mode model.EvccMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evccActive == active && s.evccMode == mode {
		return
	}
	s.evccActive = active
	s.evccMode = mode
	s.recomputeLocked(true)
}

// GetNeededPower returns the instantaneous charge power in W required to meet
// the stored energy target within what is left of the current slot. The same
// energy target yields ever-higher power as the slot nears its end; this
// catch-up ramp is intentional. Override values are already powers and are
// returned unchanged.
func (s *State) GetNeededPower(kind model.ChargeKind) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireOverrideLocked()

	stored := s.acEnergyWh
	last := &s.lastACPowerW
	rateCap := s.cfg.MaxGridChargeW
	if kind == model.ChargeDC {
		stored = s.dcEnergyWh
		last = &s.lastDCPowerW
		rateCap = s.cfg.MaxPVChargeW
	}

	if s.override != nil && s.overrideIsPow && kind == model.ChargeAC {
		// already a power, reconverting it would be wrong
		*last = stored
		return stored
	}

	remaining := model.SecondsRemaining(s.now(), s.cfg.SlotDuration)
	if remaining <= 0 {
		return *last
	}
	power := stored / (remaining / 3600)
	if s.battMaxChargeW > 0 && power > s.battMaxChargeW {
		power = s.battMaxChargeW
	}
	if rateCap > 0 && power > rateCap {
		power = rateCap
	}
	*last = power
	return power
}

// RecomputeOverallState re-derives the overall state from the current fields.
// Exposed for callers that changed nothing but need the expiry check to run.
func (s *State) RecomputeOverallState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked(false)
}

// recomputeLocked runs the expiry check and re-derives the overall state.
// Caller holds s.mu.
func (s *State) recomputeLocked(numericChanged bool) {
	s.expireOverrideLocked()
	s.deriveLocked(numericChanged)
}

// deriveLocked re-derives the overall state from the current fields.
// numericChanged marks that a tracked demand field moved even if the derived
// state did not, which still counts as a transition for the hardware
// dispatcher. Caller holds s.mu.
func (s *State) deriveLocked(numericChanged bool) {
	base := s.baseStateLocked()
	next := base
	if s.evccActive {
		switch s.evccMode {
		case model.EvccModeFast:
			if base == model.StateChargeFromGrid {
				next = model.StateChargeFromGridEvccFast
			} else {
				next = model.StateAvoidDischargeEvccFast
			}
		case model.EvccModePv:
			next = model.StateDischargeAllowedEvccPv
		case model.EvccModeMinPv:
			next = model.StateDischargeAllowedEvccMinPv
		}
	}

	if next != s.overall {
		prev := s.overall
		s.overall = next
		s.edges = append(s.edges, s.now())
		s.log.Infof("overall state %s -> %s", prev, next)
		if s.bus != nil {
			s.bus.Publish(events.StateChangeEvent{From: prev, To: next, At: s.now()})
		}
		return
	}
	if numericChanged {
		s.edges = append(s.edges, s.now())
	}
}

// baseStateLocked derives the state before EVCC coordination. An active
// override replaces the demand-derived base with its mode.
func (s *State) baseStateLocked() model.OverallState {
	if s.override != nil {
		return s.override.Mode
	}
	switch {
	case s.acEnergyWh > 0:
		return model.StateChargeFromGrid
	case s.discharge == dischargeGranted:
		return model.StateDischargeAllowed
	case s.discharge == dischargeDenied:
		return model.StateAvoidDischarge
	default:
		return model.StateUninitialized
	}
}

// ConsumeRecentChange drains the transition edge queue and reports whether a
// transition happened within the change window. The hardware dispatcher calls
// this once per tick, so every logical transition produces exactly one
// hardware write no matter how many ticks pass.
func (s *State) ConsumeRecentChange() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireOverrideLocked()
	if len(s.edges) == 0 {
		return false
	}
	cutoff := s.now().Add(-s.cfg.ChangeWindow)
	recent := false
	for _, e := range s.edges {
		if e.After(cutoff) {
			recent = true
			break
		}
	}
	s.edges = s.edges[:0]
	return recent
}

// Snapshot returns a consistent copy of the live fields.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireOverrideLocked()
	var ov *Override
	if s.override != nil {
		cp := *s.override
		ov = &cp
	}
	return Snapshot{
		ACEnergyWh:               s.acEnergyWh,
		DCEnergyWh:               s.dcEnergyWh,
		DischargeAllowed:         s.discharge == dischargeGranted,
		ReferenceMaxChargePowerW: s.refMaxChargeW,
		BatteryMaxChargePowerW:   s.battMaxChargeW,
		OverallState:             s.overall,
		EvccActive:               s.evccActive,
		EvccMode:                 s.evccMode,
		ManualOverride:           ov,
	}
}

// OverallState returns the current derived state.
func (s *State) OverallState() model.OverallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireOverrideLocked()
	return s.overall
}
