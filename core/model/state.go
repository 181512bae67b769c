package model

// OverallState is the discrete operating mode driven to the inverter. It is
// derived from the optimizer's demands, the discharge permission and the EVCC
// session, never set from more than one place at a time.
type OverallState int

const (
	StateUninitialized OverallState = iota
	StateChargeFromGrid
	StateAvoidDischarge
	StateDischargeAllowed
	StateAvoidDischargeEvccFast
	StateDischargeAllowedEvccPv
	StateDischargeAllowedEvccMinPv
	StateChargeFromGridEvccFast
)

// String returns a human-readable representation of the state.
func (s OverallState) String() string {
	switch s {
	case StateChargeFromGrid:
		return "charge_from_grid"
	case StateAvoidDischarge:
		return "avoid_discharge"
	case StateDischargeAllowed:
		return "discharge_allowed"
	case StateAvoidDischargeEvccFast:
		return "avoid_discharge_evcc_fast"
	case StateDischargeAllowedEvccPv:
		return "discharge_allowed_evcc_pv"
	case StateDischargeAllowedEvccMinPv:
		return "discharge_allowed_evcc_min_pv"
	case StateChargeFromGridEvccFast:
		return "charge_from_grid_evcc_fast"
	default:
		return "uninitialized"
	}
}

// ParseOverrideMode maps a command-channel mode string to an OverallState.
// Only the manually selectable subset is accepted.
func ParseOverrideMode(s string) (OverallState, bool) {
	switch s {
	case "charge_from_grid":
		return StateChargeFromGrid, true
	case "avoid_discharge":
		return StateAvoidDischarge, true
	case "discharge_allowed":
		return StateDischargeAllowed, true
	default:
		return StateUninitialized, false
	}
}

// EvccMode classifies the charge mode reported by the external EV-charging
// controller for the running session.
type EvccMode int

const (
	EvccModeNone EvccMode = iota
	EvccModeFast
	EvccModePv
	EvccModeMinPv
)

// ParseEvccMode maps the mode string published by evcc to an EvccMode.
// Unknown modes map to EvccModeNone and leave battery dispatch alone.
func ParseEvccMode(s string) EvccMode {
	switch s {
	case "now", "fast":
		return EvccModeFast
	case "pv":
		return EvccModePv
	case "minpv":
		return EvccModeMinPv
	default:
		return EvccModeNone
	}
}

// String returns the evcc wire name of the mode.
func (m EvccMode) String() string {
	switch m {
	case EvccModeFast:
		return "fast"
	case EvccModePv:
		return "pv"
	case EvccModeMinPv:
		return "minpv"
	default:
		return "none"
	}
}
