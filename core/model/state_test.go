package model

import "testing"

func TestParseOverrideMode(t *testing.T) {
	cases := []struct {
		in   string
		want OverallState
		ok   bool
	}{
		{"charge_from_grid", StateChargeFromGrid, true},
		{"avoid_discharge", StateAvoidDischarge, true},
		{"discharge_allowed", StateDischargeAllowed, true},
		{"charge_from_grid_evcc_fast", StateUninitialized, false},
		{"", StateUninitialized, false},
		{"turbo", StateUninitialized, false},
	}
	for _, tc := range cases {
		got, ok := ParseOverrideMode(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseOverrideMode(%q) = %s/%v, want %s/%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseEvccMode(t *testing.T) {
	cases := []struct {
		in   string
		want EvccMode
	}{
		{"now", EvccModeFast},
		{"fast", EvccModeFast},
		{"pv", EvccModePv},
		{"minpv", EvccModeMinPv},
		{"off", EvccModeNone},
		{"", EvccModeNone},
	}
	for _, tc := range cases {
		if got := ParseEvccMode(tc.in); got != tc.want {
			t.Errorf("ParseEvccMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestOverallStateString(t *testing.T) {
	if got := StateChargeFromGridEvccFast.String(); got != "charge_from_grid_evcc_fast" {
		t.Errorf("String() = %q", got)
	}
	if got := OverallState(99).String(); got != "uninitialized" {
		t.Errorf("unknown state String() = %q", got)
	}
}
