// Package device defines the telemetry collaborator that reads live battery
// and EV-charger state. Physical access (Modbus, HTTP, vendor APIs) is wired
// in by the application, not part of the core.
package device

import "context"

// Telemetry reads the live device state consumed by the request builder and
// the control state machine.
type Telemetry interface {
	// CurrentSOC returns the battery state of charge in percent.
	CurrentSOC(ctx context.Context) (float64, error)
	// MaxChargePower returns the battery's current charge power limit in W.
	MaxChargePower(ctx context.Context) (float64, error)
	// EvccState returns whether an EV-charging session is active and the
	// controller's mode string ("fast", "pv", "minpv", ...).
	EvccState(ctx context.Context) (active bool, mode string, err error)
}
