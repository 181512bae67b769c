package scheduler

import (
	"time"

	"github.com/gridpilot/gridpilot/core/model"
)

// Config defines the orchestrator's cadence and the static battery/inverter
// parameters included in every optimize request.
type Config struct {
	// IntervalSeconds is the desired cadence between optimizer cycles.
	IntervalSeconds int `json:"interval_seconds"`
	// TimeoutSeconds bounds a single backend call.
	TimeoutSeconds int `json:"timeout_seconds"`
	// TickSeconds is the fast re-application tick. Defaults to 1.
	TickSeconds int `json:"tick_seconds"`
	// DeferSeconds is how long a due cycle waits when one is in flight.
	DeferSeconds int `json:"defer_seconds"`

	Battery      model.BatteryParams `json:"battery"`
	InverterMaxW float64             `json:"inverter_max_w"`
}

// SetDefaults fills zero values with their defaults.
func (c *Config) SetDefaults() {
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 300
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 180
	}
	if c.TickSeconds == 0 {
		c.TickSeconds = 1
	}
	if c.DeferSeconds == 0 {
		c.DeferSeconds = 10
	}
}

// Interval returns the desired cadence as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout returns the backend call bound as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
