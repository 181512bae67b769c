// Package dispatch drives the physical inverter from the derived control
// state. It is deliberately thin: all decisions happen in core/control, this
// loop only forwards them.
package dispatch

import (
	"context"
	"time"

	"github.com/gridpilot/gridpilot/core/control"
	"github.com/gridpilot/gridpilot/core/logger"
	"github.com/gridpilot/gridpilot/core/model"
)

// InverterController writes one operating mode plus charge powers to the
// physical inverter/EV-charger. Implementations live outside the core
// (Modbus, vendor HTTP, ...).
type InverterController interface {
	Apply(ctx context.Context, state model.OverallState, acPowerW, dcPowerW float64) error
}

// Loop polls the control state and issues exactly one hardware write per
// logical transition, regardless of how many ticks pass in between.
type Loop struct {
	state *control.State
	ctrl  InverterController
	log   logger.Logger
	tick  time.Duration
}

// NewLoop creates a dispatch loop with the given tick interval. A zero tick
// defaults to one second.
func NewLoop(st *control.State, ctrl InverterController, tick time.Duration, log logger.Logger) *Loop {
	if tick <= 0 {
		tick = time.Second
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Loop{state: st, ctrl: ctrl, log: log, tick: tick}
}

// Run blocks until the context is cancelled. A failed hardware write is
// logged and retried on the next transition or tick; it never stops the loop.
func (l *Loop) Run(ctx context.Context) error {
	tick := time.NewTicker(l.tick)
	defer tick.Stop()
	var pending bool
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if !l.state.ConsumeRecentChange() && !pending {
				continue
			}
			pending = l.dispatch(ctx) != nil
		}
	}
}

func (l *Loop) dispatch(ctx context.Context) error {
	st := l.state.OverallState()
	ac := l.state.GetNeededPower(model.ChargeAC)
	dc := l.state.GetNeededPower(model.ChargeDC)
	if err := l.ctrl.Apply(ctx, st, ac, dc); err != nil {
		l.log.Errorf("inverter write failed: %v", err)
		return err
	}
	l.log.Debugw("inverter updated", map[string]any{
		"state":      st.String(),
		"ac_power_w": ac,
		"dc_power_w": dc,
	})
	return nil
}
