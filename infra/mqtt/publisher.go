package mqtt

import (
	"context"

	"github.com/gridpilot/gridpilot/core/control"
	"github.com/gridpilot/gridpilot/core/events"
	"github.com/gridpilot/gridpilot/internal/eventbus"
)

// cycleMessage is the wire form of a cycle summary.
type cycleMessage struct {
	RequestID string  `json:"request_id"`
	Kind      string  `json:"kind"`
	RuntimeMs int64   `json:"runtime_ms"`
	TotalCost float64 `json:"total_cost"`
	Error     string  `json:"error,omitempty"`
}

// PublishLoop consumes bus events and mirrors them to MQTT: state changes
// and override transitions trigger a retained snapshot, cycle completions
// are published as cycle summaries. It returns when the context is done.
func (c *Client) PublishLoop(ctx context.Context, bus eventbus.EventBus, snap func() control.Snapshot) {
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.handleEvent(ev, snap)
		}
	}
}

func (c *Client) handleEvent(ev eventbus.Event, snap func() control.Snapshot) {
	switch e := ev.(type) {
	case events.StateChangeEvent, events.OverrideEvent:
		if err := c.PublishSnapshot(snap()); err != nil {
			c.log.Errorf("publish snapshot: %v", err)
		}
	case events.CycleEvent:
		msg := cycleMessage{
			RequestID: e.RequestID,
			Kind:      e.Kind,
			RuntimeMs: e.Runtime.Milliseconds(),
			TotalCost: e.TotalCost,
		}
		if e.Err != nil {
			msg.Error = e.Err.Error()
		}
		if err := c.PublishCycle(msg); err != nil {
			c.log.Errorf("publish cycle summary: %v", err)
		}
	}
}
