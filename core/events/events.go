// Package events defines the control related events emitted on the event bus.
//
// Available event types:
//   - StateChangeEvent: derived overall state transition
//   - OverrideEvent: manual override accepted, cleared or expired
//   - CycleEvent: one optimizer cycle finished
package events

import (
	"time"

	"github.com/gridpilot/gridpilot/core/model"
)

// StateChangeEvent is published whenever the derived overall state changes.
type StateChangeEvent struct {
	From model.OverallState
	To   model.OverallState
	At   time.Time
}

// OverrideEvent is published when a manual override is accepted, cleared or
// expires. Action is "set", "cleared" or "expired".
type OverrideEvent struct {
	Action      string
	Mode        model.OverallState
	ChargeRateW float64
	ExpiresAt   time.Time
}

// CycleEvent is published after each optimizer cycle, successful or not.
type CycleEvent struct {
	RequestID string
	Kind      string // "quarter_aligned" or "gap_fill"
	Runtime   time.Duration
	TotalCost float64
	Err       error
}
