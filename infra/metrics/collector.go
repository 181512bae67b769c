package metrics

import (
	"context"

	"github.com/gridpilot/gridpilot/core/events"
	"github.com/gridpilot/gridpilot/core/logger"
	coremetrics "github.com/gridpilot/gridpilot/core/metrics"
	"github.com/gridpilot/gridpilot/internal/eventbus"
)

// Collect subscribes to the event bus and forwards state transitions to the
// sink until the context is cancelled. Cycle records are written directly by
// the orchestrator; only bus-borne events pass through here.
func Collect(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	if log == nil {
		log = logger.Nop{}
	}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			if sc, isState := e.(events.StateChangeEvent); isState {
				if sr, recOK := sink.(coremetrics.StateRecorder); recOK {
					if err := sr.RecordState(coremetrics.StateRecord{
						From: sc.From,
						To:   sc.To,
						Time: sc.At,
					}); err != nil {
						log.Errorf("state metrics: %v", err)
					}
				}
			}
		}
	}
}
