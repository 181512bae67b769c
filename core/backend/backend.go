// Package backend defines the optimizer capability the scheduler depends on
// and the failure taxonomy shared by all adapters. Concrete adapters live in
// infra/backend and are selected once at startup.
package backend

import (
	"context"
	"sync"
	"time"

	"github.com/gridpilot/gridpilot/core/model"
)

// Optimizer is the single capability a solver backend exposes. Optimize
// blocks for up to the context deadline; a call that exceeds it fails with a
// ConnectivityError and is not retried mid-flight.
type Optimizer interface {
	Optimize(ctx context.Context, req model.OptimizeRequest) (*model.OptimizeResponse, error)
	// AverageRuntime reports the smoothed solve duration, used by the
	// scheduler to start aligned runs early enough.
	AverageRuntime() time.Duration
	// Name identifies the adapter in logs and metrics.
	Name() string
}

// runtimeSmoothing is the EWMA weight of the newest observation.
const runtimeSmoothing = 0.3

// RuntimeTracker keeps an exponentially smoothed average of solve durations.
// Embedded by the adapters.
type RuntimeTracker struct {
	mu  sync.Mutex
	avg time.Duration
}

// Observe folds a new solve duration into the average.
func (t *RuntimeTracker) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.avg == 0 {
		t.avg = d
		return
	}
	t.avg = time.Duration(runtimeSmoothing*float64(d) + (1-runtimeSmoothing)*float64(t.avg))
}

// AverageRuntime returns the smoothed solve duration, zero before the first
// observation.
func (t *RuntimeTracker) AverageRuntime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.avg
}
