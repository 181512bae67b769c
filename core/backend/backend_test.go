package backend

import (
	"errors"
	"testing"
	"time"
)

func TestRuntimeTracker(t *testing.T) {
	var tr RuntimeTracker
	if tr.AverageRuntime() != 0 {
		t.Fatalf("fresh tracker not zero")
	}
	tr.Observe(10 * time.Second)
	if got := tr.AverageRuntime(); got != 10*time.Second {
		t.Fatalf("first observation = %s, want 10s", got)
	}
	tr.Observe(20 * time.Second)
	// 0.3*20 + 0.7*10 = 13
	if got := tr.AverageRuntime(); got != 13*time.Second {
		t.Fatalf("smoothed = %s, want 13s", got)
	}
	// a slow outlier moves the average but does not replace it
	tr.Observe(2 * time.Minute)
	if got := tr.AverageRuntime(); got <= 13*time.Second || got >= 2*time.Minute {
		t.Fatalf("smoothed = %s, want between 13s and 2m", got)
	}
}

func TestErrorTaxonomyUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")

	err := NewConnectivityError("direct", inner)
	var ce *ConnectivityError
	if !errors.As(err, &ce) || !errors.Is(err, inner) {
		t.Fatalf("connectivity error does not unwrap")
	}

	err = NewOptimizationError("transformed", "infeasible", nil)
	var oe *OptimizationError
	if !errors.As(err, &oe) || oe.Status != "infeasible" {
		t.Fatalf("optimization error mangled: %v", err)
	}

	err = NewValidationError("control arrays", inner)
	var ve *ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, inner) {
		t.Fatalf("validation error does not unwrap")
	}

	err = NewConfigError("bad mode", nil)
	var cfe *ConfigError
	if !errors.As(err, &cfe) {
		t.Fatalf("config error type lost")
	}
}
