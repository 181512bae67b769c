package backend

import "fmt"

// ConnectivityError marks a network or timeout failure reaching the backend.
// The scheduler retries on its normal cadence; the control state is left
// untouched.
type ConnectivityError struct {
	Backend string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("backend %s unreachable: %v", e.Backend, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// NewConnectivityError wraps err as a ConnectivityError.
func NewConnectivityError(backendName string, err error) error {
	return &ConnectivityError{Backend: backendName, Err: err}
}

// OptimizationError marks a reachable backend that failed at the solver
// level, including an infeasible problem. It degrades to a safe no-op plan
// and is never retried faster than the normal cadence.
type OptimizationError struct {
	Backend string
	Status  string
	Err     error
}

func (e *OptimizationError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("backend %s optimization failed: %s", e.Backend, e.Status)
	}
	return fmt.Sprintf("backend %s optimization failed: %v", e.Backend, e.Err)
}

func (e *OptimizationError) Unwrap() error { return e.Err }

// NewOptimizationError wraps a solver-level failure.
func NewOptimizationError(backendName, status string, err error) error {
	return &OptimizationError{Backend: backendName, Status: status, Err: err}
}

// ValidationError marks a malformed or incomplete backend response. The
// control state is left untouched and the next scheduled cycle retries.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid backend response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid backend response: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps a malformed-response failure.
func NewValidationError(reason string, err error) error {
	return &ValidationError{Reason: reason, Err: err}
}

// ConfigError marks an invalid override or a failed backend configuration
// repair. It is rejected at the call site, never silently coerced.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps a configuration failure.
func NewConfigError(reason string, err error) error {
	return &ConfigError{Reason: reason, Err: err}
}
