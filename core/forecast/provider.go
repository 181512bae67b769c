// Package forecast defines the forecast collaborators the request builder
// depends on. Fetching real forecasts is not a core responsibility; providers
// may return short or empty series and the builder pads defensively.
package forecast

import "context"

// Provider returns one midnight-aligned numeric series covering the planning
// horizon. A failure may surface as an error or as a short/empty series;
// either way the caller must not crash.
type Provider interface {
	Forecast(ctx context.Context, slots int) ([]float64, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, slots int) ([]float64, error)

// Forecast calls f.
func (f ProviderFunc) Forecast(ctx context.Context, slots int) ([]float64, error) {
	return f(ctx, slots)
}

// Static returns a Provider that repeats a fixed series. Used for feed-in
// tariffs and in tests.
func Static(values []float64) Provider {
	return ProviderFunc(func(_ context.Context, slots int) ([]float64, error) {
		return Normalize(values, slots, 0), nil
	})
}

// Normalize truncates or pads values to exactly n entries. Padding repeats
// the last value, or fill when the series is empty.
func Normalize(values []float64, n int, fill float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if len(values) == 0 {
		for i := range out {
			out[i] = fill
		}
		return out
	}
	for i := 0; i < n; i++ {
		if i < len(values) {
			out[i] = values[i]
		} else {
			out[i] = values[len(values)-1]
		}
	}
	return out
}
