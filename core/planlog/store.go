// Package planlog persists one record per optimizer cycle so past plans and
// failures can be inspected after the fact.
package planlog

import (
	"context"
	"time"
)

// Record captures one optimizer cycle and its outcome.
type Record struct {
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id"`
	Backend   string        `json:"backend"`
	Kind      string        `json:"kind"`
	Runtime   time.Duration `json:"runtime_ns"`
	Slots     int           `json:"slots"`
	TotalCost float64       `json:"total_cost"`
	TotalRev  float64       `json:"total_revenue"`
	Error     string        `json:"error,omitempty"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start   time.Time
	End     time.Time
	Backend string
	Failed  bool // only records with a non-empty error
}

// matches reports whether r passes the query filters.
func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Backend != "" && r.Backend != q.Backend {
		return false
	}
	if q.Failed && r.Error == "" {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
