package scheduler

import "time"

// RunKind tags why a cycle was started.
type RunKind string

const (
	// RunQuarterAligned finishes right before a quarter-hour price boundary.
	RunQuarterAligned RunKind = "quarter_aligned"
	// RunGapFill keeps the plan fresh between aligned runs.
	RunGapFill RunKind = "gap_fill"
	// RunManual is an operator-triggered one-shot cycle.
	RunManual RunKind = "manual"
)

const (
	quarter = 15 * time.Minute
	// minLead is the floor for both the gap guard and the too-close guard.
	minLead = 30 * time.Second
)

// NextRun computes when the next optimizer cycle should start. avgRuntime is
// the smoothed solve duration; desiredInterval the configured cadence.
//
// An aligned run is scheduled avgRuntime before the next quarter-hour
// boundary so the plan lands just as prices change. If that boundary is far
// away relative to the cadence, a gap-fill run at now+desiredInterval comes
// first; an aligned run follows naturally later. A boundary too close to
// reach reliably is skipped for the one after.
func NextRun(now time.Time, avgRuntime, desiredInterval time.Duration) (time.Time, RunKind) {
	if desiredInterval <= 0 {
		desiredInterval = time.Minute
	}
	minGap := time.Duration(0.7 * float64(desiredInterval+avgRuntime))
	if minGap < minLead {
		minGap = minLead
	}

	q := now.Truncate(quarter).Add(quarter)
	aligned := q.Add(-avgRuntime)
	if !aligned.After(now) {
		q = q.Add(quarter)
		aligned = q.Add(-avgRuntime)
	}

	untilBoundary := q.Sub(now)
	if untilBoundary >= 2*desiredInterval && untilBoundary >= minGap {
		return now.Add(desiredInterval), RunGapFill
	}

	tooClose := time.Duration(0.5 * float64(avgRuntime))
	if tooClose < minLead {
		tooClose = minLead
	}
	if aligned.Sub(now) < tooClose {
		q = q.Add(quarter)
		aligned = q.Add(-avgRuntime)
	}
	return aligned, RunQuarterAligned
}
