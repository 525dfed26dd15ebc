package usecase

import "time"

// ShouldResetForNewDay reports whether a run's counters belong to a
// previous calendar day. A run is a per-day unit of work, not an eternal
// cursor: yesterday's exhausted quota must not block today's sync.
// Both timestamps are compared on their UTC calendar date.
func ShouldResetForNewDay(lastUpdated, now time.Time) bool {
	if lastUpdated.IsZero() {
		return false
	}
	lastY, lastM, lastD := lastUpdated.UTC().Date()
	nowY, nowM, nowD := now.UTC().Date()
	return lastY != nowY || lastM != nowM || lastD != nowD
}
