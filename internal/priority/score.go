// Package priority computes the derived ranking scalar for tasks.
package priority

import "time"

const (
	// ImportanceWeight and UrgencyWeight combine the oracle scores.
	// Urgency is weighted higher so near-term pressure wins ties.
	ImportanceWeight = 0.4
	UrgencyWeight    = 0.6

	// DeadlineBoost is added while a deadline sits inside the boost
	// window. Overdue tasks get the same boost: that is the cap.
	DeadlineBoost = 2.0
	// BoostWindow is how far ahead a deadline starts boosting priority
	BoostWindow = 7 * 24 * time.Hour

	// HighPriorityThreshold marks tasks worth surfacing in the daily
	// view even without a deadline today.
	HighPriorityThreshold = 4.5
)

// Score combines importance, urgency, and deadline proximity into one
// comparable value. The boost is flat inside the window, so the score
// is monotonic as the deadline approaches and shifting a deadline that
// stays inside (or outside) the window leaves the score unchanged.
// Fine-grained proximity ordering is the suggestion engine's deadline
// tie-break, not part of the score.
func Score(importance, urgency int, deadline *time.Time, now time.Time) float64 {
	base := ImportanceWeight*float64(importance) + UrgencyWeight*float64(urgency)
	return base + deadlineBoost(deadline, now)
}

func deadlineBoost(deadline *time.Time, now time.Time) float64 {
	if deadline == nil {
		return 0
	}
	if deadline.Sub(now) < BoostWindow {
		return DeadlineBoost
	}
	return 0
}

// DueToday reports whether a deadline falls on the caller's current
// calendar date.
func DueToday(deadline *time.Time, now time.Time) bool {
	if deadline == nil {
		return false
	}
	dy, dm, dd := deadline.Date()
	ny, nm, nd := now.Date()
	return dy == ny && dm == nm && dd == nd
}
