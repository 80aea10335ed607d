package finance

import (
	"strings"
	"time"
)

// NextDueDate predicts the next occurrence of a recurring charge from its
// last occurrence and frequency label. A nil last date yields nil; a last
// date already in the future is returned unchanged.
//
// Weekly, biweekly, and monthly frequencies catch up past-due dates by
// stepping forward until the result is on or after now. Annual charges take
// a single +1 year step with no catch-up loop: an annual bill several years
// stale would otherwise predict far into the future, and in practice the row
// gets regenerated long before that matters. Unrecognized frequencies fall
// back to a flat 30 days.
func NextDueDate(last *time.Time, frequency string, now time.Time) *time.Time {
	if last == nil {
		return nil
	}
	if last.After(now) {
		d := *last
		return &d
	}

	next := *last
	switch strings.ToUpper(strings.TrimSpace(frequency)) {
	case "WEEKLY":
		for !next.After(now) && !next.Equal(now) {
			next = next.AddDate(0, 0, 7)
		}
	case "BIWEEKLY":
		for !next.After(now) && !next.Equal(now) {
			next = next.AddDate(0, 0, 14)
		}
	case "MONTHLY", "APPROXIMATELY_MONTHLY":
		for !next.After(now) && !next.Equal(now) {
			next = next.AddDate(0, 1, 0)
		}
	case "ANNUALLY", "YEARLY":
		next = next.AddDate(1, 0, 0)
	default:
		next = next.AddDate(0, 0, 30)
	}

	return &next
}
