// Package schedule derives reminder send times from a visit time window.
package schedule

import (
	"time"

	"github.com/careops/visit-notify/internal/domain"
)

// ReminderOffset is the fixed distance between each visit anchor point and
// its reminder.
const ReminderOffset = 5 * time.Minute

// Entry pairs a job kind with its target send time.
type Entry struct {
	Kind   domain.JobKind
	SendAt time.Time
}

// Generate returns the four reminder entries for a visit window, in
// declaration order of the kinds. It is pure: same inputs, same outputs.
func Generate(start, end time.Time) []Entry {
	return []Entry{
		{Kind: domain.KindBeforeStart, SendAt: start.Add(-ReminderOffset)},
		{Kind: domain.KindAfterStart, SendAt: start.Add(ReminderOffset)},
		{Kind: domain.KindBeforeEnd, SendAt: end.Add(-ReminderOffset)},
		{Kind: domain.KindAfterEnd, SendAt: end.Add(ReminderOffset)},
	}
}
