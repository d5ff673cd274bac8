package domain

import (
	"fmt"
	"time"
)

// clockFormat renders a wall-clock time like "01:05 PM".
const clockFormat = "03:04 PM"

// RenderMessage builds the SMS body for a reminder. Times are rendered in the
// supplied location, which is the visit's governing timezone; the worker may
// run in a different zone than the recipient, so server-local formatting is
// never correct here.
func RenderMessage(kind JobKind, patientName string, start, end time.Time, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}

	switch kind {
	case KindBeforeStart:
		return fmt.Sprintf("Please perform your ClockIN for %s at %s.",
			patientName, start.In(loc).Format(clockFormat)), nil
	case KindAfterStart:
		return fmt.Sprintf("Gentle Reminder: Please ClockIN for %s.", patientName), nil
	case KindBeforeEnd:
		return fmt.Sprintf("Please perform your ClockOUT for %s at %s.",
			patientName, end.In(loc).Format(clockFormat)), nil
	case KindAfterEnd:
		return fmt.Sprintf("Gentle Reminder: Please ClockOUT for %s.", patientName), nil
	default:
		return "", fmt.Errorf("%w: no message template for job kind %q", ErrValidation, kind)
	}
}
