package domain

import "time"

// DeliveryAttempt records a single transport call for a reminder job.
type DeliveryAttempt struct {
	ID            string
	JobID         string
	AttemptNumber int
	ProviderSID   *string
	Error         *string
	CreatedAt     time.Time
}
