package domain

import "time"

// ImportBatchStatus represents the processing state of a bulk import.
type ImportBatchStatus string

const (
	ImportBatchStatusProcessing     ImportBatchStatus = "PROCESSING"
	ImportBatchStatusCompleted      ImportBatchStatus = "COMPLETED"
	ImportBatchStatusPartialFailure ImportBatchStatus = "PARTIAL_FAILURE"
)

func (s ImportBatchStatus) String() string { return string(s) }

func (s ImportBatchStatus) IsValid() bool {
	switch s {
	case ImportBatchStatusProcessing, ImportBatchStatusCompleted, ImportBatchStatusPartialFailure:
		return true
	}
	return false
}

// ImportBatch records the outcome of one bulk roster import. Row failures are
// isolated, so a batch with skips still completes; PARTIAL_FAILURE only marks
// that some rows were skipped.
type ImportBatch struct {
	ID           string
	TotalCount   int
	CreatedCount int
	SkippedCount int
	Status       ImportBatchStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
