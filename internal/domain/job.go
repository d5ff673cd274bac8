package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobKind identifies which of the four visit anchor points a reminder targets.
type JobKind string

const (
	KindBeforeStart JobKind = "BEFORE_START"
	KindAfterStart  JobKind = "AFTER_START"
	KindBeforeEnd   JobKind = "BEFORE_END"
	KindAfterEnd    JobKind = "AFTER_END"
)

func (k JobKind) String() string { return string(k) }

func (k JobKind) IsValid() bool {
	switch k {
	case KindBeforeStart, KindAfterStart, KindBeforeEnd, KindAfterEnd:
		return true
	}
	return false
}

// Kinds returns all job kinds in schedule-generation order.
func Kinds() []JobKind {
	return []JobKind{KindBeforeStart, KindAfterStart, KindBeforeEnd, KindAfterEnd}
}

func ParseJobKindFromString(s string) (JobKind, error) {
	k := JobKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid job kind %q", ErrValidation, s)
	}
	return k, nil
}

// JobStatus represents the lifecycle state of a reminder job.
// PENDING is the only non-terminal state; SENT, FAILED and SKIPPED are
// one-way transitions guarded by conditional updates in the job store.
type JobStatus string

const (
	StatusPending JobStatus = "PENDING"
	StatusSent    JobStatus = "SENT"
	StatusFailed  JobStatus = "FAILED"
	StatusSkipped JobStatus = "SKIPPED"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further mutation.
func (s JobStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed || s == StatusSkipped
}

func ParseJobStatusFromString(s string) (JobStatus, error) {
	st := JobStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid job status %q", ErrValidation, s)
	}
	return st, nil
}

// ReminderJob is one scheduled reminder tied to a visit.
type ReminderJob struct {
	ID         string
	VisitID    string
	Kind       JobKind
	SendAt     time.Time
	Status     JobStatus
	RetryCount int
	LastError  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (j *ReminderJob) Validate() error {
	if strings.TrimSpace(j.VisitID) == "" {
		return fmt.Errorf("%w: visit id is required", ErrValidation)
	}
	if !j.Kind.IsValid() {
		return fmt.Errorf("%w: invalid job kind %q", ErrValidation, j.Kind)
	}
	if j.SendAt.IsZero() {
		return fmt.Errorf("%w: send time is required", ErrValidation)
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("%w: invalid job status %q", ErrValidation, j.Status)
	}
	if j.RetryCount < 0 {
		return fmt.Errorf("%w: retry count must not be negative", ErrValidation)
	}
	return nil
}

// DueJob is a due reminder joined with the context needed to render and
// deliver it: the owning visit, the caregiver's phone and the patient's name.
type DueJob struct {
	Job       ReminderJob
	Visit     Visit
	Caregiver Caregiver
	Patient   Patient
}
