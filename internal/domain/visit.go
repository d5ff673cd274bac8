package domain

import (
	"fmt"
	"strings"
	"time"
)

// Caregiver is the reminder recipient, identified by an external roster code.
type Caregiver struct {
	ID           string
	ExternalCode string
	Name         string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Caregiver) Validate() error {
	if strings.TrimSpace(c.ExternalCode) == "" {
		return fmt.Errorf("%w: caregiver code is required", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: caregiver name is required", ErrValidation)
	}
	if strings.TrimSpace(c.Phone) == "" {
		return fmt.Errorf("%w: caregiver phone is required", ErrValidation)
	}
	return nil
}

// Patient is the visit subject, identified by an admission id.
type Patient struct {
	ID          string
	AdmissionID string
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Patient) Validate() error {
	if strings.TrimSpace(p.AdmissionID) == "" {
		return fmt.Errorf("%w: admission id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: patient name is required", ErrValidation)
	}
	return nil
}

// Visit is a scheduled caregiver/patient appointment window. Visits are
// immutable once created; reminder jobs are derived from the window at
// ingestion time.
//
// ExternalID is optional. Idempotent ingestion is guaranteed only when the
// caller supplies one; visits created without it can be duplicated by
// repeated calls.
type Visit struct {
	ID          string
	ExternalID  *string
	CaregiverID string
	PatientID   string
	StartTime   time.Time
	EndTime     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (v *Visit) Validate() error {
	if strings.TrimSpace(v.CaregiverID) == "" {
		return fmt.Errorf("%w: caregiver id is required", ErrValidation)
	}
	if strings.TrimSpace(v.PatientID) == "" {
		return fmt.Errorf("%w: patient id is required", ErrValidation)
	}
	if v.StartTime.IsZero() || v.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end times are required", ErrValidation)
	}
	if !v.StartTime.Before(v.EndTime) {
		return fmt.Errorf("%w: start time must be before end time", ErrValidation)
	}
	if v.ExternalID != nil && strings.TrimSpace(*v.ExternalID) == "" {
		return fmt.Errorf("%w: external id must not be blank", ErrValidation)
	}
	return nil
}
