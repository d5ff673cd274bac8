// Package importer validates and parses bulk roster rows into ingestion input.
package importer

import (
	"fmt"
	"strings"

	"github.com/careops/visit-notify/internal/domain"
)

// Row is one parsed spreadsheet record as supplied by the upload collaborator.
type Row struct {
	CaregiverName   string `json:"caregiverName"`
	CaregiverCode   string `json:"caregiverCode"`
	CaregiverPhone  string `json:"caregiverPhone"`
	PatientName     string `json:"patientName"`
	AdmissionID     string `json:"admissionId"`
	VisitExternalID string `json:"visitExternalId"`
	VisitDate       string `json:"visitDate"` // MM/DD/YYYY
	Scheduled       string `json:"scheduled"` // HHMM-HHMM
}

func (r *Row) normalize() {
	r.CaregiverName = strings.TrimSpace(r.CaregiverName)
	r.CaregiverCode = strings.TrimSpace(r.CaregiverCode)
	r.CaregiverPhone = strings.TrimSpace(r.CaregiverPhone)
	r.PatientName = strings.TrimSpace(r.PatientName)
	r.AdmissionID = strings.TrimSpace(r.AdmissionID)
	r.VisitExternalID = strings.TrimSpace(r.VisitExternalID)
	r.VisitDate = strings.TrimSpace(r.VisitDate)
	r.Scheduled = strings.TrimSpace(r.Scheduled)
}

// Validate trims all fields and checks the row carries complete caregiver,
// patient and visit data. Phone format and time-range parsing are checked
// separately so their failures carry more specific messages.
func (r *Row) Validate() error {
	r.normalize()

	if r.CaregiverName == "" || r.CaregiverCode == "" || r.CaregiverPhone == "" {
		return fmt.Errorf("%w: incomplete caregiver data", domain.ErrValidation)
	}
	if r.PatientName == "" || r.AdmissionID == "" {
		return fmt.Errorf("%w: incomplete patient data", domain.ErrValidation)
	}
	if r.VisitExternalID == "" || r.VisitDate == "" || r.Scheduled == "" {
		return fmt.Errorf("%w: incomplete visit data", domain.ErrValidation)
	}
	return nil
}
