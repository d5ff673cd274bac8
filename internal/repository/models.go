package repository

import (
	"time"

	"github.com/careops/visit-notify/internal/domain"
)

// CaregiverModel is the persistence model for the caregivers table.
type CaregiverModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	ExternalCode string `gorm:"type:varchar(64);not null"`
	Name         string `gorm:"type:varchar(255);not null"`
	Phone        string `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CaregiverModel) TableName() string { return "caregivers" }

// PatientModel is the persistence model for the patients table.
type PatientModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	AdmissionID string `gorm:"type:varchar(64);not null"`
	Name        string `gorm:"type:varchar(255);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PatientModel) TableName() string { return "patients" }

// VisitModel is the persistence model for the visits table.
type VisitModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ExternalID  *string   `gorm:"type:varchar(128)"`
	CaregiverID string    `gorm:"type:uuid;not null"`
	PatientID   string    `gorm:"type:uuid;not null"`
	StartTime   time.Time `gorm:"type:timestamptz;not null"`
	EndTime     time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Caregiver CaregiverModel `gorm:"foreignKey:CaregiverID"`
	Patient   PatientModel   `gorm:"foreignKey:PatientID"`
}

func (VisitModel) TableName() string { return "visits" }

// ReminderJobModel is the persistence model for the reminder_jobs table.
type ReminderJobModel struct {
	ID         string           `gorm:"type:uuid;primaryKey"`
	VisitID    string           `gorm:"type:uuid;not null"`
	Kind       domain.JobKind   `gorm:"type:varchar(20);not null"`
	SendAt     time.Time        `gorm:"type:timestamptz;not null"`
	Status     domain.JobStatus `gorm:"type:varchar(10);not null"`
	RetryCount int              `gorm:"not null;default:0"`
	LastError  *string          `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Visit VisitModel `gorm:"foreignKey:VisitID"`
}

func (ReminderJobModel) TableName() string { return "reminder_jobs" }

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	JobID         string  `gorm:"type:uuid;not null"`
	AttemptNumber int     `gorm:"not null"`
	ProviderSID   *string `gorm:"type:varchar(64)"`
	Error         *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (DeliveryAttemptModel) TableName() string { return "delivery_attempts" }

// ImportBatchModel is the persistence model for import_batches.
type ImportBatchModel struct {
	ID           string                   `gorm:"type:uuid;primaryKey"`
	TotalCount   int                      `gorm:"not null"`
	CreatedCount int                      `gorm:"not null;default:0"`
	SkippedCount int                      `gorm:"not null;default:0"`
	Status       domain.ImportBatchStatus `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ImportBatchModel) TableName() string { return "import_batches" }

func caregiverModelFromDomain(c *domain.Caregiver) *CaregiverModel {
	if c == nil {
		return nil
	}
	return &CaregiverModel{
		ID:           c.ID,
		ExternalCode: c.ExternalCode,
		Name:         c.Name,
		Phone:        c.Phone,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func caregiverModelToDomain(m *CaregiverModel) *domain.Caregiver {
	if m == nil {
		return nil
	}
	return &domain.Caregiver{
		ID:           m.ID,
		ExternalCode: m.ExternalCode,
		Name:         m.Name,
		Phone:        m.Phone,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func patientModelFromDomain(p *domain.Patient) *PatientModel {
	if p == nil {
		return nil
	}
	return &PatientModel{
		ID:          p.ID,
		AdmissionID: p.AdmissionID,
		Name:        p.Name,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func patientModelToDomain(m *PatientModel) *domain.Patient {
	if m == nil {
		return nil
	}
	return &domain.Patient{
		ID:          m.ID,
		AdmissionID: m.AdmissionID,
		Name:        m.Name,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func visitModelFromDomain(v *domain.Visit) *VisitModel {
	if v == nil {
		return nil
	}
	return &VisitModel{
		ID:          v.ID,
		ExternalID:  v.ExternalID,
		CaregiverID: v.CaregiverID,
		PatientID:   v.PatientID,
		StartTime:   v.StartTime,
		EndTime:     v.EndTime,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func visitModelToDomain(m *VisitModel) *domain.Visit {
	if m == nil {
		return nil
	}
	return &domain.Visit{
		ID:          m.ID,
		ExternalID:  m.ExternalID,
		CaregiverID: m.CaregiverID,
		PatientID:   m.PatientID,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func jobModelFromDomain(j *domain.ReminderJob) *ReminderJobModel {
	if j == nil {
		return nil
	}
	return &ReminderJobModel{
		ID:         j.ID,
		VisitID:    j.VisitID,
		Kind:       j.Kind,
		SendAt:     j.SendAt,
		Status:     j.Status,
		RetryCount: j.RetryCount,
		LastError:  j.LastError,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

func jobModelToDomain(m *ReminderJobModel) *domain.ReminderJob {
	if m == nil {
		return nil
	}
	return &domain.ReminderJob{
		ID:         m.ID,
		VisitID:    m.VisitID,
		Kind:       m.Kind,
		SendAt:     m.SendAt,
		Status:     m.Status,
		RetryCount: m.RetryCount,
		LastError:  m.LastError,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}
	return &DeliveryAttemptModel{
		ID:            a.ID,
		JobID:         a.JobID,
		AttemptNumber: a.AttemptNumber,
		ProviderSID:   a.ProviderSID,
		Error:         a.Error,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}
	return &domain.DeliveryAttempt{
		ID:            m.ID,
		JobID:         m.JobID,
		AttemptNumber: m.AttemptNumber,
		ProviderSID:   m.ProviderSID,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
	}
}

func importBatchModelFromDomain(b *domain.ImportBatch) *ImportBatchModel {
	if b == nil {
		return nil
	}
	return &ImportBatchModel{
		ID:           b.ID,
		TotalCount:   b.TotalCount,
		CreatedCount: b.CreatedCount,
		SkippedCount: b.SkippedCount,
		Status:       b.Status,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func importBatchModelToDomain(m *ImportBatchModel) *domain.ImportBatch {
	if m == nil {
		return nil
	}
	return &domain.ImportBatch{
		ID:           m.ID,
		TotalCount:   m.TotalCount,
		CreatedCount: m.CreatedCount,
		SkippedCount: m.SkippedCount,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
