package repository

import (
	"context"
	"errors"

	"github.com/careops/visit-notify/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CaregiverRepository interface {
	// UpsertByExternalCode inserts the caregiver or, when the external code
	// already exists, refreshes the mutable name and phone fields. The stored
	// row is returned either way.
	UpsertByExternalCode(ctx context.Context, c *domain.Caregiver) (*domain.Caregiver, error)
	GetByID(ctx context.Context, id string) (*domain.Caregiver, error)
}

type PatientRepository interface {
	// UpsertByAdmissionID inserts the patient or refreshes the name when the
	// admission id already exists.
	UpsertByAdmissionID(ctx context.Context, p *domain.Patient) (*domain.Patient, error)
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
}

type GormCaregiverRepo struct {
	db *gorm.DB
}

func NewGormCaregiverRepo(db *gorm.DB) *GormCaregiverRepo {
	return &GormCaregiverRepo{db: db}
}

func (r *GormCaregiverRepo) UpsertByExternalCode(ctx context.Context, c *domain.Caregiver) (*domain.Caregiver, error) {
	model := caregiverModelFromDomain(c)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return nil, err
	}

	// Re-read by natural key: on conflict the generated id in model is not
	// the stored row's id.
	var stored CaregiverModel
	err = r.db.WithContext(ctx).
		Where("external_code = ?", model.ExternalCode).
		First(&stored).Error
	if err != nil {
		return nil, err
	}

	return caregiverModelToDomain(&stored), nil
}

func (r *GormCaregiverRepo) GetByID(ctx context.Context, id string) (*domain.Caregiver, error) {
	var model CaregiverModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return caregiverModelToDomain(&model), nil
}

type GormPatientRepo struct {
	db *gorm.DB
}

func NewGormPatientRepo(db *gorm.DB) *GormPatientRepo {
	return &GormPatientRepo{db: db}
}

func (r *GormPatientRepo) UpsertByAdmissionID(ctx context.Context, p *domain.Patient) (*domain.Patient, error) {
	model := patientModelFromDomain(p)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "admission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return nil, err
	}

	var stored PatientModel
	err = r.db.WithContext(ctx).
		Where("admission_id = ?", model.AdmissionID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}

	return patientModelToDomain(&stored), nil
}

func (r *GormPatientRepo) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	var model PatientModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return patientModelToDomain(&model), nil
}
