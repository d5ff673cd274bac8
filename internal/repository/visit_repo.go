package repository

import (
	"context"
	"errors"
	"time"

	"github.com/careops/visit-notify/internal/domain"
	"gorm.io/gorm"
)

type VisitRepository interface {
	// CreateWithJobs inserts the visit and its reminder jobs in one
	// transaction; either all rows land or none do.
	CreateWithJobs(ctx context.Context, visit *domain.Visit, jobs []*domain.ReminderJob) error
	GetByID(ctx context.Context, id string) (*domain.Visit, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Visit, error)
	CountStartingBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type GormVisitRepo struct {
	db *gorm.DB
}

func NewGormVisitRepo(db *gorm.DB) *GormVisitRepo {
	return &GormVisitRepo{db: db}
}

func (r *GormVisitRepo) CreateWithJobs(ctx context.Context, visit *domain.Visit, jobs []*domain.ReminderJob) error {
	visitModel := visitModelFromDomain(visit)

	jobModels := make([]ReminderJobModel, 0, len(jobs))
	jobIndexes := make([]int, 0, len(jobs))
	for i, job := range jobs {
		model := jobModelFromDomain(job)
		if model != nil {
			jobModels = append(jobModels, *model)
			jobIndexes = append(jobIndexes, i)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Caregiver", "Patient").Create(visitModel).Error; err != nil {
			return err
		}
		if len(jobModels) == 0 {
			return nil
		}
		return tx.Omit("Visit").CreateInBatches(&jobModels, 100).Error
	})
	if err != nil {
		return err
	}

	if visit != nil {
		*visit = *visitModelToDomain(visitModel)
	}
	for i := range jobModels {
		idx := jobIndexes[i]
		if idx < len(jobs) && jobs[idx] != nil {
			*jobs[idx] = *jobModelToDomain(&jobModels[i])
		}
	}

	return nil
}

func (r *GormVisitRepo) GetByID(ctx context.Context, id string) (*domain.Visit, error) {
	var model VisitModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return visitModelToDomain(&model), nil
}

func (r *GormVisitRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Visit, error) {
	var model VisitModel
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return visitModelToDomain(&model), nil
}

func (r *GormVisitRepo) CountStartingBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&VisitModel{}).
		Where("start_time >= ? AND start_time <= ?", from, to).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
