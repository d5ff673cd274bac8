package repository

import (
	"context"
	"errors"

	"github.com/careops/visit-notify/internal/domain"
	"gorm.io/gorm"
)

type ImportBatchRepository interface {
	Create(ctx context.Context, b *domain.ImportBatch) error
	GetByID(ctx context.Context, id string) (*domain.ImportBatch, error)
	Finish(ctx context.Context, id string, created, skipped int, status domain.ImportBatchStatus) error
}

type GormImportBatchRepo struct {
	db *gorm.DB
}

func NewGormImportBatchRepo(db *gorm.DB) *GormImportBatchRepo {
	return &GormImportBatchRepo{db: db}
}

func (r *GormImportBatchRepo) Create(ctx context.Context, b *domain.ImportBatch) error {
	model := importBatchModelFromDomain(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if b != nil {
		*b = *importBatchModelToDomain(model)
	}
	return nil
}

func (r *GormImportBatchRepo) GetByID(ctx context.Context, id string) (*domain.ImportBatch, error) {
	var model ImportBatchModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return importBatchModelToDomain(&model), nil
}

func (r *GormImportBatchRepo) Finish(ctx context.Context, id string, created, skipped int, status domain.ImportBatchStatus) error {
	result := r.db.WithContext(ctx).
		Model(&ImportBatchModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"created_count": created,
			"skipped_count": skipped,
			"status":        status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
