package repository

import (
	"context"
	"errors"
	"time"

	"github.com/careops/visit-notify/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusCount is one row of the per-status job aggregate.
type StatusCount struct {
	Status domain.JobStatus `gorm:"column:status"`
	Count  int64            `gorm:"column:count"`
}

type ReminderJobRepository interface {
	// FindDue returns pending jobs whose send time has passed and whose retry
	// budget is not exhausted, most overdue first. Ties on send time break by
	// id so the order is stable across ticks.
	FindDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]domain.DueJob, error)

	// MarkSent transitions the job to SENT only if it is still PENDING.
	// won=false means another worker finished the job first; that is a no-op,
	// not an error.
	MarkSent(ctx context.Context, id string) (won bool, err error)

	// MarkFailedOrRetry increments the retry counter and records the error.
	// The job moves to FAILED when the new counter reaches maxRetries and
	// stays PENDING otherwise. Returns the resulting status.
	MarkFailedOrRetry(ctx context.Context, id string, errMsg string, maxRetries int) (domain.JobStatus, error)

	// MarkSkipped transitions a stale job to SKIPPED with a reason, only if
	// it is still PENDING.
	MarkSkipped(ctx context.Context, id string, reason string) (won bool, err error)

	ListByVisit(ctx context.Context, visitID string) ([]domain.ReminderJob, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

type GormReminderJobRepo struct {
	db *gorm.DB
}

func NewGormReminderJobRepo(db *gorm.DB) *GormReminderJobRepo {
	return &GormReminderJobRepo{db: db}
}

func (r *GormReminderJobRepo) FindDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
	var models []ReminderJobModel
	err := r.db.WithContext(ctx).
		Preload("Visit").
		Preload("Visit.Caregiver").
		Preload("Visit.Patient").
		Where("status = ? AND send_at <= ? AND retry_count < ?", domain.StatusPending, now, maxRetries).
		Order("send_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	due := make([]domain.DueJob, 0, len(models))
	for i := range models {
		model := &models[i]
		due = append(due, domain.DueJob{
			Job:       *jobModelToDomain(model),
			Visit:     *visitModelToDomain(&model.Visit),
			Caregiver: *caregiverModelToDomain(&model.Visit.Caregiver),
			Patient:   *patientModelToDomain(&model.Visit.Patient),
		})
	}

	return due, nil
}

func (r *GormReminderJobRepo) MarkSent(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderJobModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":     domain.StatusSent,
			"last_error": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormReminderJobRepo) MarkFailedOrRetry(ctx context.Context, id string, errMsg string, maxRetries int) (domain.JobStatus, error) {
	var resulting domain.JobStatus

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ReminderJobModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		// Terminal states are never mutated; a concurrent worker already
		// resolved the job.
		if model.Status != domain.StatusPending {
			resulting = model.Status
			return nil
		}

		newCount := model.RetryCount + 1
		newStatus := domain.StatusPending
		if newCount >= maxRetries {
			newStatus = domain.StatusFailed
		}

		if err := tx.Model(&model).Updates(map[string]any{
			"retry_count": newCount,
			"last_error":  errMsg,
			"status":      newStatus,
		}).Error; err != nil {
			return err
		}

		resulting = newStatus
		return nil
	})
	if err != nil {
		return "", err
	}

	return resulting, nil
}

func (r *GormReminderJobRepo) MarkSkipped(ctx context.Context, id string, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderJobModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":     domain.StatusSkipped,
			"last_error": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormReminderJobRepo) ListByVisit(ctx context.Context, visitID string) ([]domain.ReminderJob, error) {
	var models []ReminderJobModel
	err := r.db.WithContext(ctx).
		Where("visit_id = ?", visitID).
		Order("send_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.ReminderJob, 0, len(models))
	for i := range models {
		jobs = append(jobs, *jobModelToDomain(&models[i]))
	}

	return jobs, nil
}

func (r *GormReminderJobRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).
		Model(&ReminderJobModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
