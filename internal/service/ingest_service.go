package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careops/visit-notify/internal/domain"
	"github.com/careops/visit-notify/internal/importer"
	"github.com/careops/visit-notify/internal/observability"
	"github.com/careops/visit-notify/internal/repository"
	"github.com/careops/visit-notify/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IngestService creates visits and their derived reminder jobs.
type IngestService struct {
	visits     repository.VisitRepository
	jobs       repository.ReminderJobRepository
	caregivers repository.CaregiverRepository
	patients   repository.PatientRepository
	batches    repository.ImportBatchRepository
	phones     *domain.PhonePolicy
	loc        *time.Location
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// CreateVisitInput is the single-visit ingestion payload. ExternalID is
// optional; idempotency applies only when it is set.
type CreateVisitInput struct {
	ExternalID  *string
	CaregiverID string
	PatientID   string
	StartTime   time.Time
	EndTime     time.Time
}

// ImportResult is the aggregate outcome of a bulk import.
type ImportResult struct {
	BatchID string
	Created int
	Skipped int
	Total   int
}

func NewIngestService(
	visits repository.VisitRepository,
	jobs repository.ReminderJobRepository,
	caregivers repository.CaregiverRepository,
	patients repository.PatientRepository,
	batches repository.ImportBatchRepository,
	phones *domain.PhonePolicy,
	loc *time.Location,
	logger *zap.Logger,
) (*IngestService, error) {
	if visits == nil {
		return nil, fmt.Errorf("visit repository is required")
	}
	if phones == nil {
		return nil, fmt.Errorf("phone policy is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IngestService{
		visits:     visits,
		jobs:       jobs,
		caregivers: caregivers,
		patients:   patients,
		batches:    batches,
		phones:     phones,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *IngestService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// CreateVisit validates and persists a visit plus its reminder jobs in one
// transaction. Calling it again with the same external id returns the
// existing visit with created=false; the unique index on external_id is the
// guarantee, the pre-check below only saves a round trip.
func (s *IngestService) CreateVisit(ctx context.Context, input CreateVisitInput) (*domain.Visit, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	visit := &domain.Visit{
		ID:          uuid.NewString(),
		ExternalID:  normalizeOptionalString(input.ExternalID),
		CaregiverID: strings.TrimSpace(input.CaregiverID),
		PatientID:   strings.TrimSpace(input.PatientID),
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
	}
	if err := visit.Validate(); err != nil {
		return nil, false, err
	}

	if visit.ExternalID != nil {
		existing, err := s.visits.GetByExternalID(ctx, *visit.ExternalID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to check existing visit: %w", err)
		}
	}

	jobs, filtered := s.buildJobs(visit)
	if filtered > 0 {
		s.logger.Info("dropped reminders already in the past",
			zap.String("visitId", visit.ID),
			zap.Int("filtered", filtered),
		)
	}

	if err := s.visits.CreateWithJobs(ctx, visit, jobs); err != nil {
		existing, resolved, resolveErr := s.resolveExternalIDConflict(ctx, err, visit.ExternalID)
		if resolveErr != nil {
			return nil, false, resolveErr
		}
		if resolved {
			return existing, false, nil
		}
		return nil, false, err
	}

	s.logger.Info("visit created",
		zap.String("visitId", visit.ID),
		zap.Int("jobs", len(jobs)),
	)

	return visit, true, nil
}

// buildJobs runs the schedule generator and drops entries whose send time has
// already elapsed. A visit whose window is entirely in the past is still
// created, just with no jobs.
func (s *IngestService) buildJobs(visit *domain.Visit) ([]*domain.ReminderJob, int) {
	now := s.now()
	entries := schedule.Generate(visit.StartTime, visit.EndTime)

	jobs := make([]*domain.ReminderJob, 0, len(entries))
	filtered := 0
	for _, entry := range entries {
		if entry.SendAt.Before(now) {
			filtered++
			continue
		}
		jobs = append(jobs, &domain.ReminderJob{
			ID:      uuid.NewString(),
			VisitID: visit.ID,
			Kind:    entry.Kind,
			SendAt:  entry.SendAt,
			Status:  domain.StatusPending,
		})
	}

	return jobs, filtered
}

// ImportRows ingests parsed roster rows. Each row is isolated: validation
// failures, bad phones and bad time ranges skip the row and the batch
// continues. A row whose visit already exists also counts as skipped.
func (s *IngestService) ImportRows(ctx context.Context, rows []importer.Row) (*ImportResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	batch := &domain.ImportBatch{
		ID:         uuid.NewString(),
		TotalCount: len(rows),
		Status:     domain.ImportBatchStatusProcessing,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create import batch: %w", err)
	}

	created := 0
	skipped := 0
	for i := range rows {
		row := rows[i]
		ok, err := s.importRow(ctx, &row)
		if err != nil {
			skipped++
			if s.metrics != nil {
				s.metrics.IncImportRow("skipped")
			}
			s.logger.Warn("import row skipped",
				zap.Int("rowIndex", i),
				zap.String("visitExternalId", row.VisitExternalID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			skipped++
			if s.metrics != nil {
				s.metrics.IncImportRow("duplicate")
			}
			continue
		}
		created++
		if s.metrics != nil {
			s.metrics.IncImportRow("created")
		}
	}

	status := domain.ImportBatchStatusCompleted
	if skipped > 0 {
		status = domain.ImportBatchStatusPartialFailure
	}
	if err := s.batches.Finish(ctx, batch.ID, created, skipped, status); err != nil {
		return nil, fmt.Errorf("failed to finish import batch: %w", err)
	}

	s.logger.Info("import batch finished",
		zap.String("batchId", batch.ID),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
		zap.Int("total", len(rows)),
	)

	return &ImportResult{
		BatchID: batch.ID,
		Created: created,
		Skipped: skipped,
		Total:   len(rows),
	}, nil
}

// importRow returns (true, nil) when a new visit was created and (false, nil)
// when the visit already existed.
func (s *IngestService) importRow(ctx context.Context, row *importer.Row) (bool, error) {
	if err := row.Validate(); err != nil {
		return false, err
	}

	phone, err := s.phones.Normalize(row.CaregiverPhone)
	if err != nil {
		return false, err
	}

	start, end, err := importer.ParseTimeRange(row.VisitDate, row.Scheduled, s.loc)
	if err != nil {
		return false, err
	}

	caregiver, err := s.caregivers.UpsertByExternalCode(ctx, &domain.Caregiver{
		ID:           uuid.NewString(),
		ExternalCode: row.CaregiverCode,
		Name:         row.CaregiverName,
		Phone:        phone,
	})
	if err != nil {
		return false, fmt.Errorf("caregiver upsert failed: %w", err)
	}

	patient, err := s.patients.UpsertByAdmissionID(ctx, &domain.Patient{
		ID:          uuid.NewString(),
		AdmissionID: row.AdmissionID,
		Name:        row.PatientName,
	})
	if err != nil {
		return false, fmt.Errorf("patient upsert failed: %w", err)
	}

	externalID := row.VisitExternalID
	_, createdNew, err := s.CreateVisit(ctx, CreateVisitInput{
		ExternalID:  &externalID,
		CaregiverID: caregiver.ID,
		PatientID:   patient.ID,
		StartTime:   start,
		EndTime:     end,
	})
	if err != nil {
		return false, err
	}

	return createdNew, nil
}

// GetVisit returns a visit with its reminder jobs.
func (s *IngestService) GetVisit(ctx context.Context, id string) (*domain.Visit, []domain.ReminderJob, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: visit id is required", domain.ErrValidation)
	}

	visit, err := s.visits.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, nil, err
	}

	jobs, err := s.jobs.ListByVisit(ctx, visit.ID)
	if err != nil {
		return nil, nil, err
	}

	return visit, jobs, nil
}

func (s *IngestService) resolveExternalIDConflict(
	ctx context.Context,
	createErr error,
	externalID *string,
) (*domain.Visit, bool, error) {
	if externalID == nil || strings.TrimSpace(*externalID) == "" {
		return nil, false, nil
	}
	if !isUniqueViolationError(createErr) {
		return nil, false, nil
	}

	existing, err := s.visits.GetByExternalID(ctx, strings.TrimSpace(*externalID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing visit after idempotency conflict: %w", err)
	}
	s.logger.Info("idempotency conflict resolved",
		zap.String("existingId", existing.ID),
		zap.String("externalId", *externalID),
	)
	return existing, true, nil
}

func normalizeOptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
