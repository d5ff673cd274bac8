package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/careops/visit-notify/internal/domain"
	"github.com/careops/visit-notify/internal/observability"
	"github.com/careops/visit-notify/internal/provider"
	"github.com/careops/visit-notify/internal/ratelimit"
	"github.com/careops/visit-notify/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minWorkerConcurrency = 1
	smsRateBucket        = "sms"
)

// WorkerConfig carries the delivery policy constants.
type WorkerConfig struct {
	MaxRetries      int
	StalenessWindow time.Duration
	BatchLimit      int
	SendTimeout     time.Duration
	Concurrency     int
}

// TickResult aggregates what one delivery pass did.
type TickResult struct {
	Processed int
	Sent      int
	Failed    int
	Skipped   int
}

// WorkerService polls for due reminder jobs and delivers them. Overlapping
// ticks are safe: every status transition is a conditional update on
// PENDING, so for any job exactly one caller wins and the rest no-op.
type WorkerService struct {
	jobs        repository.ReminderJobRepository
	attempts    repository.AttemptRepository
	provider    provider.Provider
	rateLimiter ratelimit.RateLimiter
	events      observability.EventSink
	logger      *zap.Logger
	metrics     *observability.Metrics
	loc         *time.Location
	cfg         WorkerConfig
	now         func() time.Time
}

func NewWorkerService(
	jobs repository.ReminderJobRepository,
	attempts repository.AttemptRepository,
	smsProvider provider.Provider,
	rateLimiter ratelimit.RateLimiter,
	events observability.EventSink,
	loc *time.Location,
	cfg WorkerConfig,
	logger *zap.Logger,
) (*WorkerService, error) {
	if jobs == nil {
		return nil, fmt.Errorf("reminder job repository is required")
	}
	if smsProvider == nil {
		return nil, fmt.Errorf("sms provider is required")
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if events == nil {
		events = observability.NopSink{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = 5 * time.Minute
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Concurrency < minWorkerConcurrency {
		cfg.Concurrency = minWorkerConcurrency
	}

	return &WorkerService{
		jobs:        jobs,
		attempts:    attempts,
		provider:    smsProvider,
		rateLimiter: rateLimiter,
		events:      events,
		logger:      logger,
		loc:         loc,
		cfg:         cfg,
		now:         time.Now,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Tick runs one delivery pass: select due jobs, deliver each, record the
// outcome. Only the due-job query can fail the tick; per-job failures are
// isolated and reflected in the result counts.
func (s *WorkerService) Tick(ctx context.Context) (TickResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tickStart := s.now()
	due, err := s.jobs.FindDue(ctx, tickStart, s.cfg.MaxRetries, s.cfg.BatchLimit)
	if err != nil {
		return TickResult{}, fmt.Errorf("failed to fetch due jobs: %w", err)
	}

	var mu sync.Mutex
	result := TickResult{Processed: len(due)}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := range due {
		job := due[i]
		g.Go(func() error {
			outcome := s.processJob(groupCtx, job)

			mu.Lock()
			switch outcome {
			case observability.OutcomeSent:
				result.Sent++
			case observability.OutcomeFailed, observability.OutcomeRetried:
				result.Failed++
			case observability.OutcomeSkipped:
				result.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors from g.Go; Wait only orders completion.
	_ = g.Wait()

	if s.metrics != nil {
		s.metrics.ObserveTickDuration(s.now().Sub(tickStart))
	}

	s.logger.Info("tick finished",
		zap.Int("processed", result.Processed),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}

func (s *WorkerService) processJob(ctx context.Context, due domain.DueJob) observability.DeliveryOutcome {
	if s.metrics != nil {
		s.metrics.IncJobsInFlight()
		defer s.metrics.DecJobsInFlight()
	}

	job := due.Job
	now := s.now()

	if overdue := now.Sub(job.SendAt); overdue > s.cfg.StalenessWindow {
		reason := fmt.Sprintf("stale: %s past target send time, window is %s",
			overdue.Round(time.Second), s.cfg.StalenessWindow)
		won, err := s.jobs.MarkSkipped(ctx, job.ID, reason)
		if err != nil {
			s.logger.Error("failed to mark job skipped",
				zap.String("jobId", job.ID),
				zap.Error(err),
			)
			return observability.OutcomeLost
		}
		if !won {
			return observability.OutcomeLost
		}
		s.emit(job, observability.OutcomeSkipped, reason, 0)
		return observability.OutcomeSkipped
	}

	body, err := domain.RenderMessage(job.Kind, due.Patient.Name, due.Visit.StartTime, due.Visit.EndTime, s.loc)
	if err != nil {
		return s.handleFailure(ctx, job, err, 0)
	}

	if err := s.rateLimiter.Wait(ctx, smsRateBucket); err != nil {
		s.logger.Error("rate limiter wait failed",
			zap.String("jobId", job.ID),
			zap.Error(err),
		)
		return observability.OutcomeLost
	}

	sendStart := s.now()
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	receipt, sendErr := s.provider.Send(sendCtx, due.Caregiver.Phone, body)
	cancel()
	elapsed := s.now().Sub(sendStart)

	s.recordAttempt(ctx, job, receipt, sendErr)

	if sendErr != nil {
		return s.handleFailure(ctx, job, sendErr, elapsed)
	}

	won, err := s.jobs.MarkSent(ctx, job.ID)
	if err != nil {
		s.logger.Error("failed to mark job sent",
			zap.String("jobId", job.ID),
			zap.Error(err),
		)
		return observability.OutcomeLost
	}
	if !won {
		// Another worker resolved this job between selection and update.
		s.emit(job, observability.OutcomeLost, "conditional update lost", elapsed)
		return observability.OutcomeLost
	}

	s.emit(job, observability.OutcomeSent, "", elapsed)
	return observability.OutcomeSent
}

func (s *WorkerService) handleFailure(ctx context.Context, job domain.ReminderJob, cause error, elapsed time.Duration) observability.DeliveryOutcome {
	status, err := s.jobs.MarkFailedOrRetry(ctx, job.ID, cause.Error(), s.cfg.MaxRetries)
	if err != nil {
		s.logger.Error("failed to record delivery failure",
			zap.String("jobId", job.ID),
			zap.Error(err),
		)
		return observability.OutcomeLost
	}

	switch status {
	case domain.StatusFailed:
		s.emit(job, observability.OutcomeFailed, cause.Error(), elapsed)
		return observability.OutcomeFailed
	case domain.StatusPending:
		s.emit(job, observability.OutcomeRetried, cause.Error(), elapsed)
		return observability.OutcomeRetried
	default:
		// A concurrent worker already resolved the job.
		return observability.OutcomeLost
	}
}

func (s *WorkerService) recordAttempt(ctx context.Context, job domain.ReminderJob, receipt *provider.SendReceipt, sendErr error) {
	if s.attempts == nil {
		return
	}

	var providerSID *string
	if receipt != nil && receipt.SID != "" {
		value := receipt.SID
		providerSID = &value
	}

	var attemptErr *string
	if sendErr != nil {
		value := sendErr.Error()
		attemptErr = &value
	}

	attempt := &domain.DeliveryAttempt{
		ID:            uuid.NewString(),
		JobID:         job.ID,
		AttemptNumber: job.RetryCount + 1,
		ProviderSID:   providerSID,
		Error:         attemptErr,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		// The attempt log is an audit trail; losing one row must not change
		// the job outcome.
		s.logger.Warn("failed to record delivery attempt",
			zap.String("jobId", job.ID),
			zap.Error(err),
		)
	}
}

func (s *WorkerService) emit(job domain.ReminderJob, outcome observability.DeliveryOutcome, reason string, elapsed time.Duration) {
	s.events.Emit(observability.DeliveryEvent{
		JobID:      job.ID,
		VisitID:    job.VisitID,
		Kind:       job.Kind.String(),
		Outcome:    outcome,
		RetryCount: job.RetryCount,
		Reason:     reason,
		Elapsed:    elapsed,
	})
}
