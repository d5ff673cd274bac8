package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/careops/visit-notify/internal/domain"
	"github.com/careops/visit-notify/internal/observability"
	"github.com/careops/visit-notify/internal/provider"
	"github.com/careops/visit-notify/internal/repository"
	"go.uber.org/zap"
)

func newDueJob(id string, kind domain.JobKind, sendAt time.Time) domain.DueJob {
	start := sendAt.Add(5 * time.Minute)
	return domain.DueJob{
		Job: domain.ReminderJob{
			ID:      id,
			VisitID: "v1",
			Kind:    kind,
			SendAt:  sendAt,
			Status:  domain.StatusPending,
		},
		Visit: domain.Visit{
			ID:          "v1",
			CaregiverID: "c1",
			PatientID:   "p1",
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
		},
		Caregiver: domain.Caregiver{ID: "c1", ExternalCode: "CG-1", Name: "Dana", Phone: "+15551230001"},
		Patient:   domain.Patient{ID: "p1", AdmissionID: "A-1", Name: "John Doe"},
	}
}

func TestWorkerServiceTickSendsDueJob(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	due := newDueJob("j1", domain.KindBeforeStart, now.Add(-time.Minute))

	var markedSent []string
	jobs := &fakeJobRepo{
		findDueFn: func(ctx context.Context, at time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
			if maxRetries != 3 {
				t.Fatalf("maxRetries = %d, want 3", maxRetries)
			}
			if limit != 100 {
				t.Fatalf("limit = %d, want 100", limit)
			}
			return []domain.DueJob{due}, nil
		},
		markSentFn: func(ctx context.Context, id string) (bool, error) {
			markedSent = append(markedSent, id)
			return true, nil
		},
	}

	var gotAttempt *domain.DeliveryAttempt
	attempts := &fakeAttemptRepo{
		createFn: func(ctx context.Context, a *domain.DeliveryAttempt) error {
			gotAttempt = a
			return nil
		},
	}

	var sentTo, sentBody string
	smsProvider := &fakeProvider{
		sendFn: func(ctx context.Context, to, body string) (*provider.SendReceipt, error) {
			sentTo = to
			sentBody = body
			return &provider.SendReceipt{SID: "SM123", Status: "queued", StatusCode: 201}, nil
		},
	}

	limiter := &fakeRateLimiter{
		waitFn: func(ctx context.Context, bucket string) error {
			if bucket != "sms" {
				t.Fatalf("bucket = %q, want sms", bucket)
			}
			return nil
		},
	}

	sink := &recordingSink{}

	worker, err := NewWorkerService(jobs, attempts, smsProvider, limiter, sink, time.UTC, WorkerConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}
	worker.now = func() time.Time { return now }

	result, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if result.Processed != 1 || result.Sent != 1 {
		t.Fatalf("result = %+v, want processed=1 sent=1", result)
	}
	if sentTo != "+15551230001" {
		t.Fatalf("sent to = %q, want +15551230001", sentTo)
	}
	wantBody := "Please perform your ClockIN for John Doe at 09:04 AM."
	if sentBody != wantBody {
		t.Fatalf("body = %q, want %q", sentBody, wantBody)
	}
	if len(markedSent) != 1 || markedSent[0] != "j1" {
		t.Fatalf("marked sent = %v, want [j1]", markedSent)
	}
	if gotAttempt == nil {
		t.Fatal("attempt should be recorded")
	}
	if gotAttempt.AttemptNumber != 1 {
		t.Fatalf("attempt number = %d, want 1", gotAttempt.AttemptNumber)
	}
	if gotAttempt.ProviderSID == nil || *gotAttempt.ProviderSID != "SM123" {
		t.Fatalf("provider sid = %v, want SM123", gotAttempt.ProviderSID)
	}
	events := sink.Events()
	if len(events) != 1 || events[0].Outcome != observability.OutcomeSent {
		t.Fatalf("events = %+v, want one OutcomeSent", events)
	}
}

func TestWorkerServiceTickRetriesOnSendFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	due := newDueJob("j2", domain.KindAfterStart, now.Add(-time.Minute))
	due.Job.RetryCount = 1

	var failedID, failedMsg string
	jobs := &fakeJobRepo{
		findDueFn: func(ctx context.Context, at time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
			return []domain.DueJob{due}, nil
		},
		markFailedOrRetryFn: func(ctx context.Context, id, errMsg string, maxRetries int) (domain.JobStatus, error) {
			failedID = id
			failedMsg = errMsg
			return domain.StatusPending, nil
		},
	}
	attempts := &fakeAttemptRepo{
		createFn: func(ctx context.Context, a *domain.DeliveryAttempt) error {
			if a.Error == nil {
				t.Fatal("attempt error should be recorded")
			}
			if a.AttemptNumber != 2 {
				t.Fatalf("attempt number = %d, want 2", a.AttemptNumber)
			}
			return nil
		},
	}
	smsProvider := &fakeProvider{
		sendFn: func(ctx context.Context, to, body string) (*provider.SendReceipt, error) {
			return nil, &provider.ProviderError{StatusCode: 500, Message: "upstream unavailable"}
		},
	}
	sink := &recordingSink{}

	worker, err := NewWorkerService(jobs, attempts, smsProvider, nil, sink, time.UTC, WorkerConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}
	worker.now = func() time.Time { return now }

	result, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if result.Failed != 1 {
		t.Fatalf("failed = %d, want 1", result.Failed)
	}
	if failedID != "j2" {
		t.Fatalf("failed id = %q, want j2", failedID)
	}
	if !strings.Contains(failedMsg, "upstream unavailable") {
		t.Fatalf("failure message = %q, want provider error text", failedMsg)
	}
	events := sink.Events()
	if len(events) != 1 || events[0].Outcome != observability.OutcomeRetried {
		t.Fatalf("events = %+v, want one OutcomeRetried", events)
	}
}

func TestWorkerServiceTickMarksFailedOnExhaustedRetries(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	due := newDueJob("j3", domain.KindBeforeEnd, now.Add(-time.Minute))
	due.Job.RetryCount = 2

	jobs := &fakeJobRepo{
		findDueFn: func(ctx context.Context, at time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
			return []domain.DueJob{due}, nil
		},
		markFailedOrRetryFn: func(ctx context.Context, id, errMsg string, maxRetries int) (domain.JobStatus, error) {
			return domain.StatusFailed, nil
		},
	}
	smsProvider := &fakeProvider{
		sendFn: func(ctx context.Context, to, body string) (*provider.SendReceipt, error) {
			return nil, errors.New("connection reset")
		},
	}
	sink := &recordingSink{}

	worker, err := NewWorkerService(jobs, &fakeAttemptRepo{}, smsProvider, nil, sink, time.UTC, WorkerConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}
	worker.now = func() time.Time { return now }

	result, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if result.Failed != 1 {
		t.Fatalf("failed = %d, want 1", result.Failed)
	}
	events := sink.Events()
	if len(events) != 1 || events[0].Outcome != observability.OutcomeFailed {
		t.Fatalf("events = %+v, want one OutcomeFailed", events)
	}
}

func TestWorkerServiceTickSkipsStaleJobWithoutSending(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	due := newDueJob("j4", domain.KindAfterEnd, now.Add(-10*time.Minute))

	var skippedReason string
	jobs := &fakeJobRepo{
		findDueFn: func(ctx context.Context, at time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
			return []domain.DueJob{due}, nil
		},
		markSkippedFn: func(ctx context.Context, id, reason string) (bool, error) {
			skippedReason = reason
			return true, nil
		},
	}
	smsProvider := &fakeProvider{
		sendFn: func(ctx context.Context, to, body string) (*provider.SendReceipt, error) {
			t.Fatal("stale job must not reach the provider")
			return nil, nil
		},
	}
	sink := &recordingSink{}

	worker, err := NewWorkerService(jobs, &fakeAttemptRepo{}, smsProvider, nil, sink, time.UTC, WorkerConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}
	worker.now = func() time.Time { return now }

	result, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if result.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", result.Skipped)
	}
	if !strings.Contains(skippedReason, "stale") {
		t.Fatalf("skip reason = %q, want staleness reason", skippedReason)
	}
	events := sink.Events()
	if len(events) != 1 || events[0].Outcome != observability.OutcomeSkipped {
		t.Fatalf("events = %+v, want one OutcomeSkipped", events)
	}
}

func TestWorkerServiceTickLostRaceIsNoOp(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	due := newDueJob("j5", domain.KindBeforeStart, now.Add(-time.Minute))

	jobs := &fakeJobRepo{
		findDueFn: func(ctx context.Context, at time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
			return []domain.DueJob{due}, nil
		},
		markSentFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}
	smsProvider := &fakeProvider{
		sendFn: func(ctx context.Context, to, body string) (*provider.SendReceipt, error) {
			return &provider.SendReceipt{SID: "SM999", StatusCode: 201}, nil
		},
	}
	sink := &recordingSink{}

	worker, err := NewWorkerService(jobs, &fakeAttemptRepo{}, smsProvider, nil, sink, time.UTC, WorkerConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}
	worker.now = func() time.Time { return now }

	result, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if result.Sent != 0 || result.Failed != 0 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want all outcome counters zero", result)
	}
	events := sink.Events()
	if len(events) != 1 || events[0].Outcome != observability.OutcomeLost {
		t.Fatalf("events = %+v, want one OutcomeLost", events)
	}
}

func TestWorkerServiceTickAggregatesMixedOutcomes(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	fresh := newDueJob("j-ok", domain.KindBeforeStart, now.Add(-time.Minute))
	failing := newDueJob("j-bad", domain.KindAfterStart, now.Add(-2*time.Minute))
	stale := newDueJob("j-stale", domain.KindBeforeEnd, now.Add(-time.Hour))

	jobs := &fakeJobRepo{
		findDueFn: func(ctx context.Context, at time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
			return []domain.DueJob{fresh, failing, stale}, nil
		},
		markSentFn: func(ctx context.Context, id string) (bool, error) {
			return true, nil
		},
		markFailedOrRetryFn: func(ctx context.Context, id, errMsg string, maxRetries int) (domain.JobStatus, error) {
			return domain.StatusPending, nil
		},
		markSkippedFn: func(ctx context.Context, id, reason string) (bool, error) {
			return true, nil
		},
	}
	smsProvider := &fakeProvider{
		sendFn: func(ctx context.Context, to, body string) (*provider.SendReceipt, error) {
			if strings.Contains(body, "Gentle Reminder: Please ClockIN") {
				return nil, errors.New("carrier rejected")
			}
			return &provider.SendReceipt{SID: "SM1", StatusCode: 201}, nil
		},
	}

	worker, err := NewWorkerService(jobs, &fakeAttemptRepo{}, smsProvider, nil, nil, time.UTC,
		WorkerConfig{Concurrency: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}
	worker.now = func() time.Time { return now }

	result, err := worker.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	want := TickResult{Processed: 3, Sent: 1, Failed: 1, Skipped: 1}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}
}

func TestWorkerServiceTickFailsWhenDueQueryFails(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobRepo{
		findDueFn: func(ctx context.Context, at time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
			return nil, errors.New("connection refused")
		},
	}

	worker, err := NewWorkerService(jobs, &fakeAttemptRepo{}, &fakeProvider{}, nil, nil, time.UTC, WorkerConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}

	if _, err := worker.Tick(context.Background()); err == nil {
		t.Fatal("Tick() should surface the due-job query failure")
	}
}

type fakeJobRepo struct {
	findDueFn           func(ctx context.Context, now time.Time, maxRetries, limit int) ([]domain.DueJob, error)
	markSentFn          func(ctx context.Context, id string) (bool, error)
	markFailedOrRetryFn func(ctx context.Context, id, errMsg string, maxRetries int) (domain.JobStatus, error)
	markSkippedFn       func(ctx context.Context, id, reason string) (bool, error)
	listByVisitFn       func(ctx context.Context, visitID string) ([]domain.ReminderJob, error)
	countByStatusFn     func(ctx context.Context) ([]repository.StatusCount, error)
}

func (f *fakeJobRepo) FindDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]domain.DueJob, error) {
	if f.findDueFn != nil {
		return f.findDueFn(ctx, now, maxRetries, limit)
	}
	return nil, nil
}

func (f *fakeJobRepo) MarkSent(ctx context.Context, id string) (bool, error) {
	if f.markSentFn != nil {
		return f.markSentFn(ctx, id)
	}
	return true, nil
}

func (f *fakeJobRepo) MarkFailedOrRetry(ctx context.Context, id string, errMsg string, maxRetries int) (domain.JobStatus, error) {
	if f.markFailedOrRetryFn != nil {
		return f.markFailedOrRetryFn(ctx, id, errMsg, maxRetries)
	}
	return domain.StatusPending, nil
}

func (f *fakeJobRepo) MarkSkipped(ctx context.Context, id string, reason string) (bool, error) {
	if f.markSkippedFn != nil {
		return f.markSkippedFn(ctx, id, reason)
	}
	return true, nil
}

func (f *fakeJobRepo) ListByVisit(ctx context.Context, visitID string) ([]domain.ReminderJob, error) {
	if f.listByVisitFn != nil {
		return f.listByVisitFn(ctx, visitID)
	}
	return nil, nil
}

func (f *fakeJobRepo) CountByStatus(ctx context.Context) ([]repository.StatusCount, error) {
	if f.countByStatusFn != nil {
		return f.countByStatusFn(ctx)
	}
	return nil, nil
}

type fakeAttemptRepo struct {
	createFn func(ctx context.Context, a *domain.DeliveryAttempt) error
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

type fakeProvider struct {
	sendFn func(ctx context.Context, to, body string) (*provider.SendReceipt, error)
}

func (f *fakeProvider) Send(ctx context.Context, to, body string) (*provider.SendReceipt, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, to, body)
	}
	return &provider.SendReceipt{SID: "SM-fake", StatusCode: 201}, nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, bucket string) (bool, error)
	waitFn  func(ctx context.Context, bucket string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, bucket string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, bucket)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, bucket string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, bucket)
	}
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []observability.DeliveryEvent
}

func (r *recordingSink) Emit(event observability.DeliveryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) Events() []observability.DeliveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observability.DeliveryEvent, len(r.events))
	copy(out, r.events)
	return out
}
