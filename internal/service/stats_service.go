package service

import (
	"context"
	"fmt"
	"time"

	"github.com/careops/visit-notify/internal/domain"
	"github.com/careops/visit-notify/internal/repository"
)

// DashboardStats is the read-only aggregate served to reporting consumers.
type DashboardStats struct {
	VisitsToday int64
	PendingJobs int64
	SentJobs    int64
	FailedJobs  int64
	SkippedJobs int64
}

// StatsService aggregates visit and job counts for the dashboard.
type StatsService struct {
	visits repository.VisitRepository
	jobs   repository.ReminderJobRepository
	loc    *time.Location
	now    func() time.Time
}

func NewStatsService(
	visits repository.VisitRepository,
	jobs repository.ReminderJobRepository,
	loc *time.Location,
) (*StatsService, error) {
	if visits == nil {
		return nil, fmt.Errorf("visit repository is required")
	}
	if jobs == nil {
		return nil, fmt.Errorf("reminder job repository is required")
	}
	if loc == nil {
		loc = time.UTC
	}

	return &StatsService{
		visits: visits,
		jobs:   jobs,
		loc:    loc,
		now:    time.Now,
	}, nil
}

func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// "Today" is the calendar day in the governing timezone, not the
	// server's.
	now := s.now().In(s.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	endOfDay := startOfDay.Add(24 * time.Hour)

	visitsToday, err := s.visits.CountStartingBetween(ctx, startOfDay, endOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}

	counts, err := s.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	stats := &DashboardStats{VisitsToday: visitsToday}
	for _, count := range counts {
		switch count.Status {
		case domain.StatusPending:
			stats.PendingJobs = count.Count
		case domain.StatusSent:
			stats.SentJobs = count.Count
		case domain.StatusFailed:
			stats.FailedJobs = count.Count
		case domain.StatusSkipped:
			stats.SkippedJobs = count.Count
		}
	}

	return stats, nil
}
