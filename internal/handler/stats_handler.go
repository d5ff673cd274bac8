package handler

import (
	"context"
	"fmt"

	"github.com/careops/visit-notify/internal/service"
	"github.com/gofiber/fiber/v2"
)

type StatsService interface {
	Dashboard(ctx context.Context) (*service.DashboardStats, error)
}

type StatsHandler struct {
	service StatsService
}

func NewStatsHandler(service StatsService) (*StatsHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("stats service is required")
	}
	return &StatsHandler{service: service}, nil
}

func RegisterStatsRoutes(router fiber.Router, service StatsService) error {
	h, err := NewStatsHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/dashboard/stats", h.GetStats)

	return nil
}

type statsResponse struct {
	VisitsToday int64 `json:"visitsToday"`
	PendingJobs int64 `json:"pendingJobs"`
	SentJobs    int64 `json:"sentJobs"`
	FailedJobs  int64 `json:"failedJobs"`
	SkippedJobs int64 `json:"skippedJobs"`
}

func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Dashboard(c.Context())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(statsResponse{
		VisitsToday: stats.VisitsToday,
		PendingJobs: stats.PendingJobs,
		SentJobs:    stats.SentJobs,
		FailedJobs:  stats.FailedJobs,
		SkippedJobs: stats.SkippedJobs,
	})
}
