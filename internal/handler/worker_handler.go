package handler

import (
	"fmt"

	"github.com/careops/visit-notify/internal/service"
	"github.com/gofiber/fiber/v2"
)

type WorkerHandler struct {
	worker service.TickRunner
}

func NewWorkerHandler(worker service.TickRunner) (*WorkerHandler, error) {
	if worker == nil {
		return nil, fmt.Errorf("tick runner is required")
	}
	return &WorkerHandler{worker: worker}, nil
}

func RegisterWorkerRoutes(router fiber.Router, worker service.TickRunner) error {
	h, err := NewWorkerHandler(worker)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/worker/tick", h.RunTick)

	return nil
}

type tickResponse struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// RunTick triggers one delivery pass on demand. Safe to call while the
// interval scheduler is running; overlapping passes cannot double-send.
func (h *WorkerHandler) RunTick(c *fiber.Ctx) error {
	result, err := h.worker.Tick(c.Context())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(tickResponse{
		Processed: result.Processed,
		Sent:      result.Sent,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
	})
}
