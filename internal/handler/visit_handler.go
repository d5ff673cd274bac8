package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careops/visit-notify/internal/domain"
	"github.com/careops/visit-notify/internal/importer"
	"github.com/careops/visit-notify/internal/service"
	"github.com/gofiber/fiber/v2"
)

type IngestService interface {
	CreateVisit(ctx context.Context, input service.CreateVisitInput) (*domain.Visit, bool, error)
	ImportRows(ctx context.Context, rows []importer.Row) (*service.ImportResult, error)
	GetVisit(ctx context.Context, id string) (*domain.Visit, []domain.ReminderJob, error)
}

type VisitHandler struct {
	service IngestService
}

func NewVisitHandler(service IngestService) (*VisitHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("ingest service is required")
	}
	return &VisitHandler{service: service}, nil
}

func RegisterVisitRoutes(router fiber.Router, service IngestService) error {
	h, err := NewVisitHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/visits", h.CreateVisit)
	v1.Post("/visits/import", h.ImportVisits)
	v1.Get("/visits/:id", h.GetVisit)

	return nil
}

type createVisitRequest struct {
	ExternalID  *string `json:"externalId"`
	CaregiverID string  `json:"caregiverId"`
	PatientID   string  `json:"patientId"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
}

type importVisitsRequest struct {
	Rows []importer.Row `json:"rows"`
}

type visitResponse struct {
	ID          string        `json:"id"`
	ExternalID  *string       `json:"externalId,omitempty"`
	CaregiverID string        `json:"caregiverId"`
	PatientID   string        `json:"patientId"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Created     bool          `json:"created"`
	Jobs        []jobResponse `json:"jobs,omitempty"`
	CreatedAt   time.Time     `json:"createdAt,omitempty"`
}

type jobResponse struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	SendAt     time.Time `json:"sendAt"`
	Status     string    `json:"status"`
	RetryCount int       `json:"retryCount"`
	LastError  *string   `json:"lastError,omitempty"`
}

type importVisitsResponse struct {
	BatchID string `json:"batchId"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Total   int    `json:"total"`
}

func (h *VisitHandler) CreateVisit(c *fiber.Ctx) error {
	var req createVisitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	input, err := requestToCreateVisitInput(req)
	if err != nil {
		return toHTTPError(err)
	}

	visit, created, err := h.service.CreateVisit(c.Context(), input)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusCreated
	if !created {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(toVisitResponse(visit, created, nil))
}

func (h *VisitHandler) ImportVisits(c *fiber.Ctx) error {
	var req importVisitsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if len(req.Rows) == 0 {
		return toHTTPError(fmt.Errorf("%w: rows is required", domain.ErrValidation))
	}

	result, err := h.service.ImportRows(c.Context(), req.Rows)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(importVisitsResponse{
		BatchID: result.BatchID,
		Created: result.Created,
		Skipped: result.Skipped,
		Total:   result.Total,
	})
}

func (h *VisitHandler) GetVisit(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	visit, jobs, err := h.service.GetVisit(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toVisitResponse(visit, false, jobs))
}

func requestToCreateVisitInput(req createVisitRequest) (service.CreateVisitInput, error) {
	start, err := parseRFC3339Field(req.StartTime, "startTime")
	if err != nil {
		return service.CreateVisitInput{}, err
	}
	end, err := parseRFC3339Field(req.EndTime, "endTime")
	if err != nil {
		return service.CreateVisitInput{}, err
	}

	return service.CreateVisitInput{
		ExternalID:  req.ExternalID,
		CaregiverID: strings.TrimSpace(req.CaregiverID),
		PatientID:   strings.TrimSpace(req.PatientID),
		StartTime:   start,
		EndTime:     end,
	}, nil
}

func parseRFC3339Field(value string, field string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return t, nil
}

func toVisitResponse(v *domain.Visit, created bool, jobs []domain.ReminderJob) visitResponse {
	if v == nil {
		return visitResponse{}
	}

	resp := visitResponse{
		ID:          v.ID,
		ExternalID:  v.ExternalID,
		CaregiverID: v.CaregiverID,
		PatientID:   v.PatientID,
		StartTime:   v.StartTime,
		EndTime:     v.EndTime,
		Created:     created,
		CreatedAt:   v.CreatedAt,
	}

	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, jobResponse{
			ID:         job.ID,
			Kind:       job.Kind.String(),
			SendAt:     job.SendAt,
			Status:     job.Status.String(),
			RetryCount: job.RetryCount,
			LastError:  job.LastError,
		})
	}

	return resp
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
