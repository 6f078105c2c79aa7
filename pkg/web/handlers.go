// Package web provides the HTTP handlers of the event intake and affiliate
// conversion endpoints.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/funnelworks/journeyd/pkg/automation"
	"github.com/funnelworks/journeyd/pkg/conversion"
	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/persistence"
)

type APIHandlers struct {
	eventProcessor      *automation.Processor
	conversionProcessor *conversion.Processor
	persistence         persistence.Persistence
	validator           *validator.Validate
}

func NewAPIHandlers(
	eventProcessor *automation.Processor,
	conversionProcessor *conversion.Processor,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		eventProcessor:      eventProcessor,
		conversionProcessor: conversionProcessor,
		persistence:         persistence,
		validator:           validator,
	}
}

// HandleEvent ingests one business event and reports how many automations
// it triggered.
func (h *APIHandlers) HandleEvent(c fiber.Ctx) error {
	var req EventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.eventProcessor.HandleEvent(c.Context(), req.ToBusinessEvent())
	if err != nil {
		if errors.Is(err, events.ErrMissingRequiredFields) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":            result.Message,
		"executions_created": result.ExecutionsCreated,
		"execution_ids":      result.ExecutionIDs,
	})
}

// CreateConversion records one affiliate conversion and runs fraud scoring.
func (h *APIHandlers) CreateConversion(c fiber.Ctx) error {
	var req CreateConversionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result := h.conversionProcessor.Process(c.Context(), req.ToParams())
	if !result.Success {
		return internalError(c, errors.New(result.Error))
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// BulkCreateConversions records a batch of conversions independently.
func (h *APIHandlers) BulkCreateConversions(c fiber.Ctx) error {
	var req BulkConversionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	params := make([]conversion.CreateParams, 0, len(req.Conversions))
	for _, item := range req.Conversions {
		params = append(params, item.ToParams())
	}

	result := h.conversionProcessor.BulkProcess(c.Context(), params)

	return c.JSON(result)
}

// ReprocessConversion re-runs fraud scoring over a stored conversion.
func (h *APIHandlers) ReprocessConversion(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Conversion ID is required")
	}

	result := h.conversionProcessor.Reprocess(c.Context(), id)
	if !result.Success {
		if result.Error == "conversion not found" {
			return notFound(c, result.Error)
		}

		return internalError(c, errors.New(result.Error))
	}

	return c.JSON(result)
}

// GetConversion returns one stored conversion.
func (h *APIHandlers) GetConversion(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Conversion ID is required")
	}

	stored, err := h.persistence.Conversions().ByID(c.Context(), id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(stored)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "journeyd is healthy"
	httpStatus := http.StatusOK

	repositoryCheck := "ok"
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "journeyd is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
