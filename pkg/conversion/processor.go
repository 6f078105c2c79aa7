// Package conversion implements the affiliate conversion intake workflow:
// record creation followed by fraud scoring.
package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/funnelworks/journeyd/pkg/fraud"
	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
)

// CreateParams describes a conversion to be recorded.
type CreateParams struct {
	AffiliateID      string         `json:"affiliate_id" validate:"required"`
	OrderID          string         `json:"order_id" validate:"required"`
	GMV              float64        `json:"gmv" validate:"gte=0"`
	CommissionAmount float64        `json:"commission_amount" validate:"gte=0"`
	Level            int            `json:"level" validate:"gte=0"`
	CustomerEmail    string         `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerName     string         `json:"customer_name,omitempty"`
	ProductName      string         `json:"product_name,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Result summarizes one processed conversion. Success reflects record
// creation only; a fraud flag on the new record still counts as success.
type Result struct {
	Success      bool   `json:"success"`
	ConversionID string `json:"conversion_id,omitempty"`
	Flagged      bool   `json:"flagged"`
	RiskScore    int    `json:"risk_score"`
	Error        string `json:"error,omitempty"`
}

// BulkResult aggregates a batch run. Errors holds one entry per failed
// item, keyed by order id.
type BulkResult struct {
	Processed int      `json:"processed"`
	Flagged   int      `json:"flagged"`
	Errors    []string `json:"errors"`
	Results   []Result `json:"results"`
}

// ReprocessResult carries a fresh evaluation of a stored conversion next
// to the status it held before.
type ReprocessResult struct {
	Success        bool                    `json:"success"`
	Flagged        bool                    `json:"flagged"`
	RiskScore      int                     `json:"risk_score"`
	PreviousStatus models.ConversionStatus `json:"previous_status,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

// Processor records conversions and runs fraud scoring on them.
type Processor struct {
	persistence persistence.Persistence
	detector    *fraud.Detector
	logger      *slog.Logger
	now         func() time.Time
}

func NewProcessor(p persistence.Persistence, detector *fraud.Detector, logger *slog.Logger) *Processor {
	return &Processor{
		persistence: p,
		detector:    detector,
		logger:      logger.With("module", "conversion_processor"),
		now:         time.Now,
	}
}

// Process inserts a pending conversion and runs fraud detection on it.
// Insert failure short-circuits without any fraud run; a fraud failure
// after a successful insert is logged but does not fail the result.
func (p *Processor) Process(ctx context.Context, params CreateParams) Result {
	now := p.now().UTC()

	conversion := &models.AffiliateConversion{
		ID:               uuid.New().String(),
		AffiliateID:      params.AffiliateID,
		OrderID:          params.OrderID,
		GMV:              params.GMV,
		CommissionAmount: params.CommissionAmount,
		Level:            params.Level,
		Status:           models.ConversionStatusPending,
		CustomerEmail:    params.CustomerEmail,
		CustomerName:     params.CustomerName,
		ProductName:      params.ProductName,
		Metadata:         params.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := p.persistence.Conversions().Create(ctx, conversion); err != nil {
		p.logger.ErrorContext(ctx, "Failed to create conversion",
			"order_id", params.OrderID, "affiliate_id", params.AffiliateID, "error", err)

		return Result{Error: fmt.Sprintf("failed to create conversion: %v", err)}
	}

	outcome := p.detector.Run(ctx, conversion)

	p.logger.InfoContext(ctx, "Conversion processed",
		"conversion_id", conversion.ID,
		"flagged", outcome.Flagged,
		"risk_score", outcome.RiskScore)

	return Result{
		Success:      true,
		ConversionID: conversion.ID,
		Flagged:      outcome.Flagged,
		RiskScore:    outcome.RiskScore,
	}
}

// BulkProcess runs Process over each item independently. One bad item
// never aborts the batch.
func (p *Processor) BulkProcess(ctx context.Context, items []CreateParams) BulkResult {
	bulk := BulkResult{
		Errors:  make([]string, 0),
		Results: make([]Result, 0, len(items)),
	}

	for _, item := range items {
		result := p.Process(ctx, item)
		bulk.Results = append(bulk.Results, result)

		if result.Success {
			bulk.Processed++
		} else if result.Error != "" {
			bulk.Errors = append(bulk.Errors, fmt.Sprintf("Order %s: %s", item.OrderID, result.Error))
		}

		if result.Flagged {
			bulk.Flagged++
		}
	}

	return bulk
}

// Reprocess re-runs fraud detection against a stored conversion, e.g.
// after a threshold change. The previous status is reported so callers
// can see transitions.
func (p *Processor) Reprocess(ctx context.Context, conversionID string) ReprocessResult {
	conversion, err := p.persistence.Conversions().ByID(ctx, conversionID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return ReprocessResult{Error: "conversion not found"}
		}

		return ReprocessResult{Error: fmt.Sprintf("failed to load conversion: %v", err)}
	}

	previousStatus := conversion.Status
	outcome := p.detector.Run(ctx, conversion)

	return ReprocessResult{
		Success:        true,
		Flagged:        outcome.Flagged,
		RiskScore:      outcome.RiskScore,
		PreviousStatus: previousStatus,
	}
}
