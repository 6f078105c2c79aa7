package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/funnelworks/journeyd/pkg/eventbus"
	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
)

// ReasonType identifies which rule flagged a conversion.
type ReasonType string

const (
	ReasonAmountThreshold       ReasonType = "AMOUNT_THRESHOLD"
	ReasonDuplicateOrder        ReasonType = "DUPLICATE_ORDER"
	ReasonHighVelocity          ReasonType = "HIGH_VELOCITY"
	ReasonNewAffiliateHighValue ReasonType = "NEW_AFFILIATE_HIGH_VALUE"
)

// Severity grades a flag reason.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FlagReason is one triggered rule with its supporting details.
type FlagReason struct {
	Type     ReasonType     `json:"type"`
	Severity Severity       `json:"severity"`
	Details  map[string]any `json:"details"`
}

// Result is the combined outcome of one evaluation. ShouldFlag is true iff
// at least one rule triggered, regardless of the aggregate score.
type Result struct {
	ShouldFlag bool         `json:"shouldFlag"`
	Reasons    []FlagReason `json:"reasons"`
	RiskScore  int          `json:"riskScore"`
}

// Detector evaluates the fixed rule set against a conversion plus
// historical context from storage. It is stateless between evaluations.
type Detector struct {
	persistence persistence.Persistence
	bus         eventbus.EventBus
	thresholds  Thresholds
	logger      *slog.Logger
	now         func() time.Time
}

// NewDetector creates a detector with the given thresholds. The bus may be
// nil; flagging then happens without a lifecycle event.
func NewDetector(p persistence.Persistence, bus eventbus.EventBus, thresholds Thresholds, logger *slog.Logger) *Detector {
	return &Detector{
		persistence: p,
		bus:         bus,
		thresholds:  thresholds,
		logger:      logger.With("module", "fraud_detector"),
		now:         time.Now,
	}
}

// Evaluate runs every rule unconditionally and combines the results. All
// four rules always run so that every applicable reason is recorded even
// when one rule alone would already flag the conversion. A storage failure
// inside a rule fails open for that rule: detection degrades rather than
// blocking conversion creation.
func (d *Detector) Evaluate(ctx context.Context, conversion *models.AffiliateConversion) Result {
	reasons := make([]FlagReason, 0)
	riskScore := 0

	if reason := d.checkAmountThreshold(conversion); reason != nil {
		reasons = append(reasons, *reason)
		riskScore += amountScore
	}

	if reason := d.checkDuplicateOrder(ctx, conversion); reason != nil {
		reasons = append(reasons, *reason)
		riskScore += duplicateScore
	}

	if reason := d.checkVelocity(ctx, conversion); reason != nil {
		reasons = append(reasons, *reason)
		riskScore += velocityScore
	}

	if reason := d.checkNewAffiliatePattern(ctx, conversion); reason != nil {
		reasons = append(reasons, *reason)
		riskScore += newAffiliateScore
	}

	if riskScore > MaxRiskScore {
		riskScore = MaxRiskScore
	}

	return Result{
		ShouldFlag: len(reasons) > 0,
		Reasons:    reasons,
		RiskScore:  riskScore,
	}
}

// checkAmountThreshold flags conversions whose GMV falls outside the
// expected commission band.
func (d *Detector) checkAmountThreshold(conversion *models.AffiliateConversion) *FlagReason {
	t := d.thresholds

	if conversion.GMV <= t.AmountMax && conversion.GMV >= t.AmountMin {
		return nil
	}

	severity := SeverityMedium
	if conversion.GMV > t.AmountMax*2 {
		severity = SeverityCritical
	}

	return &FlagReason{
		Type:     ReasonAmountThreshold,
		Severity: severity,
		Details: map[string]any{
			"amount":               conversion.GMV,
			"threshold_min":        t.AmountMin,
			"threshold_max":        t.AmountMax,
			"product_price":        t.ProductPrice,
			"deviation_percentage": math.Abs((conversion.GMV - t.ProductPrice) / t.ProductPrice * 100),
		},
	}
}

// checkDuplicateOrder flags conversions whose order id was already seen
// within the lookback window.
func (d *Detector) checkDuplicateOrder(ctx context.Context, conversion *models.AffiliateConversion) *FlagReason {
	if conversion.OrderID == "" {
		return nil
	}

	since := conversion.CreatedAt.Add(-d.thresholds.DuplicateWindow)

	duplicates, err := d.persistence.Conversions().ByOrderIDSince(ctx, conversion.OrderID, conversion.ID, since)
	if err != nil {
		d.logger.ErrorContext(ctx, "duplicate-order check failed, failing open",
			"conversion_id", conversion.ID, "error", err)

		return nil
	}

	if len(duplicates) == 0 {
		return nil
	}

	duplicateIDs := make([]string, 0, len(duplicates))
	duplicateAffiliates := make([]string, 0, len(duplicates))

	for _, duplicate := range duplicates {
		duplicateIDs = append(duplicateIDs, duplicate.ID)
		duplicateAffiliates = append(duplicateAffiliates, duplicate.AffiliateID)
	}

	return &FlagReason{
		Type:     ReasonDuplicateOrder,
		Severity: SeverityHigh,
		Details: map[string]any{
			"order_id":                conversion.OrderID,
			"duplicate_count":         len(duplicates),
			"original_conversion_ids": duplicateIDs,
			"duplicate_affiliates":    duplicateAffiliates,
			"check_period_days":       int(d.thresholds.DuplicateWindow.Hours() / 24),
		},
	}
}

// checkVelocity flags affiliates producing more conversions in the
// trailing window than the limit allows. The window ends at the new
// conversion's timestamp and the count includes the conversion itself.
func (d *Detector) checkVelocity(ctx context.Context, conversion *models.AffiliateConversion) *FlagReason {
	since := conversion.CreatedAt.Add(-d.thresholds.VelocityWindow)

	recent, err := d.persistence.Conversions().ByAffiliateSince(ctx, conversion.AffiliateID, since)
	if err != nil {
		d.logger.ErrorContext(ctx, "velocity check failed, failing open",
			"conversion_id", conversion.ID, "error", err)

		return nil
	}

	if len(recent) <= d.thresholds.VelocityLimit {
		return nil
	}

	totalValue := 0.0
	timestamps := make([]time.Time, 0, len(recent))

	for _, item := range recent {
		totalValue += item.GMV
		timestamps = append(timestamps, item.CreatedAt)
	}

	severity := SeverityHigh
	if len(recent) > d.thresholds.VelocityLimit*2 {
		severity = SeverityCritical
	}

	return &FlagReason{
		Type:     ReasonHighVelocity,
		Severity: severity,
		Details: map[string]any{
			"conversion_count":      len(recent),
			"timeframe_hours":       d.thresholds.VelocityWindow.Hours(),
			"velocity_limit":        d.thresholds.VelocityLimit,
			"total_value":           totalValue,
			"affiliate_id":          conversion.AffiliateID,
			"conversion_timestamps": timestamps,
		},
	}
}

// checkNewAffiliatePattern flags high-value conversions from recently
// registered affiliates.
func (d *Detector) checkNewAffiliatePattern(ctx context.Context, conversion *models.AffiliateConversion) *FlagReason {
	affiliate, err := d.persistence.Affiliates().ByID(ctx, conversion.AffiliateID)
	if err != nil {
		d.logger.ErrorContext(ctx, "new-affiliate check failed, failing open",
			"conversion_id", conversion.ID, "affiliate_id", conversion.AffiliateID, "error", err)

		return nil
	}

	age := d.now().Sub(affiliate.CreatedAt)

	if age >= d.thresholds.NewAffiliateAge || conversion.GMV <= d.thresholds.NewAffiliateAmount {
		return nil
	}

	ageDays := int(age.Hours() / 24)

	severity := SeverityMedium
	if ageDays < 7 {
		severity = SeverityHigh
	}

	return &FlagReason{
		Type:     ReasonNewAffiliateHighValue,
		Severity: severity,
		Details: map[string]any{
			"affiliate_age_days":           ageDays,
			"conversion_amount":            conversion.GMV,
			"threshold_amount":             d.thresholds.NewAffiliateAmount,
			"new_affiliate_threshold_days": int(d.thresholds.NewAffiliateAge.Hours() / 24),
			"affiliate_id":                 conversion.AffiliateID,
			"registration_date":            affiliate.CreatedAt,
		},
	}
}

// Flag sets the conversion to flagged and writes the audit record. The
// status update is not rolled back when the flag insert fails; the caller
// logs the partial state. A flagged conversion without its flag record is
// an accepted, visible failure mode.
func (d *Detector) Flag(ctx context.Context, conversionID string, reasons []FlagReason, riskScore int) error {
	err := d.persistence.Conversions().UpdateStatus(ctx, conversionID, models.ConversionStatusFlagged)
	if err != nil {
		return fmt.Errorf("failed to update conversion status: %w", err)
	}

	conversion, err := d.persistence.Conversions().ByID(ctx, conversionID)
	if err != nil {
		return fmt.Errorf("failed to load flagged conversion: %w", err)
	}

	details, err := json.Marshal(map[string]any{
		"conversion_id":       conversionID,
		"reasons":             reasons,
		"risk_score":          riskScore,
		"detection_timestamp": d.now().UTC(),
		"auto_flagged":        true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal flag details: %w", err)
	}

	err = d.persistence.FraudFlags().Create(ctx, &models.FraudFlag{
		AffiliateID: conversion.AffiliateID,
		Reason:      models.FraudFlagReason,
		Details:     string(details),
		Resolved:    false,
	})
	if err != nil {
		return fmt.Errorf("failed to create fraud flag: %w", err)
	}

	d.logger.InfoContext(ctx, "Conversion flagged",
		"conversion_id", conversionID,
		"risk_score", riskScore,
		"reasons", len(reasons))

	d.publishFlagged(ctx, conversion, riskScore)

	return nil
}

// publishFlagged notifies downstream consumers (payout holds, review
// queues) that a conversion was flagged. The flag is already persisted;
// publish failures are logged, not propagated.
func (d *Detector) publishFlagged(ctx context.Context, conversion *models.AffiliateConversion, riskScore int) {
	if d.bus == nil {
		return
	}

	event := events.ConversionFlagged{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ConversionFlaggedEvent,
			Timestamp: d.now().UTC(),
		},
		ConversionID: conversion.ID,
		AffiliateID:  conversion.AffiliateID,
		RiskScore:    riskScore,
	}

	err := d.bus.Publish(ctx, conversion.ID, event)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish conversion flagged event",
			"conversion_id", conversion.ID, "error", err)
	}
}

// Outcome is the caller-facing summary of one detection pass.
type Outcome struct {
	Flagged   bool         `json:"flagged"`
	RiskScore int          `json:"riskScore"`
	Reasons   []FlagReason `json:"reasons"`
}

// Run evaluates a conversion and, when flagged, persists the flag. Flag
// persistence failures are logged and swallowed: the evaluation outcome is
// still returned to the caller.
func (d *Detector) Run(ctx context.Context, conversion *models.AffiliateConversion) Outcome {
	result := d.Evaluate(ctx, conversion)

	if result.ShouldFlag {
		err := d.Flag(ctx, conversion.ID, result.Reasons, result.RiskScore)
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to flag conversion",
				"conversion_id", conversion.ID, "error", err)
		}
	}

	return Outcome{
		Flagged:   result.ShouldFlag,
		RiskScore: result.RiskScore,
		Reasons:   result.Reasons,
	}
}
