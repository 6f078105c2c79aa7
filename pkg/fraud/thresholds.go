// Package fraud implements rule-based scoring of affiliate conversions
// with deterministic flagging.
package fraud

import "time"

// Thresholds parameterizes the detection rules. Values are injectable so
// deployments can tune them without touching rule logic.
type Thresholds struct {
	// ProductPrice anchors the expected commission band.
	ProductPrice float64

	// AmountMin and AmountMax bound acceptable GMV; conversions outside
	// the band trip the amount rule.
	AmountMin float64
	AmountMax float64

	// VelocityLimit is the maximum conversions per affiliate within the
	// trailing VelocityWindow before the velocity rule trips.
	VelocityLimit  int
	VelocityWindow time.Duration

	// NewAffiliateAge marks an affiliate as "new"; NewAffiliateAmount is
	// the GMV above which new-affiliate conversions trip the rule.
	NewAffiliateAge    time.Duration
	NewAffiliateAmount float64

	// DuplicateWindow bounds the duplicate-order lookback.
	DuplicateWindow time.Duration
}

// DefaultThresholds returns the production tuning for the 1300 product:
// commission band 20-35% of price.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ProductPrice:       1300,
		AmountMin:          260,
		AmountMax:          455,
		VelocityLimit:      5,
		VelocityWindow:     time.Hour,
		NewAffiliateAge:    30 * 24 * time.Hour,
		NewAffiliateAmount: 300,
		DuplicateWindow:    30 * 24 * time.Hour,
	}
}

// Fixed risk-score contributions per rule. The aggregate is their sum,
// capped at MaxRiskScore, and is order-independent.
const (
	amountScore       = 30
	duplicateScore    = 40
	velocityScore     = 25
	newAffiliateScore = 20

	MaxRiskScore = 100
)
