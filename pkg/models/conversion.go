package models

import "time"

// ConversionStatus represents the review state of an affiliate conversion.
type ConversionStatus string

const (
	ConversionStatusPending ConversionStatus = "pending"
	ConversionStatusFlagged ConversionStatus = "flagged"
	ConversionStatusCleared ConversionStatus = "cleared"
	ConversionStatusPaid    ConversionStatus = "paid"
)

// AffiliateConversion is one attributed affiliate sale. Status starts as
// pending; the fraud detector may move it to flagged, admin review moves it
// onward from there.
type AffiliateConversion struct {
	ID               string           `json:"id"`
	AffiliateID      string           `json:"affiliate_id" validate:"required"`
	OrderID          string           `json:"order_id"`
	GMV              float64          `json:"gmv"`
	CommissionAmount float64          `json:"commission_amount"`
	Level            int              `json:"level"`
	Status           ConversionStatus `json:"status"`
	CustomerEmail    string           `json:"customer_email,omitempty"`
	CustomerName     string           `json:"customer_name,omitempty"`
	ProductName      string           `json:"product_name,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Affiliate carries the account metadata the fraud rules read.
type Affiliate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FraudFlagReason is the reason code written on automatically created flags.
const FraudFlagReason = "AUTO_FRAUD_DETECTION"

// FraudFlag is an audit record written whenever the fraud detector flags a
// conversion. Never auto-deleted; resolved only by admin action.
type FraudFlag struct {
	ID          string    `json:"id"`
	AffiliateID string    `json:"affiliate_id"`
	Reason      string    `json:"reason"`
	Details     string    `json:"details"` // JSON document: reasons, risk score, timestamp
	Resolved    bool      `json:"resolved"`
	CreatedAt   time.Time `json:"created_at"`
}
