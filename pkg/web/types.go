package web

import (
	"github.com/funnelworks/journeyd/pkg/conversion"
	"github.com/funnelworks/journeyd/pkg/events"
)

// EventRequest is the inbound business event payload of POST /events.
type EventRequest struct {
	EventID        string         `json:"event_id"   validate:"required"`
	Type           string         `json:"type"       validate:"required"`
	Email          string         `json:"email"      validate:"required,email"`
	ContactID      string         `json:"contact_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	MarketingOptIn bool           `json:"marketingOptIn"`
}

// ToBusinessEvent converts the request into the domain event.
func (r *EventRequest) ToBusinessEvent() *events.BusinessEvent {
	return &events.BusinessEvent{
		EventID:        r.EventID,
		Type:           r.Type,
		Email:          r.Email,
		ContactID:      r.ContactID,
		Metadata:       r.Metadata,
		MarketingOptIn: r.MarketingOptIn,
	}
}

// CreateConversionRequest is the payload of POST /conversions.
type CreateConversionRequest struct {
	AffiliateID      string         `json:"affiliate_id"      validate:"required"`
	OrderID          string         `json:"order_id"          validate:"required"`
	GMV              float64        `json:"gmv"               validate:"gte=0"`
	CommissionAmount float64        `json:"commission_amount" validate:"gte=0"`
	Level            int            `json:"level"             validate:"gte=0"`
	CustomerEmail    string         `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerName     string         `json:"customer_name,omitempty"`
	ProductName      string         `json:"product_name,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ToParams converts the request into processor parameters.
func (r *CreateConversionRequest) ToParams() conversion.CreateParams {
	return conversion.CreateParams{
		AffiliateID:      r.AffiliateID,
		OrderID:          r.OrderID,
		GMV:              r.GMV,
		CommissionAmount: r.CommissionAmount,
		Level:            r.Level,
		CustomerEmail:    r.CustomerEmail,
		CustomerName:     r.CustomerName,
		ProductName:      r.ProductName,
		Metadata:         r.Metadata,
	}
}

// BulkConversionRequest is the payload of POST /conversions/bulk.
type BulkConversionRequest struct {
	Conversions []CreateConversionRequest `json:"conversions" validate:"required,min=1,dive"`
}
