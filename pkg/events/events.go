// Package events defines the inbound business event payload and the bus
// event types emitted around the execution lifecycle.
package events

import (
	"errors"
	"time"
)

type EventType string

// Kafka topics.
const Topic = "journeyd.events"                 // Lifecycle events emitted by the engine
const BusinessEventTopic = "journeyd.inbound"   // Inbound business events consumed by the activator

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionActivatedEvent EventType = "execution.activated"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionCompletedEvent EventType = "execution.completed"
	JourneyConvertedEvent   EventType = "journey.converted"
	ConversionFlaggedEvent  EventType = "conversion.flagged"
)

// Well-known metadata fields of inbound business events.
const (
	MetadataAmount        = "amount"
	MetadataTransactionID = "transaction_id"
	MetadataProductType   = "product_type"
	MetadataTagName       = "tag_name"
	MetadataCampaignID    = "campaign_id"
)

var ErrMissingRequiredFields = errors.New("missing required fields: event_id, type, email")

// BusinessEvent is the inbound payload produced by payment webhooks,
// tracking pixels, and similar internal event sources. EventID is globally
// unique per logical occurrence and anchors idempotency.
type BusinessEvent struct {
	EventID        string         `json:"event_id"   validate:"required"`
	Type           string         `json:"type"       validate:"required"`
	Email          string         `json:"email"      validate:"required,email"`
	ContactID      string         `json:"contact_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	MarketingOptIn bool           `json:"marketingOptIn"`
}

// Validate checks the required fields. Rejection happens before any side
// effect.
func (e *BusinessEvent) Validate() error {
	if e.EventID == "" || e.Type == "" || e.Email == "" {
		return ErrMissingRequiredFields
	}

	return nil
}

// MetadataString returns a string metadata field, or "" when absent or of
// another type.
func (e *BusinessEvent) MetadataString(key string) string {
	value, ok := e.Metadata[key].(string)
	if !ok {
		return ""
	}

	return value
}

// Amount returns the conversion amount carried by checkout events.
func (e *BusinessEvent) Amount() float64 {
	switch value := e.Metadata[MetadataAmount].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	default:
		return 0
	}
}

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionActivated is published when an execution is created or resumed
// and is ready to be advanced by the step walker.
type ExecutionActivated struct {
	BaseEvent

	ExecutionID  string `json:"execution_id"`
	AutomationID string `json:"automation_id"`
	Resumed      bool   `json:"resumed,omitempty"`
}

func (e ExecutionActivated) GetType() EventType {
	return ExecutionActivatedEvent
}

// ExecutionCompleted is published when an execution reaches a terminal
// status, including force-completion by the attribution coordinator.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason,omitempty"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// JourneyConverted is published after revenue attribution closes a journey.
type JourneyConverted struct {
	BaseEvent

	JourneyID string  `json:"journey_id"`
	FunnelID  string  `json:"funnel_id"`
	ContactID string  `json:"contact_id"`
	Amount    float64 `json:"amount"`
}

func (e JourneyConverted) GetType() EventType {
	return JourneyConvertedEvent
}

// ConversionFlagged is published when the fraud detector flags an
// affiliate conversion.
type ConversionFlagged struct {
	BaseEvent

	ConversionID string `json:"conversion_id"`
	AffiliateID  string `json:"affiliate_id"`
	RiskScore    int    `json:"risk_score"`
}

func (e ConversionFlagged) GetType() EventType {
	return ConversionFlaggedEvent
}
