package models

import "time"

// JourneyStatus represents the lifecycle state of a funnel journey.
type JourneyStatus string

const (
	JourneyStatusActive    JourneyStatus = "active"
	JourneyStatusConverted JourneyStatus = "converted"
	JourneyStatusAbandoned JourneyStatus = "abandoned"
)

// DefaultConversionGoalEvent is assumed when a funnel does not configure
// its own conversion goal.
const DefaultConversionGoalEvent = "checkout.completed"

// Funnel is the revenue-bearing projection of an automation. Its
// ConversionGoalEvent names the inbound event type that closes journeys.
type Funnel struct {
	ID                  string         `json:"id"`
	AutomationID        string         `json:"automation_id"`
	Name                string         `json:"name"`
	ConversionGoalEvent string         `json:"conversion_goal_event"`
	Settings            FunnelSettings `json:"settings"`
	CreatedAt           time.Time      `json:"created_at"`
}

// FunnelSettings holds per-funnel tuning read by the coordinators.
type FunnelSettings struct {
	AttributionWindowDays int  `json:"attribution_window_days,omitempty"`
	SimulationMode        bool `json:"simulation_mode,omitempty"`
}

// GoalEvent returns the configured conversion goal, falling back to the
// default when unset.
func (f *Funnel) GoalEvent() string {
	if f.ConversionGoalEvent == "" {
		return DefaultConversionGoalEvent
	}

	return f.ConversionGoalEvent
}

// Journey tracks one contact's progress through one funnel for revenue
// attribution. Terminal once Status leaves active.
type Journey struct {
	ID               string        `json:"id"`
	FunnelID         string        `json:"funnel_id"`
	ContactID        string        `json:"contact_id"`
	CurrentStepID    string        `json:"current_step_id,omitempty"`
	Status           JourneyStatus `json:"status"`
	RevenueGenerated float64       `json:"revenue_generated"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// FunnelConversion records one attributed sale against a funnel step.
type FunnelConversion struct {
	ID               string    `json:"id"`
	FunnelID         string    `json:"funnel_id"`
	ContactID        string    `json:"contact_id"`
	TransactionID    string    `json:"transaction_id,omitempty"`
	Amount           float64   `json:"amount"`
	AttributedStepID string    `json:"attributed_step_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// StepMetrics is the aggregate counter bag kept per funnel step.
type StepMetrics struct {
	Sent      int     `json:"sent,omitempty"`
	Opened    int     `json:"opened,omitempty"`
	Clicked   int     `json:"clicked,omitempty"`
	Converted int     `json:"converted,omitempty"`
	Revenue   float64 `json:"revenue,omitempty"`
}
