package models

import "time"

// ExecutionStatus represents the lifecycle state of an execution.
type ExecutionStatus string

const (
	ExecutionStatusActive    ExecutionStatus = "active"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// StoppedByConversionGoal is recorded as LastError when the attribution
// coordinator force-completes an execution after its conversion goal fired.
const StoppedByConversionGoal = "stopped by conversion goal"

// Execution is one run of one automation for one contact. ContactID may be
// empty for anonymous visitors identified only by email. UniqueEventID is
// the idempotency key ("<event_id>_<automation_id>"); the persistence layer
// enforces its uniqueness.
type Execution struct {
	ID            string          `json:"id"`
	AutomationID  string          `json:"automation_id" validate:"required"`
	ContactID     string          `json:"contact_id,omitempty"`
	CurrentNodeID string          `json:"current_node_id"`
	Status        ExecutionStatus `json:"status"`
	Context       map[string]any  `json:"context,omitempty"`
	UniqueEventID string          `json:"unique_event_id"`
	WakeUpAt      *time.Time      `json:"wake_up_at,omitempty"`
	RetryCount    int             `json:"retry_count"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// IsRunning reports whether the execution can still receive events.
func (e *Execution) IsRunning() bool {
	return e.Status == ExecutionStatusActive || e.Status == ExecutionStatusPaused
}

// IdempotencyKey derives the uniqueness key for one (event, automation) pair.
func IdempotencyKey(eventID, automationID string) string {
	return eventID + "_" + automationID
}
