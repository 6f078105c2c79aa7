// Package persistence provides the data storage abstraction for automations,
// executions, journeys, and affiliate conversions.
package persistence

import (
	"context"
	"time"

	"github.com/funnelworks/journeyd/pkg/models"
)

// Persistence aggregates the repositories of the engine. Implementations
// provide point lookups by id, range queries by time window and foreign
// key, and atomic single-row updates.
type Persistence interface {
	Automations() AutomationRepository
	Executions() ExecutionRepository
	Funnels() FunnelRepository
	Journeys() JourneyRepository
	Conversions() ConversionRepository
	Affiliates() AffiliateRepository
	FraudFlags() FraudFlagRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// AutomationRepository reads workflow definitions. The engine never writes
// them; the admin surface does.
type AutomationRepository interface {
	All(ctx context.Context) ([]*models.Automation, error)
	ActiveByTriggerType(ctx context.Context, triggerType string) ([]*models.Automation, error)
	ByID(ctx context.Context, id string) (*models.Automation, error)
}

// ExecutionRepository manages execution lifecycle state.
type ExecutionRepository interface {
	// Create inserts a new execution. Returns ErrDuplicateExecution when
	// another execution already holds the same unique event id; the
	// storage-level unique constraint is the idempotency source of truth.
	Create(ctx context.Context, execution *models.Execution) error

	ByID(ctx context.Context, id string) (*models.Execution, error)

	// ByUniqueEventID returns nil, nil when no execution holds the key.
	ByUniqueEventID(ctx context.Context, uniqueEventID string) (*models.Execution, error)

	PausedByContact(ctx context.Context, contactID string) ([]*models.Execution, error)

	// RunningByAutomationAndContact returns one active or paused execution
	// for the pair, or nil, nil.
	RunningByAutomationAndContact(ctx context.Context, automationID, contactID string) (*models.Execution, error)

	// Resume transitions a paused execution back to active, clearing the
	// wake-up timer and last error.
	Resume(ctx context.Context, id string) error

	// Complete forces a terminal completed status, recording lastError as
	// the explanation (e.g. models.StoppedByConversionGoal).
	Complete(ctx context.Context, id string, lastError string) error
}

// FunnelRepository reads funnel configuration and maintains step metrics.
type FunnelRepository interface {
	ByID(ctx context.Context, id string) (*models.Funnel, error)

	// IncrementStepMetrics adds revenue and one conversion to the step's
	// aggregate counters. Implementations should make this a single atomic
	// update.
	IncrementStepMetrics(ctx context.Context, stepID string, revenue float64) error

	StepMetrics(ctx context.Context, stepID string) (*models.StepMetrics, error)
}

// JourneyRepository manages funnel journeys.
type JourneyRepository interface {
	ActiveByContact(ctx context.Context, contactID string) ([]*models.Journey, error)

	// MarkConverted adds revenue and moves the journey to its terminal
	// converted status with the given completion time.
	MarkConverted(ctx context.Context, id string, revenue float64, completedAt time.Time) error

	RecordConversion(ctx context.Context, conversion *models.FunnelConversion) error

	ByID(ctx context.Context, id string) (*models.Journey, error)
}

// ConversionRepository manages affiliate conversions for fraud scoring.
type ConversionRepository interface {
	Create(ctx context.Context, conversion *models.AffiliateConversion) error
	ByID(ctx context.Context, id string) (*models.AffiliateConversion, error)

	// ByOrderIDSince returns conversions sharing the order id created at or
	// after since, excluding the conversion with excludeID.
	ByOrderIDSince(ctx context.Context, orderID, excludeID string, since time.Time) ([]*models.AffiliateConversion, error)

	// ByAffiliateSince returns the affiliate's conversions created at or
	// after since, the freshly created one included.
	ByAffiliateSince(ctx context.Context, affiliateID string, since time.Time) ([]*models.AffiliateConversion, error)

	UpdateStatus(ctx context.Context, id string, status models.ConversionStatus) error
}

// AffiliateRepository reads affiliate account metadata.
type AffiliateRepository interface {
	ByID(ctx context.Context, id string) (*models.Affiliate, error)
}

// FraudFlagRepository writes fraud flags. Flags are never deleted here;
// resolution is an admin concern.
type FraudFlagRepository interface {
	Create(ctx context.Context, flag *models.FraudFlag) error
	ByAffiliate(ctx context.Context, affiliateID string) ([]*models.FraudFlag, error)
}
