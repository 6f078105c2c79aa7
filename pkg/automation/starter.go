package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/idempotency"
	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/funnelworks/journeyd/pkg/walker"
)

// ErrAlreadyProcessed signals that the (event, automation) pair already
// holds an execution and no new one was created.
var ErrAlreadyProcessed = fmt.Errorf("event already processed for automation")

// Starter creates executions for matched automations, exactly once per
// (event, automation) pair. The storage unique constraint on the
// idempotency key is the actual guarantee; the guard and the pre-insert
// lookup only shed duplicate work early.
type Starter struct {
	persistence persistence.Persistence
	guard       idempotency.Guard
	walker      walker.StepWalker
	logger      *slog.Logger
	now         func() time.Time
}

func NewStarter(p persistence.Persistence, guard idempotency.Guard, stepWalker walker.StepWalker, logger *slog.Logger) *Starter {
	return &Starter{
		persistence: p,
		guard:       guard,
		walker:      stepWalker,
		logger:      logger.With("module", "starter"),
		now:         time.Now,
	}
}

// Start creates and activates an execution of the automation for the
// event. Returns ErrAlreadyProcessed on duplicate delivery. A walker
// failure after a successful insert is logged, not returned: the execution
// exists and can be advanced later.
func (s *Starter) Start(ctx context.Context, event *events.BusinessEvent, automation *models.Automation) (*models.Execution, error) {
	uniqueEventID := models.IdempotencyKey(event.EventID, automation.ID)

	first, err := s.guard.FirstDelivery(ctx, uniqueEventID)
	if err != nil {
		// Guard is advisory; the unique constraint still protects us.
		s.logger.WarnContext(ctx, "Idempotency guard unavailable, falling through to storage",
			"unique_event_id", uniqueEventID, "error", err)
	} else if !first {
		return nil, ErrAlreadyProcessed
	}

	existing, err := s.persistence.Executions().ByUniqueEventID(ctx, uniqueEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing execution: %w", err)
	}

	if existing != nil {
		return nil, ErrAlreadyProcessed
	}

	trigger := automation.Graph.TriggerNode()
	if trigger == nil {
		return nil, fmt.Errorf("automation %s has no trigger node", automation.ID)
	}

	now := s.now().UTC()
	execution := &models.Execution{
		ID:            uuid.New().String(),
		AutomationID:  automation.ID,
		ContactID:     event.ContactID,
		CurrentNodeID: trigger.ID,
		Status:        models.ExecutionStatusActive,
		Context:       s.buildContext(event, automation),
		UniqueEventID: uniqueEventID,
		RetryCount:    0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.persistence.Executions().Create(ctx, execution); err != nil {
		if persistence.IsDuplicateExecution(err) {
			// Lost the race against a concurrent delivery.
			return nil, ErrAlreadyProcessed
		}

		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	s.logger.InfoContext(ctx, "Execution created",
		"execution_id", execution.ID,
		"automation_id", automation.ID,
		"trigger_event", event.Type)

	if err := s.walker.Advance(ctx, execution.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to invoke step walker",
			"execution_id", execution.ID, "error", err)
	}

	return execution, nil
}

// buildContext seeds the execution context the walker will read while
// evaluating downstream nodes. Event metadata is spread at the top level
// next to the fixed fields.
func (s *Starter) buildContext(event *events.BusinessEvent, automation *models.Automation) map[string]any {
	context := make(map[string]any, len(event.Metadata)+5)

	for key, value := range event.Metadata {
		context[key] = value
	}

	context["email"] = event.Email
	context["contact_id"] = event.ContactID
	context["trigger_event"] = event.Type
	context["marketing_opt_in"] = event.MarketingOptIn
	context["dry_run"] = automation.SimulationMode

	return context
}
