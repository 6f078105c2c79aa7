package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/funnelworks/journeyd/pkg/walker"
)

// ResumeCoordinator wakes paused executions whose wait_event node matches
// an inbound event. Matching is deliberately coarse: contact plus event
// type, without filter evaluation.
type ResumeCoordinator struct {
	persistence persistence.Persistence
	walker      walker.StepWalker
	logger      *slog.Logger
}

func NewResumeCoordinator(p persistence.Persistence, stepWalker walker.StepWalker, logger *slog.Logger) *ResumeCoordinator {
	return &ResumeCoordinator{
		persistence: p,
		walker:      stepWalker,
		logger:      logger.With("module", "resume_coordinator"),
	}
}

// CheckAndResume resumes every paused execution of the event's contact
// that is waiting for this event type. Events without a contact id resume
// nothing. Per-execution failures are logged and the remaining executions
// are still considered. Returns the number of executions resumed.
func (c *ResumeCoordinator) CheckAndResume(ctx context.Context, event *events.BusinessEvent) (int, error) {
	if event.ContactID == "" {
		return 0, nil
	}

	paused, err := c.persistence.Executions().PausedByContact(ctx, event.ContactID)
	if err != nil {
		return 0, fmt.Errorf("failed to load paused executions: %w", err)
	}

	resumed := 0

	for _, execution := range paused {
		ok, err := c.resumeIfWaiting(ctx, event, execution)
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to resume execution",
				"execution_id", execution.ID, "error", err)

			continue
		}

		if ok {
			resumed++
		}
	}

	return resumed, nil
}

func (c *ResumeCoordinator) resumeIfWaiting(ctx context.Context, event *events.BusinessEvent, execution *models.Execution) (bool, error) {
	automation, err := c.persistence.Automations().ByID(ctx, execution.AutomationID)
	if err != nil {
		return false, fmt.Errorf("failed to load automation %s: %w", execution.AutomationID, err)
	}

	node := automation.Graph.NodeByID(execution.CurrentNodeID)
	if node == nil || node.Type != models.NodeTypeWaitEvent {
		return false, nil
	}

	config, err := node.WaitEventConfig()
	if err != nil {
		return false, fmt.Errorf("malformed wait_event config on node %s: %w", node.ID, err)
	}

	if config.Event != event.Type {
		return false, nil
	}

	if err := c.persistence.Executions().Resume(ctx, execution.ID); err != nil {
		return false, fmt.Errorf("failed to resume: %w", err)
	}

	c.logger.InfoContext(ctx, "Execution resumed",
		"execution_id", execution.ID,
		"event_type", event.Type)

	if err := c.walker.Advance(ctx, execution.ID); err != nil {
		c.logger.ErrorContext(ctx, "Failed to invoke step walker after resume",
			"execution_id", execution.ID, "error", err)
	}

	return true, nil
}
