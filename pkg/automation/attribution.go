package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/funnelworks/journeyd/pkg/eventbus"
	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
)

// AttributionCoordinator closes funnel journeys when their conversion goal
// event arrives, recording revenue and stopping the underlying automation
// for the contact.
type AttributionCoordinator struct {
	persistence persistence.Persistence
	bus         eventbus.EventBus
	logger      *slog.Logger
	now         func() time.Time
}

// NewAttributionCoordinator creates a coordinator. The bus may be nil;
// conversions are then recorded without a lifecycle event.
func NewAttributionCoordinator(p persistence.Persistence, bus eventbus.EventBus, logger *slog.Logger) *AttributionCoordinator {
	return &AttributionCoordinator{
		persistence: p,
		bus:         bus,
		logger:      logger.With("module", "attribution_coordinator"),
		now:         time.Now,
	}
}

// CheckAndAttribute attributes the event's revenue to every active journey
// of the contact whose funnel goal matches the event type. Events without
// a contact id attribute nothing. Per-journey failures are logged and the
// remaining journeys are still processed. Returns the number of journeys
// converted.
func (c *AttributionCoordinator) CheckAndAttribute(ctx context.Context, event *events.BusinessEvent) (int, error) {
	if event.ContactID == "" {
		return 0, nil
	}

	journeys, err := c.persistence.Journeys().ActiveByContact(ctx, event.ContactID)
	if err != nil {
		return 0, fmt.Errorf("failed to load active journeys: %w", err)
	}

	converted := 0

	for _, journey := range journeys {
		ok, err := c.attributeJourney(ctx, event, journey)
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to attribute conversion to journey",
				"journey_id", journey.ID, "error", err)

			continue
		}

		if ok {
			converted++
		}
	}

	return converted, nil
}

func (c *AttributionCoordinator) attributeJourney(ctx context.Context, event *events.BusinessEvent, journey *models.Journey) (bool, error) {
	funnel, err := c.persistence.Funnels().ByID(ctx, journey.FunnelID)
	if err != nil {
		return false, fmt.Errorf("failed to load funnel %s: %w", journey.FunnelID, err)
	}

	if event.Type != funnel.GoalEvent() {
		return false, nil
	}

	amount := event.Amount()
	now := c.now().UTC()

	err = c.persistence.Journeys().RecordConversion(ctx, &models.FunnelConversion{
		ID:               uuid.New().String(),
		FunnelID:         funnel.ID,
		ContactID:        event.ContactID,
		TransactionID:    event.MetadataString(events.MetadataTransactionID),
		Amount:           amount,
		AttributedStepID: journey.CurrentStepID,
		CreatedAt:        now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to record conversion: %w", err)
	}

	if err := c.persistence.Journeys().MarkConverted(ctx, journey.ID, amount, now); err != nil {
		return false, fmt.Errorf("failed to mark journey converted: %w", err)
	}

	if journey.CurrentStepID != "" {
		if err := c.persistence.Funnels().IncrementStepMetrics(ctx, journey.CurrentStepID, amount); err != nil {
			// Metrics lag behind the recorded conversion but attribution
			// itself succeeded.
			c.logger.ErrorContext(ctx, "Failed to increment step metrics",
				"step_id", journey.CurrentStepID, "error", err)
		}
	}

	c.logger.InfoContext(ctx, "Journey converted",
		"journey_id", journey.ID,
		"funnel_id", funnel.ID,
		"amount", amount)

	c.publishConverted(ctx, journey, funnel, amount, now)
	c.stopAutomation(ctx, funnel.AutomationID, event.ContactID)

	return true, nil
}

// publishConverted announces the closed journey on the lifecycle bus so
// reporting consumers see conversions without polling. The attribution is
// already persisted; publish failures are logged, not propagated.
func (c *AttributionCoordinator) publishConverted(ctx context.Context, journey *models.Journey, funnel *models.Funnel, amount float64, at time.Time) {
	if c.bus == nil {
		return
	}

	event := events.JourneyConverted{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.JourneyConvertedEvent,
			Timestamp: at,
		},
		JourneyID: journey.ID,
		FunnelID:  funnel.ID,
		ContactID: journey.ContactID,
		Amount:    amount,
	}

	err := c.bus.Publish(ctx, journey.ID, event)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish journey converted event",
			"journey_id", journey.ID, "error", err)
	}
}

// stopAutomation force-completes the running execution of the funnel's
// automation for the contact. The contact reached the goal; there is no
// point continuing to message them.
func (c *AttributionCoordinator) stopAutomation(ctx context.Context, automationID, contactID string) {
	if automationID == "" {
		return
	}

	execution, err := c.persistence.Executions().RunningByAutomationAndContact(ctx, automationID, contactID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to look up running execution",
			"automation_id", automationID, "contact_id", contactID, "error", err)

		return
	}

	if execution == nil {
		return
	}

	if err := c.persistence.Executions().Complete(ctx, execution.ID, models.StoppedByConversionGoal); err != nil {
		c.logger.ErrorContext(ctx, "Failed to stop execution after conversion",
			"execution_id", execution.ID, "error", err)

		return
	}

	c.logger.InfoContext(ctx, "Execution stopped by conversion goal",
		"execution_id", execution.ID, "automation_id", automationID)

	if c.bus != nil {
		event := events.ExecutionCompleted{
			BaseEvent: events.BaseEvent{
				ID:        uuid.New().String(),
				Type:      events.ExecutionCompletedEvent,
				Timestamp: c.now().UTC(),
			},
			ExecutionID: execution.ID,
			Reason:      models.StoppedByConversionGoal,
		}

		if err := c.bus.Publish(ctx, execution.ID, event); err != nil {
			c.logger.ErrorContext(ctx, "Failed to publish execution completed event",
				"execution_id", execution.ID, "error", err)
		}
	}
}
