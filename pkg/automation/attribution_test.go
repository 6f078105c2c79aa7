package automation

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelworks/journeyd/pkg/eventbus"
	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence/memory"
	"github.com/funnelworks/journeyd/pkg/testutil"
)

func seedFunnelWithJourney(store *memory.Persistence, funnelID, automationID, contactID, stepID string) {
	store.AddFunnel(&models.Funnel{
		ID:           funnelID,
		AutomationID: automationID,
		Name:         "Launch Funnel",
	})
	store.AddJourney(&models.Journey{
		ID:            "journey-" + funnelID,
		FunnelID:      funnelID,
		ContactID:     contactID,
		CurrentStepID: stepID,
		Status:        models.JourneyStatusActive,
		StartedAt:     time.Now().UTC().Add(-time.Hour),
	})
}

func checkoutEvent(contactID string, amount float64) *events.BusinessEvent {
	return testutil.CreateTestEvent(
		testutil.WithEventType("checkout.completed"),
		testutil.WithContact(contactID),
		testutil.WithMetadata(map[string]any{
			"amount":         amount,
			"transaction_id": "txn-1",
		}),
	)
}

func TestAttributeConvertsActiveJourney(t *testing.T) {
	store := memory.NewPersistence()
	coordinator := NewAttributionCoordinator(store, nil, slog.Default())

	seedFunnelWithJourney(store, "funnel-1", "auto-1", "contact-1", "step-1")

	converted, err := coordinator.CheckAndAttribute(context.Background(), checkoutEvent("contact-1", 199.5))
	require.NoError(t, err)
	assert.Equal(t, 1, converted)

	journey, err := store.Journeys().ByID(context.Background(), "journey-funnel-1")
	require.NoError(t, err)
	assert.Equal(t, models.JourneyStatusConverted, journey.Status)
	assert.InDelta(t, 199.5, journey.RevenueGenerated, 0.001)
	require.NotNil(t, journey.CompletedAt)

	metrics, err := store.Funnels().StepMetrics(context.Background(), "step-1")
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Converted)
	assert.InDelta(t, 199.5, metrics.Revenue, 0.001)

	conversions := store.FunnelConversions()
	require.Len(t, conversions, 1)
	assert.Equal(t, "txn-1", conversions[0].TransactionID)
	assert.Equal(t, "step-1", conversions[0].AttributedStepID)
}

func TestAttributeStopsRunningExecution(t *testing.T) {
	store := memory.NewPersistence()
	coordinator := NewAttributionCoordinator(store, nil, slog.Default())

	seedFunnelWithJourney(store, "funnel-1", "auto-1", "contact-1", "step-1")
	store.AddExecution(&models.Execution{
		ID:            "exec-1",
		AutomationID:  "auto-1",
		ContactID:     "contact-1",
		Status:        models.ExecutionStatusPaused,
		UniqueEventID: "evt_auto-1",
	})

	_, err := coordinator.CheckAndAttribute(context.Background(), checkoutEvent("contact-1", 100))
	require.NoError(t, err)

	execution, err := store.Executions().ByID(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, models.StoppedByConversionGoal, execution.LastError)
	assert.NotNil(t, execution.CompletedAt)
}

func TestAttributeIgnoresNonGoalEvents(t *testing.T) {
	store := memory.NewPersistence()
	coordinator := NewAttributionCoordinator(store, nil, slog.Default())

	seedFunnelWithJourney(store, "funnel-1", "auto-1", "contact-1", "step-1")

	event := testutil.CreateTestEvent(testutil.WithEventType("email.opened"))

	converted, err := coordinator.CheckAndAttribute(context.Background(), event)
	require.NoError(t, err)
	assert.Zero(t, converted)

	journey, err := store.Journeys().ByID(context.Background(), "journey-funnel-1")
	require.NoError(t, err)
	assert.Equal(t, models.JourneyStatusActive, journey.Status)
}

func TestAttributeHonorsCustomGoalEvent(t *testing.T) {
	store := memory.NewPersistence()
	coordinator := NewAttributionCoordinator(store, nil, slog.Default())

	store.AddFunnel(&models.Funnel{
		ID:                  "funnel-1",
		AutomationID:        "auto-1",
		ConversionGoalEvent: "subscription.started",
	})
	store.AddJourney(&models.Journey{
		ID:        "journey-1",
		FunnelID:  "funnel-1",
		ContactID: "contact-1",
		Status:    models.JourneyStatusActive,
	})

	event := testutil.CreateTestEvent(
		testutil.WithEventType("subscription.started"),
		testutil.WithMetadata(map[string]any{"amount": 49.0}),
	)

	converted, err := coordinator.CheckAndAttribute(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, 1, converted)
}

func TestAttributeProcessesAllJourneys(t *testing.T) {
	store := memory.NewPersistence()
	coordinator := NewAttributionCoordinator(store, nil, slog.Default())

	seedFunnelWithJourney(store, "funnel-1", "auto-1", "contact-1", "step-1")
	seedFunnelWithJourney(store, "funnel-2", "auto-2", "contact-1", "step-2")

	// A journey pointing at a missing funnel fails individually without
	// aborting the rest.
	store.AddJourney(&models.Journey{
		ID:        "journey-broken",
		FunnelID:  "funnel-missing",
		ContactID: "contact-1",
		Status:    models.JourneyStatusActive,
	})

	converted, err := coordinator.CheckAndAttribute(context.Background(), checkoutEvent("contact-1", 100))
	require.NoError(t, err)
	assert.Equal(t, 2, converted)
}

func TestAttributeSkipsEventsWithoutContact(t *testing.T) {
	store := memory.NewPersistence()
	coordinator := NewAttributionCoordinator(store, nil, slog.Default())

	seedFunnelWithJourney(store, "funnel-1", "auto-1", "contact-1", "step-1")

	converted, err := coordinator.CheckAndAttribute(context.Background(), checkoutEvent("", 100))
	require.NoError(t, err)
	assert.Zero(t, converted)
}

type recordingBus struct {
	published []eventbus.Event
	err       error
}

func (b *recordingBus) GenerateID() string { return "test-id" }

func (b *recordingBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	if b.err != nil {
		return b.err
	}

	b.published = append(b.published, event)

	return nil
}

func (b *recordingBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context) error { return nil }

func (b *recordingBus) Close() error { return nil }

func TestAttributePublishesJourneyConverted(t *testing.T) {
	store := memory.NewPersistence()
	bus := &recordingBus{}
	coordinator := NewAttributionCoordinator(store, bus, slog.Default())

	seedFunnelWithJourney(store, "funnel-1", "auto-1", "contact-1", "step-1")
	store.AddExecution(&models.Execution{
		ID:            "exec-1",
		AutomationID:  "auto-1",
		ContactID:     "contact-1",
		Status:        models.ExecutionStatusActive,
		UniqueEventID: "evt_auto-1",
	})

	converted, err := coordinator.CheckAndAttribute(context.Background(), checkoutEvent("contact-1", 199.5))
	require.NoError(t, err)
	assert.Equal(t, 1, converted)

	require.Len(t, bus.published, 2)

	event, ok := bus.published[0].(events.JourneyConverted)
	require.True(t, ok)
	assert.Equal(t, events.JourneyConvertedEvent, event.GetType())
	assert.Equal(t, "journey-funnel-1", event.JourneyID)
	assert.Equal(t, "funnel-1", event.FunnelID)
	assert.Equal(t, "contact-1", event.ContactID)
	assert.InDelta(t, 199.5, event.Amount, 0.001)
	assert.NotEmpty(t, event.ID)

	stopped, ok := bus.published[1].(events.ExecutionCompleted)
	require.True(t, ok)
	assert.Equal(t, events.ExecutionCompletedEvent, stopped.GetType())
	assert.Equal(t, "exec-1", stopped.ExecutionID)
	assert.Equal(t, models.StoppedByConversionGoal, stopped.Reason)
}

func TestAttributePublishFailureKeepsConversion(t *testing.T) {
	store := memory.NewPersistence()
	bus := &recordingBus{err: errors.New("broker down")}
	coordinator := NewAttributionCoordinator(store, bus, slog.Default())

	seedFunnelWithJourney(store, "funnel-1", "auto-1", "contact-1", "step-1")

	converted, err := coordinator.CheckAndAttribute(context.Background(), checkoutEvent("contact-1", 100))
	require.NoError(t, err)
	assert.Equal(t, 1, converted)

	journey, err := store.Journeys().ByID(context.Background(), "journey-funnel-1")
	require.NoError(t, err)
	assert.Equal(t, models.JourneyStatusConverted, journey.Status)
}
