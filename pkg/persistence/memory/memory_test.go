package memory

import (
	"context"
	"testing"
	"time"

	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionRepo_Create_DuplicateUniqueEventID(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	first := &models.Execution{
		AutomationID:  "auto-1",
		Status:        models.ExecutionStatusActive,
		UniqueEventID: "evt1_auto-1",
	}
	require.NoError(t, store.Executions().Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &models.Execution{
		AutomationID:  "auto-1",
		Status:        models.ExecutionStatusActive,
		UniqueEventID: "evt1_auto-1",
	}
	err := store.Executions().Create(ctx, second)
	require.Error(t, err)
	assert.True(t, persistence.IsDuplicateExecution(err))
}

func TestExecutionRepo_ByUniqueEventID_NotFound(t *testing.T) {
	store := NewPersistence()

	execution, err := store.Executions().ByUniqueEventID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, execution)
}

func TestExecutionRepo_ResumeAndComplete(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	wake := time.Now().Add(time.Hour)
	store.AddExecution(&models.Execution{
		ID:        "exec-1",
		ContactID: "c1",
		Status:    models.ExecutionStatusPaused,
		WakeUpAt:  &wake,
		LastError: "timeout",
	})

	require.NoError(t, store.Executions().Resume(ctx, "exec-1"))

	execution, err := store.Executions().ByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusActive, execution.Status)
	assert.Nil(t, execution.WakeUpAt)
	assert.Empty(t, execution.LastError)

	require.NoError(t, store.Executions().Complete(ctx, "exec-1", models.StoppedByConversionGoal))

	execution, err = store.Executions().ByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, models.StoppedByConversionGoal, execution.LastError)
	assert.NotNil(t, execution.CompletedAt)
}

func TestExecutionRepo_PausedByContact(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	store.AddExecution(&models.Execution{ID: "e1", ContactID: "c1", Status: models.ExecutionStatusPaused})
	store.AddExecution(&models.Execution{ID: "e2", ContactID: "c1", Status: models.ExecutionStatusActive})
	store.AddExecution(&models.Execution{ID: "e3", ContactID: "c2", Status: models.ExecutionStatusPaused})

	paused, err := store.Executions().PausedByContact(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, paused, 1)
	assert.Equal(t, "e1", paused[0].ID)
}

func TestAutomationRepo_ActiveByTriggerType(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	store.AddAutomation(&models.Automation{ID: "a1", TriggerType: "cart_abandoned", Status: models.AutomationStatusActive})
	store.AddAutomation(&models.Automation{ID: "a2", TriggerType: "cart_abandoned", Status: models.AutomationStatusInactive})
	store.AddAutomation(&models.Automation{ID: "a3", TriggerType: "signup", Status: models.AutomationStatusActive})

	matched, err := store.Automations().ActiveByTriggerType(ctx, "cart_abandoned")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "a1", matched[0].ID)
}

func TestFunnelRepo_IncrementStepMetrics(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	require.NoError(t, store.Funnels().IncrementStepMetrics(ctx, "step-1", 297))
	require.NoError(t, store.Funnels().IncrementStepMetrics(ctx, "step-1", 100))

	metrics, err := store.Funnels().StepMetrics(ctx, "step-1")
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.Converted)
	assert.InDelta(t, 397.0, metrics.Revenue, 0.001)
}

func TestJourneyRepo_MarkConverted(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	store.AddJourney(&models.Journey{ID: "j1", ContactID: "c1", Status: models.JourneyStatusActive})

	completedAt := time.Now().UTC()
	require.NoError(t, store.Journeys().MarkConverted(ctx, "j1", 297, completedAt))

	journey, err := store.Journeys().ByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JourneyStatusConverted, journey.Status)
	assert.InDelta(t, 297.0, journey.RevenueGenerated, 0.001)
	require.NotNil(t, journey.CompletedAt)

	// Converted journeys are no longer active.
	active, err := store.Journeys().ActiveByContact(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestConversionRepo_TimeWindowQueries(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	now := time.Now().UTC()
	store.AddConversion(&models.AffiliateConversion{ID: "c1", AffiliateID: "aff1", OrderID: "o1", CreatedAt: now.Add(-10 * time.Minute)})
	store.AddConversion(&models.AffiliateConversion{ID: "c2", AffiliateID: "aff1", OrderID: "o1", CreatedAt: now.Add(-40 * 24 * time.Hour)})
	store.AddConversion(&models.AffiliateConversion{ID: "c3", AffiliateID: "aff2", OrderID: "o2", CreatedAt: now})

	dupes, err := store.Conversions().ByOrderIDSince(ctx, "o1", "c3", now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, dupes, 1)
	assert.Equal(t, "c1", dupes[0].ID)

	recent, err := store.Conversions().ByAffiliateSince(ctx, "aff1", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
}
