package automation

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelworks/journeyd/pkg/idempotency"
	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence/memory"
	"github.com/funnelworks/journeyd/pkg/testutil"
)

// recordingWalker captures advanced execution ids and optionally fails.
type recordingWalker struct {
	advanced []string
	err      error
}

func (w *recordingWalker) Advance(ctx context.Context, executionID string) error {
	w.advanced = append(w.advanced, executionID)

	return w.err
}

func newTestStarter(t *testing.T) (*Starter, *memory.Persistence, *recordingWalker) {
	t.Helper()

	store := memory.NewPersistence()
	stepWalker := &recordingWalker{}
	starter := NewStarter(store, idempotency.NoopGuard{}, stepWalker, slog.Default())

	return starter, store, stepWalker
}

func TestStartCreatesActiveExecution(t *testing.T) {
	starter, store, stepWalker := newTestStarter(t)

	automation := testutil.CreateTestAutomation(testutil.WithSimulationMode())
	store.AddAutomation(automation)

	event := testutil.CreateTestEvent(testutil.WithMetadata(map[string]any{"product_type": "course"}))
	event.MarketingOptIn = true

	execution, err := starter.Start(context.Background(), event, automation)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusActive, execution.Status)
	assert.Equal(t, "node-trigger", execution.CurrentNodeID)
	assert.Equal(t, models.IdempotencyKey(event.EventID, automation.ID), execution.UniqueEventID)
	assert.Equal(t, event.ContactID, execution.ContactID)
	assert.Zero(t, execution.RetryCount)

	assert.Equal(t, event.Email, execution.Context["email"])
	assert.Equal(t, event.ContactID, execution.Context["contact_id"])
	assert.Equal(t, event.Type, execution.Context["trigger_event"])
	assert.Equal(t, true, execution.Context["marketing_opt_in"])
	assert.Equal(t, true, execution.Context["dry_run"])
	assert.Equal(t, "course", execution.Context["product_type"])

	assert.Equal(t, []string{execution.ID}, stepWalker.advanced)

	stored, err := store.Executions().ByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusActive, stored.Status)
}

func TestStartDuplicateDeliveryIsNoOp(t *testing.T) {
	starter, store, stepWalker := newTestStarter(t)

	automation := testutil.CreateTestAutomation()
	store.AddAutomation(automation)

	event := testutil.CreateTestEvent()

	first, err := starter.Start(context.Background(), event, automation)
	require.NoError(t, err)

	second, err := starter.Start(context.Background(), event, automation)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Nil(t, second)

	// Only the first delivery reached the walker.
	assert.Equal(t, []string{first.ID}, stepWalker.advanced)
}

func TestStartSameEventDifferentAutomations(t *testing.T) {
	starter, store, _ := newTestStarter(t)

	automationA := testutil.CreateTestAutomation()
	automationB := testutil.CreateTestAutomation()
	store.AddAutomation(automationA)
	store.AddAutomation(automationB)

	event := testutil.CreateTestEvent()

	executionA, err := starter.Start(context.Background(), event, automationA)
	require.NoError(t, err)

	executionB, err := starter.Start(context.Background(), event, automationB)
	require.NoError(t, err)

	assert.NotEqual(t, executionA.UniqueEventID, executionB.UniqueEventID)
}

func TestStartWalkerFailureKeepsExecution(t *testing.T) {
	starter, store, stepWalker := newTestStarter(t)
	stepWalker.err = errors.New("walker unreachable")

	automation := testutil.CreateTestAutomation()
	store.AddAutomation(automation)

	execution, err := starter.Start(context.Background(), testutil.CreateTestEvent(), automation)
	require.NoError(t, err)

	stored, err := store.Executions().ByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusActive, stored.Status)
}

func TestStartMissingTriggerNode(t *testing.T) {
	starter, store, _ := newTestStarter(t)

	automation := testutil.CreateTestAutomation(testutil.WithGraph(models.Graph{}))
	store.AddAutomation(automation)

	execution, err := starter.Start(context.Background(), testutil.CreateTestEvent(), automation)

	require.Error(t, err)
	assert.Nil(t, execution)
}
