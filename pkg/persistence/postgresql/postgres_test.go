package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/funnelworks/journeyd/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{
		"fraud_flags", "affiliate_conversions", "affiliates",
		"funnel_conversions", "funnel_journeys", "funnel_steps", "funnels",
		"executions", "automations", "schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("journeyd_test"),
			postgres.WithUsername("journeyd"),
			postgres.WithPassword("journeyd"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func seedAutomationRow(ctx context.Context, t *testing.T, databaseURL, id string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	_, err = db.ExecContext(ctx,
		`INSERT INTO automations (id, name, trigger_type, status) VALUES ($1, 'Test Automation', 'lead.created', 'active')`,
		id)
	require.NoError(t, err)
}

func seedFunnelStepRow(ctx context.Context, t *testing.T, databaseURL, automationID, funnelID, stepID string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	_, err = db.ExecContext(ctx,
		`INSERT INTO funnels (id, automation_id, name) VALUES ($1, $2, 'Launch Funnel')`,
		funnelID, automationID)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO funnel_steps (id, funnel_id) VALUES ($1, $2)`,
		stepID, funnelID)
	require.NoError(t, err)
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	// Verify tables were created
	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'executions')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "executions table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'schema_migrations')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "schema_migrations table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM pg_indexes
WHERE indexname = 'idx_executions_unique_event')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "unique event index should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestExecutionRepository_UniqueEventID(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	automationID := uuid.New().String()
	seedAutomationRow(ctx, t, databaseURL, automationID)

	first := &models.Execution{
		AutomationID:  automationID,
		ContactID:     "contact-1",
		CurrentNodeID: "node-trigger",
		Status:        models.ExecutionStatusActive,
		Context:       map[string]any{"email": "a@b.com"},
		UniqueEventID: "evt-1_" + automationID,
	}
	require.NoError(t, p.Executions().Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	// The unique index rejects a second execution for the same
	// (event, automation) pair even when the inserting process never saw
	// the first one.
	second := &models.Execution{
		AutomationID:  automationID,
		ContactID:     "contact-1",
		CurrentNodeID: "node-trigger",
		Status:        models.ExecutionStatusActive,
		Context:       map[string]any{"email": "a@b.com"},
		UniqueEventID: "evt-1_" + automationID,
	}
	err := p.Executions().Create(ctx, second)
	require.Error(t, err)
	require.ErrorIs(t, err, persistence.ErrDuplicateExecution)
	assert.True(t, persistence.IsDuplicateExecution(err))

	found, err := p.Executions().ByUniqueEventID(ctx, "evt-1_"+automationID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, "contact-1", found.ContactID)
	assert.Equal(t, "a@b.com", found.Context["email"])

	missing, err := p.Executions().ByUniqueEventID(ctx, "evt-2_"+automationID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExecutionRepository_ResumeAndComplete(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	automationID := uuid.New().String()
	seedAutomationRow(ctx, t, databaseURL, automationID)

	wake := time.Now().UTC().Add(time.Hour)
	execution := &models.Execution{
		AutomationID:  automationID,
		ContactID:     "contact-1",
		CurrentNodeID: "node-wait",
		Status:        models.ExecutionStatusPaused,
		Context:       map[string]any{},
		UniqueEventID: "evt-1_" + automationID,
		WakeUpAt:      &wake,
		LastError:     "timeout",
	}
	require.NoError(t, p.Executions().Create(ctx, execution))

	require.NoError(t, p.Executions().Resume(ctx, execution.ID))

	resumed, err := p.Executions().ByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusActive, resumed.Status)
	assert.Nil(t, resumed.WakeUpAt)
	assert.Empty(t, resumed.LastError)

	require.NoError(t, p.Executions().Complete(ctx, execution.ID, models.StoppedByConversionGoal))

	completed, err := p.Executions().ByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, completed.Status)
	assert.Equal(t, models.StoppedByConversionGoal, completed.LastError)
	require.NotNil(t, completed.CompletedAt)
}

func TestFunnelRepository_IncrementStepMetrics(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	automationID := uuid.New().String()
	funnelID := uuid.New().String()
	stepID := uuid.New().String()

	seedAutomationRow(ctx, t, databaseURL, automationID)
	seedFunnelStepRow(ctx, t, databaseURL, automationID, funnelID, stepID)

	// The jsonb_set expression initializes missing counters and
	// accumulates in place, so repeated increments never lose an update.
	require.NoError(t, p.Funnels().IncrementStepMetrics(ctx, stepID, 297.5))
	require.NoError(t, p.Funnels().IncrementStepMetrics(ctx, stepID, 100))

	metrics, err := p.Funnels().StepMetrics(ctx, stepID)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.Converted)
	assert.InDelta(t, 397.5, metrics.Revenue, 0.001)

	err = p.Funnels().IncrementStepMetrics(ctx, uuid.New().String(), 10)
	require.ErrorIs(t, err, persistence.ErrStepNotFound)
}
