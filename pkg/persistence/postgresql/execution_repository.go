package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// ExecutionRepository handles execution lifecycle database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Create inserts a new execution. A unique-index violation on
// unique_event_id is mapped to ErrDuplicateExecution; the constraint, not
// the application lookup, is the idempotency source of truth.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal execution context: %w", err)
	}

	query := `
		INSERT INTO executions (
			id, automation_id, contact_id, current_node_id, status, context,
			unique_event_id, wake_up_at, retry_count, last_error,
			created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.AutomationID,
		nullString(execution.ContactID),
		execution.CurrentNodeID,
		execution.Status,
		contextJSON,
		execution.UniqueEventID,
		execution.WakeUpAt,
		execution.RetryCount,
		nullString(execution.LastError),
		execution.CreatedAt,
		execution.UpdatedAt,
		execution.CompletedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return persistence.NewExecutionError("Create", execution.ID, persistence.ErrDuplicateExecution)
		}

		return fmt.Errorf("failed to insert execution: %w", err)
	}

	return nil
}

// ByID returns an execution by its ID.
func (r *ExecutionRepository) ByID(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := r.scanExecution(r.db.QueryRowContext(ctx, selectExecution+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// ByUniqueEventID returns the execution holding the idempotency key, or
// nil when none exists.
func (r *ExecutionRepository) ByUniqueEventID(ctx context.Context, uniqueEventID string) (*models.Execution, error) {
	execution, err := r.scanExecution(r.db.QueryRowContext(ctx, selectExecution+` WHERE unique_event_id = $1`, uniqueEventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// PausedByContact returns all paused executions for a contact.
func (r *ExecutionRepository) PausedByContact(ctx context.Context, contactID string) ([]*models.Execution, error) {
	query := selectExecution + ` WHERE status = 'paused' AND contact_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query paused executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// RunningByAutomationAndContact returns one active or paused execution for
// the pair, or nil.
func (r *ExecutionRepository) RunningByAutomationAndContact(ctx context.Context, automationID, contactID string) (*models.Execution, error) {
	query := selectExecution + `
		WHERE automation_id = $1
		  AND contact_id = $2
		  AND status IN ('active', 'paused')
		LIMIT 1
	`

	execution, err := r.scanExecution(r.db.QueryRowContext(ctx, query, automationID, contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// Resume transitions a paused execution back to active.
func (r *ExecutionRepository) Resume(ctx context.Context, id string) error {
	query := `
		UPDATE executions
		SET status = 'active', wake_up_at = NULL, last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return persistence.NewExecutionError("Resume", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Resume", id, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Resume", id, persistence.ErrExecutionNotFound)
	}

	return nil
}

// Complete forces a terminal completed status with an explanatory error.
func (r *ExecutionRepository) Complete(ctx context.Context, id string, lastError string) error {
	query := `
		UPDATE executions
		SET status = 'completed', last_error = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, nullString(lastError))
	if err != nil {
		return persistence.NewExecutionError("Complete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Complete", id, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Complete", id, persistence.ErrExecutionNotFound)
	}

	return nil
}

const selectExecution = `
	SELECT
		id
	  , automation_id
	  , contact_id
	  , current_node_id
	  , status
	  , context
	  , unique_event_id
	  , wake_up_at
	  , retry_count
	  , last_error
	  , created_at
	  , updated_at
	  , completed_at
	FROM executions
`

func (r *ExecutionRepository) scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		contactID   sql.NullString
		contextJSON []byte
		lastError   sql.NullString
	)

	err := row.Scan(
		&execution.ID,
		&execution.AutomationID,
		&contactID,
		&execution.CurrentNodeID,
		&execution.Status,
		&contextJSON,
		&execution.UniqueEventID,
		&execution.WakeUpAt,
		&execution.RetryCount,
		&lastError,
		&execution.CreatedAt,
		&execution.UpdatedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.ContactID = contactID.String
	execution.LastError = lastError.String

	if len(contextJSON) > 0 {
		err = json.Unmarshal(contextJSON, &execution.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution context: %w", err)
		}
	}

	return &execution, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
