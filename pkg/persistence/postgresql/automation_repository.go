package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
)

// AutomationRepository handles automation-related database operations.
// Automations are read-only to the engine.
type AutomationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAutomationRepository creates a new automation repository.
func NewAutomationRepository(db *sql.DB, logger *slog.Logger) *AutomationRepository {
	return &AutomationRepository{db: db, logger: logger}
}

// All returns every automation regardless of status.
func (r *AutomationRepository) All(ctx context.Context) ([]*models.Automation, error) {
	query := `
		SELECT
			id
		  , name
		  , trigger_type
		  , status
		  , graph
		  , simulation_mode
		  , created_at
		  , updated_at
		FROM automations
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := r.scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automations = append(automations, automation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	return automations, nil
}

// ActiveByTriggerType returns all active automations whose trigger type
// equals triggerType.
func (r *AutomationRepository) ActiveByTriggerType(ctx context.Context, triggerType string) ([]*models.Automation, error) {
	query := `
		SELECT
			id
		  , name
		  , trigger_type
		  , status
		  , graph
		  , simulation_mode
		  , created_at
		  , updated_at
		FROM automations
		WHERE status = 'active' AND trigger_type = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := r.scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automations = append(automations, automation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	return automations, nil
}

// ByID returns an automation by its ID.
func (r *AutomationRepository) ByID(ctx context.Context, id string) (*models.Automation, error) {
	query := `
		SELECT
			id
		  , name
		  , trigger_type
		  , status
		  , graph
		  , simulation_mode
		  , created_at
		  , updated_at
		FROM automations
		WHERE id = $1
	`

	automation, err := r.scanAutomation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrAutomationNotFound
		}

		return nil, fmt.Errorf("failed to scan automation: %w", err)
	}

	return automation, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AutomationRepository) scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		automation models.Automation
		graphJSON  []byte
	)

	err := row.Scan(
		&automation.ID,
		&automation.Name,
		&automation.TriggerType,
		&automation.Status,
		&graphJSON,
		&automation.SimulationMode,
		&automation.CreatedAt,
		&automation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(graphJSON) > 0 {
		err = json.Unmarshal(graphJSON, &automation.Graph)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
		}
	}

	return &automation, nil
}
