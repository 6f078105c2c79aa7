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

// FunnelRepository reads funnel configuration and maintains step metrics.
type FunnelRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFunnelRepository creates a new funnel repository.
func NewFunnelRepository(db *sql.DB, logger *slog.Logger) *FunnelRepository {
	return &FunnelRepository{db: db, logger: logger}
}

// ByID returns a funnel by its ID.
func (r *FunnelRepository) ByID(ctx context.Context, id string) (*models.Funnel, error) {
	query := `
		SELECT
			id
		  , automation_id
		  , name
		  , conversion_goal_event
		  , settings
		  , created_at
		FROM funnels
		WHERE id = $1
	`

	var (
		funnel       models.Funnel
		settingsJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&funnel.ID,
		&funnel.AutomationID,
		&funnel.Name,
		&funnel.ConversionGoalEvent,
		&settingsJSON,
		&funnel.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrFunnelNotFound
		}

		return nil, fmt.Errorf("failed to scan funnel: %w", err)
	}

	if len(settingsJSON) > 0 {
		err = json.Unmarshal(settingsJSON, &funnel.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal funnel settings: %w", err)
		}
	}

	return &funnel, nil
}

// IncrementStepMetrics bumps the converted counter and revenue total in a
// single statement, avoiding the read-modify-write lost-update race.
func (r *FunnelRepository) IncrementStepMetrics(ctx context.Context, stepID string, revenue float64) error {
	query := `
		UPDATE funnel_steps
		SET metrics = jsonb_set(
			jsonb_set(
				COALESCE(metrics, '{}'::jsonb),
				'{converted}',
				to_jsonb(COALESCE((metrics->>'converted')::int, 0) + 1)
			),
			'{revenue}',
			to_jsonb(COALESCE((metrics->>'revenue')::numeric, 0) + $2)
		)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, stepID, revenue)
	if err != nil {
		return fmt.Errorf("failed to increment step metrics: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrStepNotFound
	}

	return nil
}

// StepMetrics returns the aggregate metrics bag of a step.
func (r *FunnelRepository) StepMetrics(ctx context.Context, stepID string) (*models.StepMetrics, error) {
	var metricsJSON []byte

	err := r.db.QueryRowContext(ctx, `SELECT metrics FROM funnel_steps WHERE id = $1`, stepID).Scan(&metricsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrStepNotFound
		}

		return nil, fmt.Errorf("failed to scan step metrics: %w", err)
	}

	metrics := &models.StepMetrics{}
	if len(metricsJSON) > 0 {
		err = json.Unmarshal(metricsJSON, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal step metrics: %w", err)
		}
	}

	return metrics, nil
}
