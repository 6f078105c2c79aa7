package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/google/uuid"
)

// JourneyRepository manages funnel journeys and attribution records.
type JourneyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJourneyRepository creates a new journey repository.
func NewJourneyRepository(db *sql.DB, logger *slog.Logger) *JourneyRepository {
	return &JourneyRepository{db: db, logger: logger}
}

const selectJourney = `
	SELECT
		id
	  , funnel_id
	  , contact_id
	  , current_step_id
	  , status
	  , revenue_generated
	  , started_at
	  , completed_at
	FROM funnel_journeys
`

// ActiveByContact returns all active journeys for a contact across funnels.
func (r *JourneyRepository) ActiveByContact(ctx context.Context, contactID string) ([]*models.Journey, error) {
	query := selectJourney + ` WHERE status = 'active' AND contact_id = $1 ORDER BY started_at`

	rows, err := r.db.QueryContext(ctx, query, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journeys: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	journeys := make([]*models.Journey, 0)

	for rows.Next() {
		journey, err := r.scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journey: %w", err)
		}

		journeys = append(journeys, journey)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating journeys: %w", err)
	}

	return journeys, nil
}

// MarkConverted accumulates revenue and moves the journey to its terminal
// converted status.
func (r *JourneyRepository) MarkConverted(ctx context.Context, id string, revenue float64, completedAt time.Time) error {
	query := `
		UPDATE funnel_journeys
		SET revenue_generated = revenue_generated + $2,
		    status = 'converted',
		    completed_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, revenue, completedAt)
	if err != nil {
		return fmt.Errorf("failed to mark journey converted: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrJourneyNotFound
	}

	return nil
}

// RecordConversion inserts one attribution record.
func (r *JourneyRepository) RecordConversion(ctx context.Context, conversion *models.FunnelConversion) error {
	if conversion.ID == "" {
		conversion.ID = uuid.New().String()
	}

	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO funnel_conversions (
			id, funnel_id, contact_id, transaction_id, amount, attributed_step_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		conversion.ID,
		conversion.FunnelID,
		conversion.ContactID,
		nullString(conversion.TransactionID),
		conversion.Amount,
		nullString(conversion.AttributedStepID),
		conversion.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert funnel conversion: %w", err)
	}

	return nil
}

// ByID returns a journey by its ID.
func (r *JourneyRepository) ByID(ctx context.Context, id string) (*models.Journey, error) {
	journey, err := r.scanJourney(r.db.QueryRowContext(ctx, selectJourney+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrJourneyNotFound
		}

		return nil, fmt.Errorf("failed to scan journey: %w", err)
	}

	return journey, nil
}

func (r *JourneyRepository) scanJourney(row rowScanner) (*models.Journey, error) {
	var (
		journey       models.Journey
		currentStepID sql.NullString
	)

	err := row.Scan(
		&journey.ID,
		&journey.FunnelID,
		&journey.ContactID,
		&currentStepID,
		&journey.Status,
		&journey.RevenueGenerated,
		&journey.StartedAt,
		&journey.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	journey.CurrentStepID = currentStepID.String

	return &journey, nil
}
