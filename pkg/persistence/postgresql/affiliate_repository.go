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

// AffiliateRepository reads affiliate account metadata.
type AffiliateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAffiliateRepository creates a new affiliate repository.
func NewAffiliateRepository(db *sql.DB, logger *slog.Logger) *AffiliateRepository {
	return &AffiliateRepository{db: db, logger: logger}
}

// ByID returns an affiliate by its ID.
func (r *AffiliateRepository) ByID(ctx context.Context, id string) (*models.Affiliate, error) {
	var affiliate models.Affiliate

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM affiliates WHERE id = $1`, id).
		Scan(&affiliate.ID, &affiliate.UserID, &affiliate.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrAffiliateNotFound
		}

		return nil, fmt.Errorf("failed to scan affiliate: %w", err)
	}

	return &affiliate, nil
}

// FraudFlagRepository writes and reads fraud flags.
type FraudFlagRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFraudFlagRepository creates a new fraud flag repository.
func NewFraudFlagRepository(db *sql.DB, logger *slog.Logger) *FraudFlagRepository {
	return &FraudFlagRepository{db: db, logger: logger}
}

// Create inserts a fraud flag.
func (r *FraudFlagRepository) Create(ctx context.Context, flag *models.FraudFlag) error {
	if flag.ID == "" {
		flag.ID = uuid.New().String()
	}

	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO fraud_flags (id, affiliate_id, reason, details, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		flag.ID,
		flag.AffiliateID,
		flag.Reason,
		flag.Details,
		flag.Resolved,
		flag.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fraud flag: %w", err)
	}

	return nil
}

// ByAffiliate returns all flags recorded against an affiliate.
func (r *FraudFlagRepository) ByAffiliate(ctx context.Context, affiliateID string) ([]*models.FraudFlag, error) {
	query := `
		SELECT id, affiliate_id, reason, details, resolved, created_at
		FROM fraud_flags
		WHERE affiliate_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fraud flags: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flags := make([]*models.FraudFlag, 0)

	for rows.Next() {
		var flag models.FraudFlag

		err := rows.Scan(&flag.ID, &flag.AffiliateID, &flag.Reason, &flag.Details, &flag.Resolved, &flag.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fraud flag: %w", err)
		}

		flags = append(flags, &flag)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating fraud flags: %w", err)
	}

	return flags, nil
}
