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
)

// ConversionRepository manages affiliate conversions.
type ConversionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConversionRepository creates a new conversion repository.
func NewConversionRepository(db *sql.DB, logger *slog.Logger) *ConversionRepository {
	return &ConversionRepository{db: db, logger: logger}
}

const selectConversion = `
	SELECT
		id
	  , affiliate_id
	  , order_id
	  , gmv
	  , commission_amount
	  , level
	  , status
	  , customer_email
	  , customer_name
	  , product_name
	  , metadata
	  , created_at
	  , updated_at
	FROM affiliate_conversions
`

// Create inserts a new affiliate conversion.
func (r *ConversionRepository) Create(ctx context.Context, conversion *models.AffiliateConversion) error {
	if conversion.ID == "" {
		conversion.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = now
	}

	conversion.UpdatedAt = now

	metadataJSON, err := json.Marshal(conversion.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal conversion metadata: %w", err)
	}

	query := `
		INSERT INTO affiliate_conversions (
			id, affiliate_id, order_id, gmv, commission_amount, level, status,
			customer_email, customer_name, product_name, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(ctx, query,
		conversion.ID,
		conversion.AffiliateID,
		nullString(conversion.OrderID),
		conversion.GMV,
		conversion.CommissionAmount,
		conversion.Level,
		conversion.Status,
		nullString(conversion.CustomerEmail),
		nullString(conversion.CustomerName),
		nullString(conversion.ProductName),
		metadataJSON,
		conversion.CreatedAt,
		conversion.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion: %w", err)
	}

	return nil
}

// ByID returns a conversion by its ID.
func (r *ConversionRepository) ByID(ctx context.Context, id string) (*models.AffiliateConversion, error) {
	conversion, err := r.scanConversion(r.db.QueryRowContext(ctx, selectConversion+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrConversionNotFound
		}

		return nil, fmt.Errorf("failed to scan conversion: %w", err)
	}

	return conversion, nil
}

// ByOrderIDSince returns conversions sharing the order id within the
// window, excluding the conversion under evaluation.
func (r *ConversionRepository) ByOrderIDSince(ctx context.Context, orderID, excludeID string, since time.Time) ([]*models.AffiliateConversion, error) {
	query := selectConversion + ` WHERE order_id = $1 AND id <> $2 AND created_at >= $3`

	return r.queryConversions(ctx, query, orderID, excludeID, since)
}

// ByAffiliateSince returns the affiliate's conversions in the window.
func (r *ConversionRepository) ByAffiliateSince(ctx context.Context, affiliateID string, since time.Time) ([]*models.AffiliateConversion, error) {
	query := selectConversion + ` WHERE affiliate_id = $1 AND created_at >= $2`

	return r.queryConversions(ctx, query, affiliateID, since)
}

// UpdateStatus sets the review status of a conversion.
func (r *ConversionRepository) UpdateStatus(ctx context.Context, id string, status models.ConversionStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE affiliate_conversions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return &persistence.ConversionError{Op: "UpdateStatus", ConversionID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.ConversionError{Op: "UpdateStatus", ConversionID: id, Err: err}
	}

	if affected == 0 {
		return &persistence.ConversionError{Op: "UpdateStatus", ConversionID: id, Err: persistence.ErrConversionNotFound}
	}

	return nil
}

func (r *ConversionRepository) queryConversions(ctx context.Context, query string, args ...any) ([]*models.AffiliateConversion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	conversions := make([]*models.AffiliateConversion, 0)

	for rows.Next() {
		conversion, err := r.scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}

		conversions = append(conversions, conversion)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating conversions: %w", err)
	}

	return conversions, nil
}

func (r *ConversionRepository) scanConversion(row rowScanner) (*models.AffiliateConversion, error) {
	var (
		conversion    models.AffiliateConversion
		orderID       sql.NullString
		customerEmail sql.NullString
		customerName  sql.NullString
		productName   sql.NullString
		metadataJSON  []byte
	)

	err := row.Scan(
		&conversion.ID,
		&conversion.AffiliateID,
		&orderID,
		&conversion.GMV,
		&conversion.CommissionAmount,
		&conversion.Level,
		&conversion.Status,
		&customerEmail,
		&customerName,
		&productName,
		&metadataJSON,
		&conversion.CreatedAt,
		&conversion.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conversion.OrderID = orderID.String
	conversion.CustomerEmail = customerEmail.String
	conversion.CustomerName = customerName.String
	conversion.ProductName = productName.String

	if len(metadataJSON) > 0 {
		err = json.Unmarshal(metadataJSON, &conversion.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversion metadata: %w", err)
		}
	}

	return &conversion, nil
}
