// Package postgresql provides the PostgreSQL persistence implementation for
// automations, executions, journeys, and affiliate conversions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/funnelworks/journeyd/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	automationRepo *AutomationRepository
	executionRepo  *ExecutionRepository
	funnelRepo     *FunnelRepository
	journeyRepo    *JourneyRepository
	conversionRepo *ConversionRepository
	affiliateRepo  *AffiliateRepository
	fraudFlagRepo  *FraudFlagRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs
// pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		automationRepo: NewAutomationRepository(database, logger),
		executionRepo:  NewExecutionRepository(database, logger),
		funnelRepo:     NewFunnelRepository(database, logger),
		journeyRepo:    NewJourneyRepository(database, logger),
		conversionRepo: NewConversionRepository(database, logger),
		affiliateRepo:  NewAffiliateRepository(database, logger),
		fraudFlagRepo:  NewFraudFlagRepository(database, logger),
	}, nil
}

func (p *Persistence) Automations() persistence.AutomationRepository { return p.automationRepo }
func (p *Persistence) Executions() persistence.ExecutionRepository   { return p.executionRepo }
func (p *Persistence) Funnels() persistence.FunnelRepository         { return p.funnelRepo }
func (p *Persistence) Journeys() persistence.JourneyRepository       { return p.journeyRepo }
func (p *Persistence) Conversions() persistence.ConversionRepository { return p.conversionRepo }
func (p *Persistence) Affiliates() persistence.AffiliateRepository   { return p.affiliateRepo }
func (p *Persistence) FraudFlags() persistence.FraudFlagRepository   { return p.fraudFlagRepo }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
