// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/funnelworks/journeyd/pkg/persistence/memory"
	"github.com/funnelworks/journeyd/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme.
// "memory://" is for local development only; executions do not survive a
// restart.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	case strings.HasPrefix(databaseURL, "memory://"):
		return memory.NewPersistence()
	default:
		panic("Unsupported database URL: " + databaseURL)
	}
}
