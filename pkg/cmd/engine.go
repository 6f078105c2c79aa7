package cmd

import (
	"log/slog"
	"time"

	"github.com/funnelworks/journeyd/pkg/automation"
	"github.com/funnelworks/journeyd/pkg/eventbus"
	"github.com/funnelworks/journeyd/pkg/idempotency"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/funnelworks/journeyd/pkg/walker"
)

const idempotencyTTL = 24 * time.Hour

// NewWalker selects the step walker implementation. An empty walker URL
// with a bus falls back to durable event-bus dispatch; with neither the
// walker is a no-op (simulation deployments).
func NewWalker(walkerURL, walkerToken string, bus eventbus.EventBus, logger *slog.Logger) walker.StepWalker {
	if walkerURL != "" {
		return walker.NewHTTPWalker(walkerURL, walkerToken)
	}

	if bus != nil {
		return walker.NewBusWalker(bus)
	}

	logger.Warn("No walker configured, executions will not advance")

	return walker.NoopWalker{}
}

// NewIdempotencyGuard creates the redis fast-path guard, or a no-op guard
// when no redis URL is configured. The storage unique constraint still
// holds either way.
func NewIdempotencyGuard(redisURL string, logger *slog.Logger) idempotency.Guard {
	if redisURL == "" {
		return idempotency.NoopGuard{}
	}

	guard, err := idempotency.NewRedisGuard(redisURL, idempotencyTTL, logger)
	if err != nil {
		panic(err)
	}

	return guard
}

// NewEventProcessor wires the full event handling pipeline. The lifecycle
// bus may be nil for deployments without one.
func NewEventProcessor(
	p persistence.Persistence,
	guard idempotency.Guard,
	stepWalker walker.StepWalker,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *automation.Processor {
	return automation.NewProcessor(
		p,
		automation.NewTriggerMatcher(logger),
		automation.NewStarter(p, guard, stepWalker, logger),
		automation.NewResumeCoordinator(p, stepWalker, logger),
		automation.NewAttributionCoordinator(p, bus, logger),
		logger,
	)
}
