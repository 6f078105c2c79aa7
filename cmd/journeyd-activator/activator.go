package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/funnelworks/journeyd/pkg/automation"
	"github.com/funnelworks/journeyd/pkg/eventbus"
	"github.com/funnelworks/journeyd/pkg/events"
)

// Activator consumes inbound business events and feeds them through the
// event processor.
type Activator struct {
	id           string
	processor    *automation.Processor
	businessBus  eventbus.BusinessEventBus
	logger       *slog.Logger
	restartCount int
}

func NewActivator(
	id string,
	processor *automation.Processor,
	businessBus eventbus.BusinessEventBus,
	logger *slog.Logger,
) *Activator {
	return &Activator{
		id:          id,
		processor:   processor,
		businessBus: businessBus,
		logger:      logger.With("module", "activator"),
	}
}

// Start begins the activator service.
func (a *Activator) Start(ctx context.Context) {
	aCtx, cancel := context.WithCancel(ctx)

	a.logger.Info("Starting activator")

	a.handleSignals(aCtx, cancel)
	a.run(aCtx)
}

// handleSignals sets up signal handling for graceful shutdown and restart.
func (a *Activator) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		a.logger.Info("Received signal", "signal", sig)

		switch sig {
		case syscall.SIGHUP:
			a.logger.Info("Reloading configuration...")
			a.restart(ctx, cancel)
		case syscall.SIGINT, syscall.SIGTERM:
			a.logger.Info("Shutting down gracefully...")
			a.stop(cancel)
			os.Exit(0)
		default:
			a.logger.Warn("Unhandled signal received", "signal", sig)
		}
	}()
}

// restart handles service restart with backoff.
func (a *Activator) restart(ctx context.Context, cancel context.CancelFunc) {
	a.restartCount++
	newCtx := context.WithoutCancel(ctx)

	a.stop(cancel)

	if a.restartCount > 5 {
		a.logger.Error("Restart limit reached, exiting...")
		os.Exit(1)
	}

	backoff := time.Duration(a.restartCount) * time.Second
	a.logger.Info("Restarting activator...", "backoff", backoff)
	time.Sleep(backoff)

	a.Start(newCtx)
}

// run is the main loop that consumes business events.
func (a *Activator) run(ctx context.Context) {
	a.logger.Info("Starting business event consumption")

	a.consumeBusinessEvents(ctx)

	// The subscription runs in background goroutines.
	<-ctx.Done()
	a.logger.Info("Activator context cancelled, stopping...")
}

// consumeBusinessEvents registers the handler and starts the subscription.
func (a *Activator) consumeBusinessEvents(ctx context.Context) {
	err := a.businessBus.HandleBusinessEvents(func(ctx context.Context, event *events.BusinessEvent) error {
		return a.handleBusinessEvent(ctx, event)
	})
	if err != nil {
		a.logger.Error("Failed to register business event handler", "error", err)

		return
	}

	if err := a.businessBus.Subscribe(ctx); err != nil {
		a.logger.Error("Failed to start business event subscription", "error", err)

		return
	}

	a.logger.Info("Successfully subscribed to business events - waiting for events...")
}

// handleBusinessEvent processes a single inbound event. Validation
// failures are acked, not retried: a malformed event never becomes valid.
func (a *Activator) handleBusinessEvent(ctx context.Context, event *events.BusinessEvent) error {
	logger := a.logger.With(
		"event_id", event.EventID,
		"event_type", event.Type,
	)

	logger.Info("Processing business event")

	if err := event.Validate(); err != nil {
		logger.Error("Invalid business event, dropping", "error", err)

		return nil
	}

	result, err := a.processor.HandleEvent(ctx, event)
	if err != nil {
		logger.Error("Failed to process business event", "error", err)

		return err
	}

	logger.Info("Business event processed",
		"executions_created", result.ExecutionsCreated)

	return nil
}

// stop gracefully shuts down the activator.
func (a *Activator) stop(cancel context.CancelFunc) {
	a.logger.Info("Stopping activator")

	if cancel != nil {
		cancel()
	}
}
