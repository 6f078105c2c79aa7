// Package main provides the journeyd API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/funnelworks/journeyd/pkg/cmd"
	"github.com/funnelworks/journeyd/pkg/conversion"
	"github.com/funnelworks/journeyd/pkg/eventbus"
	"github.com/funnelworks/journeyd/pkg/fraud"
	"github.com/funnelworks/journeyd/pkg/idempotency"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/funnelworks/journeyd/pkg/walker"
	"github.com/funnelworks/journeyd/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	guard       idempotency.Guard
	walker      walker.StepWalker
	bus         eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	guard idempotency.Guard,
	stepWalker walker.StepWalker,
	bus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		guard:       guard,
		walker:      stepWalker,
		bus:         bus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	eventProcessor := cmd.NewEventProcessor(a.persistence, a.guard, a.walker, a.bus, a.logger)
	detector := fraud.NewDetector(a.persistence, a.bus, fraud.DefaultThresholds(), a.logger)
	conversionProcessor := conversion.NewProcessor(a.persistence, detector, a.logger)

	handlers := web.NewAPIHandlers(eventProcessor, conversionProcessor, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("journeyd API")
	})

	app.Post("/events", handlers.HandleEvent)

	conversions := app.Group("/conversions")
	conversions.Post("/", handlers.CreateConversion)
	conversions.Post("/bulk", handlers.BulkCreateConversions)
	conversions.Get("/:id", handlers.GetConversion)
	conversions.Post("/:id/reprocess", handlers.ReprocessConversion)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
