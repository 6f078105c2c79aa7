package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/persistence"
)

// HandleResult summarizes one processed event.
type HandleResult struct {
	Message           string   `json:"message"`
	ExecutionsCreated int      `json:"executions_created"`
	ExecutionIDs      []string `json:"execution_ids"`
}

// Processor orchestrates the full handling of one inbound business event:
// resume check, revenue attribution, then trigger matching.
type Processor struct {
	persistence persistence.Persistence
	matcher     *TriggerMatcher
	starter     *Starter
	resume      *ResumeCoordinator
	attribution *AttributionCoordinator
	logger      *slog.Logger
}

func NewProcessor(
	p persistence.Persistence,
	matcher *TriggerMatcher,
	starter *Starter,
	resume *ResumeCoordinator,
	attribution *AttributionCoordinator,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		persistence: p,
		matcher:     matcher,
		starter:     starter,
		resume:      resume,
		attribution: attribution,
		logger:      logger.With("module", "event_processor"),
	}
}

// HandleEvent validates and processes one event. Coordinator failures are
// logged and do not block trigger matching; only validation and the
// automation load are fatal. Duplicate deliveries yield a success result
// with zero new executions.
func (p *Processor) HandleEvent(ctx context.Context, event *events.BusinessEvent) (*HandleResult, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Processing event",
		"event_id", event.EventID,
		"event_type", event.Type,
		"contact_id", event.ContactID)

	if resumed, err := p.resume.CheckAndResume(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "Resume check failed", "event_id", event.EventID, "error", err)
	} else if resumed > 0 {
		p.logger.InfoContext(ctx, "Resumed paused executions", "count", resumed)
	}

	if converted, err := p.attribution.CheckAndAttribute(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "Attribution check failed", "event_id", event.EventID, "error", err)
	} else if converted > 0 {
		p.logger.InfoContext(ctx, "Attributed conversions", "count", converted)
	}

	automations, err := p.persistence.Automations().ActiveByTriggerType(ctx, event.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to load automations: %w", err)
	}

	matched := p.matcher.Match(event, automations)

	executionIDs := make([]string, 0, len(matched))

	for _, automation := range matched {
		execution, err := p.starter.Start(ctx, event, automation)
		if err != nil {
			if errors.Is(err, ErrAlreadyProcessed) {
				p.logger.InfoContext(ctx, "Event already processed for automation",
					"event_id", event.EventID, "automation_id", automation.ID)

				continue
			}

			p.logger.ErrorContext(ctx, "Failed to start execution",
				"event_id", event.EventID, "automation_id", automation.ID, "error", err)

			continue
		}

		executionIDs = append(executionIDs, execution.ID)
	}

	return &HandleResult{
		Message:           fmt.Sprintf("Event processed, %d automation(s) triggered", len(executionIDs)),
		ExecutionsCreated: len(executionIDs),
		ExecutionIDs:      executionIDs,
	}, nil
}
