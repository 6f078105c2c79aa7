// Package automation implements the event-driven engine: trigger matching,
// execution start with idempotency, pause/resume, and revenue attribution.
package automation

import (
	"log/slog"

	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/models"
)

// TriggerMatcher decides which automations an inbound event should start.
type TriggerMatcher struct {
	logger *slog.Logger
}

func NewTriggerMatcher(logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{logger: logger.With("module", "trigger_matcher")}
}

// Match returns the subset of automations whose trigger accepts the event.
// Candidates are expected to already share the event's trigger type; status
// and filters are checked here. An automation whose graph lacks a trigger
// node is skipped with a warning, never an error.
func (m *TriggerMatcher) Match(event *events.BusinessEvent, automations []*models.Automation) []*models.Automation {
	matched := make([]*models.Automation, 0, len(automations))

	for _, automation := range automations {
		if !automation.IsActive() || automation.TriggerType != event.Type {
			continue
		}

		trigger := automation.Graph.TriggerNode()
		if trigger == nil {
			m.logger.Warn("Automation has no trigger node, skipping",
				"automation_id", automation.ID, "automation_name", automation.Name)

			continue
		}

		config, err := trigger.TriggerConfig()
		if err != nil {
			m.logger.Warn("Automation has malformed trigger config, skipping",
				"automation_id", automation.ID, "error", err)

			continue
		}

		if !m.filtersMatch(event, config) {
			continue
		}

		matched = append(matched, automation)
	}

	return matched
}

// filtersMatch applies the configured trigger filters as a logical AND.
// An empty or "any" filter value matches everything.
func (m *TriggerMatcher) filtersMatch(event *events.BusinessEvent, config *models.TriggerConfig) bool {
	return filterAccepts(config.FilterProductType, event.MetadataString(events.MetadataProductType)) &&
		filterAccepts(config.FilterTag, event.MetadataString(events.MetadataTagName)) &&
		filterAccepts(config.FilterCampaign, event.MetadataString(events.MetadataCampaignID))
}

func filterAccepts(configured, actual string) bool {
	if configured == "" || configured == models.FilterAny {
		return true
	}

	return configured == actual
}
