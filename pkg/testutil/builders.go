// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/funnelworks/journeyd/pkg/models"
)

// CreateTestAutomation creates an active automation with a trigger node
// that can be overridden.
func CreateTestAutomation(overrides ...func(*models.Automation)) *models.Automation {
	now := time.Now().UTC()
	automation := &models.Automation{
		ID:          uuid.New().String(),
		Name:        "Test Automation",
		TriggerType: "lead.created",
		Status:      models.AutomationStatusActive,
		Graph: models.Graph{
			Nodes: []*models.Node{
				{ID: "node-trigger", Type: models.NodeTypeTrigger},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(automation)
	}

	return automation
}

// WithTriggerType sets the automation's trigger event type.
func WithTriggerType(triggerType string) func(*models.Automation) {
	return func(a *models.Automation) {
		a.TriggerType = triggerType
	}
}

// WithStatus sets the automation status.
func WithStatus(status models.AutomationStatus) func(*models.Automation) {
	return func(a *models.Automation) {
		a.Status = status
	}
}

// WithTriggerFilters replaces the trigger node data with the given filter
// configuration.
func WithTriggerFilters(config models.TriggerConfig) func(*models.Automation) {
	return func(a *models.Automation) {
		data, _ := json.Marshal(config)

		trigger := a.Graph.TriggerNode()
		if trigger != nil {
			trigger.Data = data
		}
	}
}

// WithGraph replaces the whole graph.
func WithGraph(graph models.Graph) func(*models.Automation) {
	return func(a *models.Automation) {
		a.Graph = graph
	}
}

// WithSimulationMode enables dry-run context seeding.
func WithSimulationMode() func(*models.Automation) {
	return func(a *models.Automation) {
		a.SimulationMode = true
	}
}

// WaitEventNode builds a wait_event node listening for eventType.
func WaitEventNode(id, eventType string) *models.Node {
	data, _ := json.Marshal(models.WaitEventConfig{Event: eventType})

	return &models.Node{ID: id, Type: models.NodeTypeWaitEvent, Data: data}
}

// CreateTestEvent creates an inbound business event that can be overridden.
func CreateTestEvent(overrides ...func(*events.BusinessEvent)) *events.BusinessEvent {
	event := &events.BusinessEvent{
		EventID:   uuid.New().String(),
		Type:      "lead.created",
		Email:     "test@example.com",
		ContactID: "contact-1",
		Metadata:  map[string]any{},
	}

	for _, override := range overrides {
		override(event)
	}

	return event
}

// WithEventType sets the event type.
func WithEventType(eventType string) func(*events.BusinessEvent) {
	return func(e *events.BusinessEvent) {
		e.Type = eventType
	}
}

// WithMetadata merges the given fields into the event metadata.
func WithMetadata(metadata map[string]any) func(*events.BusinessEvent) {
	return func(e *events.BusinessEvent) {
		for key, value := range metadata {
			e.Metadata[key] = value
		}
	}
}

// WithContact sets the event's contact id.
func WithContact(contactID string) func(*events.BusinessEvent) {
	return func(e *events.BusinessEvent) {
		e.ContactID = contactID
	}
}
