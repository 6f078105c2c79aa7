// Package models defines the core domain models for event-driven marketing automation.
package models

import (
	"encoding/json"
	"time"
)

// AutomationStatus represents the lifecycle state of an automation.
type AutomationStatus string

const (
	AutomationStatusActive   AutomationStatus = "active"   // Matched against inbound events
	AutomationStatusInactive AutomationStatus = "inactive" // Ignored by the trigger matcher
)

// Automation is one workflow definition: a trigger event type plus a
// directed graph of nodes walked at runtime by the step walker.
type Automation struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"         validate:"required,min=3"`
	TriggerType    string           `json:"trigger_type" validate:"required"`
	Status         AutomationStatus `json:"status"       validate:"required"`
	Graph          Graph            `json:"graph"`
	SimulationMode bool             `json:"simulation_mode"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (a *Automation) IsActive() bool {
	return a.Status == AutomationStatusActive
}

// Graph is the node/edge structure of an automation. It is read-only to
// this engine; the admin surface that edits it lives elsewhere.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// TriggerNode returns the unique entry-point node, or nil when the graph
// is malformed (callers skip such automations with a warning).
func (g *Graph) TriggerNode() *Node {
	for _, node := range g.Nodes {
		if node.Type == NodeTypeTrigger {
			return node
		}
	}

	return nil
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Edge connects two nodes within a graph.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// NodeType discriminates the node variants of an automation graph.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeWaitEvent NodeType = "wait_event"
	NodeTypeSendEmail NodeType = "send_email"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeCondition NodeType = "condition"
)

// Node is a tagged-variant graph node. Data holds the type-specific
// configuration document and is decoded on demand through the typed
// accessors below.
type Node struct {
	ID   string          `json:"id"   validate:"required"`
	Type NodeType        `json:"type" validate:"required"`
	Data json.RawMessage `json:"data,omitempty"`
}

// FilterAny is the sentinel filter value meaning "match everything".
const FilterAny = "any"

// TriggerConfig is the configuration payload of a trigger node. Empty or
// "any" filter values match everything; configured values must equal the
// corresponding inbound event metadata field.
type TriggerConfig struct {
	FilterProductType string `json:"filterProductType,omitempty"`
	FilterTag         string `json:"filterTag,omitempty"`
	FilterCampaign    string `json:"filterCampaign,omitempty"`
}

// WaitEventConfig is the configuration payload of a wait_event node.
// FilterCampaign is carried for forward compatibility but is not evaluated
// by the resume coordinator, which matches on contact and event type only.
type WaitEventConfig struct {
	Event          string `json:"event"`
	FilterCampaign string `json:"filterCampaign,omitempty"`
}

// TriggerConfig decodes the node's data as a trigger configuration.
// A node without data yields the zero configuration (no filters).
func (n *Node) TriggerConfig() (*TriggerConfig, error) {
	config := &TriggerConfig{}
	if len(n.Data) == 0 {
		return config, nil
	}

	if err := json.Unmarshal(n.Data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// WaitEventConfig decodes the node's data as a wait_event configuration.
func (n *Node) WaitEventConfig() (*WaitEventConfig, error) {
	config := &WaitEventConfig{}
	if len(n.Data) == 0 {
		return config, nil
	}

	if err := json.Unmarshal(n.Data, config); err != nil {
		return nil, err
	}

	return config, nil
}
