package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_TriggerNode(t *testing.T) {
	graph := Graph{
		Nodes: []*Node{
			{ID: "n2", Type: NodeTypeSendEmail},
			{ID: "n1", Type: NodeTypeTrigger},
		},
	}

	node := graph.TriggerNode()
	require.NotNil(t, node)
	assert.Equal(t, "n1", node.ID)
}

func TestGraph_TriggerNode_Missing(t *testing.T) {
	graph := Graph{
		Nodes: []*Node{
			{ID: "n1", Type: NodeTypeSendEmail},
		},
	}

	assert.Nil(t, graph.TriggerNode())
}

func TestGraph_NodeByID(t *testing.T) {
	graph := Graph{
		Nodes: []*Node{
			{ID: "n1", Type: NodeTypeTrigger},
			{ID: "n2", Type: NodeTypeWaitEvent},
		},
	}

	require.NotNil(t, graph.NodeByID("n2"))
	assert.Equal(t, NodeTypeWaitEvent, graph.NodeByID("n2").Type)
	assert.Nil(t, graph.NodeByID("missing"))
}

func TestNode_TriggerConfig(t *testing.T) {
	node := &Node{
		ID:   "n1",
		Type: NodeTypeTrigger,
		Data: json.RawMessage(`{"filterProductType":"ebook","filterTag":"any"}`),
	}

	config, err := node.TriggerConfig()
	require.NoError(t, err)
	assert.Equal(t, "ebook", config.FilterProductType)
	assert.Equal(t, "any", config.FilterTag)
	assert.Empty(t, config.FilterCampaign)
}

func TestNode_TriggerConfig_NoData(t *testing.T) {
	node := &Node{ID: "n1", Type: NodeTypeTrigger}

	config, err := node.TriggerConfig()
	require.NoError(t, err)
	assert.Equal(t, &TriggerConfig{}, config)
}

func TestNode_WaitEventConfig(t *testing.T) {
	node := &Node{
		ID:   "n3",
		Type: NodeTypeWaitEvent,
		Data: json.RawMessage(`{"event":"email_clicked"}`),
	}

	config, err := node.WaitEventConfig()
	require.NoError(t, err)
	assert.Equal(t, "email_clicked", config.Event)
}

func TestIdempotencyKey(t *testing.T) {
	assert.Equal(t, "evt1_auto1", IdempotencyKey("evt1", "auto1"))
}

func TestFunnel_GoalEvent(t *testing.T) {
	funnel := &Funnel{}
	assert.Equal(t, DefaultConversionGoalEvent, funnel.GoalEvent())

	funnel.ConversionGoalEvent = "subscription.started"
	assert.Equal(t, "subscription.started", funnel.GoalEvent())
}

func TestExecution_IsRunning(t *testing.T) {
	tests := []struct {
		status  ExecutionStatus
		running bool
	}{
		{ExecutionStatusActive, true},
		{ExecutionStatusPaused, true},
		{ExecutionStatusCompleted, false},
		{ExecutionStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			execution := &Execution{Status: tt.status}
			assert.Equal(t, tt.running, execution.IsRunning())
		})
	}
}
