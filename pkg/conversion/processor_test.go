package conversion

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelworks/journeyd/pkg/fraud"
	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence/memory"
)

func newTestProcessor(t *testing.T) (*Processor, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	detector := fraud.NewDetector(store, nil, fraud.DefaultThresholds(), slog.Default())
	processor := NewProcessor(store, detector, slog.Default())

	return processor, store
}

func seedAffiliate(store *memory.Persistence, id string, age time.Duration) {
	store.AddAffiliate(&models.Affiliate{
		ID:        id,
		UserID:    "user-" + id,
		CreatedAt: time.Now().Add(-age),
	})
}

func TestProcessCleanConversion(t *testing.T) {
	processor, store := newTestProcessor(t)
	seedAffiliate(store, "aff-1", 365*24*time.Hour)

	result := processor.Process(context.Background(), CreateParams{
		AffiliateID:      "aff-1",
		OrderID:          "order-1",
		GMV:              300,
		CommissionAmount: 300,
		Level:            1,
	})

	require.True(t, result.Success)
	require.NotEmpty(t, result.ConversionID)
	assert.False(t, result.Flagged)
	assert.Zero(t, result.RiskScore)
	assert.Empty(t, result.Error)

	stored, err := store.Conversions().ByID(context.Background(), result.ConversionID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversionStatusPending, stored.Status)
	assert.Equal(t, "order-1", stored.OrderID)
	assert.InDelta(t, 300.0, stored.GMV, 0.001)
}

func TestProcessFlaggedConversionStillSucceeds(t *testing.T) {
	processor, store := newTestProcessor(t)
	seedAffiliate(store, "aff-1", 365*24*time.Hour)

	result := processor.Process(context.Background(), CreateParams{
		AffiliateID:      "aff-1",
		OrderID:          "order-1",
		GMV:              50,
		CommissionAmount: 50,
		Level:            1,
	})

	require.True(t, result.Success)
	assert.True(t, result.Flagged)
	assert.Positive(t, result.RiskScore)

	stored, err := store.Conversions().ByID(context.Background(), result.ConversionID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversionStatusFlagged, stored.Status)

	flags, err := store.FraudFlags().ByAffiliate(context.Background(), "aff-1")
	require.NoError(t, err)
	assert.Len(t, flags, 1)
}

func TestBulkProcessAggregates(t *testing.T) {
	processor, store := newTestProcessor(t)
	seedAffiliate(store, "aff-1", 365*24*time.Hour)

	bulk := processor.BulkProcess(context.Background(), []CreateParams{
		{AffiliateID: "aff-1", OrderID: "order-1", GMV: 300, CommissionAmount: 300, Level: 1},
		{AffiliateID: "aff-1", OrderID: "order-2", GMV: 999, CommissionAmount: 999, Level: 1},
		{AffiliateID: "aff-1", OrderID: "order-3", GMV: 400, CommissionAmount: 400, Level: 1},
	})

	assert.Equal(t, 3, bulk.Processed)
	assert.Equal(t, 1, bulk.Flagged)
	assert.Empty(t, bulk.Errors)
	require.Len(t, bulk.Results, 3)
	assert.True(t, bulk.Results[1].Flagged)
}

func TestBulkProcessEmpty(t *testing.T) {
	processor, _ := newTestProcessor(t)

	bulk := processor.BulkProcess(context.Background(), nil)

	assert.Zero(t, bulk.Processed)
	assert.Zero(t, bulk.Flagged)
	assert.Empty(t, bulk.Errors)
	assert.Empty(t, bulk.Results)
}

func TestReprocessNotFound(t *testing.T) {
	processor, _ := newTestProcessor(t)

	result := processor.Reprocess(context.Background(), "missing")

	assert.False(t, result.Success)
	assert.Equal(t, "conversion not found", result.Error)
}

func TestReprocessReportsPreviousStatus(t *testing.T) {
	processor, store := newTestProcessor(t)
	seedAffiliate(store, "aff-1", 365*24*time.Hour)

	now := time.Now().UTC()
	store.AddConversion(&models.AffiliateConversion{
		ID:          "conv-1",
		AffiliateID: "aff-1",
		OrderID:     "order-1",
		GMV:         50,
		Status:      models.ConversionStatusCleared,
		CreatedAt:   now,
		UpdatedAt:   now,
	})

	result := processor.Reprocess(context.Background(), "conv-1")

	require.True(t, result.Success)
	assert.Equal(t, models.ConversionStatusCleared, result.PreviousStatus)
	assert.True(t, result.Flagged)

	stored, err := store.Conversions().ByID(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversionStatusFlagged, stored.Status)
}
