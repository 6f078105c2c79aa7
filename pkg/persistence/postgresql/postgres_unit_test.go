package postgresql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullString(t *testing.T) {
	assert.False(t, nullString("").Valid)

	value := nullString("stopped by conversion goal")
	require.True(t, value.Valid)
	assert.Equal(t, "stopped by conversion goal", value.String)
}

func TestMigrations_Ordered(t *testing.T) {
	m := migrations()

	require.NotEmpty(t, m)

	for version := 1; version <= len(m); version++ {
		assert.Contains(t, m, version, "migration versions must be contiguous from 1")
	}
}

func TestMigrations_UniqueEventIndex(t *testing.T) {
	// The unique index on executions.unique_event_id is the idempotency
	// enforcement mechanism and must never be dropped silently.
	m := migrations()

	assert.True(t, strings.Contains(m[1], "CREATE UNIQUE INDEX idx_executions_unique_event"))
}
