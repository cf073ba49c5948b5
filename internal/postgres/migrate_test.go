package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	assert.Equal(t, "0001_init", ms[0].Version)

	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Version, ms[i].Version)
	}

	schema := ms[0].SQL
	for _, table := range []string{"trips", "bookings", "booking_events"} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
	assert.Contains(t, schema, "seats_available >= 0")
	assert.Contains(t, schema, "ON DELETE RESTRICT")
	assert.Contains(t, schema, "ON DELETE CASCADE")
	assert.Contains(t, schema, "bookings_reference_key UNIQUE (reference)")
}
