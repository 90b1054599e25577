package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLevelSchema(t *testing.T) {
	schema := buildLevelSchema()
	require.NotNil(t, schema)
	assert.Equal(t, "Packet Network Level", schema.Title)

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	// The reflected schema must describe the level container fields.
	assert.Contains(t, string(data), "levelId")
	assert.Contains(t, string(data), "packetSchedule")
	assert.Contains(t, string(data), "wireConnections")
}
