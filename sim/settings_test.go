package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 20.0, s.OffWireLossThreshold)
	assert.True(t, s.Smooth())
	assert.Equal(t, 50.0, s.FailedSystemsGameOverPercent)
	assert.Equal(t, 150.0, s.SpeedDamageThreshold)
	assert.Equal(t, 10.0, s.SpeedDamageDeactivationTime)
}

func TestSettings_NormalizeFillsDefaults(t *testing.T) {
	var s Settings
	s.Normalize()
	assert.Equal(t, DefaultSettings().OffWireLossThreshold, s.OffWireLossThreshold)
	assert.True(t, s.Smooth())
	assert.Equal(t, DefaultSettings().AccelerationRate, s.AccelerationRate)
}

func TestLoadSettings_PartialFileOverrides(t *testing.T) {
	// GIVEN a settings file that names only two options
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := "offWireLossThreshold: 35\nsmoothWireCurves: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// WHEN it is loaded
	s, err := LoadSettings(path)
	require.NoError(t, err)

	// THEN the named options override and the rest stay at defaults
	assert.Equal(t, 35.0, s.OffWireLossThreshold)
	assert.False(t, s.Smooth())
	assert.Equal(t, DefaultSettings().SpeedDamageThreshold, s.SpeedDamageThreshold)
}

func TestLoadSettings_Errors(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("offWireLossThreshold: ["), 0o644))
	_, err = LoadSettings(path)
	assert.Error(t, err)
}

func TestLoadSettings_Fixture(t *testing.T) {
	s, err := LoadSettings(filepath.Join("..", "testdata", "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 25.0, s.OffWireLossThreshold)
	assert.False(t, s.Smooth())
	assert.Equal(t, 60.0, s.FailedSystemsGameOverPercent)
	assert.Equal(t, 180.0, s.SpeedDamageThreshold)
}
