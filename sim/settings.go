package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds the tunable simulation parameters, loadable from a YAML file.
// Zero values are replaced by defaults in Normalize, so a partial file only
// overrides what it names.
type Settings struct {
	// OffWireLossThreshold is the deviation in pixels from the wire path past
	// which a packet is marked lost. Deviation exactly at the threshold is
	// survivable.
	OffWireLossThreshold float64 `yaml:"offWireLossThreshold"`

	// SmoothWireCurves selects smooth-curve path sampling over rigid polylines.
	SmoothWireCurves *bool `yaml:"smoothWireCurves"`

	// FailedSystemsGameOverPercent is the failed-system percentage that ends
	// the game.
	FailedSystemsGameOverPercent float64 `yaml:"failedSystemsGameOverPercent"`

	// SpeedDamageThreshold is the packet speed in px/s above which a system
	// entry damages the system.
	SpeedDamageThreshold float64 `yaml:"speedDamageThreshold"`

	// SpeedDamageDeactivationTime is how long a damaged system stays down.
	SpeedDamageDeactivationTime float64 `yaml:"speedDamageDeactivationTime"`

	// AntiTrojanScanRadius is the default scan radius for anti-trojan systems
	// that do not set their own.
	AntiTrojanScanRadius float64 `yaml:"antiTrojanScanRadius"`

	// CollisionRadius is the center distance at which two on-wire packets
	// collide.
	CollisionRadius float64 `yaml:"collisionRadius"`

	// ShockwaveRadius and ShockwaveStrength shape the impulse a collision
	// applies to nearby packets.
	ShockwaveRadius   float64 `yaml:"shockwaveRadius"`
	ShockwaveStrength float64 `yaml:"shockwaveStrength"`

	// ConfidentialSpacing is the distance a protected confidential packet tries
	// to keep from every other packet on the network.
	ConfidentialSpacing float64 `yaml:"confidentialSpacing"`

	// AccelerationRate is the scalar acceleration in px/s^2 used by the
	// accelerating and decelerating movement profiles.
	AccelerationRate float64 `yaml:"accelerationRate"`
}

// DefaultSettings returns the engine defaults.
func DefaultSettings() Settings {
	smooth := true
	return Settings{
		OffWireLossThreshold:         20.0,
		SmoothWireCurves:             &smooth,
		FailedSystemsGameOverPercent: 50.0,
		SpeedDamageThreshold:         150.0,
		SpeedDamageDeactivationTime:  10.0,
		AntiTrojanScanRadius:         DefaultAntiTrojanScanRadius,
		CollisionRadius:              8.0,
		ShockwaveRadius:              80.0,
		ShockwaveStrength:            25.0,
		ConfidentialSpacing:          40.0,
		AccelerationRate:             30.0,
	}
}

// Smooth reports the effective curve mode.
func (s *Settings) Smooth() bool {
	return s.SmoothWireCurves == nil || *s.SmoothWireCurves
}

// Normalize fills unset fields with defaults.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.OffWireLossThreshold <= 0 {
		s.OffWireLossThreshold = def.OffWireLossThreshold
	}
	if s.SmoothWireCurves == nil {
		s.SmoothWireCurves = def.SmoothWireCurves
	}
	if s.FailedSystemsGameOverPercent <= 0 {
		s.FailedSystemsGameOverPercent = def.FailedSystemsGameOverPercent
	}
	if s.SpeedDamageThreshold <= 0 {
		s.SpeedDamageThreshold = def.SpeedDamageThreshold
	}
	if s.SpeedDamageDeactivationTime <= 0 {
		s.SpeedDamageDeactivationTime = def.SpeedDamageDeactivationTime
	}
	if s.AntiTrojanScanRadius <= 0 {
		s.AntiTrojanScanRadius = def.AntiTrojanScanRadius
	}
	if s.CollisionRadius <= 0 {
		s.CollisionRadius = def.CollisionRadius
	}
	if s.ShockwaveRadius <= 0 {
		s.ShockwaveRadius = def.ShockwaveRadius
	}
	if s.ShockwaveStrength <= 0 {
		s.ShockwaveStrength = def.ShockwaveStrength
	}
	if s.ConfidentialSpacing <= 0 {
		s.ConfidentialSpacing = def.ConfidentialSpacing
	}
	if s.AccelerationRate <= 0 {
		s.AccelerationRate = def.AccelerationRate
	}
}

// LoadSettings reads and parses a YAML settings file, filling defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings: %w", err)
	}
	s.Normalize()
	return s, nil
}
