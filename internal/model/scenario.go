package model

import "time"

// ScenarioMode selects how the master clock advances.
type ScenarioMode string

const (
	// ModeLive tracks wall-clock time exactly.
	ModeLive ScenarioMode = "live"
	// ModeHistorical replays from a fixed start time at SpeedMultiplier.
	ModeHistorical ScenarioMode = "historical"
	// ModeSimulation is mechanically identical to historical but represents
	// a forward-looking run.
	ModeSimulation ScenarioMode = "simulation"
)

// ScenarioConfig describes the master clock. StartTime is only meaningful in
// historical and simulation modes.
type ScenarioConfig struct {
	Mode            ScenarioMode `json:"mode"`
	StartTime       time.Time    `json:"start_time,omitempty"`
	SpeedMultiplier float64      `json:"speed_multiplier"`
	Paused          bool         `json:"paused"`
}

// ScenarioUpdate is a partial scenario change; nil fields keep the current
// value.
type ScenarioUpdate struct {
	Mode            *ScenarioMode `json:"mode,omitempty"`
	StartTime       *time.Time    `json:"start_time,omitempty"`
	SpeedMultiplier *float64      `json:"speed_multiplier,omitempty"`
	Paused          *bool         `json:"paused,omitempty"`
}

// DefaultScenario is a live clock at 1x speed.
func DefaultScenario() ScenarioConfig {
	return ScenarioConfig{Mode: ModeLive, SpeedMultiplier: 1}
}
