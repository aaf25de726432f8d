package ws

import (
	"encoding/json"
	"time"

	"ems_simulator/internal/generator"
	"ems_simulator/internal/model"
	"ems_simulator/internal/timeengine"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type SetSpeedPayload struct {
	Speed float64 `json:"speed"`
}

type JumpPayload struct {
	Timestamp string `json:"timestamp"`
}

type StepPayload struct {
	Seconds float64 `json:"seconds"`
}

type SetScenarioPayload struct {
	Mode      *string  `json:"mode,omitempty"`
	StartTime *string  `json:"start_time,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Paused    *bool    `json:"paused,omitempty"`
}

// Server -> Client messages

type ScenarioStatePayload struct {
	Time    string  `json:"time"`
	Mode    string  `json:"mode"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
	Paused  bool    `json:"paused"`
}

type TelemetryPayload struct {
	Timestamp string                    `json:"timestamp"`
	Spaces    []model.HierarchicalSpace `json:"spaces"`
}

// Message type constants
const (
	// Client -> Server
	TypeScenarioStart    = "scenario:start"
	TypeScenarioPause    = "scenario:pause"
	TypeScenarioResume   = "scenario:resume"
	TypeScenarioSetSpeed = "scenario:set_speed"
	TypeScenarioJump     = "scenario:jump"
	TypeScenarioStep     = "scenario:step"
	TypeScenarioSet      = "scenario:set"

	// Server -> Client
	TypeScenarioState = "scenario:state"
	TypeTelemetry     = "telemetry:update"
	TypeKPIUpdate     = "kpi:update"
	TypeAlertUpdate   = "alert:update"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func ScenarioStateFromEngine(s timeengine.Status) ScenarioStatePayload {
	return ScenarioStatePayload{
		Time:    s.CurrentTime.Format(time.RFC3339),
		Mode:    string(s.Mode),
		Speed:   s.SpeedMultiplier,
		Running: s.Running,
		Paused:  s.Paused,
	}
}

// AlertListPayload wraps the alert slice so an empty list still serializes
// as an array.
type AlertListPayload struct {
	Alerts []generator.Alert `json:"alerts"`
}
