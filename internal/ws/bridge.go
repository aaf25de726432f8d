package ws

import (
	"log"
	"time"

	"ems_simulator/internal/generator"
	"ems_simulator/internal/model"
)

// Bridge implements generator.Callback and broadcasts events to the
// WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnTelemetry(t time.Time, spaces []model.HierarchicalSpace) {
	msg, err := NewEnvelope(TypeTelemetry, TelemetryPayload{
		Timestamp: t.Format(time.RFC3339),
		Spaces:    spaces,
	})
	if err != nil {
		log.Printf("Error marshaling telemetry: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnKPIs(k generator.KPISnapshot) {
	msg, err := NewEnvelope(TypeKPIUpdate, k)
	if err != nil {
		log.Printf("Error marshaling KPIs: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnAlerts(alerts []generator.Alert) {
	if alerts == nil {
		alerts = []generator.Alert{}
	}
	msg, err := NewEnvelope(TypeAlertUpdate, AlertListPayload{Alerts: alerts})
	if err != nil {
		log.Printf("Error marshaling alerts: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}
