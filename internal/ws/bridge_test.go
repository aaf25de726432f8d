package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems_simulator/internal/generator"
	"ems_simulator/internal/model"
)

func newTestBridge() (*Bridge, *Client) {
	hub := NewHub()
	client := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.Register(client)
	bridge := NewBridge(hub)
	return bridge, client
}

func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	msg := <-c.send
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestBridge_OnTelemetry(t *testing.T) {
	bridge, client := newTestBridge()

	ts := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	bridge.OnTelemetry(ts, []model.HierarchicalSpace{
		{
			ID:   "site-1",
			Name: "Site One",
			Type: model.SpaceSite,
			Metrics: model.SpaceMetrics{
				SolarPowerKW:       120.5,
				ConsumptionPowerKW: 90.0,
				GridPowerKW:        -30.5,
				Timestamp:          ts,
			},
		},
	})

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeTelemetry, env.Type)

	var p TelemetryPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "2026-06-21T12:00:00Z", p.Timestamp)
	require.Len(t, p.Spaces, 1)
	assert.Equal(t, "site-1", p.Spaces[0].ID)
	assert.InDelta(t, 120.5, p.Spaces[0].Metrics.SolarPowerKW, 0.001)
	assert.InDelta(t, -30.5, p.Spaces[0].Metrics.GridPowerKW, 0.001)
}

func TestBridge_OnKPIs(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnKPIs(generator.KPISnapshot{
		BatterySOC:       62.5,
		EnergyTodayKWh:   840.0,
		PeakPowerTodayKW: 145.0,
		CostSavings:      38.2,
		CarbonAvoidedKg:  110.0,
		Autarchy:         55.0,
		SelfConsumption:  88.0,
		ActiveSites:      1,
	})

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeKPIUpdate, env.Type)

	var p generator.KPISnapshot
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.InDelta(t, 62.5, p.BatterySOC, 0.001)
	assert.InDelta(t, 840.0, p.EnergyTodayKWh, 0.001)
	assert.InDelta(t, 145.0, p.PeakPowerTodayKW, 0.001)
	assert.InDelta(t, 55.0, p.Autarchy, 0.001)
	assert.Equal(t, 1, p.ActiveSites)
}

func TestBridge_OnAlerts(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnAlerts([]generator.Alert{
		{
			ID:       "alert-battery-warning",
			Severity: "warning",
			Title:    "Battery low",
			Message:  "State of charge below 25%",
		},
	})

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeAlertUpdate, env.Type)

	var p AlertListPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Len(t, p.Alerts, 1)
	assert.Equal(t, "alert-battery-warning", p.Alerts[0].ID)
	assert.Equal(t, "warning", p.Alerts[0].Severity)
}

func TestBridge_OnAlerts_EmptyIsArray(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnAlerts(nil)

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeAlertUpdate, env.Type)
	assert.Contains(t, string(env.Payload), `"alerts":[]`)
}
