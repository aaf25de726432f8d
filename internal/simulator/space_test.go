package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems_simulator/internal/model"
)

func f(v float64) *float64 { return &v }

func testSite() model.SiteConfig {
	return model.SiteConfig{
		ID:       "site-test",
		Name:     "Test Site",
		Location: testLocation(),
		Solar:    testSolarConfig(),
		Storage:  testStorageConfig(model.StrategySelfConsumption),
		Load:     testLoadConfig(),
		Climate:  testClimate(),
		BusinessHours: model.BusinessHours{
			StartHour: 8,
			EndHour:   18,
		},
	}
}

func testTree() []model.HierarchicalSpace {
	return []model.HierarchicalSpace{
		{ID: "site-test", Type: model.SpaceSite, ChildIDs: []string{"bldg"}},
		{ID: "bldg", Type: model.SpaceBuilding, ParentID: "site-test", ChildIDs: []string{"zone-a", "zone-b"}},
		{
			ID: "zone-a", Type: model.SpaceZone, ParentID: "bldg",
			Equipment: model.Equipment{
				SolarCapacityKW:    f(50),
				BatteryCapacityKWh: f(100),
				LoadCapacityKW:     f(30),
			},
		},
		{
			ID: "zone-b", Type: model.SpaceZone, ParentID: "bldg",
			Equipment: model.Equipment{LoadCapacityKW: f(20)},
		},
	}
}

func TestBuildSimulators_LeavesOnly(t *testing.T) {
	sims := BuildSimulators(testSite(), testTree())

	require.Len(t, sims, 2)
	assert.Contains(t, sims, "zone-a")
	assert.Contains(t, sims, "zone-b")
	assert.NotContains(t, sims, "site-test")
	assert.NotContains(t, sims, "bldg")
}

func TestBuildSimulators_EquipmentSelectsModels(t *testing.T) {
	sims := BuildSimulators(testSite(), testTree())

	assert.NotNil(t, sims["zone-a"].solar)
	assert.NotNil(t, sims["zone-a"].battery)
	assert.Nil(t, sims["zone-b"].solar)
	assert.Nil(t, sims["zone-b"].battery)
}

func TestSpaceSimulator_GridClosesEnergyBalance(t *testing.T) {
	sims := BuildSimulators(testSite(), testTree())
	sim := sims["zone-a"]

	start := time.Date(2026, 6, 22, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 48; i++ {
		m := sim.Simulate(start.Add(time.Duration(i) * 15 * time.Minute))
		assert.InDelta(t, m.ConsumptionPowerKW-m.SolarPowerKW+m.BatteryPowerKW, m.GridPowerKW, 1e-9)
	}
}

func TestSpaceSimulator_NoBatteryNoSOC(t *testing.T) {
	sims := BuildSimulators(testSite(), testTree())

	m := sims["zone-b"].Simulate(time.Date(2026, 6, 22, 12, 0, 0, 0, time.UTC))
	assert.Zero(t, m.BatteryPowerKW)
	assert.Nil(t, m.BatterySOC)
}

func TestSpaceSimulator_BatteryReportsSOC(t *testing.T) {
	sims := BuildSimulators(testSite(), testTree())

	m := sims["zone-a"].Simulate(time.Date(2026, 6, 22, 12, 0, 0, 0, time.UTC))
	require.NotNil(t, m.BatterySOC)
	assert.GreaterOrEqual(t, *m.BatterySOC, 10.0)
	assert.LessOrEqual(t, *m.BatterySOC, 95.0)
}

func TestSpaceSimulator_BreakdownAlwaysPresent(t *testing.T) {
	sims := BuildSimulators(testSite(), testTree())

	m := sims["zone-b"].Simulate(time.Date(2026, 6, 22, 12, 0, 0, 0, time.UTC))
	require.NotNil(t, m.Breakdown)
	sum := m.Breakdown.HVACKW + m.Breakdown.LightingKW + m.Breakdown.EquipmentKW + m.Breakdown.OtherKW
	assert.InDelta(t, m.ConsumptionPowerKW, sum, 0.001)
}

func TestSpaceSimulator_SolarZeroAtNight(t *testing.T) {
	sims := BuildSimulators(testSite(), testTree())

	m := sims["zone-a"].Simulate(time.Date(2026, 6, 22, 0, 30, 0, 0, time.UTC))
	assert.Zero(t, m.SolarPowerKW)
}

func TestBuildSimulators_DeterministicPerSite(t *testing.T) {
	simsA := BuildSimulators(testSite(), testTree())
	simsB := BuildSimulators(testSite(), testTree())

	ts := time.Date(2026, 6, 22, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, simsA["zone-b"].Simulate(ts), simsB["zone-b"].Simulate(ts))
}
