package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeasonalTemperature_Extremes(t *testing.T) {
	// Coldest mid-January, warmest mid-July.
	assert.InDelta(t, -1.0, SeasonalTemperature(15, 10, 11), 0.001)
	assert.InDelta(t, 21.0, SeasonalTemperature(197, 10, 11), 0.01)
}

func TestSeasonalTemperature_SpringNearAverage(t *testing.T) {
	// A quarter year after the minimum the curve crosses the average.
	assert.InDelta(t, 10.0, SeasonalTemperature(106, 10, 11), 0.3)
}

func TestDiurnalTemperature_MinAndMax(t *testing.T) {
	assert.InDelta(t, 4.0, DiurnalTemperature(6, 10, 6), 0.001)
	assert.InDelta(t, 16.0, DiurnalTemperature(15, 10, 6), 0.001)
}

func TestDiurnalTemperature_ContinuousAtMax(t *testing.T) {
	before := DiurnalTemperature(14.99, 10, 6)
	after := DiurnalTemperature(15.01, 10, 6)
	assert.InDelta(t, before, after, 0.05)
}

func TestDiurnalTemperature_MidnightBetweenExtremes(t *testing.T) {
	v := DiurnalTemperature(0, 10, 6)
	assert.Greater(t, v, 4.0)
	assert.Less(t, v, 16.0)
}

func TestDiurnalTemperature_WrapsHour(t *testing.T) {
	assert.InDelta(t, DiurnalTemperature(3, 10, 6), DiurnalTemperature(27, 10, 6), 0.001)
}

func TestThermalMass(t *testing.T) {
	assert.InDelta(t, 20.0, ThermalMass(20, 30, 1), 0.001)
	assert.InDelta(t, 30.0, ThermalMass(20, 30, 0), 0.001)
	assert.InDelta(t, 25.0, ThermalMass(20, 30, 0.5), 0.001)
}

func TestThermalMass_ClampsCoefficient(t *testing.T) {
	assert.InDelta(t, 20.0, ThermalMass(20, 30, 1.5), 0.001)
	assert.InDelta(t, 30.0, ThermalMass(20, 30, -0.5), 0.001)
}

func TestHVACLoad_AtSetpoint(t *testing.T) {
	assert.InDelta(t, 1.0, HVACLoad(22, 22, 5, 50), 0.001)
	assert.InDelta(t, 1.0, HVACLoad(18, 22, 5, 50), 0.001)
}

func TestHVACLoad_LinearRamp(t *testing.T) {
	assert.InDelta(t, 27.5, HVACLoad(27, 22, 5, 50), 0.001)
	assert.InDelta(t, 50.0, HVACLoad(32, 22, 5, 50), 0.001)
}

func TestHVACLoad_SaturatesAtMax(t *testing.T) {
	assert.InDelta(t, 50.0, HVACLoad(45, 22, 5, 50), 0.001)
}
