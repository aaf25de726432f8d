package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSite() SiteConfig {
	return SiteConfig{
		ID:       "site-1",
		Name:     "Test",
		Location: Location{Latitude: 48.137, Longitude: 11.575},
		Solar:    SolarConfig{CapacityKW: 100, PanelEfficiency: 0.21},
		Storage: StorageConfig{
			CapacityKWh: 200, MaxPowerKW: 50,
			MinSOCPercent: 10, MaxSOCPercent: 95,
			RoundTripEfficiency: 0.9,
			Strategy:            BatteryStrategy{Kind: StrategySelfConsumption},
		},
		Load:          LoadConfig{BaseLoadKW: 80},
		BusinessHours: BusinessHours{StartHour: 8, EndHour: 18},
	}
}

func TestValidateSiteConfig_Valid(t *testing.T) {
	assert.Empty(t, ValidateSiteConfig(validSite()))
}

func TestValidateSiteConfig_CollectsAllProblems(t *testing.T) {
	cfg := validSite()
	cfg.ID = ""
	cfg.Location.Latitude = 91
	cfg.Solar.PanelEfficiency = 1.5

	errs := ValidateSiteConfig(cfg)
	assert.Len(t, errs, 3)
}

func TestValidateSiteConfig_SOCOrdering(t *testing.T) {
	cfg := validSite()
	cfg.Storage.MinSOCPercent = 95
	cfg.Storage.MaxSOCPercent = 10

	errs := ValidateSiteConfig(cfg)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "min SOC")
}

func TestValidateSiteConfig_UnknownStrategy(t *testing.T) {
	cfg := validSite()
	cfg.Storage.Strategy.Kind = "arbitrage"

	errs := ValidateSiteConfig(cfg)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "strategy")
}

func TestValidateSiteConfig_NoBatteryskipsStorageChecks(t *testing.T) {
	cfg := validSite()
	cfg.Storage = StorageConfig{}
	assert.Empty(t, ValidateSiteConfig(cfg))
}

func TestValidateSiteConfig_BusinessHoursWindow(t *testing.T) {
	cfg := validSite()
	cfg.BusinessHours = BusinessHours{StartHour: 18, EndHour: 8}
	assert.Len(t, ValidateSiteConfig(cfg), 1)
}

func TestTariffRateAt(t *testing.T) {
	tariff := TariffConfig{
		PeakRate: 0.38, NormalRate: 0.30, OffPeakRate: 0.22,
		PeakStartHour: 17, PeakEndHour: 21,
	}

	assert.InDelta(t, 0.38, tariff.RateAt(18), 0.001)
	assert.InDelta(t, 0.30, tariff.RateAt(10), 0.001)
	assert.InDelta(t, 0.22, tariff.RateAt(3), 0.001)
	assert.InDelta(t, 0.22, tariff.RateAt(23), 0.001)
	assert.InDelta(t, 0.30, tariff.RateAt(21), 0.001) // peak end is exclusive
}

func TestIsLeaf(t *testing.T) {
	leaf := HierarchicalSpace{ID: "z"}
	parent := HierarchicalSpace{ID: "p", ChildIDs: []string{"z"}}
	assert.True(t, leaf.IsLeaf())
	assert.False(t, parent.IsLeaf())
}
