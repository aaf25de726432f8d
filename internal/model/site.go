package model

import "fmt"

// Location is a site's geographic position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AltitudeM float64 `json:"altitude_m"`
}

// SolarConfig describes a PV installation.
type SolarConfig struct {
	CapacityKW        float64 `json:"capacity_kw"`
	PanelTiltDeg      float64 `json:"panel_tilt_deg"`
	PanelAzimuthDeg   float64 `json:"panel_azimuth_deg"` // 180 = due south
	PanelEfficiency   float64 `json:"panel_efficiency"`  // STC, (0,1]
	TempCoefficient   float64 `json:"temp_coefficient"`  // per °C above 25, typically negative
	SystemDegradation float64 `json:"system_degradation"`
}

// StrategyKind selects the battery dispatch strategy.
type StrategyKind string

const (
	StrategySelfConsumption StrategyKind = "self_consumption"
	StrategyPeakShaving     StrategyKind = "peak_shaving"
	StrategyTimeOfUse       StrategyKind = "time_of_use"
	StrategyBackup          StrategyKind = "backup"
)

// BatteryStrategy is a tagged variant: Kind selects the strategy and only the
// matching parameter fields are consulted.
type BatteryStrategy struct {
	Kind StrategyKind `json:"kind"`

	// Peak shaving
	PeakThresholdKW float64 `json:"peak_threshold_kw,omitempty"`

	// Time of use (hours 0-23)
	ChargeHours    []int `json:"charge_hours,omitempty"`
	DischargeHours []int `json:"discharge_hours,omitempty"`

	// Backup
	ReservePercent float64 `json:"reserve_percent,omitempty"`
}

// StorageConfig describes a battery system.
type StorageConfig struct {
	CapacityKWh         float64         `json:"capacity_kwh"`
	MaxPowerKW          float64         `json:"max_power_kw"`
	MinSOCPercent       float64         `json:"min_soc_percent"`
	MaxSOCPercent       float64         `json:"max_soc_percent"`
	InitialSOCPercent   float64         `json:"initial_soc_percent"`
	RoundTripEfficiency float64         `json:"round_trip_efficiency"` // (0,1]
	RampRateKWPerSec    float64         `json:"ramp_rate_kw_per_sec"`
	Strategy            BatteryStrategy `json:"strategy"`
}

// CyclicalUnit is a piece of equipment that toggles on and off on its own
// duty cycle (compressors, pumps, chillers).
type CyclicalUnit struct {
	PowerKW      float64 `json:"power_kw"`
	CycleMinutes float64 `json:"cycle_minutes"`
}

// LoadConfig describes a space's consumption model.
type LoadConfig struct {
	BaseLoadKW              float64        `json:"base_load_kw"`
	HVACMinKW               float64        `json:"hvac_min_kw"`
	HVACMaxKW               float64        `json:"hvac_max_kw"`
	LightingMinKW           float64        `json:"lighting_min_kw"`
	LightingMaxKW           float64        `json:"lighting_max_kw"`
	LightingOccupancyFactor float64        `json:"lighting_occupancy_factor"`
	EquipmentBaseKW         float64        `json:"equipment_base_kw"`
	CyclicalUnits           []CyclicalUnit `json:"cyclical_units,omitempty"`
	SetpointC               float64        `json:"setpoint_c"`
	ThermalMassCoeff        float64        `json:"thermal_mass_coeff"` // [0,1]
}

// ClimateConfig drives the weather simulator for a site.
type ClimateConfig struct {
	AvgTempC           float64 `json:"avg_temp_c"`
	SeasonalAmplitudeC float64 `json:"seasonal_amplitude_c"`
	DiurnalAmplitudeC  float64 `json:"diurnal_amplitude_c"`
	BaseCloudCover     float64 `json:"base_cloud_cover"` // [0,1]
	BaseWindMS         float64 `json:"base_wind_ms"`
}

// BusinessHours is the occupied window used by the load model.
type BusinessHours struct {
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"`
	Weekends  bool `json:"weekends"`
}

// TariffConfig holds per-kWh rates for the cost-savings KPI.
type TariffConfig struct {
	PeakRate      float64 `json:"peak_rate"`
	NormalRate    float64 `json:"normal_rate"`
	OffPeakRate   float64 `json:"off_peak_rate"`
	PeakStartHour int     `json:"peak_start_hour"`
	PeakEndHour   int     `json:"peak_end_hour"`
}

// RateAt returns the applicable rate for an hour of day.
func (t TariffConfig) RateAt(hour int) float64 {
	switch {
	case hour >= t.PeakStartHour && hour < t.PeakEndHour:
		return t.PeakRate
	case hour < 6 || hour >= 22:
		return t.OffPeakRate
	default:
		return t.NormalRate
	}
}

// SiteConfig is the static, immutable description of one site. It is
// validated once at construction via ValidateSiteConfig.
type SiteConfig struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Location      Location      `json:"location"`
	Solar         SolarConfig   `json:"solar"`
	Storage       StorageConfig `json:"storage"`
	Load          LoadConfig    `json:"load"`
	Climate       ClimateConfig `json:"climate"`
	Tariff        TariffConfig  `json:"tariff"`
	BusinessHours BusinessHours `json:"business_hours"`
}

// ValidateSiteConfig returns human-readable problems with a site config. An
// empty slice means the config is usable. Callers decide whether to abort.
func ValidateSiteConfig(cfg SiteConfig) []string {
	var errs []string

	if cfg.ID == "" {
		errs = append(errs, "site id must not be empty")
	}
	if cfg.Location.Latitude < -90 || cfg.Location.Latitude > 90 {
		errs = append(errs, fmt.Sprintf("latitude %.4f out of range [-90, 90]", cfg.Location.Latitude))
	}
	if cfg.Location.Longitude < -180 || cfg.Location.Longitude > 180 {
		errs = append(errs, fmt.Sprintf("longitude %.4f out of range [-180, 180]", cfg.Location.Longitude))
	}

	if cfg.Solar.CapacityKW <= 0 {
		errs = append(errs, "solar capacity must be > 0")
	}
	if cfg.Solar.PanelEfficiency <= 0 || cfg.Solar.PanelEfficiency > 1 {
		errs = append(errs, fmt.Sprintf("panel efficiency %.3f out of range (0, 1]", cfg.Solar.PanelEfficiency))
	}

	if cfg.Storage.CapacityKWh > 0 {
		if cfg.Storage.MinSOCPercent >= cfg.Storage.MaxSOCPercent {
			errs = append(errs, fmt.Sprintf("min SOC %.1f must be below max SOC %.1f",
				cfg.Storage.MinSOCPercent, cfg.Storage.MaxSOCPercent))
		}
		if cfg.Storage.RoundTripEfficiency <= 0 || cfg.Storage.RoundTripEfficiency > 1 {
			errs = append(errs, fmt.Sprintf("round-trip efficiency %.3f out of range (0, 1]",
				cfg.Storage.RoundTripEfficiency))
		}
		if cfg.Storage.MaxPowerKW <= 0 {
			errs = append(errs, "battery max power must be > 0 when capacity is set")
		}
		switch cfg.Storage.Strategy.Kind {
		case StrategySelfConsumption, StrategyPeakShaving, StrategyTimeOfUse, StrategyBackup:
		default:
			errs = append(errs, fmt.Sprintf("unknown battery strategy %q", cfg.Storage.Strategy.Kind))
		}
	}

	if cfg.Load.BaseLoadKW < 0 {
		errs = append(errs, "base load must not be negative")
	}
	if cfg.BusinessHours.StartHour < 0 || cfg.BusinessHours.StartHour > 23 ||
		cfg.BusinessHours.EndHour < 0 || cfg.BusinessHours.EndHour > 24 ||
		cfg.BusinessHours.StartHour >= cfg.BusinessHours.EndHour {
		errs = append(errs, fmt.Sprintf("business hours %d-%d are not a valid window",
			cfg.BusinessHours.StartHour, cfg.BusinessHours.EndHour))
	}

	return errs
}
