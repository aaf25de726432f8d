// Package simulator holds the per-site physics state machines that produce
// telemetry samples: weather, solar, load and battery, composed per leaf
// space by the factory in space.go. Every simulator is single-owner mutable
// state advanced by Simulate/Control calls; none of them are safe for
// concurrent use on their own.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"ems_simulator/internal/model"
	"ems_simulator/internal/physics"
)

// WeatherState is the transient per-tick output of the weather simulator.
type WeatherState struct {
	TempC         float64   `json:"temp_c"`
	CloudCover    float64   `json:"cloud_cover"` // [0,1]
	Humidity      float64   `json:"humidity"`    // [20,95]
	WindMS        float64   `json:"wind_ms"`
	Precipitating bool      `json:"precipitating"`
	Timestamp     time.Time `json:"timestamp"`
}

// WeatherSimulator evolves a site's climate state across ticks. Cloud
// coverage follows a target-seeking random walk: the target itself only
// moves after a persistence interval elapses, so overcast and clear spells
// last a realistic while instead of flickering.
type WeatherSimulator struct {
	cfg model.ClimateConfig
	rng *rand.Rand

	initialized bool
	temp        float64
	cloud       float64
	humidity    float64
	wind        float64

	cloudTarget  float64
	persistTicks int
}

// NewWeatherSimulator creates a simulator seeded deterministically so that
// repeated runs of the same site reproduce the same weather.
func NewWeatherSimulator(cfg model.ClimateConfig, seed int64) *WeatherSimulator {
	return &WeatherSimulator{
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(seed)),
		cloudTarget: clampF(cfg.BaseCloudCover, 0, 1),
	}
}

// Simulate advances the climate state to the given timestamp.
func (w *WeatherSimulator) Simulate(t time.Time) WeatherState {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	seasonal := physics.SeasonalTemperature(t.YearDay(), w.cfg.AvgTempC, w.cfg.SeasonalAmplitudeC)
	target := physics.DiurnalTemperature(hour, seasonal, w.cfg.DiurnalAmplitudeC)
	target += (w.rng.Float64() - 0.5) * 0.6

	if !w.initialized {
		w.initialized = true
		w.temp = target
		w.cloud = w.cloudTarget
		w.persistTicks = 10 + w.rng.Intn(50)
	}

	w.temp = physics.ThermalMass(w.temp, target, 0.85)

	// Cloud target changes only when the persistence interval runs out, or
	// with a small random chance so fronts can arrive early.
	w.persistTicks--
	if w.persistTicks <= 0 || w.rng.Float64() < 0.02 {
		drift := (w.rng.Float64() - 0.5) * 0.9
		w.cloudTarget = clampF(w.cfg.BaseCloudCover+drift, 0, 1)
		w.persistTicks = 20 + w.rng.Intn(60)
	}
	w.cloud += (w.cloudTarget - w.cloud) * 0.1
	w.cloud = clampF(w.cloud, 0, 1)

	// Humidity drops as temperature rises above the site average and climbs
	// with cloud cover.
	humidity := 60 - (w.temp-w.cfg.AvgTempC)*1.5 + w.cloud*25
	w.humidity = clampF(humidity, 20, 95)

	// Wind picks up mid-day and with cloud cover.
	wind := w.cfg.BaseWindMS*(0.7+0.6*math.Sin(math.Pi*hour/24)) + w.cloud*2
	wind += (w.rng.Float64() - 0.5) * 0.5
	w.wind = math.Max(0, wind)

	precip := w.cloud > 0.7 && w.rng.Float64() < (w.cloud-0.7)*0.5

	return WeatherState{
		TempC:         w.temp,
		CloudCover:    w.cloud,
		Humidity:      w.humidity,
		WindMS:        w.wind,
		Precipitating: precip,
		Timestamp:     t,
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
