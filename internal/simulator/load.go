package simulator

import (
	"math"
	"math/rand"
	"time"

	"ems_simulator/internal/model"
	"ems_simulator/internal/physics"
)

// LoadOutput is the transient per-tick output of the load simulator.
type LoadOutput struct {
	TotalKW     float64 `json:"total_kw"`
	HVACKW      float64 `json:"hvac_kw"`
	LightingKW  float64 `json:"lighting_kw"`
	EquipmentKW float64 `json:"equipment_kw"`
	OtherKW     float64 `json:"other_kw"`
	Occupancy   float64 `json:"occupancy"` // [0,1]
	IndoorTempC float64 `json:"indoor_temp_c"`
}

// cyclicalState tracks one duty-cycled unit.
type cyclicalState struct {
	on       bool
	cycleEnd time.Time
}

// LoadSimulator models occupancy-driven consumption: HVAC against a
// thermal-mass-filtered indoor temperature, lighting, always-on plus
// duty-cycled equipment, and an "other" remainder filling up to base load.
type LoadSimulator struct {
	cfg   model.LoadConfig
	hours model.BusinessHours
	rng   *rand.Rand

	initialized bool
	indoorTemp  float64
	units       []cyclicalState
}

// NewLoadSimulator builds a load simulator with its own deterministic
// random source.
func NewLoadSimulator(cfg model.LoadConfig, hours model.BusinessHours, seed int64) *LoadSimulator {
	return &LoadSimulator{
		cfg:   cfg,
		hours: hours,
		rng:   rand.New(rand.NewSource(seed)),
		units: make([]cyclicalState, len(cfg.CyclicalUnits)),
	}
}

// Simulate produces the consumption sample at a timestamp under the given
// weather.
func (l *LoadSimulator) Simulate(t time.Time, weather WeatherState) LoadOutput {
	if !l.initialized {
		l.initialized = true
		l.indoorTemp = weather.TempC
	}

	occ := l.occupancy(t)

	// Building interior follows outdoor temperature through the envelope's
	// thermal mass.
	l.indoorTemp = physics.ThermalMass(l.indoorTemp, weather.TempC, l.cfg.ThermalMassCoeff)
	hvac := physics.HVACLoad(l.indoorTemp, l.cfg.SetpointC, l.cfg.HVACMinKW, l.cfg.HVACMaxKW)
	hvac *= 1 + 0.3*occ

	lighting := l.cfg.LightingMinKW + occ*l.cfg.LightingOccupancyFactor*(l.cfg.LightingMaxKW-l.cfg.LightingMinKW)
	hour := t.Hour()
	if hour >= 7 && hour < 19 {
		// Daylight harvesting.
		lighting *= 0.6
	}

	equipment := l.cfg.EquipmentBaseKW
	for i := range l.cfg.CyclicalUnits {
		unit := &l.cfg.CyclicalUnits[i]
		st := &l.units[i]
		if !t.Before(st.cycleEnd) {
			st.on = l.rng.Float64() < 0.3+0.6*occ
			st.cycleEnd = t.Add(time.Duration(unit.CycleMinutes * float64(time.Minute)))
		}
		if st.on {
			equipment += unit.PowerKW
		}
	}

	other := math.Max(0, l.cfg.BaseLoadKW-hvac-lighting-equipment)

	return LoadOutput{
		TotalKW:     hvac + lighting + equipment + other,
		HVACKW:      hvac,
		LightingKW:  lighting,
		EquipmentKW: equipment,
		OtherKW:     other,
		Occupancy:   occ,
		IndoorTempC: l.indoorTemp,
	}
}

// occupancy is a deterministic curve over hour-of-day: ramp in over the first
// business hour, lunch dip, 0.9 plateau, ramp out over the last hour, and a
// skeleton presence outside hours.
func (l *LoadSimulator) occupancy(t time.Time) float64 {
	wd := t.Weekday()
	weekend := wd == time.Saturday || wd == time.Sunday
	if weekend && !l.hours.Weekends {
		return 0.05
	}

	h := float64(t.Hour()) + float64(t.Minute())/60
	start := float64(l.hours.StartHour)
	end := float64(l.hours.EndHour)

	switch {
	case h < start || h >= end:
		if weekend {
			return 0.05
		}
		return 0.1
	case h < start+1:
		return 0.1 + 0.8*(h-start)
	case h >= 12 && h < 13:
		return 0.6
	case h >= end-1:
		return 0.1 + 0.8*(end-h)
	default:
		return 0.9
	}
}
