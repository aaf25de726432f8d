package simulator

import (
	"hash/crc32"
	"math"
	"time"

	"ems_simulator/internal/model"
)

// SpaceSimulator composes the physics models for one leaf space: a shared
// per-site weather simulator, an optional solar array and battery, and a
// mandatory load model. Grid power is derived from the energy balance.
type SpaceSimulator struct {
	SpaceID string

	weather *WeatherSimulator
	solar   *SolarSimulator
	battery *BatteryController
	load    *LoadSimulator

	lastTime time.Time
}

// Simulate produces one SpaceMetrics sample: solar first, then load, then
// battery dispatch on the balance, then grid power closing the budget.
func (s *SpaceSimulator) Simulate(t time.Time) model.SpaceMetrics {
	dt := time.Duration(0)
	if !s.lastTime.IsZero() && t.After(s.lastTime) {
		dt = t.Sub(s.lastTime)
	}
	s.lastTime = t

	weather := s.weather.Simulate(t)

	var solarKW float64
	if s.solar != nil {
		solarKW = s.solar.Simulate(t, weather).ACPowerKW
	}

	loadOut := s.load.Simulate(t, weather)
	consumption := loadOut.TotalKW

	metrics := model.SpaceMetrics{
		SolarPowerKW:       solarKW,
		ConsumptionPowerKW: consumption,
		Timestamp:          t,
		Breakdown: &model.Breakdown{
			HVACKW:      loadOut.HVACKW,
			LightingKW:  loadOut.LightingKW,
			EquipmentKW: loadOut.EquipmentKW,
			OtherKW:     loadOut.OtherKW,
		},
	}

	if s.battery != nil {
		state := s.battery.Control(t, solarKW-consumption, dt)
		metrics.BatteryPowerKW = state.PowerKW
		soc := state.SOCPercent
		metrics.BatterySOC = &soc
	}

	// Battery power is positive when charging, so charging adds to the
	// demand the grid must cover.
	metrics.GridPowerKW = consumption - solarKW + metrics.BatteryPowerKW

	if solarKW > 0 {
		eff := math.Min(1, consumption/solarKW)
		metrics.Efficiency = &eff
	}

	return metrics
}

// BuildSimulators walks the node list once and creates a simulator for every
// true leaf zone, sharing one weather simulator per site. Internal nodes are
// never simulated; their metrics are always derived by aggregation.
func BuildSimulators(site model.SiteConfig, spaces []model.HierarchicalSpace) map[string]*SpaceSimulator {
	seed := int64(crc32.ChecksumIEEE([]byte(site.ID)))
	weather := NewWeatherSimulator(site.Climate, seed)

	sims := make(map[string]*SpaceSimulator)
	for i := range spaces {
		node := &spaces[i]
		if node.Type != model.SpaceZone || !node.IsLeaf() {
			continue
		}
		sims[node.ID] = buildLeafSimulator(site, node, weather, seed)
	}
	return sims
}

func buildLeafSimulator(site model.SiteConfig, node *model.HierarchicalSpace, weather *WeatherSimulator, siteSeed int64) *SpaceSimulator {
	leafSeed := siteSeed + int64(crc32.ChecksumIEEE([]byte(node.ID)))

	sim := &SpaceSimulator{
		SpaceID: node.ID,
		weather: weather,
		load:    NewLoadSimulator(leafLoadConfig(site, node.Equipment), site.BusinessHours, leafSeed),
	}

	if cap := node.Equipment.SolarCapacityKW; cap != nil && *cap > 0 {
		solarCfg := site.Solar
		solarCfg.CapacityKW = *cap
		sim.solar = NewSolarSimulator(solarCfg, site.Location)
	}

	if cap := node.Equipment.BatteryCapacityKWh; cap != nil && *cap > 0 {
		storage := site.Storage
		storage.CapacityKWh = *cap
		if p := node.Equipment.BatteryPowerKW; p != nil && *p > 0 {
			storage.MaxPowerKW = *p
		}
		sim.battery = NewBatteryController(storage)
	}

	return sim
}

// leafLoadConfig sizes the load model from the node's equipment fields,
// falling back to fractions of the declared load capacity when specific
// capacities are absent.
func leafLoadConfig(site model.SiteConfig, eq model.Equipment) model.LoadConfig {
	cfg := site.Load

	loadCap := cfg.BaseLoadKW
	if eq.LoadCapacityKW != nil {
		loadCap = *eq.LoadCapacityKW
		cfg.BaseLoadKW = loadCap
	}

	if eq.HVACCapacityKW != nil {
		cfg.HVACMaxKW = *eq.HVACCapacityKW
	} else {
		cfg.HVACMaxKW = loadCap * 0.4
	}
	cfg.HVACMinKW = cfg.HVACMaxKW * 0.1

	if eq.LightingCapacityKW != nil {
		cfg.LightingMaxKW = *eq.LightingCapacityKW
	} else {
		cfg.LightingMaxKW = loadCap * 0.2
	}
	cfg.LightingMinKW = cfg.LightingMaxKW * 0.1

	if eq.EquipmentCapacityKW != nil {
		cfg.EquipmentBaseKW = *eq.EquipmentCapacityKW * 0.3
	} else {
		cfg.EquipmentBaseKW = loadCap * 0.1
	}

	return cfg
}
