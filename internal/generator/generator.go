// Package generator drives the whole mock-telemetry pipeline: it subscribes
// to the time engine, runs hierarchy updates, feeds the bounded time-series
// stores, accumulates dashboard KPIs and alerts, and fans results out to a
// callback and the optional exporter.
package generator

import (
	"context"
	"math"
	"sync"
	"time"

	"ems_simulator/internal/export"
	"ems_simulator/internal/hierarchy"
	"ems_simulator/internal/model"
	"ems_simulator/internal/timeengine"
	"ems_simulator/internal/timeseries"
	"ems_simulator/pkg/metrics"
)

// maxTickDelta caps the elapsed simulation time integrated per tick, so a
// stalled process or a large speed multiplier cannot produce an unrealistic
// energy spike.
const maxTickDelta = 5 * time.Minute

// Metric stream names fed into the time-series stores.
const (
	SeriesGrid    = "grid"
	SeriesSolar   = "solar"
	SeriesLoad    = "load"
	SeriesBattery = "battery"
)

// KPISnapshot carries the dashboard headline numbers.
type KPISnapshot struct {
	BatterySOC       float64   `json:"battery_soc"`
	EnergyTodayKWh   float64   `json:"energy_today_kwh"`
	PeakPowerTodayKW float64   `json:"peak_power_today_kw"`
	CostSavings      float64   `json:"cost_savings"`
	CarbonAvoidedKg  float64   `json:"carbon_avoided_kg"`
	Autarchy         float64   `json:"autarchy"`            // percent
	SelfConsumption  float64   `json:"self_consumption"`    // percent
	ActiveSites      int       `json:"active_sites"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Alert is a threshold condition the dashboard surfaces.
type Alert struct {
	ID        string    `json:"id"`
	Severity  string    `json:"severity"` // "critical" or "warning"
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Callback receives generator events. Implementations must not block; they
// run on the tick path.
type Callback interface {
	OnTelemetry(t time.Time, spaces []model.HierarchicalSpace)
	OnKPIs(k KPISnapshot)
	OnAlerts(alerts []Alert)
}

// carbonKgPerKWh is the grid-displacement factor for the carbon KPI.
const carbonKgPerKWh = 0.82

// gridAlertThresholdFactor flags grid import above this multiple of base
// load.
const gridAlertThresholdFactor = 1.2

// Generator owns the per-metric stores and KPI accumulators.
type Generator struct {
	mu sync.Mutex

	mgr    *hierarchy.Manager
	engine *timeengine.Engine
	tariff model.TariffConfig
	base   float64 // site base load, for the grid alert threshold

	series map[string]*timeseries.Store
	cb     Callback
	pub    *export.Publisher
	mc     *metrics.Collector

	unsubscribe func()
	lastTick    time.Time
	dayStart    time.Time

	kpi KPISnapshot

	// energy accumulators for the analytics ratios (kWh since day start)
	consumedKWh, importedKWh float64
	solarKWh, exportedKWh    float64
}

// Options configures optional collaborators.
type Options struct {
	Callback  Callback
	Publisher *export.Publisher
	Metrics   *metrics.Collector
	Series    timeseries.Config
}

// New builds a generator over a hierarchy manager and a time engine.
func New(mgr *hierarchy.Manager, engine *timeengine.Engine, site model.SiteConfig, opts Options) *Generator {
	seriesCfg := opts.Series
	if seriesCfg.MaxPoints == 0 {
		seriesCfg = timeseries.Config{MaxPoints: 1440, Retention: 24 * time.Hour, Aggregation: timeseries.AggAverage}
	}
	g := &Generator{
		mgr:    mgr,
		engine: engine,
		tariff: site.Tariff,
		base:   site.Load.BaseLoadKW,
		series: map[string]*timeseries.Store{
			SeriesGrid:    timeseries.New(seriesCfg),
			SeriesSolar:   timeseries.New(seriesCfg),
			SeriesLoad:    timeseries.New(seriesCfg),
			SeriesBattery: timeseries.New(seriesCfg),
		},
		cb:  opts.Callback,
		pub: opts.Publisher,
		mc:  opts.Metrics,
	}
	if mgr != nil && opts.Metrics != nil {
		mgr.OnMismatch = func(string) { opts.Metrics.AggregationMismatches.Inc() }
	}
	return g
}

// Start subscribes to the time engine; every tick drives one pipeline pass.
func (g *Generator) Start() {
	g.unsubscribe = g.engine.Subscribe(g.onTick)
}

// Close unsubscribes from the time engine and closes the exporter.
func (g *Generator) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
	if g.pub != nil {
		g.pub.Close()
	}
}

// Series exposes one metric stream for range queries.
func (g *Generator) Series(name string) *timeseries.Store {
	return g.series[name]
}

// KPIs returns the latest KPI snapshot.
func (g *Generator) KPIs() KPISnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.kpi
}

// Alerts evaluates the current alert conditions.
func (g *Generator) Alerts() []Alert {
	spaces := g.mgr.GetAllSpaces()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evaluateAlerts(g.rootMetrics(spaces), g.engine.CurrentTime())
}

func (g *Generator) onTick(simTime time.Time) {
	started := time.Now()

	// GetAllSpaces forces a refresh; an explicit Update here would simulate
	// every leaf a second time within the same tick.
	spaces := g.mgr.GetAllSpaces()

	g.mu.Lock()
	delta := time.Duration(0)
	if !g.lastTick.IsZero() && simTime.After(g.lastTick) {
		delta = simTime.Sub(g.lastTick)
		if delta > maxTickDelta {
			delta = maxTickDelta
		}
	}
	g.lastTick = simTime

	root := g.rootMetrics(spaces)
	g.appendSeries(simTime, root)
	g.accumulateKPIs(simTime, root, delta, spaces)
	kpi := g.kpi
	alerts := g.evaluateAlerts(root, simTime)
	g.mu.Unlock()

	if g.cb != nil {
		g.cb.OnTelemetry(simTime, spaces)
		g.cb.OnKPIs(kpi)
		g.cb.OnAlerts(alerts)
	}
	if g.pub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		g.pub.PublishSpaces(ctx, simTime, spaces)
		cancel()
	}
	if g.mc != nil {
		leaves := 0
		for i := range spaces {
			if spaces[i].IsLeaf() {
				leaves++
			}
		}
		g.mc.LeafSimulationsTotal.Add(float64(leaves))
		g.mc.TicksTotal.Inc()
		g.mc.TickDuration.Observe(time.Since(started).Seconds())
	}
}

// rootMetrics sums the metrics of every root node (normally one site).
func (g *Generator) rootMetrics(spaces []model.HierarchicalSpace) model.SpaceMetrics {
	var out model.SpaceMetrics
	var socSum, socWeight float64
	for i := range spaces {
		if spaces[i].ParentID != "" {
			continue
		}
		m := spaces[i].Metrics
		out.SolarPowerKW += m.SolarPowerKW
		out.ConsumptionPowerKW += m.ConsumptionPowerKW
		out.BatteryPowerKW += m.BatteryPowerKW
		out.GridPowerKW += m.GridPowerKW
		out.Timestamp = m.Timestamp
		if m.BatterySOC != nil {
			socSum += *m.BatterySOC
			socWeight++
		}
	}
	if socWeight > 0 {
		soc := socSum / socWeight
		out.BatterySOC = &soc
	}
	return out
}

func (g *Generator) appendSeries(t time.Time, root model.SpaceMetrics) {
	g.series[SeriesGrid].AddPoint(timeseries.Point{Timestamp: t, Value: root.GridPowerKW})
	g.series[SeriesSolar].AddPoint(timeseries.Point{Timestamp: t, Value: root.SolarPowerKW})
	g.series[SeriesLoad].AddPoint(timeseries.Point{Timestamp: t, Value: root.ConsumptionPowerKW})
	g.series[SeriesBattery].AddPoint(timeseries.Point{Timestamp: t, Value: root.BatteryPowerKW})
}

func (g *Generator) accumulateKPIs(t time.Time, root model.SpaceMetrics, delta time.Duration, spaces []model.HierarchicalSpace) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if day.After(g.dayStart) {
		g.dayStart = day
		g.kpi.EnergyTodayKWh = 0
		g.kpi.PeakPowerTodayKW = 0
		g.consumedKWh, g.importedKWh = 0, 0
		g.solarKWh, g.exportedKWh = 0, 0
	}

	hours := delta.Hours()
	g.kpi.EnergyTodayKWh += root.ConsumptionPowerKW * hours
	g.kpi.PeakPowerTodayKW = math.Max(g.kpi.PeakPowerTodayKW, root.ConsumptionPowerKW)

	rate := g.tariff.RateAt(t.Hour())
	g.kpi.CostSavings += root.SolarPowerKW * hours * rate
	g.kpi.CarbonAvoidedKg += root.SolarPowerKW * hours * carbonKgPerKWh

	g.consumedKWh += root.ConsumptionPowerKW * hours
	g.solarKWh += root.SolarPowerKW * hours
	if root.GridPowerKW > 0 {
		g.importedKWh += root.GridPowerKW * hours
	} else {
		g.exportedKWh += -root.GridPowerKW * hours
	}

	if g.consumedKWh > 0 {
		g.kpi.Autarchy = clampPct((g.consumedKWh - g.importedKWh) / g.consumedKWh * 100)
	}
	if g.solarKWh > 0 {
		g.kpi.SelfConsumption = clampPct((g.solarKWh - g.exportedKWh) / g.solarKWh * 100)
	}

	if root.BatterySOC != nil {
		g.kpi.BatterySOC = *root.BatterySOC
	}

	active := 0
	for i := range spaces {
		if spaces[i].Type == model.SpaceSite && spaces[i].Status == model.StatusOnline {
			active++
		}
	}
	g.kpi.ActiveSites = active
	g.kpi.LastUpdated = t
}

func (g *Generator) evaluateAlerts(root model.SpaceMetrics, t time.Time) []Alert {
	var alerts []Alert

	if root.BatterySOC != nil {
		switch soc := *root.BatterySOC; {
		case soc < 15:
			alerts = append(alerts, Alert{
				ID:        "alert-battery-critical",
				Severity:  "critical",
				Title:     "Battery critically low",
				Message:   "State of charge below 15%",
				Timestamp: t,
			})
		case soc < 25:
			alerts = append(alerts, Alert{
				ID:        "alert-battery-warning",
				Severity:  "warning",
				Title:     "Battery low",
				Message:   "State of charge below 25%",
				Timestamp: t,
			})
		}
	}

	if g.base > 0 && root.GridPowerKW > g.base*gridAlertThresholdFactor {
		alerts = append(alerts, Alert{
			ID:        "alert-grid-high",
			Severity:  "warning",
			Title:     "High grid import",
			Message:   "Grid import exceeds 120% of base load",
			Timestamp: t,
		})
	}

	return alerts
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
