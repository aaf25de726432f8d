package simulator

import (
	"math"
	"time"

	"ems_simulator/internal/model"
	"ems_simulator/internal/physics"
)

// groundAlbedo is the reflectance used for the ground-reflected plane-of-array
// term.
const groundAlbedo = 0.2

// cellTempCoeffWM2 approximates NOCT heating: degrees above ambient per W/m²
// of plane-of-array irradiance.
const cellTempCoeffWM2 = 30.0 / 800.0

// SolarOutput is the transient per-tick output of the solar simulator.
type SolarOutput struct {
	DCPowerKW       float64 `json:"dc_power_kw"`
	ACPowerKW       float64 `json:"ac_power_kw"`
	PlaneOfArrayWM2 float64 `json:"plane_of_array_wm2"`
	CellTempC       float64 `json:"cell_temp_c"`
}

// SolarSimulator converts sun position and weather into PV output for one
// installation. It is stateless apart from its config; all variation comes
// from the timestamp and the weather sample.
type SolarSimulator struct {
	cfg model.SolarConfig
	loc model.Location

	// panel area implied by rated capacity at STC (1 kW/m²).
	areaM2 float64
}

// NewSolarSimulator builds a simulator for a PV array at a location.
func NewSolarSimulator(cfg model.SolarConfig, loc model.Location) *SolarSimulator {
	area := 0.0
	if cfg.PanelEfficiency > 0 {
		area = cfg.CapacityKW / cfg.PanelEfficiency
	}
	return &SolarSimulator{cfg: cfg, loc: loc, areaM2: area}
}

// Simulate produces the PV output at a timestamp under the given weather.
func (s *SolarSimulator) Simulate(t time.Time, weather WeatherState) SolarOutput {
	pos := physics.SolarPosition(t, s.loc.Latitude, s.loc.Longitude)
	if pos.ElevationDeg <= 0 {
		return SolarOutput{CellTempC: weather.TempC}
	}

	irr := physics.ClearSkyIrradiance(pos, s.loc.AltitudeM)
	irr = physics.ApplyCloudCover(irr, weather.CloudCover)

	poa := s.planeOfArray(pos, irr)
	if poa <= 0 {
		return SolarOutput{CellTempC: weather.TempC}
	}

	cellTemp := weather.TempC + poa*cellTempCoeffWM2
	eff := s.cfg.PanelEfficiency * (1 + s.cfg.TempCoefficient*(cellTemp-25))
	if eff < 0 {
		eff = 0
	}

	dcKW := poa * s.areaM2 * eff * (1 - s.cfg.SystemDegradation) / 1000
	acKW := math.Min(dcKW*s.inverterEfficiency(dcKW), s.cfg.CapacityKW)

	return SolarOutput{
		DCPowerKW:       dcKW,
		ACPowerKW:       acKW,
		PlaneOfArrayWM2: poa,
		CellTempC:       cellTemp,
	}
}

// planeOfArray projects beam, diffuse and ground-reflected irradiance onto
// the tilted panel plane.
func (s *SolarSimulator) planeOfArray(pos physics.SunPosition, irr physics.Irradiance) float64 {
	tilt := degToRad(s.cfg.PanelTiltDeg)
	zenith := degToRad(pos.ZenithDeg)
	azDiff := degToRad(pos.AzimuthDeg - s.cfg.PanelAzimuthDeg)

	// Angle of incidence between the beam and the panel normal.
	cosAOI := math.Cos(zenith)*math.Cos(tilt) + math.Sin(zenith)*math.Sin(tilt)*math.Cos(azDiff)
	beam := irr.DirectWM2 * math.Max(0, cosAOI)

	// Isotropic sky view factor and ground reflection.
	diffuse := irr.DiffuseWM2 * (1 + math.Cos(tilt)) / 2
	reflected := irr.GlobalWM2 * groundAlbedo * (1 - math.Cos(tilt)) / 2

	return beam + diffuse + reflected
}

// inverterEfficiency follows the stepped load-dependent curve: poor at a
// trickle, peak through the 10-90% band, slightly reduced near full load.
func (s *SolarSimulator) inverterEfficiency(dcKW float64) float64 {
	if s.cfg.CapacityKW <= 0 {
		return 0
	}
	load := dcKW / s.cfg.CapacityKW
	switch {
	case load < 0.05:
		return 0.80
	case load < 0.10:
		return 0.90
	case load <= 0.90:
		return 1.0
	default:
		return 0.98
	}
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }
