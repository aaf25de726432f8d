// Package physics holds the pure functions behind the telemetry simulators:
// solar geometry, clear-sky irradiance, cloud attenuation, and the thermal
// curves used by the weather and load models. Everything here is stateless.
package physics

import (
	"math"
	"time"
)

// SolarConstantWM2 is the mean extraterrestrial irradiance.
const SolarConstantWM2 = 1361.0

// SunPosition is the sun's apparent position for an observer.
type SunPosition struct {
	ElevationDeg float64
	AzimuthDeg   float64 // 0 = north, 90 = east, 180 = south
	ZenithDeg    float64
}

// Irradiance holds the clear-sky components in W/m². Direct is the beam
// (normal) component; Diffuse and Global are on the horizontal plane.
type Irradiance struct {
	DirectWM2  float64
	DiffuseWM2 float64
	GlobalWM2  float64
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }
func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// declination returns the solar declination in degrees using Cooper's
// approximation.
func declination(dayOfYear int) float64 {
	return 23.45 * math.Sin(degToRad(360.0/365.0*float64(284+dayOfYear)))
}

// equationOfTime returns the difference between apparent and mean solar time
// in minutes.
func equationOfTime(dayOfYear int) float64 {
	b := degToRad(360.0 / 365.0 * float64(dayOfYear-81))
	return 9.87*math.Sin(2*b) - 7.53*math.Cos(b) - 1.5*math.Sin(b)
}

// SolarPosition computes the sun's elevation, azimuth and zenith for a UTC
// timestamp and a geographic position. Elevation at or below zero means the
// sun is below the horizon and no direct sunlight reaches the observer.
func SolarPosition(t time.Time, latitude, longitude float64) SunPosition {
	utc := t.UTC()
	n := utc.YearDay()

	delta := declination(n)

	// True solar time: UTC minutes + 4 min per degree of longitude + EoT.
	utcMin := float64(utc.Hour()*60+utc.Minute()) + float64(utc.Second())/60
	tst := utcMin + 4*longitude + equationOfTime(n)
	hourAngle := tst/4 - 180

	latRad := degToRad(latitude)
	deltaRad := degToRad(delta)
	haRad := degToRad(hourAngle)

	sinEl := math.Sin(latRad)*math.Sin(deltaRad) + math.Cos(latRad)*math.Cos(deltaRad)*math.Cos(haRad)
	sinEl = clamp(sinEl, -1, 1)
	elevation := radToDeg(math.Asin(sinEl))

	// Azimuth measured clockwise from north.
	cosAz := (math.Sin(deltaRad) - sinEl*math.Sin(latRad)) /
		(math.Cos(math.Asin(sinEl)) * math.Cos(latRad))
	cosAz = clamp(cosAz, -1, 1)
	azimuth := radToDeg(math.Acos(cosAz))
	if hourAngle > 0 {
		azimuth = 360 - azimuth
	}

	return SunPosition{
		ElevationDeg: elevation,
		AzimuthDeg:   azimuth,
		ZenithDeg:    90 - elevation,
	}
}

// AirMass returns the Kasten-Young relative air mass for a zenith angle in
// degrees. It grows without bound as the zenith approaches 90°; callers must
// not use it for a sun below the horizon.
func AirMass(zenithDeg float64) float64 {
	if zenithDeg >= 90 {
		return math.Inf(1)
	}
	return 1 / (math.Cos(degToRad(zenithDeg)) + 0.50572*math.Pow(96.07995-zenithDeg, -1.6364))
}

// ClearSkyIrradiance estimates the clear-sky irradiance components using the
// Kasten-Young air mass and an altitude-adjusted Hottel transmittance model.
// Returns zeros when the sun is at or below the horizon.
func ClearSkyIrradiance(pos SunPosition, altitudeM float64) Irradiance {
	if pos.ElevationDeg <= 0 {
		return Irradiance{}
	}

	am := AirMass(pos.ZenithDeg)

	// Hottel transmittance coefficients, altitude in km, capped at the
	// model's 2.5 km validity ceiling.
	a := altitudeM / 1000
	if a > 2.5 {
		a = 2.5
	}
	a0 := 0.4237 - 0.00821*math.Pow(6.0-a, 2)
	a1 := 0.5055 + 0.00595*math.Pow(6.5-a, 2)
	k := 0.2711 + 0.01858*math.Pow(2.5-a, 2)
	taub := a0 + a1*math.Exp(-k*am)

	g0 := SolarConstantWM2

	sinEl := math.Sin(degToRad(pos.ElevationDeg))
	direct := g0 * taub
	// Liu-Jordan diffuse transmittance.
	taud := 0.271 - 0.294*taub
	if taud < 0 {
		taud = 0
	}
	diffuse := g0 * taud * sinEl

	return Irradiance{
		DirectWM2:  direct,
		DiffuseWM2: diffuse,
		GlobalWM2:  direct*sinEl + diffuse,
	}
}

// ApplyCloudCover attenuates clear-sky irradiance for a fractional cloud
// coverage in [0,1]. The beam component collapses quickly with cover while
// the diffuse share grows, and both scale with the cubic cloud-modification
// factor of Kasten and Czeplak.
func ApplyCloudCover(irr Irradiance, coverage float64) Irradiance {
	coverage = clamp(coverage, 0, 1)
	clearness := 1 - coverage

	cmf := 1 - 0.75*math.Pow(coverage, 3)
	direct := irr.DirectWM2 * math.Pow(clearness, 1.5) * cmf
	diffuse := irr.DiffuseWM2 * (1 + 0.25*coverage) * cmf

	global := irr.GlobalWM2
	if irr.GlobalWM2 > 0 && irr.DirectWM2 > 0 {
		// Rebuild global from attenuated components keeping the original
		// direct-horizontal share.
		dhShare := (irr.GlobalWM2 - irr.DiffuseWM2) / irr.DirectWM2
		global = direct*dhShare + diffuse
	} else {
		global = global * cmf
	}

	return Irradiance{DirectWM2: direct, DiffuseWM2: diffuse, GlobalWM2: global}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
