package physics

import "math"

// SeasonalTemperature returns the seasonal mean temperature for a day of the
// year. Coldest around mid-January, warmest around mid-July (northern
// hemisphere phase).
func SeasonalTemperature(dayOfYear int, avgTemp, amplitude float64) float64 {
	return avgTemp - amplitude*math.Cos(2*math.Pi*float64(dayOfYear-15)/365)
}

// DiurnalTemperature returns the daily temperature curve for a fractional
// hour of day: minimum at 06:00, maximum at 15:00, smooth in between.
func DiurnalTemperature(hour, baseTemp, amplitude float64) float64 {
	h := math.Mod(hour+24, 24)
	if h >= 6 && h <= 15 {
		// Rising half-cosine over the 9 warming hours.
		phase := (h - 6) / 9
		return baseTemp - amplitude*math.Cos(phase*math.Pi)
	}
	// Falling half-cosine over the 15 cooling hours, 15:00 through 06:00.
	if h > 15 {
		h -= 24
	}
	phase := (h + 9) / 15
	return baseTemp + amplitude*math.Cos(phase*math.Pi)
}

// ThermalMass applies exponential smoothing representing heat retention:
// the previous value weighted by coefficient, the target by the remainder.
// A coefficient of 1 means infinite inertia, 0 means none.
func ThermalMass(previous, target, coefficient float64) float64 {
	c := clamp(coefficient, 0, 1)
	return previous*c + target*(1-c)
}

// HVACLoad returns the HVAC electrical load for a space temperature against
// its cooling setpoint. At or below the setpoint only standby ventilation
// runs; above it, load ramps linearly to maxPower over a 10°C band.
func HVACLoad(currentTemp, setpoint, minPower, maxPower float64) float64 {
	if currentTemp <= setpoint {
		return minPower * 0.2
	}
	frac := (currentTemp - setpoint) / 10
	if frac > 1 {
		frac = 1
	}
	return minPower + frac*(maxPower-minPower)
}
