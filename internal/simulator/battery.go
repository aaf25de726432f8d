package simulator

import (
	"math"
	"time"

	"ems_simulator/internal/model"
	"ems_simulator/internal/physics"
)

// peakShaveHysteresisKW is the dead band below the peak-shaving threshold.
// Once discharging, the controller keeps discharging until demand falls this
// far back under the threshold, preventing mode oscillation around it.
const peakShaveHysteresisKW = 30.0

// selfDischargePerHour is the continuous SOC loss in percentage points.
const selfDischargePerHour = 0.01

// batteryMode tracks the controller's dispatch state for hysteresis.
type batteryMode int

const (
	modeIdle batteryMode = iota
	modeCharging
	modeDischarging
)

// BatteryState is the transient per-tick output of the battery controller.
// Power positive = charging, negative = discharging.
type BatteryState struct {
	PowerKW    float64   `json:"power_kw"`
	SOCPercent float64   `json:"soc_percent"`
	TempC      float64   `json:"temp_c"`
	Voltage    float64   `json:"voltage"`
	Current    float64   `json:"current"`
	Timestamp  time.Time `json:"timestamp"`
}

// BatteryController dispatches charge/discharge power according to the
// configured strategy, then pushes the request through SOC-bound tapering,
// ramp-rate limiting and round-trip-efficiency integration.
type BatteryController struct {
	cfg model.StorageConfig

	soc       float64
	prevPower float64
	temp      float64
	mode      batteryMode
}

// NewBatteryController creates a controller at the configured initial SOC,
// clamped into the allowed band.
func NewBatteryController(cfg model.StorageConfig) *BatteryController {
	soc := cfg.InitialSOCPercent
	if soc == 0 {
		soc = (cfg.MinSOCPercent + cfg.MaxSOCPercent) / 2
	}
	soc = clampF(soc, cfg.MinSOCPercent, cfg.MaxSOCPercent)
	return &BatteryController{cfg: cfg, soc: soc, temp: 20}
}

// SOC returns the current state of charge in percent.
func (b *BatteryController) SOC() float64 { return b.soc }

// Control runs one dispatch step. energyBalanceKW is solar minus consumption
// (positive = surplus available for charging); dt is the elapsed simulation
// time since the previous call.
func (b *BatteryController) Control(t time.Time, energyBalanceKW float64, dt time.Duration) BatteryState {
	target := b.strategyTarget(t, energyBalanceKW)
	target = b.taperAtBounds(target)
	power := b.limitRamp(target, dt)

	b.integrateSOC(power, dt)
	b.updateThermal(power)

	switch {
	case power > 0:
		b.mode = modeCharging
	case power < 0:
		b.mode = modeDischarging
	default:
		b.mode = modeIdle
	}
	b.prevPower = power

	voltage := b.voltage()
	current := 0.0
	if voltage > 0 {
		current = power * 1000 / voltage
	}

	return BatteryState{
		PowerKW:    power,
		SOCPercent: b.soc,
		TempC:      b.temp,
		Voltage:    voltage,
		Current:    current,
		Timestamp:  t,
	}
}

// strategyTarget computes the raw power request before physical limits.
func (b *BatteryController) strategyTarget(t time.Time, balance float64) float64 {
	switch b.cfg.Strategy.Kind {
	case model.StrategySelfConsumption:
		return b.selfConsumptionTarget(balance, 0.95)

	case model.StrategyPeakShaving:
		demand := -balance // net grid demand before the battery acts
		threshold := b.cfg.Strategy.PeakThresholdKW
		switch {
		case demand > threshold:
			return -math.Min(demand-threshold, b.cfg.MaxPowerKW)
		case b.mode == modeDischarging && demand > threshold-peakShaveHysteresisKW:
			// Inside the dead band: hold the discharge at the residual
			// overshoot instead of snapping to charge.
			return -math.Min(math.Max(demand-(threshold-peakShaveHysteresisKW), 0), b.cfg.MaxPowerKW)
		case balance > 0:
			return math.Min(balance, b.cfg.MaxPowerKW)
		default:
			return 0
		}

	case model.StrategyTimeOfUse:
		hour := t.Hour()
		if containsHour(b.cfg.Strategy.ChargeHours, hour) {
			// Charge even from the grid during cheap hours.
			return b.cfg.MaxPowerKW
		}
		if containsHour(b.cfg.Strategy.DischargeHours, hour) {
			deficit := -balance
			if deficit <= 0 {
				return 0
			}
			return -math.Min(deficit, b.cfg.MaxPowerKW)
		}
		return b.selfConsumptionTarget(balance, 0.95)

	case model.StrategyBackup:
		if balance < 0 && b.soc <= b.cfg.Strategy.ReservePercent {
			// Hold the reserve: no discharge below it.
			return 0
		}
		return b.selfConsumptionTarget(balance, 0.5)

	default:
		return 0
	}
}

// selfConsumptionTarget charges from a fraction of the surplus or discharges
// to cover a fraction of the deficit, capped at rated power.
func (b *BatteryController) selfConsumptionTarget(balance, aggressiveness float64) float64 {
	if balance > 0 {
		return math.Min(balance*aggressiveness, b.cfg.MaxPowerKW)
	}
	if balance < 0 {
		return -math.Min(-balance*aggressiveness, b.cfg.MaxPowerKW)
	}
	return 0
}

// taperAtBounds suppresses power near the SOC limits: zero within one
// percentage point of the bound, a linear taper within five.
func (b *BatteryController) taperAtBounds(power float64) float64 {
	if power > 0 {
		headroom := b.cfg.MaxSOCPercent - b.soc
		return power * taperFactor(headroom)
	}
	if power < 0 {
		margin := b.soc - b.cfg.MinSOCPercent
		return power * taperFactor(margin)
	}
	return 0
}

func taperFactor(distance float64) float64 {
	switch {
	case distance <= 1:
		return 0
	case distance < 5:
		return (distance - 1) / 4
	default:
		return 1
	}
}

// limitRamp bounds the change from the previous power to the configured
// kW/s slew rate.
func (b *BatteryController) limitRamp(target float64, dt time.Duration) float64 {
	if b.cfg.RampRateKWPerSec <= 0 || dt <= 0 {
		return target
	}
	maxDelta := b.cfg.RampRateKWPerSec * dt.Seconds()
	return clampF(target, b.prevPower-maxDelta, b.prevPower+maxDelta)
}

// integrateSOC applies the round-trip efficiency asymmetrically (charging
// stores less than drawn, discharging draws more than delivered) plus a
// small continuous self-discharge, then clamps into the SOC band.
func (b *BatteryController) integrateSOC(powerKW float64, dt time.Duration) {
	if b.cfg.CapacityKWh <= 0 {
		return
	}
	hours := dt.Hours()
	energyKWh := powerKW * hours
	if energyKWh > 0 {
		energyKWh *= b.cfg.RoundTripEfficiency
	} else if energyKWh < 0 {
		energyKWh /= b.cfg.RoundTripEfficiency
	}

	b.soc += energyKWh / b.cfg.CapacityKWh * 100
	b.soc -= selfDischargePerHour * hours
	b.soc = clampF(b.soc, b.cfg.MinSOCPercent, b.cfg.MaxSOCPercent)
}

// updateThermal smooths cell temperature toward a target that rises with
// the power fraction.
func (b *BatteryController) updateThermal(powerKW float64) {
	heat := 0.0
	if b.cfg.MaxPowerKW > 0 {
		heat = math.Abs(powerKW) / b.cfg.MaxPowerKW
	}
	target := 20 + heat*15
	b.temp = physics.ThermalMass(b.temp, target, 0.95)
}

// voltage derives pack voltage from an SOC-linear curve (600 V empty,
// 700 V full).
func (b *BatteryController) voltage() float64 {
	return 600 + b.soc/100*100
}

func containsHour(hours []int, h int) bool {
	for _, v := range hours {
		if v == h {
			return true
		}
	}
	return false
}
