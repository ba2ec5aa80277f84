// Package flowplan computes three-channel MFC flow plans for gas dilution
// protocols: humidity calibration, per-concentration dilution flows and the
// combined plan with operator warnings. Everything here is pure computation
// over the domain models; callers own persistence and transport.
package flowplan

import (
	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
)

// Default humidity calibration for the lab's bubbler line, fitted externally
// from span measurements (see FitLinear).
const (
	defaultHumiditySlope     = 6.0785
	defaultHumidityIntercept = -32.458
	defaultCH2OFactor        = 1.0
)

// DefaultCalibration returns the shipped calibration constants.
func DefaultCalibration() mfccalc.CalibrationConstants {
	return mfccalc.CalibrationConstants{
		HumiditySlope:         defaultHumiditySlope,
		HumidityIntercept:     defaultHumidityIntercept,
		CH2OCalibrationFactor: defaultCH2OFactor,
	}
}

// HumidAirFlow maps a target relative humidity (percent) to the MFC B
// humid-air flow rate in SLPM through the linear calibration, clamped to zero
// from below. Out-of-range humidity is not rejected here; the orchestrator
// owns validation and warnings.
func HumidAirFlow(cal mfccalc.CalibrationConstants, targetHumidity float64) float64 {
	flow := cal.HumiditySlope*targetHumidity + cal.HumidityIntercept
	if flow < 0 {
		return 0
	}
	return flow
}
