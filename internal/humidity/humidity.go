// Package humidity converts between relative and absolute humidity for the
// humidifier line. Values are only advisory for the operator; the flow plan
// itself uses the linear humidity calibration.
package humidity

import "math"

const (
	gasConstant      = 8.31446261815324             // molar gas constant R in kg * m² / (s² * K * mol)
	molarMassWater   = 0.01801528                   // molar mass of water M(H2O) in kg / mol
	gasConstantWater = gasConstant / molarMassWater // specific gas constant for water vapor in m² / (s² * K)
)

// SaturationVaporPressure returns the saturation vapour pressure of water in
// hectopascal (hPa) using the Arden Buck equation.
func SaturationVaporPressure(tempC float64) float64 {
	e := (18.678 - tempC/234.5) * (tempC / (257.14 + tempC))
	return 6.1121 * math.Exp(e)
}

// RelativeToAbsolute returns the absolute humidity in g/m³ for a relative
// humidity in percent (0..100) at the given temperature in Celsius.
//
// Derived from the ideal gas law for water vapor:
// absoluteHumidity = relativeHumidity * saturationVaporPressure / (Rw * T).
func RelativeToAbsolute(rhPct, tempC float64) float64 {
	tempK := tempC + 273.15
	return 1000 * rhPct * SaturationVaporPressure(tempC) / (gasConstantWater * tempK)
}
