package flowplan

import (
	"fmt"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
)

// Warning thresholds and fixed warning texts. The capacity warning carries
// both flows formatted to two decimals.
const (
	condensationHumidityPct = 80.0
	lowHumidityPct          = 10.0

	warnInvalidInputs = "Invalid input parameters"
	warnCondensation  = "Humidity >80% may cause condensation"
	warnLowHumidity   = "Humidity <10% may be difficult to achieve"
)

// Compute derives the full three-channel flow plan from the session inputs
// and calibration constants. It is pure: identical arguments always yield an
// identical result, and no state is carried between calls.
//
// Validation short-circuits: a non-positive total flow, a target humidity
// outside [0,100] or a non-positive source concentration yields an all-zero
// invalid result with a single generic warning and no further computation.
// Warnings on valid results are appended in a fixed order and evaluated
// independently of each other.
func Compute(in mfccalc.InputParameters, cal mfccalc.CalibrationConstants) mfccalc.FlowResult {
	if in.TotalFlow <= 0 || in.TargetHumidity < 0 || in.TargetHumidity > 100 || in.CH2OSourceConc <= 0 {
		return mfccalc.FlowResult{
			MFCA:     0,
			MFCB:     0,
			MFCC:     nil,
			IsValid:  false,
			Warnings: []string{warnInvalidInputs},
		}
	}

	mfcB := HumidAirFlow(cal, in.TargetHumidity)
	mfcC := DilutionSeries(in.Concentrations, in.TotalFlow, in.CH2OSourceConc, cal.CH2OCalibrationFactor, in.UseAlternateMath)
	mfcA := in.TotalFlow - mfcB // not clamped

	var warnings []string
	if in.TargetHumidity > condensationHumidityPct {
		warnings = append(warnings, warnCondensation)
	}
	if in.TargetHumidity < lowHumidityPct {
		warnings = append(warnings, warnLowHumidity)
	}
	if maxC, ok := maxFlow(mfcC); ok && maxC > mfcA {
		warnings = append(warnings,
			fmt.Sprintf("Max MFC C flow (%.2f SLPM) exceeds MFC A capacity (%.2f SLPM)", maxC, mfcA))
	}

	return mfccalc.FlowResult{
		MFCA:     mfcA,
		MFCB:     mfcB,
		MFCC:     mfcC,
		IsValid:  true,
		Warnings: warnings,
	}
}

// maxFlow returns the largest effective MFC C flow, false when there are no
// entries.
func maxFlow(entries []mfccalc.MFCEntry) (float64, bool) {
	if len(entries) == 0 {
		return 0, false
	}
	max := entries[0].Flow
	for _, e := range entries[1:] {
		if e.Flow > max {
			max = e.Flow
		}
	}
	return max, true
}
