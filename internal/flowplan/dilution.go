package flowplan

import (
	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
)

// DilutionSeries computes the MFC C setpoint for every requested trace-gas
// concentration, preserving input order. For a concentration c in ppb:
//
//	flow_standard = (c / 1000) * totalFlow / sourceConc
//	flow_desmos   = flow_standard * factor
//
// and the effective flow is flow_desmos when useAlternate is set, otherwise
// flow_standard. sourceConc must be positive; Compute rejects non-positive
// source concentrations before calling in.
func DilutionSeries(concentrations []float64, totalFlow, sourceConc, factor float64, useAlternate bool) []mfccalc.MFCEntry {
	entries := make([]mfccalc.MFCEntry, 0, len(concentrations))
	for _, c := range concentrations {
		standard := (c / 1000) * totalFlow / sourceConc
		desmos := standard * factor
		flow := standard
		if useAlternate {
			flow = desmos
		}
		entries = append(entries, mfccalc.MFCEntry{
			Concentration: c,
			Flow:          flow,
			FlowStandard:  standard,
			FlowDesmos:    desmos,
		})
	}
	return entries
}
