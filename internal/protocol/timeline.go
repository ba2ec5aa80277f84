// Package protocol turns a computed flow plan into instrument-facing
// artifacts: the time-ordered setpoint rows, the downloadable CSV document,
// its file name, the run-length estimate and a PNG rendering of the timeline.
package protocol

import (
	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
)

// Row is one three-channel setpoint at an absolute protocol time. Exposure
// marks rows whose MFC C column carries a trace-gas flow; it controls the
// column's presentation in the CSV.
type Row struct {
	TimeSec  int     `json:"time_sec"`
	A        float64 `json:"mfc_a"`
	B        float64 `json:"mfc_b"`
	C        float64 `json:"mfc_c"`
	Exposure bool    `json:"exposure"`
}

// BuildTimeline assembles the protocol rows for a valid flow plan. An invalid
// plan yields no rows.
//
// The cursor starts at zero and advances in seconds. The opening baseline row
// advances it by the baseline duration. Each concentration then contributes a
// baseline row and an exposure row at the same instant (the instrument steps
// from baseline to exposure at that time) and advances the cursor by the
// exposure duration. A closing baseline row and an all-zero shutdown row share
// the final cursor position, so a plan with N concentrations always has
// 2N+3 rows.
func BuildTimeline(res mfccalc.FlowResult, t mfccalc.TimingParameters) []Row {
	if !res.IsValid {
		return nil
	}

	rows := make([]Row, 0, 2*len(res.MFCC)+3)
	cursor := 0

	rows = append(rows, Row{TimeSec: cursor, A: res.MFCA, B: res.MFCB})
	cursor += t.BaselineDuration * 60

	for _, e := range res.MFCC {
		rows = append(rows, Row{TimeSec: cursor, A: res.MFCA, B: res.MFCB})
		rows = append(rows, Row{TimeSec: cursor, A: res.MFCA - e.Flow, B: res.MFCB, C: e.Flow, Exposure: true})
		cursor += t.ExposureDuration * 60
	}

	rows = append(rows, Row{TimeSec: cursor, A: res.MFCA, B: res.MFCB})
	rows = append(rows, Row{TimeSec: cursor})

	return rows
}
