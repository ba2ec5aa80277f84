package mfccalc

import "time"

// InputParameters is the user-entered configuration of a dilution protocol.
type InputParameters struct {
	TotalFlow        float64   `json:"total_flow"`         // SLPM
	TargetHumidity   float64   `json:"target_humidity"`    // %RH, 0..100
	CH2OSourceConc   float64   `json:"ch2o_source_conc"`   // ppm
	Concentrations   []float64 `json:"concentrations"`     // ppb, input order preserved
	UseAlternateMath bool      `json:"use_alternate_math"` // select calibration-scaled dilution flow
}

// TimingParameters holds the protocol phase durations in whole minutes.
type TimingParameters struct {
	BaselineDuration  int `json:"baseline_duration"`
	ExposureDuration  int `json:"exposure_duration"`
	StabilizationTime int `json:"stabilization_time"`
}

// CalibrationConstants define the linear humidity-to-flow map and the
// CH2O dilution scale factor. Immutable for a given session unless the
// operator applies a new fit.
type CalibrationConstants struct {
	HumiditySlope         float64 `json:"humidity_slope"`
	HumidityIntercept     float64 `json:"humidity_intercept"`
	CH2OCalibrationFactor float64 `json:"ch2o_calibration_factor"`
}

// MFCEntry is the computed MFC C setpoint for one requested concentration.
type MFCEntry struct {
	Concentration float64 `json:"concentration"` // ppb, carried through unchanged
	Flow          float64 `json:"flow"`          // SLPM, selected by UseAlternateMath
	FlowStandard  float64 `json:"flow_standard"` // SLPM
	FlowDesmos    float64 `json:"flow_desmos"`   // SLPM, FlowStandard x calibration factor
}

// FlowResult is the derived three-channel flow plan.
type FlowResult struct {
	MFCA     float64    `json:"mfc_a"` // dry air, SLPM, never clamped
	MFCB     float64    `json:"mfc_b"` // humid air, SLPM, clamped to >= 0
	MFCC     []MFCEntry `json:"mfc_c"`
	IsValid  bool       `json:"is_valid"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Session is the single planner session (id is always 1). The FlowResult is
// never stored with it; it is recomputed from Inputs and Calibration on every
// read and write.
type Session struct {
	ID          int                  `json:"id"`
	Inputs      InputParameters      `json:"inputs"`
	Timings     TimingParameters     `json:"timings"`
	Calibration CalibrationConstants `json:"calibration"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// PlanEvent is a single session activity log entry.
type PlanEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // SESSION_RESET | INPUTS_CHANGE | TIMINGS_CHANGE | CALIBRATION_CHANGE | CALIBRATION_FIT | EXPORT_CSV | EXPORT_CHART
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
