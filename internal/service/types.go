package service

import (
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/flowplan"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/protocol"
)

// Config carries the tunables main() reads from the config file.
type Config struct {
	LabTempC       float64         // lab air temperature, Celsius; used for absolute humidity
	DefaultSession mfccalc.Session // session bootstrapped when the store is empty
}

// PlanSnapshot is the recomputed view of the session returned by every
// planner operation. It is derived on each call and never stored.
type PlanSnapshot struct {
	Result           mfccalc.FlowResult `json:"result"`
	TotalTimeHours   string             `json:"total_time_hours"`
	AbsoluteHumidity float64            `json:"absolute_humidity"` // g/m3 at the configured lab temperature
	StabilizationMin int                `json:"stabilization_min"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "SESSION_RESET", "INPUTS_CHANGE", "TIMINGS_CHANGE", "CALIBRATION_CHANGE", "CALIBRATION_FIT", "EXPORT_CSV", "EXPORT_CHART"
}

// FitRequest carries measured humidity/flow pairs; Apply writes the fitted
// line into the session calibration.
type FitRequest struct {
	Points []flowplan.CalPoint `json:"points"`
	Apply  bool                `json:"apply"`
}

// FitResult reports the fitted line and its quality.
type FitResult struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
	Applied   bool    `json:"applied"`
}

// ExportFile is a generated download.
type ExportFile struct {
	Name string
	Data []byte
}

// TimelinePreview is the timeline table plus totals for the client.
type TimelinePreview struct {
	Rows           []protocol.Row `json:"rows"`
	TotalSeconds   int            `json:"total_seconds"`
	TotalTimeHours string         `json:"total_time_hours"`
}
