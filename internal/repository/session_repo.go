package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
)

type SessionSQLite struct {
	db *sql.DB
}

func NewSessionSQLite(db *sql.DB) *SessionSQLite {
	return &SessionSQLite{db: db}
}

// The session lives in a single pinned row; both statements address id 1.
const (
	plannerSessionRowID = 1

	insertOrUpdateSessionSQL = `
		INSERT INTO planner_session (id, total_flow, target_humidity, ch2o_source_conc, concentrations,
			use_alternate_math, baseline_min, exposure_min, stabilization_min,
			humidity_slope, humidity_intercept, ch2o_factor, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_flow=excluded.total_flow,
			target_humidity=excluded.target_humidity,
			ch2o_source_conc=excluded.ch2o_source_conc,
			concentrations=excluded.concentrations,
			use_alternate_math=excluded.use_alternate_math,
			baseline_min=excluded.baseline_min,
			exposure_min=excluded.exposure_min,
			stabilization_min=excluded.stabilization_min,
			humidity_slope=excluded.humidity_slope,
			humidity_intercept=excluded.humidity_intercept,
			ch2o_factor=excluded.ch2o_factor,
			updated_at=excluded.updated_at
	`

	selectSessionSQL = `
		SELECT id, total_flow, target_humidity, ch2o_source_conc, concentrations,
			use_alternate_math, baseline_min, exposure_min, stabilization_min,
			humidity_slope, humidity_intercept, ch2o_factor, updated_at
		FROM planner_session WHERE id=?
	`
)

// marshalConcentrations converts the slice to a JSON string.
func marshalConcentrations(concs []float64) (string, error) {
	b, err := json.Marshal(concs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalConcentrations parses a JSON string into a slice.
func unmarshalConcentrations(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var concs []float64
	if err := json.Unmarshal([]byte(s), &concs); err != nil {
		return nil, err
	}
	return concs, nil
}

// Save updates or inserts the planner_session row (id always 1).
func (r *SessionSQLite) Save(ctx context.Context, s mfccalc.Session) error {
	concsJSONStr, err := marshalConcentrations(s.Inputs.Concentrations)
	if err != nil {
		return err
	}

	// UpdatedAt goes to disk in UTC, stamped now when the caller left it zero
	tsUTC := s.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateSessionSQL,
		plannerSessionRowID,
		s.Inputs.TotalFlow,
		s.Inputs.TargetHumidity,
		s.Inputs.CH2OSourceConc,
		concsJSONStr,
		s.Inputs.UseAlternateMath,
		s.Timings.BaselineDuration,
		s.Timings.ExposureDuration,
		s.Timings.StabilizationTime,
		s.Calibration.HumiditySlope,
		s.Calibration.HumidityIntercept,
		s.Calibration.CH2OCalibrationFactor,
		tsUTC,
	)
	return err
}

// Load fetches the single planner_session row (id=1).
func (r *SessionSQLite) Load(ctx context.Context) (mfccalc.Session, error) {
	row := r.db.QueryRowContext(ctx, selectSessionSQL, plannerSessionRowID)

	var s mfccalc.Session
	var concsJSONStr string
	if err := row.Scan(
		&s.ID,
		&s.Inputs.TotalFlow,
		&s.Inputs.TargetHumidity,
		&s.Inputs.CH2OSourceConc,
		&concsJSONStr,
		&s.Inputs.UseAlternateMath,
		&s.Timings.BaselineDuration,
		&s.Timings.ExposureDuration,
		&s.Timings.StabilizationTime,
		&s.Calibration.HumiditySlope,
		&s.Calibration.HumidityIntercept,
		&s.Calibration.CH2OCalibrationFactor,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mfccalc.Session{}, nil // no session yet
		}
		return mfccalc.Session{}, err
	}

	concs, err := unmarshalConcentrations(concsJSONStr)
	if err != nil {
		return mfccalc.Session{}, err
	}
	s.Inputs.Concentrations = concs
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
