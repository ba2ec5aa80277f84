package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSessionSQLite_Save_SetsUTCAndMarshalsConcentrations_WhenTimeZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSessionSQLite(db)

	// A zero UpdatedAt must go to the DB as a freshly stamped UTC "now".
	session := mfccalc.Session{
		Inputs: mfccalc.InputParameters{
			TotalFlow:      500,
			TargetHumidity: 35,
			CH2OSourceConc: 25,
			Concentrations: []float64{5, 10, 20},
		},
		Timings: mfccalc.TimingParameters{
			BaselineDuration:  30,
			ExposureDuration:  30,
			StabilizationTime: 5,
		},
		Calibration: mfccalc.CalibrationConstants{
			HumiditySlope:         6.0785,
			HumidityIntercept:     -32.458,
			CH2OCalibrationFactor: 1.0,
		},
		// UpdatedAt is zero
	}

	// matcher for the timestamp argument
	isUTCRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok {
			return false
		}
		// UTC location and within a few seconds of now
		if tm.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		if tm.Before(now.Add(-5*time.Second)) || tm.After(now.Add(5*time.Second)) {
			return false
		}
		return true
	})

	// the SQL constant is unexported; match on the statement head
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO planner_session")).
		WithArgs(
			1, // id constant
			session.Inputs.TotalFlow,
			session.Inputs.TargetHumidity,
			session.Inputs.CH2OSourceConc,
			`[5,10,20]`, // JSON marshaled concentrations
			session.Inputs.UseAlternateMath,
			session.Timings.BaselineDuration,
			session.Timings.ExposureDuration,
			session.Timings.StabilizationTime,
			session.Calibration.HumiditySlope,
			session.Calibration.HumidityIntercept,
			session.Calibration.CH2OCalibrationFactor,
			isUTCRecent, // UpdatedAt written as UTC "now"
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionSQLite_Save_PreservesGivenTimeButConvertsToUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSessionSQLite(db)

	locTokyo, _ := time.LoadLocation("Asia/Tokyo")
	original := time.Date(2023, 10, 5, 12, 34, 56, 0, locTokyo) // non-UTC
	expectedUTC := original.UTC()

	session := mfccalc.Session{
		Inputs: mfccalc.InputParameters{
			TotalFlow:        250,
			TargetHumidity:   60,
			CH2OSourceConc:   10,
			Concentrations:   []float64{},
			UseAlternateMath: true,
		},
		Timings: mfccalc.TimingParameters{
			BaselineDuration:  15,
			ExposureDuration:  45,
			StabilizationTime: 10,
		},
		Calibration: mfccalc.CalibrationConstants{
			HumiditySlope:         5.5,
			HumidityIntercept:     -30,
			CH2OCalibrationFactor: 0.95,
		},
		UpdatedAt: original,
	}

	isExactUTC := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok {
			return false
		}
		return tm.Equal(expectedUTC) && tm.Location() == time.UTC
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO planner_session")).
		WithArgs(
			1,
			session.Inputs.TotalFlow,
			session.Inputs.TargetHumidity,
			session.Inputs.CH2OSourceConc,
			"[]", // empty slice -> "[]"
			session.Inputs.UseAlternateMath,
			session.Timings.BaselineDuration,
			session.Timings.ExposureDuration,
			session.Timings.StabilizationTime,
			session.Calibration.HumiditySlope,
			session.Calibration.HumidityIntercept,
			session.Calibration.CH2OCalibrationFactor,
			isExactUTC, // exact UTC-converted input time
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionSQLite_Save_ExecErrorIsPropagated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSessionSQLite(db)

	session := mfccalc.Session{
		Inputs: mfccalc.InputParameters{
			TotalFlow:      1,
			TargetHumidity: 2,
			CH2OSourceConc: 3,
			Concentrations: nil, // marshals to "null"
		},
		// zero UpdatedAt, Save stamps it
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO planner_session")).
		WithArgs(
			1,
			session.Inputs.TotalFlow,
			session.Inputs.TargetHumidity,
			session.Inputs.CH2OSourceConc,
			"null",
			session.Inputs.UseAlternateMath,
			session.Timings.BaselineDuration,
			session.Timings.ExposureDuration,
			session.Timings.StabilizationTime,
			session.Calibration.HumiditySlope,
			session.Calibration.HumidityIntercept,
			session.Calibration.CH2OCalibrationFactor,
			sqlmock.AnyArg(), // time
		).
		WillReturnError(errors.New("db down"))

	if err := repo.Save(context.Background(), session); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
}

func TestSessionSQLite_Load_NoRowsReturnsZeroValueAndNilError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSessionSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, total_flow, target_humidity, ch2o_source_conc, concentrations")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	// zero value expected
	var zero mfccalc.Session
	if !reflect.DeepEqual(got, zero) {
		t.Fatalf("Load() expected zero session, got: %+v", got)
	}
}

func TestSessionSQLite_Load_HappyPath_UnmarshalsAndUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSessionSQLite(db)

	// one stored session row, with a non-UTC driver time
	cols := []string{
		"id", "total_flow", "target_humidity", "ch2o_source_conc", "concentrations",
		"use_alternate_math", "baseline_min", "exposure_min", "stabilization_min",
		"humidity_slope", "humidity_intercept", "ch2o_factor", "updated_at",
	}
	locNY, _ := time.LoadLocation("America/New_York")
	nonUTC := time.Date(2024, 2, 1, 8, 30, 0, 0, locNY)

	rows := sqlmock.NewRows(cols).
		AddRow(
			1,
			500.0,
			35.0,
			25.0,
			`[5,10,20]`,
			true,
			30,
			30,
			5,
			6.0785,
			-32.458,
			1.0,
			nonUTC, // DB gives a non-UTC time; Load should convert to UTC
		)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, total_flow, target_humidity, ch2o_source_conc, concentrations")).
		WithArgs(1).
		WillReturnRows(rows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if got.ID != 1 ||
		got.Inputs.TotalFlow != 500.0 ||
		got.Inputs.TargetHumidity != 35.0 ||
		got.Inputs.CH2OSourceConc != 25.0 ||
		!got.Inputs.UseAlternateMath ||
		got.Timings.BaselineDuration != 30 ||
		got.Timings.ExposureDuration != 30 ||
		got.Timings.StabilizationTime != 5 ||
		got.Calibration.HumiditySlope != 6.0785 ||
		got.Calibration.HumidityIntercept != -32.458 ||
		got.Calibration.CH2OCalibrationFactor != 1.0 {
		t.Fatalf("Load() unexpected fields: %+v", got)
	}

	if got.UpdatedAt.Location() != time.UTC {
		t.Fatalf("Load() UpdatedAt not UTC: %v (%v)", got.UpdatedAt, got.UpdatedAt.Location())
	}
	if want := []float64{5, 10, 20}; !equalFloatSlices(got.Inputs.Concentrations, want) {
		t.Fatalf("Load() Concentrations mismatch: got=%v want=%v", got.Inputs.Concentrations, want)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionSQLite_Load_InvalidConcentrationsJSON_ReturnsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSessionSQLite(db)

	cols := []string{
		"id", "total_flow", "target_humidity", "ch2o_source_conc", "concentrations",
		"use_alternate_math", "baseline_min", "exposure_min", "stabilization_min",
		"humidity_slope", "humidity_intercept", "ch2o_factor", "updated_at",
	}
	rows := sqlmock.NewRows(cols).
		AddRow(
			1,
			10.0,
			20.0,
			30.0,
			`{not: "an array"}`, // invalid for []float64
			false,
			1,
			1,
			1,
			1.0,
			0.0,
			1.0,
			time.Now(),
		)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, total_flow, target_humidity, ch2o_source_conc, concentrations")).
		WithArgs(1).
		WillReturnRows(rows)

	_, err = repo.Load(context.Background())
	if err == nil {
		t.Fatalf("Load() expected error due to invalid concentrations JSON, got nil")
	}
}

// Helpers

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}

func equalFloatSlices(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
