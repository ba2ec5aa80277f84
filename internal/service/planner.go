package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/flowplan"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/humidity"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/protocol"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/repository"
)

// DB schema enforces a single-row session with id=1.
const plannerSessionID = 1

type PlannerService struct {
	sessionRepo repository.SessionRepo
	eventRepo   repository.EventRepo
	cfg         Config
}

func NewPlannerService(sessionRepo repository.SessionRepo, eventRepo repository.EventRepo, cfg Config) *PlannerService {
	return &PlannerService{sessionRepo: sessionRepo, eventRepo: eventRepo, cfg: cfg}
}

// ErrInvalidTimings rejects phase durations under one minute. Handlers match
// on it to tell a bad request from a storage failure.
var ErrInvalidTimings = errors.New("invalid timings: baseline_duration, exposure_duration, and stabilization_time must each be >= 1 minute")

// loadOrDefault returns the stored session, falling back to the configured
// default when the store is empty. The default is not persisted until the
// first mutation.
func loadOrDefault(ctx context.Context, sessions repository.SessionRepo, cfg Config) (mfccalc.Session, error) {
	s, err := sessions.Load(ctx)
	if err != nil {
		return mfccalc.Session{}, err
	}
	if s.ID == 0 {
		s = cfg.DefaultSession
		s.ID = plannerSessionID
		s.UpdatedAt = time.Now().UTC()
	}
	return s, nil
}

// snapshotOf recomputes the flow plan and derived totals from the session.
func snapshotOf(s mfccalc.Session, labTempC float64) PlanSnapshot {
	return PlanSnapshot{
		Result: flowplan.Compute(s.Inputs, s.Calibration),
		TotalTimeHours: protocol.TotalTimeHours(
			len(s.Inputs.Concentrations), s.Timings.BaselineDuration, s.Timings.ExposureDuration),
		AbsoluteHumidity: humidity.RelativeToAbsolute(s.Inputs.TargetHumidity, labTempC),
		StabilizationMin: s.Timings.StabilizationTime,
		UpdatedAt:        s.UpdatedAt,
	}
}

// Session returns the current session, bootstrapping the configured defaults
// when nothing is stored yet.
func (s *PlannerService) Session(ctx context.Context) (mfccalc.Session, error) {
	return loadOrDefault(ctx, s.sessionRepo, s.cfg)
}

// Plan loads the session and recomputes the flow plan. Results are never
// cached; this is cheap enough to run on every read.
func (s *PlannerService) Plan(ctx context.Context) (PlanSnapshot, error) {
	sess, err := loadOrDefault(ctx, s.sessionRepo, s.cfg)
	if err != nil {
		return PlanSnapshot{}, err
	}
	return snapshotOf(sess, s.cfg.LabTempC), nil
}

// SetInputs replaces the input parameters and recomputes the plan.
// Out-of-range values are not rejected here: they surface as an
// IsValid=false result so the client stays interactive.
func (s *PlannerService) SetInputs(ctx context.Context, in mfccalc.InputParameters) (PlanSnapshot, error) {
	now := time.Now().UTC()

	sess, err := loadOrDefault(ctx, s.sessionRepo, s.cfg)
	if err != nil {
		return PlanSnapshot{}, err
	}
	sess.Inputs = in
	sess.UpdatedAt = now

	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return PlanSnapshot{}, err
	}

	if err := s.eventRepo.Append(ctx, mfccalc.PlanEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        "INPUTS_CHANGE",
		Description: "Input parameters updated",
		Metadata: map[string]any{
			"total_flow":       in.TotalFlow,
			"target_humidity":  in.TargetHumidity,
			"ch2o_source_conc": in.CH2OSourceConc,
			"concentrations":   len(in.Concentrations),
		},
	}); err != nil {
		return PlanSnapshot{}, err
	}

	return snapshotOf(sess, s.cfg.LabTempC), nil
}

// SetTimings stores the protocol phase durations.
// All three durations must be at least one minute.
func (s *PlannerService) SetTimings(ctx context.Context, t mfccalc.TimingParameters) (PlanSnapshot, error) {
	if t.BaselineDuration < 1 || t.ExposureDuration < 1 || t.StabilizationTime < 1 {
		return PlanSnapshot{}, ErrInvalidTimings
	}

	now := time.Now().UTC()

	sess, err := loadOrDefault(ctx, s.sessionRepo, s.cfg)
	if err != nil {
		return PlanSnapshot{}, err
	}
	sess.Timings = t
	sess.UpdatedAt = now

	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return PlanSnapshot{}, err
	}

	if err := s.eventRepo.Append(ctx, mfccalc.PlanEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        "TIMINGS_CHANGE",
		Description: "Timing parameters updated",
		Metadata: map[string]any{
			"baseline_min":      t.BaselineDuration,
			"exposure_min":      t.ExposureDuration,
			"stabilization_min": t.StabilizationTime,
		},
	}); err != nil {
		return PlanSnapshot{}, err
	}

	return snapshotOf(sess, s.cfg.LabTempC), nil
}

// SetCalibration replaces the calibration constants and recomputes the plan.
func (s *PlannerService) SetCalibration(ctx context.Context, cal mfccalc.CalibrationConstants) (PlanSnapshot, error) {
	now := time.Now().UTC()

	sess, err := loadOrDefault(ctx, s.sessionRepo, s.cfg)
	if err != nil {
		return PlanSnapshot{}, err
	}
	sess.Calibration = cal
	sess.UpdatedAt = now

	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return PlanSnapshot{}, err
	}

	if err := s.eventRepo.Append(ctx, mfccalc.PlanEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        "CALIBRATION_CHANGE",
		Description: "Calibration constants updated",
		Metadata: map[string]any{
			"humidity_slope":     cal.HumiditySlope,
			"humidity_intercept": cal.HumidityIntercept,
			"ch2o_factor":        cal.CH2OCalibrationFactor,
		},
	}); err != nil {
		return PlanSnapshot{}, err
	}

	return snapshotOf(sess, s.cfg.LabTempC), nil
}

// Reset restores the configured default session, discarding all edits.
func (s *PlannerService) Reset(ctx context.Context) (PlanSnapshot, error) {
	now := time.Now().UTC()

	sess := s.cfg.DefaultSession
	sess.ID = plannerSessionID
	sess.UpdatedAt = now

	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return PlanSnapshot{}, err
	}

	if err := s.eventRepo.Append(ctx, mfccalc.PlanEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        "SESSION_RESET",
		Description: "Session reset to defaults",
	}); err != nil {
		return PlanSnapshot{}, err
	}

	return snapshotOf(sess, s.cfg.LabTempC), nil
}

// FitCalibration fits a least-squares line through measured humidity/flow
// points. With Apply set, the fitted slope and intercept replace the session
// calibration; the CH2O factor is left untouched.
func (s *PlannerService) FitCalibration(ctx context.Context, req FitRequest) (FitResult, error) {
	slope, intercept, r2, err := flowplan.FitLinear(req.Points)
	if err != nil {
		return FitResult{}, err
	}
	res := FitResult{Slope: slope, Intercept: intercept, R2: r2}
	if !req.Apply {
		return res, nil
	}

	now := time.Now().UTC()

	sess, err := loadOrDefault(ctx, s.sessionRepo, s.cfg)
	if err != nil {
		return FitResult{}, err
	}
	sess.Calibration.HumiditySlope = slope
	sess.Calibration.HumidityIntercept = intercept
	sess.UpdatedAt = now

	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return FitResult{}, err
	}

	if err := s.eventRepo.Append(ctx, mfccalc.PlanEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        "CALIBRATION_FIT",
		Description: "Fitted calibration applied",
		Metadata: map[string]any{
			"slope":     slope,
			"intercept": intercept,
			"r2":        r2,
			"points":    len(req.Points),
		},
	}); err != nil {
		return FitResult{}, err
	}

	res.Applied = true
	return res, nil
}
