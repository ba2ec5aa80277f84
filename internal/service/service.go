package service

import (
	"context"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/repository"
)

// Planner exposes the session mutations. Every write persists the session,
// appends a typed event, and returns a freshly recomputed snapshot.
type Planner interface {
	Session(ctx context.Context) (mfccalc.Session, error)
	Plan(ctx context.Context) (PlanSnapshot, error)
	SetInputs(ctx context.Context, in mfccalc.InputParameters) (PlanSnapshot, error)
	SetTimings(ctx context.Context, t mfccalc.TimingParameters) (PlanSnapshot, error)
	SetCalibration(ctx context.Context, cal mfccalc.CalibrationConstants) (PlanSnapshot, error)
	Reset(ctx context.Context) (PlanSnapshot, error)
	FitCalibration(ctx context.Context, req FitRequest) (FitResult, error)
}

// Exporter renders the protocol documents from the current session.
type Exporter interface {
	CSV(ctx context.Context, now time.Time) (ExportFile, error)
	Chart(ctx context.Context) ([]byte, error)
	Preview(ctx context.Context) (TimelinePreview, error)
}

// EventLog reads back the activity trail written by the planner and exporter.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]mfccalc.PlanEvent, error)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Planner
	Exporter
	EventLog
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, cfg Config) *Service {
	return &Service{
		Planner:  NewPlannerService(repos.Sessions, repos.Events, cfg),
		Exporter: NewExporterService(repos.Sessions, repos.Events, cfg),
		EventLog: NewEventLogService(repos.Events),
	}
}
