package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/flowplan"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/protocol"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/repository"
)

// ErrPlanInvalid marks exports requested while the current inputs do not
// produce a valid plan.
var ErrPlanInvalid = errors.New("current plan is invalid; fix inputs before exporting")

type ExporterService struct {
	sessionRepo repository.SessionRepo
	eventRepo   repository.EventRepo
	cfg         Config
}

func NewExporterService(sessionRepo repository.SessionRepo, eventRepo repository.EventRepo, cfg Config) *ExporterService {
	return &ExporterService{sessionRepo: sessionRepo, eventRepo: eventRepo, cfg: cfg}
}

// CSV renders the protocol timeline as a CSV download. The caller supplies
// now so the filename and the generated-at header line agree.
func (s *ExporterService) CSV(ctx context.Context, now time.Time) (ExportFile, error) {
	sess, err := loadOrDefault(ctx, s.sessionRepo, s.cfg)
	if err != nil {
		return ExportFile{}, err
	}
	res := flowplan.Compute(sess.Inputs, sess.Calibration)
	if !res.IsValid {
		return ExportFile{}, ErrPlanInvalid
	}

	var buf bytes.Buffer
	if err := protocol.WriteCSV(&buf, sess.Inputs, res, sess.Timings, now); err != nil {
		return ExportFile{}, err
	}
	file := ExportFile{
		Name: protocol.Filename(sess.Inputs.TargetHumidity, now),
		Data: buf.Bytes(),
	}

	if err := s.eventRepo.Append(ctx, mfccalc.PlanEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now.UTC(),
		Type:        "EXPORT_CSV",
		Description: "Protocol CSV exported",
		Metadata: map[string]any{
			"filename":       file.Name,
			"concentrations": len(res.MFCC),
		},
	}); err != nil {
		return ExportFile{}, err
	}

	return file, nil
}

// Chart renders the timeline as a PNG.
func (s *ExporterService) Chart(ctx context.Context) ([]byte, error) {
	sess, err := loadOrDefault(ctx, s.sessionRepo, s.cfg)
	if err != nil {
		return nil, err
	}
	res := flowplan.Compute(sess.Inputs, sess.Calibration)
	if !res.IsValid {
		return nil, ErrPlanInvalid
	}

	png, err := protocol.ChartPNG(protocol.BuildTimeline(res, sess.Timings))
	if err != nil {
		return nil, err
	}

	if err := s.eventRepo.Append(ctx, mfccalc.PlanEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        "EXPORT_CHART",
		Description: "Protocol chart exported",
		Metadata: map[string]any{
			"bytes": len(png),
		},
	}); err != nil {
		return nil, err
	}

	return png, nil
}

// Preview returns the timeline rows plus totals for the client table.
// Unlike the downloads, an invalid plan previews as an empty table so the
// client can keep rendering while the operator fixes inputs.
func (s *ExporterService) Preview(ctx context.Context) (TimelinePreview, error) {
	sess, err := loadOrDefault(ctx, s.sessionRepo, s.cfg)
	if err != nil {
		return TimelinePreview{}, err
	}
	res := flowplan.Compute(sess.Inputs, sess.Calibration)

	rows := protocol.BuildTimeline(res, sess.Timings)
	if rows == nil {
		rows = make([]protocol.Row, 0)
	}

	p := TimelinePreview{
		Rows: rows,
		TotalTimeHours: protocol.TotalTimeHours(
			len(sess.Inputs.Concentrations), sess.Timings.BaselineDuration, sess.Timings.ExposureDuration),
	}
	if len(rows) > 0 {
		p.TotalSeconds = rows[len(rows)-1].TimeSec
	}
	return p, nil
}
