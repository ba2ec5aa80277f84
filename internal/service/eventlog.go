package service

import (
	"context"
	"errors"
	"strings"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
)

// normalize prepares the filter for the repository query: times in UTC
// (zero values preserved), type trimmed and uppercased, range validated.
func (f LogFilter) normalize() (time.Time, time.Time, string, error) {
	from, to := f.From, f.To
	if !from.IsZero() {
		from = from.UTC()
	}
	if !to.IsZero() {
		to = to.UTC()
	}

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	return from, to, strings.ToUpper(strings.TrimSpace(f.Type)), nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]mfccalc.PlanEvent, error) {
	from, to, typ, err := f.normalize()
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ)
}
