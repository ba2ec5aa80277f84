package handlers

import (
	"context"
	"sync"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

// plannerCalls records what the handler passed into the planner mock.
type plannerCalls struct {
	lastInputs      mfccalc.InputParameters
	lastTimings     mfccalc.TimingParameters
	lastCalibration mfccalc.CalibrationConstants
	lastFit         service.FitRequest

	planCalls           int
	setInputsCalls      int
	setTimingsCalls     int
	setCalibrationCalls int
	resetCalls          int
}

// mockPlanner is mutex-guarded because the websocket tests drive it from the
// server goroutine while the test goroutine inspects the captured calls.
type mockPlanner struct {
	mu sync.Mutex

	session    mfccalc.Session
	sessionErr error

	snap    service.PlanSnapshot
	snapErr error

	fitResp service.FitResult
	fitErr  error

	plannerCalls
}

func (m *mockPlanner) Session(ctx context.Context) (mfccalc.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.sessionErr
}
func (m *mockPlanner) Plan(ctx context.Context) (service.PlanSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planCalls++
	return m.snap, m.snapErr
}
func (m *mockPlanner) SetInputs(ctx context.Context, in mfccalc.InputParameters) (service.PlanSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setInputsCalls++
	m.lastInputs = in
	return m.snap, m.snapErr
}
func (m *mockPlanner) SetTimings(ctx context.Context, t mfccalc.TimingParameters) (service.PlanSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setTimingsCalls++
	m.lastTimings = t
	return m.snap, m.snapErr
}
func (m *mockPlanner) SetCalibration(ctx context.Context, cal mfccalc.CalibrationConstants) (service.PlanSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalibrationCalls++
	m.lastCalibration = cal
	return m.snap, m.snapErr
}
func (m *mockPlanner) Reset(ctx context.Context) (service.PlanSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCalls++
	return m.snap, m.snapErr
}
func (m *mockPlanner) FitCalibration(ctx context.Context, req service.FitRequest) (service.FitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFit = req
	return m.fitResp, m.fitErr
}

// setSnapErr swaps the error returned by plan-producing methods mid-test.
func (m *mockPlanner) setSnapErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapErr = err
}

// captured returns a locked copy of the call-capture fields.
func (m *mockPlanner) captured() plannerCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plannerCalls
}

type mockExporter struct {
	file       service.ExportFile
	fileErr    error
	png        []byte
	pngErr     error
	preview    service.TimelinePreview
	previewErr error

	lastNow time.Time
}

func (m *mockExporter) CSV(ctx context.Context, now time.Time) (service.ExportFile, error) {
	m.lastNow = now
	return m.file, m.fileErr
}
func (m *mockExporter) Chart(ctx context.Context) ([]byte, error) {
	return m.png, m.pngErr
}
func (m *mockExporter) Preview(ctx context.Context) (service.TimelinePreview, error) {
	return m.preview, m.previewErr
}

type mockEventLog struct {
	resp     []mfccalc.PlanEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]mfccalc.PlanEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
