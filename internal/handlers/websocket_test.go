package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/zahiraIi/MFC-Calculator-Tool/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 1 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", 1 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=20000", 1 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 1 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 1 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

// --- websocket integration tests ---

// dialWS starts a router exposing /ws for the given services and dials it.
func dialWS(t *testing.T, s *service.Service, rawQuery string) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = rawQuery

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial error: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestWebSocket_PlanStream_InitialAndPeriodic(t *testing.T) {
	pl := &mockPlanner{snap: testSnapshot()}
	conn, cleanup := dialWS(t, &service.Service{Planner: pl}, "interval_ms=20") // fast ticks for the test
	defer cleanup()

	type envelope struct {
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}

	// Read initial plan
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if env.Type != "plan" || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var payload struct {
		Plan service.PlanSnapshot `json:"plan"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal plan: %v", err)
	}
	if payload.Plan.Result.MFCB != 180.2895 || payload.Plan.TotalTimeHours != "3.5" {
		t.Fatalf("unexpected plan: %+v", payload.Plan)
	}

	// Read a subsequent tick
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	env = envelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if env.Type != "plan" {
		t.Fatalf("expected type=plan, got %+v", env)
	}
}

func TestWebSocket_Commands_ApplyAndAnswer(t *testing.T) {
	pl := &mockPlanner{snap: testSnapshot()}
	// Slow ticks so only the initial push and command answers arrive.
	conn, cleanup := dialWS(t, &service.Service{Planner: pl}, "interval_ms=10000")
	defer cleanup()

	type envelope struct {
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}

	readEnvelope := func() envelope {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		return env
	}

	// Drain the initial push.
	if env := readEnvelope(); env.Type != "plan" {
		t.Fatalf("expected initial plan, got %+v", env)
	}

	// Mutation command is applied and answered with a plan envelope.
	cmd := `{"type":"set_timings","data":{"baseline_duration":20,"exposure_duration":40,"stabilization_time":10}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
		t.Fatalf("write command: %v", err)
	}
	env := readEnvelope()
	if env.Type != "plan" {
		t.Fatalf("expected plan answer, got %+v", env)
	}
	if calls := pl.captured(); calls.setTimingsCalls != 1 || calls.lastTimings.ExposureDuration != 40 {
		t.Fatalf("command not applied: calls=%d last=%+v", calls.setTimingsCalls, calls.lastTimings)
	}

	// Inputs sent as raw text report their dropped tokens in the answer.
	cmd = `{"type":"set_inputs","data":{"total_flow":500,"target_humidity":35,"ch2o_source_conc":25,"concentrations_text":"5, abc, 20"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
		t.Fatalf("write command: %v", err)
	}
	env = readEnvelope()
	if env.Type != "plan" {
		t.Fatalf("expected plan answer, got %+v", env)
	}
	var payload struct {
		Plan          service.PlanSnapshot `json:"plan"`
		DroppedTokens []string             `json:"dropped_tokens"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal answer: %v", err)
	}
	if len(payload.DroppedTokens) != 1 || payload.DroppedTokens[0] != "abc" {
		t.Fatalf("expected dropped tokens [abc], got %v", payload.DroppedTokens)
	}
	if got := pl.captured().lastInputs.Concentrations; len(got) != 2 || got[0] != 5 || got[1] != 20 {
		t.Fatalf("wrong concentrations applied: %v", got)
	}

	// Unknown commands answer with an error envelope and keep the stream open.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)); err != nil {
		t.Fatalf("write command: %v", err)
	}
	env = readEnvelope()
	if env.Type != "error" || !strings.Contains(env.Error, "unknown command") {
		t.Fatalf("expected error envelope, got %+v", env)
	}

	// The stream still answers after a rejected command.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"get_plan"}`)); err != nil {
		t.Fatalf("write command: %v", err)
	}
	if env := readEnvelope(); env.Type != "plan" {
		t.Fatalf("stream should survive a rejected command, got %+v", env)
	}
}

func TestWebSocket_RejectedMutationKeepsStream(t *testing.T) {
	pl := &mockPlanner{snap: testSnapshot()}
	conn, cleanup := dialWS(t, &service.Service{Planner: pl}, "interval_ms=10000")
	defer cleanup()

	type envelope struct {
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}

	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}

	// Make the next mutation fail in the service.
	pl.setSnapErr(service.ErrInvalidTimings)
	cmd := `{"type":"set_timings","data":{"baseline_duration":0,"exposure_duration":30,"stabilization_time":5}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
		t.Fatalf("write command: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	env = envelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read answer: %v", err)
	}
	if env.Type != "error" || !strings.Contains(env.Error, ">= 1 minute") {
		t.Fatalf("expected service error envelope, got %+v", env)
	}
}

func TestWebSocket_InitialPlanError_Closes(t *testing.T) {
	pl := &mockPlanner{snapErr: errors.New("boom")}
	conn, cleanup := dialWS(t, &service.Service{Planner: pl}, "")
	defer cleanup()

	// The server should close immediately after failing the initial Plan/WriteJSON
	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}
