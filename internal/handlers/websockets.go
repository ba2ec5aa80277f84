package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Socket timing and frame size limits. pingPeriod must stay under pongWait.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

// wsEnvelope frames every server-to-client message.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsCommand frames every client-to-server message. Data is decoded per
// command type, reusing the REST request DTOs.
type wsCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsPlanPayload mirrors the REST mutation envelope over the socket.
type wsPlanPayload struct {
	Plan          service.PlanSnapshot `json:"plan"`
	DroppedTokens []string             `json:"dropped_tokens,omitempty"`
}

// The upgrader accepts any Origin; the tool runs on a closed lab network.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins for production
}

// wsConnect upgrades to a bidirectional plan stream: the server pushes the
// recomputed plan periodically, and clients may send mutation commands that
// are applied and answered immediately on the same connection.
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Pongs extend the read deadline; silence beyond pongWait ends the read.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine parses client commands and detects disconnects.
	// Closing quit releases a reader blocked on handing over a command.
	commands := make(chan wsCommand)
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	go h.startReader(conn, commands, quit, done)

	// Prepare periodic writers: plan updates and pings.
	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	// Send initial plan immediately.
	if err := h.sendPlan(c.Request.Context(), conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	// Writer/select loop. All writes happen here.
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendPlan(c.Request.Context(), conn); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		case cmd := <-commands:
			if err := h.applyCommand(c.Request.Context(), conn, cmd); err != nil {
				if h.log != nil {
					h.log.Infow("ws_command_write_failed", "err", err, "type", cmd.Type)
				}
				return
			}
		}
	}
}

// Helper: parseInterval accepts ?interval=2s or ?interval_ms=2000. Values
// outside (0, 10s] fall back to the one-second default.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// Helper: startReader decodes incoming commands and hands them to the writer
// loop. Malformed frames end the stream like any other read error.
func (h *Handler) startReader(conn *websocket.Conn, commands chan<- wsCommand, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		select {
		case commands <- cmd:
		case <-quit:
			return
		}
	}
}

// Helper: sendPlan recomputes and writes the current plan with a write deadline.
func (h *Handler) sendPlan(ctx context.Context, conn *websocket.Conn) error {
	snap, err := h.services.Planner.Plan(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_plan_failed", "err", err)
		}
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "plan", Data: wsPlanPayload{Plan: snap}})
}

// applyCommand executes one client command and answers on the same
// connection. Command failures go back as error envelopes and keep the
// stream alive; only write failures are returned to the caller.
func (h *Handler) applyCommand(ctx context.Context, conn *websocket.Conn, cmd wsCommand) error {
	payload, err := h.dispatchCommand(ctx, cmd)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		return conn.WriteJSON(wsEnvelope{Type: "error", Error: err.Error()})
	}
	return conn.WriteJSON(wsEnvelope{Type: "plan", Data: payload})
}

func (h *Handler) dispatchCommand(ctx context.Context, cmd wsCommand) (wsPlanPayload, error) {
	switch cmd.Type {
	case "set_inputs":
		var req inputsRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return wsPlanPayload{}, fmt.Errorf("invalid set_inputs payload: %w", err)
		}
		values, dropped := req.concentrations()
		snap, err := h.services.Planner.SetInputs(ctx, mfccalc.InputParameters{
			TotalFlow:        req.TotalFlow,
			TargetHumidity:   req.TargetHumidity,
			CH2OSourceConc:   req.CH2OSourceConc,
			Concentrations:   values,
			UseAlternateMath: req.UseAlternateMath,
		})
		if err != nil {
			return wsPlanPayload{}, err
		}
		return wsPlanPayload{Plan: snap, DroppedTokens: dropped}, nil
	case "set_timings":
		var req timingsRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return wsPlanPayload{}, fmt.Errorf("invalid set_timings payload: %w", err)
		}
		snap, err := h.services.Planner.SetTimings(ctx, mfccalc.TimingParameters{
			BaselineDuration:  req.BaselineDuration,
			ExposureDuration:  req.ExposureDuration,
			StabilizationTime: req.StabilizationTime,
		})
		if err != nil {
			return wsPlanPayload{}, err
		}
		return wsPlanPayload{Plan: snap}, nil
	case "set_calibration":
		var req calibrationRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return wsPlanPayload{}, fmt.Errorf("invalid set_calibration payload: %w", err)
		}
		snap, err := h.services.Planner.SetCalibration(ctx, mfccalc.CalibrationConstants{
			HumiditySlope:         req.HumiditySlope,
			HumidityIntercept:     req.HumidityIntercept,
			CH2OCalibrationFactor: req.CH2OCalibrationFactor,
		})
		if err != nil {
			return wsPlanPayload{}, err
		}
		return wsPlanPayload{Plan: snap}, nil
	case "reset":
		snap, err := h.services.Planner.Reset(ctx)
		if err != nil {
			return wsPlanPayload{}, err
		}
		return wsPlanPayload{Plan: snap}, nil
	case "get_plan":
		snap, err := h.services.Planner.Plan(ctx)
		if err != nil {
			return wsPlanPayload{}, err
		}
		return wsPlanPayload{Plan: snap}, nil
	default:
		return wsPlanPayload{}, fmt.Errorf("unknown command type %q", cmd.Type)
	}
}
