package handlers

import (
	"errors"
	"net/http"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/flowplan"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/service"

	"github.com/gin-gonic/gin"
)

// Response status strings and the user-facing error messages.
const (
	statusOK             = "ok"
	statusInputsSet      = "inputs_set"
	statusTimingsSet     = "timings_set"
	statusCalibrationSet = "calibration_set"
	statusReset          = "reset"

	errGetSession      = "failed to load session"
	errGetPlan         = "failed to compute plan"
	errSetInputs       = "failed to update inputs"
	errSetTimings      = "failed to update timings"
	errSetCalibration  = "failed to update calibration"
	errResetSession    = "failed to reset session"
	errInvalidBodyPref = "invalid body: "
)

// logAndJSONError records the underlying error and answers with a safe
// message; the raw error text never reaches the client on 500s.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and the freshly recomputed plan the mutation returned.
func (h *Handler) respondWithStatusAndPlan(c *gin.Context, status string, snap service.PlanSnapshot, extra gin.H) {
	resp := gin.H{"status": status, "plan": snap}
	for k, v := range extra {
		resp[k] = v
	}
	c.JSON(http.StatusOK, resp)
}

// Request DTO for replacing the session inputs. Concentrations arrive either
// as a numeric array or as the raw comma/space separated text field; the text
// field wins when both are present. Unusable entries are not an error: they
// are dropped and echoed back so the UI can flag them.
type inputsRequest struct {
	TotalFlow          float64   `json:"total_flow"`
	TargetHumidity     float64   `json:"target_humidity"`
	CH2OSourceConc     float64   `json:"ch2o_source_conc"`
	Concentrations     []float64 `json:"concentrations"`
	ConcentrationsText *string   `json:"concentrations_text"`
	UseAlternateMath   bool      `json:"use_alternate_math"`
}

// concentrations resolves the two encodings into the list to store plus the
// tokens that were rejected on the way.
func (r inputsRequest) concentrations() ([]float64, []string) {
	if r.ConcentrationsText != nil {
		return flowplan.ParseConcentrations(*r.ConcentrationsText)
	}
	return flowplan.FilterConcentrations(r.Concentrations)
}

// Request DTO for replacing the phase durations (whole minutes).
type timingsRequest struct {
	BaselineDuration  int `json:"baseline_duration"`
	ExposureDuration  int `json:"exposure_duration"`
	StabilizationTime int `json:"stabilization_time"`
}

// Request DTO for replacing the calibration constants.
type calibrationRequest struct {
	HumiditySlope         float64 `json:"humidity_slope"`
	HumidityIntercept     float64 `json:"humidity_intercept"`
	CH2OCalibrationFactor float64 `json:"ch2o_calibration_factor"`
}

// Request DTO for fitting a calibration line from measured points.
type fitRequest struct {
	Points []flowplan.CalPoint `json:"points"`
	Apply  bool                `json:"apply"`
}

// SetInputsRequest is an exported model for Swagger docs of the setInputs payload.
type SetInputsRequest struct {
	// Total mixed flow in SLPM
	TotalFlow float64 `json:"total_flow" example:"500"`
	// Target relative humidity in %RH (0..100)
	TargetHumidity float64 `json:"target_humidity" example:"35"`
	// CH2O source concentration in ppm
	CH2OSourceConc float64 `json:"ch2o_source_conc" example:"25"`
	// Requested concentrations in ppb
	Concentrations []float64 `json:"concentrations"`
	// Raw concentration text; wins over the array when present
	ConcentrationsText string `json:"concentrations_text,omitempty" example:"5, 10, 20"`
	// Use the calibration-scaled dilution flow for MFC C
	UseAlternateMath bool `json:"use_alternate_math,omitempty"`
}

// SetTimingsRequest is an exported model for Swagger docs of the setTimings payload.
type SetTimingsRequest struct {
	// Baseline phase length in minutes (>= 1)
	BaselineDuration int `json:"baseline_duration" example:"30"`
	// Exposure phase length in minutes (>= 1)
	ExposureDuration int `json:"exposure_duration" example:"30"`
	// Stabilization time in minutes (>= 1)
	StabilizationTime int `json:"stabilization_time" example:"5"`
}

// SetCalibrationRequest is an exported model for Swagger docs of the setCalibration payload.
type SetCalibrationRequest struct {
	// Slope of the humidity-to-flow line (SLPM per %RH)
	HumiditySlope float64 `json:"humidity_slope" example:"6.0785"`
	// Intercept of the humidity-to-flow line (SLPM)
	HumidityIntercept float64 `json:"humidity_intercept" example:"-32.458"`
	// Scale factor applied to the standard dilution flow
	CH2OCalibrationFactor float64 `json:"ch2o_calibration_factor" example:"1.0"`
}

// FitCalibrationRequest is an exported model for Swagger docs of the fitCalibration payload.
type FitCalibrationRequest struct {
	// Measured (humidity, flow) pairs; at least two distinct humidities
	Points []flowplan.CalPoint `json:"points"`
	// Store the fitted line in the session when true
	Apply bool `json:"apply,omitempty"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get session
// @Description  Returns the stored inputs, timings and calibration without derived values.
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/session [get]
func (h *Handler) getSession(c *gin.Context) {
	ctx := c.Request.Context()
	sess, err := h.services.Planner.Session(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetSession, "session_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// @Summary      Get plan
// @Description  Recomputes the flow plan from the stored session. An unusable configuration still returns 200 with is_valid=false and warnings.
// @Tags         plan
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "result, total_time_hours, absolute_humidity"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/plan [get]
func (h *Handler) getPlan(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.services.Planner.Plan(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetPlan, "plan_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Replace inputs
// @Description  Replaces the input parameters wholesale and returns the recomputed plan. Unparseable concentration tokens are dropped, not rejected.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body  SetInputsRequest  true  "Input payload"
// @Success      200   {object}  map[string]interface{}  "status, plan, dropped_tokens"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/session/inputs [put]
func (h *Handler) setInputs(c *gin.Context) {
	var req inputsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	values, dropped := req.concentrations()
	if dropped == nil {
		dropped = []string{}
	}
	ctx := c.Request.Context()
	snap, err := h.services.Planner.SetInputs(ctx, mfccalc.InputParameters{
		TotalFlow:        req.TotalFlow,
		TargetHumidity:   req.TargetHumidity,
		CH2OSourceConc:   req.CH2OSourceConc,
		Concentrations:   values,
		UseAlternateMath: req.UseAlternateMath,
	})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errSetInputs, "session_set_inputs_failed", err)
		return
	}
	h.respondWithStatusAndPlan(c, statusInputsSet, snap, gin.H{"dropped_tokens": dropped})
}

// @Summary      Replace timings
// @Description  All three durations must be at least one minute.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body  SetTimingsRequest  true  "Timings payload"
// @Success      200   {object}  map[string]interface{}  "status, plan"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/session/timings [put]
func (h *Handler) setTimings(c *gin.Context) {
	var req timingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	snap, err := h.services.Planner.SetTimings(ctx, mfccalc.TimingParameters{
		BaselineDuration:  req.BaselineDuration,
		ExposureDuration:  req.ExposureDuration,
		StabilizationTime: req.StabilizationTime,
	})
	if errors.Is(err, service.ErrInvalidTimings) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errSetTimings, "session_set_timings_failed", err)
		return
	}
	h.respondWithStatusAndPlan(c, statusTimingsSet, snap, gin.H{})
}

// @Summary      Replace calibration
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body  SetCalibrationRequest  true  "Calibration payload"
// @Success      200   {object}  map[string]interface{}  "status, plan"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/session/calibration [put]
func (h *Handler) setCalibration(c *gin.Context) {
	var req calibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	snap, err := h.services.Planner.SetCalibration(ctx, mfccalc.CalibrationConstants{
		HumiditySlope:         req.HumiditySlope,
		HumidityIntercept:     req.HumidityIntercept,
		CH2OCalibrationFactor: req.CH2OCalibrationFactor,
	})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errSetCalibration, "session_set_calibration_failed", err)
		return
	}
	h.respondWithStatusAndPlan(c, statusCalibrationSet, snap, gin.H{})
}

// @Summary      Reset session
// @Description  Restores the configured defaults and returns the recomputed plan.
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, plan"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/session/reset [post]
func (h *Handler) resetSession(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.services.Planner.Reset(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errResetSession, "session_reset_failed", err)
		return
	}
	h.respondWithStatusAndPlan(c, statusReset, snap, gin.H{})
}

// @Summary      Fit calibration line
// @Description  Least-squares fit of flow against humidity. With apply=true the fitted slope and intercept replace the session calibration; the CH2O factor is untouched.
// @Tags         plan
// @Accept       json
// @Produce      json
// @Param        body  body  FitCalibrationRequest  true  "Fit payload"
// @Success      200   {object}  map[string]interface{}  "slope, intercept, r2, applied"
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/calibration/fit [post]
func (h *Handler) fitCalibration(c *gin.Context) {
	var req fitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	res, err := h.services.Planner.FitCalibration(ctx, service.FitRequest{
		Points: req.Points,
		Apply:  req.Apply,
	})
	if err != nil {
		// Degenerate point sets are client errors, so report them as 400.
		if h.log != nil {
			h.log.Errorw("calibration_fit_failed", "err", err, "points", len(req.Points))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
