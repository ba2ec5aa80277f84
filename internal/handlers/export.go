package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zahiraIi/MFC-Calculator-Tool/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errExportCSV   = "failed to export protocol CSV"
	errExportChart = "failed to render protocol chart"
	errPreview     = "failed to build timeline preview"

	contentTypeCSV = "text/csv"
	contentTypePNG = "image/png"
)

// @Summary      Download protocol CSV
// @Description  Streams the dilution timeline as a CSV attachment. An unusable plan is a conflict, not a server error.
// @Tags         protocol
// @Produce      text/csv
// @Success      200  {string}  string  "CSV document"
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/protocol/csv [get]
func (h *Handler) downloadCSV(c *gin.Context) {
	ctx := c.Request.Context()
	file, err := h.services.Exporter.CSV(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, service.ErrPlanInvalid) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errExportCSV, "protocol_csv_failed", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, contentTypeCSV, file.Data)
}

// @Summary      Download protocol chart
// @Description  Renders the planned MFC C flow over time as a PNG.
// @Tags         protocol
// @Produce      image/png
// @Success      200  {string}  string  "PNG image"
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/protocol/chart [get]
func (h *Handler) downloadChart(c *gin.Context) {
	ctx := c.Request.Context()
	png, err := h.services.Exporter.Chart(ctx)
	if err != nil {
		if errors.Is(err, service.ErrPlanInvalid) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errExportChart, "protocol_chart_failed", err)
		return
	}
	c.Data(http.StatusOK, contentTypePNG, png)
}

// @Summary      Preview timeline
// @Description  Returns the timeline rows as JSON without logging an export. An unusable plan yields zero rows.
// @Tags         protocol
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "rows, total_seconds, total_time_hours"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/protocol/preview [get]
func (h *Handler) previewTimeline(c *gin.Context) {
	ctx := c.Request.Context()
	preview, err := h.services.Exporter.Preview(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errPreview, "protocol_preview_failed", err)
		return
	}
	c.JSON(http.StatusOK, preview)
}
