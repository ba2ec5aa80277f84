package handlers

import (
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/logger"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler holds the service layer and logger shared by every route.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler accepts a nil logger; handlers then skip error logging, which
// the tests rely on.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes assembles the Gin engine: swagger, health, the versioned API
// and the websocket endpoint.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.accessLog)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	// Live plan stream over WebSocket (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerSessionRoutes(api)
		h.registerPlanRoutes(api)
		h.registerProtocolRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerSessionRoutes(api *gin.RouterGroup) {
	session := api.Group("/session")
	{
		session.GET("", h.getSession)
		// Body example: {"total_flow":500,"target_humidity":35,"ch2o_source_conc":25,"concentrations":[5,10,20]}
		session.PUT("/inputs", h.setInputs)
		session.PUT("/timings", h.setTimings)
		session.PUT("/calibration", h.setCalibration)
		session.POST("/reset", h.resetSession)
	}
}

func (h *Handler) registerPlanRoutes(api *gin.RouterGroup) {
	api.GET("/plan", h.getPlan)
	api.POST("/calibration/fit", h.fitCalibration)
}

func (h *Handler) registerProtocolRoutes(api *gin.RouterGroup) {
	protocol := api.Group("/protocol")
	{
		protocol.GET("/csv", h.downloadCSV)
		protocol.GET("/chart", h.downloadChart)
		protocol.GET("/preview", h.previewTimeline)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
