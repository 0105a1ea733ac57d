package handlers

import (
	"context"
	"time"

	"evacconsole/internal/logger"
	"evacconsole/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// LayoutPrefs is the persisted console layout.
type LayoutPrefs interface {
	SidebarCollapsed(ctx context.Context) (bool, error)
	SetSidebarCollapsed(ctx context.Context, collapsed bool) error
}

// Config tunes the facade. Zero values fall back to defaults.
type Config struct {
	// Metrics is served on /metrics; nil means the default registry.
	Metrics prometheus.Gatherer
	// StreamInterval is the snapshot period of /ws when the client asks for none.
	StreamInterval time.Duration
}

// Handler exposes the entity stores as a local JSON API for the console UI.
type Handler struct {
	services *service.Service
	layout   LayoutPrefs
	cfg      Config
	log      *logger.Logger
}

func NewHandler(services *service.Service, layout LayoutPrefs, cfg Config, log *logger.Logger) *Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = prometheus.DefaultGatherer
	}
	if cfg.StreamInterval <= 0 || cfg.StreamInterval > maxInterval {
		cfg.StreamInterval = defaultInterval
	}
	return &Handler{services: services, layout: layout, cfg: cfg, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.cfg.Metrics, promhttp.HandlerOpts{})))
	router.GET("/health", h.health)

	h.registerSessionRoutes(router)
	h.registerUIRoutes(router)
	h.registerAPIRoutes(router)

	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerSessionRoutes(r *gin.Engine) {
	session := r.Group("/session")
	{
		session.GET("", h.getSession)
		// Body example: {"token":"...","base_url":"http://backend:3000"}
		session.PUT("", h.signIn)
		session.DELETE("", h.signOut)
	}
}

func (h *Handler) registerUIRoutes(r *gin.Engine) {
	ui := r.Group("/ui")
	{
		ui.GET("/sidebar", h.getSidebar)
		ui.PUT("/sidebar", h.setSidebar)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requireToken)
	{
		api.GET("/state", h.getState)
		h.registerFloorRoutes(api)
		h.registerRouteRoutes(api)
		h.registerRecordRoutes(api)
		h.registerSystemRoutes(api)
	}
}

func (h *Handler) registerFloorRoutes(api *gin.RouterGroup) {
	floors := api.Group("/floors")
	{
		floors.GET("", h.listFloors)
		// multipart: "draft" JSON field, "image" file, optional widthMeters/heightMeters
		floors.POST("", h.createFloor)
		floors.POST("/validate", h.validateDraft)
		floors.GET("/:id", h.getFloor)
		floors.GET("/:id/draft", h.floorDraft)
		floors.PUT("/:id", h.updateFloor)
		floors.DELETE("/:id", h.deleteFloor)
		floors.POST("/:id/select", h.selectFloor)
		floors.PATCH("/:id/status", h.setFloorStatus)
		floors.PATCH("/:id/cameras/:cameraId/status", h.setCameraStatus)
		floors.PATCH("/:id/screens/:screenId/status", h.setScreenStatus)
	}
}

func (h *Handler) registerRouteRoutes(api *gin.RouterGroup) {
	routes := api.Group("/routes/:floorId")
	{
		routes.GET("/history", h.routeHistory)
		routes.GET("/latest", h.latestRoutes)
		routes.POST("/compute", h.computeRoutes)
	}
}

func (h *Handler) registerRecordRoutes(api *gin.RouterGroup) {
	records := api.Group("/records")
	{
		records.GET("", h.listRecords)
		records.GET("/next", h.nextRecords)
		records.GET("/prev", h.prevRecords)
		records.GET("/alerts", h.fireAlerts)
	}
}

func (h *Handler) registerSystemRoutes(api *gin.RouterGroup) {
	api.GET("/system/health", h.systemHealth)

	settings := api.Group("/settings")
	{
		settings.GET("", h.getSettings)
		settings.PUT("", h.updateSettings)
		settings.POST("/sync", h.triggerSync)
	}
}
