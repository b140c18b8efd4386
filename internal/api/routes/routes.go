// Package routes wires the HTTP surface: REST handlers, the realtime socket,
// health and metrics.
package routes

import (
	"net/http"
	"time"
	"yardops/config"
	"yardops/internal/api/handlers"
	"yardops/internal/api/middleware"
	"yardops/internal/archive"
	"yardops/internal/core"
	"yardops/internal/socket"
	"yardops/pkg/domain"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators the router hands to handlers.
type Deps struct {
	Service  *core.Service
	Archive  *archive.Archiver
	Hub      *socket.Hub
	Registry *prometheus.Registry
	Log      *zap.Logger
}

// SetupRouter builds the gin engine for cfg.
func SetupRouter(cfg config.Config, deps Deps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), cors.New(corsConfig(cfg.Server.AllowOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	h := &handlers.Handler{Svc: deps.Service, Archive: deps.Archive, Log: log}

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.Authenticate(cfg.Auth.Secret, cfg.Auth.Issuer))
	{
		if deps.Hub != nil {
			apiV1.GET("/ws", gin.WrapH(deps.Hub))
		}

		for _, kind := range domain.AllKinds() {
			g := apiV1.Group("/" + string(kind))
			g.GET("", h.List(kind))
			g.GET("/:id", h.Get(kind))
			g.DELETE("/:id", h.Delete(kind))
		}

		bookings := apiV1.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("/open", h.OpenBookings)
			bookings.PATCH("/:id", h.UpdateBooking)
			bookings.GET("/:id/progress", h.BookingProgress)
		}

		collections := apiV1.Group("/collections")
		{
			collections.POST("", h.CreateCollection)
			collections.POST("/validate", h.ValidateCollection)
			collections.POST("/:id/collect", h.Collect)
			collections.GET("/:id/progress", h.CollectionProgress)
		}

		containers := apiV1.Group("/containers")
		{
			containers.POST("", h.CreateContainer)
			containers.PATCH("/:id", h.UpdateContainer)
			containers.GET("/:id/actions", h.ContainerActions)
			containers.POST("/:id/actions", h.ApplyAction)
		}

		apiV1.POST("/drivers", h.CreateDriver)
		apiV1.PUT("/drivers/:id", h.UpdateDriver)
		apiV1.POST("/chassis", h.CreateChassis)
		apiV1.PUT("/chassis/:id", h.UpdateChassis)
		apiV1.POST("/locations", h.CreateLocation)
		apiV1.PUT("/locations/:id", h.UpdateLocation)
		apiV1.POST("/statuses", h.CreateStatus)
		apiV1.PUT("/statuses/:id", h.UpdateStatus)
		apiV1.POST("/containerTypes", h.CreateContainerType)
		apiV1.PUT("/containerTypes/:id", h.UpdateContainerType)

		apiV1.GET("/destinations", h.Destinations)
		apiV1.GET("/undo", h.LastDeleted)
		apiV1.POST("/undo", h.Undo)

		reports := apiV1.Group("/reports")
		{
			reports.GET("/kpis", h.KPIs)
			reports.GET("/locations", h.Locations)
			reports.GET("/driver-tasks", h.DriverTasks)
			reports.GET("/operator-queue", h.OperatorQueue)
			reports.GET("/turnaround", h.Turnaround)
			reports.GET("/performance", h.Performance)
			reports.POST("/export", h.ExportReport)
			reports.GET("/archive", h.ArchivedReports)
			reports.GET("/archive/report", h.ArchivedReport)
		}
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
