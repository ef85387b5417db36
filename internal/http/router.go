// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/http/handlers"
	"rideshare/internal/http/middleware"
	"rideshare/internal/logger"
	"rideshare/internal/modules/dispatch"
)

// NewRouter wires the API routes. metrics may be nil to disable /metrics.
// extra middleware runs after recovery and logging.
func NewRouter(svc *dispatch.Service, log logger.Logger, metrics http.Handler, extra ...gin.HandlerFunc) *gin.Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))
	r.Use(extra...)

	api := r.Group("/api")

	riderHandler := handlers.NewRiderHandler(svc)
	api.POST("/riders", riderHandler.Register)
	api.GET("/riders/:id", riderHandler.Get)

	driverHandler := handlers.NewDriverHandler(svc)
	api.POST("/drivers", driverHandler.Register)
	api.GET("/drivers/:id", driverHandler.Get)
	api.PUT("/drivers/:id/status", driverHandler.SetStatus)
	api.PUT("/drivers/:id/location", driverHandler.UpdateLocation)

	rideHandler := handlers.NewRideHandler(svc)
	api.POST("/rides", rideHandler.Request)
	api.GET("/rides", rideHandler.List)
	api.GET("/rides/:id", rideHandler.Get)
	api.POST("/rides/:id/start", rideHandler.Start)
	api.POST("/rides/:id/complete", rideHandler.Complete)
	api.POST("/rides/:id/cancel", rideHandler.Cancel)

	dispatchHandler := handlers.NewDispatchHandler(svc)
	api.PUT("/dispatch/matching", dispatchHandler.SetMatching)
	api.PUT("/dispatch/fare", dispatchHandler.SetFare)
	api.GET("/dispatch/status", dispatchHandler.Status)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	return r
}
