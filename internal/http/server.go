// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripease/internal/http/handlers"
	"tripease/internal/http/middleware"
	"tripease/internal/infra"
	"tripease/internal/modules/booking"
	"tripease/internal/modules/dispatch"
	"tripease/internal/modules/pricing"
)

type ServerDeps struct {
	Bookings *booking.Service
	Dispatch *dispatch.Service
	Pricing  *pricing.Service
	Routes   handlers.RouteEstimator
	Verifier infra.TokenVerifier
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(s.deps.Verifier))

	fareHandler := handlers.NewFareHandler(s.deps.Pricing, s.deps.Routes)
	api.POST("/fares/estimate", fareHandler.Estimate)

	bookingHandler := handlers.NewBookingHandler(s.deps.Bookings)
	api.POST("/bookings", bookingHandler.RequestRide)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	api.GET("/passengers/bookings", bookingHandler.History)

	driverHandler := handlers.NewDriverHandler(s.deps.Bookings, s.deps.Dispatch)
	api.GET("/drivers/bookings/pending", driverHandler.ListPending)
	api.POST("/drivers/bookings/:id/claim", driverHandler.Claim)
	api.POST("/drivers/bookings/:id/decline", driverHandler.Decline)
	api.POST("/drivers/bookings/:id/start", driverHandler.Start)
	api.POST("/drivers/bookings/:id/complete", driverHandler.Complete)
	api.PUT("/drivers/availability", driverHandler.SetAvailability)
	api.GET("/drivers/bookings", driverHandler.History)

	return r
}
