// README: Fare estimate handler: route metrics + quotes for every class.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripease/internal/maps"
	"tripease/internal/modules/pricing"
	"tripease/internal/types"
)

// RouteEstimator is the routing collaborator used for rider-facing estimates.
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination types.Point) (maps.RouteEstimate, error)
}

type FareHandler struct {
	pricing *pricing.Service
	routes  RouteEstimator
}

func NewFareHandler(pricingSvc *pricing.Service, routes RouteEstimator) *FareHandler {
	return &FareHandler{pricing: pricingSvc, routes: routes}
}

type estimateReq struct {
	Pickup      stopPayload `json:"pickup"`
	Destination stopPayload `json:"destination"`
}

// Estimate returns the fare list the rider picks a class from.
func (h *FareHandler) Estimate(c *gin.Context) {
	var req estimateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	est, err := h.routes.Estimate(c.Request.Context(),
		types.Point{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		types.Point{Lat: req.Destination.Lat, Lng: req.Destination.Lng},
	)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	quotes, err := h.pricing.QuoteAll(est.DistanceKm, est.DurationMin)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, gin.H{
		"distance_km":  est.DistanceKm,
		"duration_min": est.DurationMin,
		"estimates":    quotes,
	})
}
