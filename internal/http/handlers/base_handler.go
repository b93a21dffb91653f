// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripease/internal/maps"
	"tripease/internal/modules/booking"
	"tripease/internal/modules/dispatch"
	"tripease/internal/modules/pricing"
	"tripease/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeBookingError maps core error kinds onto HTTP statuses. Conflict
// outcomes are 409 across the board so retrying clients can treat them
// as "already done".
func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrBadRequest),
		errors.Is(err, dispatch.ErrBadRequest),
		errors.Is(err, pricing.ErrInvalidClass),
		errors.Is(err, pricing.ErrInvalidMetrics):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrAlreadyClaimed),
		errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrNotAssignedDriver),
		errors.Is(err, booking.ErrNotAllowed):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrQuoteUnavailable),
		errors.Is(err, maps.ErrRouteUnavailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// stopPayload is the wire form of one end of a trip.
type stopPayload struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (p stopPayload) toStop() booking.Stop {
	return booking.Stop{
		Address:  p.Address,
		Position: types.Point{Lat: p.Lat, Lng: p.Lng},
	}
}

// bookingPayload is the standard success envelope for a booking entity.
func bookingPayload(b *booking.Booking) gin.H {
	out := gin.H{
		"booking_id":    b.ID,
		"rider_id":      b.RiderID,
		"status":        b.Status,
		"pickup":        b.Pickup,
		"destination":   b.Destination,
		"distance_km":   b.DistanceKm,
		"duration_min":  b.DurationMin,
		"vehicle_class": b.VehicleClass,
		"fare":          b.Fare,
		"created_at":    b.CreatedAt,
	}
	if b.DriverID != nil {
		out["driver_id"] = *b.DriverID
	}
	return out
}
