// README: Rider-facing booking handlers: request, get, cancel, history.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripease/internal/http/middleware"
	"tripease/internal/modules/booking"
	"tripease/internal/modules/pricing"
	"tripease/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{bookings: svc}
}

type requestRideReq struct {
	RiderID      string      `json:"rider_id"`
	Pickup       stopPayload `json:"pickup"`
	Destination  stopPayload `json:"destination"`
	VehicleClass string      `json:"vehicle_class"`
}

func (h *BookingHandler) RequestRide(c *gin.Context) {
	var req requestRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	uid := middleware.CallerUID(c)
	if req.RiderID != "" && req.RiderID != uid {
		writeError(c, http.StatusForbidden, "rider_id does not match caller")
		return
	}
	if req.VehicleClass == "" {
		writeError(c, http.StatusBadRequest, "missing vehicle_class")
		return
	}

	b, err := h.bookings.RequestRide(c.Request.Context(), booking.RequestCommand{
		RiderID:      types.ID(uid),
		Pickup:       req.Pickup.toStop(),
		Destination:  req.Destination.toStop(),
		VehicleClass: pricing.VehicleClass(req.VehicleClass),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, bookingPayload(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingPayload(b))
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	err := h.bookings.Cancel(c.Request.Context(), booking.CancelCommand{
		BookingID: types.ID(id),
		ActorType: "rider",
		ActorID:   types.ID(middleware.CallerUID(c)),
		Reason:    "user_cancel",
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": booking.StatusCancelled})
}

func (h *BookingHandler) History(c *gin.Context) {
	uid := middleware.CallerUID(c)
	list, err := h.bookings.RiderHistory(c.Request.Context(), types.ID(uid))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, bookingPayload(&list[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": out})
}
