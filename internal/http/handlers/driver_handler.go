// README: Driver-facing handlers: pending poll, claim, decline, start,
// complete, availability, history.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tripease/internal/http/middleware"
	"tripease/internal/modules/booking"
	"tripease/internal/modules/dispatch"
	"tripease/internal/modules/pricing"
	"tripease/internal/types"
)

type DriverHandler struct {
	bookings *booking.Service
	dispatch *dispatch.Service
}

func NewDriverHandler(bookingSvc *booking.Service, dispatchSvc *dispatch.Service) *DriverHandler {
	return &DriverHandler{bookings: bookingSvc, dispatch: dispatchSvc}
}

// requireDriver enforces the driver role claim; returns the driver id.
func requireDriver(c *gin.Context) (types.ID, bool) {
	if middleware.CallerRole(c) != "driver" {
		writeError(c, http.StatusForbidden, "driver role required")
		return "", false
	}
	return types.ID(middleware.CallerUID(c)), true
}

// ListPending is the polling endpoint drivers hit every few seconds.
// Optional query params: vehicle_class, lat, lng.
func (h *DriverHandler) ListPending(c *gin.Context) {
	driverID, ok := requireDriver(c)
	if !ok {
		return
	}

	q := dispatch.Query{
		DriverID:     driverID,
		VehicleClass: pricing.VehicleClass(c.Query("vehicle_class")),
	}
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" && lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			writeError(c, http.StatusBadRequest, "invalid lat/lng")
			return
		}
		q.Near = &types.Point{Lat: lat, Lng: lng}
	}

	list, err := h.dispatch.PendingFor(c.Request.Context(), q)
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

func (h *DriverHandler) Claim(c *gin.Context) {
	driverID, ok := requireDriver(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.bookings.Claim(c.Request.Context(), booking.ClaimCommand{
		BookingID: types.ID(id),
		DriverID:  driverID,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingPayload(b))
}

func (h *DriverHandler) Decline(c *gin.Context) {
	driverID, ok := requireDriver(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	if err := h.dispatch.Decline(c.Request.Context(), driverID, types.ID(id)); err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"declined": id})
}

func (h *DriverHandler) Start(c *gin.Context) {
	driverID, ok := requireDriver(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	err := h.bookings.Start(c.Request.Context(), booking.StartCommand{
		BookingID: types.ID(id),
		DriverID:  driverID,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": booking.StatusInProgress})
}

func (h *DriverHandler) Complete(c *gin.Context) {
	driverID, ok := requireDriver(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.bookings.Complete(c.Request.Context(), booking.CompleteCommand{
		BookingID: types.ID(id),
		DriverID:  driverID,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	// The fare returned is the one captured at creation.
	writeJSON(c, http.StatusOK, bookingPayload(b))
}

type availabilityReq struct {
	Online bool    `json:"online"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	driverID, ok := requireDriver(c)
	if !ok {
		return
	}
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.dispatch.SetAvailability(c.Request.Context(), driverID, req.Online, types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"online": req.Online})
}

func (h *DriverHandler) History(c *gin.Context) {
	driverID, ok := requireDriver(c)
	if !ok {
		return
	}
	list, err := h.bookings.DriverHistory(c.Request.Context(), driverID)
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
