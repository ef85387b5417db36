// README: Ride handlers for request, lookup and lifecycle actions.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/modules/dispatch"
	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

type RideHandler struct {
	dispatch *dispatch.Service
}

func NewRideHandler(svc *dispatch.Service) *RideHandler {
	return &RideHandler{dispatch: svc}
}

type requestRideReq struct {
	RiderID      string   `json:"rider_id"`
	Pickup       pointReq `json:"pickup"`
	Dropoff      pointReq `json:"dropoff"`
	VehicleClass string   `json:"vehicle_class"`
	Category     string   `json:"category"`
}

func (h *RideHandler) Request(c *gin.Context) {
	var req requestRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.RiderID) {
		writeError(c, http.StatusBadRequest, "invalid rider_id")
		return
	}
	class, err := fleet.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	category, err := ride.ParseCategory(req.Category)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := h.dispatch.RequestRide(c.Request.Context(), dispatch.RequestRideCommand{
		RiderID:      types.ID(req.RiderID),
		Pickup:       req.Pickup.point(),
		Dropoff:      req.Dropoff.point(),
		VehicleClass: class,
		Category:     category,
	})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toRideResponse(r))
}

func (h *RideHandler) List(c *gin.Context) {
	rides := h.dispatch.ListRides(c.Request.Context())
	out := make([]rideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	writeJSON(c, http.StatusOK, map[string]any{"rides": out})
}

func (h *RideHandler) Get(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	r, err := h.dispatch.GetRide(c.Request.Context(), id)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideResponse(r))
}

func (h *RideHandler) Start(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	r, err := h.dispatch.StartRide(c.Request.Context(), id)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideResponse(r))
}

func (h *RideHandler) Complete(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	r, err := h.dispatch.CompleteRide(c.Request.Context(), id)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideResponse(r))
}

type cancelRideReq struct {
	Reason string `json:"reason"`
}

func (h *RideHandler) Cancel(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	var req cancelRideReq
	// body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "user_cancel"
	}
	r, err := h.dispatch.CancelRide(c.Request.Context(), dispatch.CancelRideCommand{RideID: id, Reason: req.Reason})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRideResponse(r))
}

func rideID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return "", false
	}
	return types.ID(id), true
}
