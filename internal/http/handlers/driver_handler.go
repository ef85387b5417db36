// README: Driver handlers for registration, availability and location.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/modules/dispatch"
	"rideshare/internal/modules/fleet"
	"rideshare/internal/types"
)

type DriverHandler struct {
	dispatch *dispatch.Service
}

func NewDriverHandler(svc *dispatch.Service) *DriverHandler {
	return &DriverHandler{dispatch: svc}
}

type registerDriverReq struct {
	ID           string   `json:"driver_id"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	Location     pointReq `json:"location"`
	Rating       *float64 `json:"rating"`
	VehicleClass string   `json:"vehicle_class"`
	VehicleID    string   `json:"vehicle_id"`
	Plate        string   `json:"plate"`
}

func (h *DriverHandler) Register(c *gin.Context) {
	var req registerDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.ID) {
		writeError(c, http.StatusBadRequest, "invalid driver_id")
		return
	}
	class, err := fleet.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	d, err := h.dispatch.RegisterDriver(c.Request.Context(), dispatch.RegisterDriverCommand{
		ID:           types.ID(req.ID),
		Name:         req.Name,
		Phone:        req.Phone,
		Location:     req.Location.point(),
		Rating:       req.Rating,
		VehicleClass: class,
		VehicleID:    types.ID(req.VehicleID),
		Plate:        req.Plate,
	})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toDriverResponse(d))
}

func (h *DriverHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	d, err := h.dispatch.Driver(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverResponse(d))
}

type driverStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *DriverHandler) SetStatus(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	var req driverStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "missing status")
		return
	}
	ctx := c.Request.Context()
	if err := h.dispatch.SetDriverStatus(ctx, types.ID(id), fleet.DriverStatus(req.Status)); err != nil {
		writeDispatchError(c, err)
		return
	}
	d, err := h.dispatch.Driver(ctx, types.ID(id))
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverResponse(d))
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	var req pointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid location")
		return
	}
	if err := h.dispatch.UpdateDriverLocation(c.Request.Context(), types.ID(id), req.point()); err != nil {
		writeDispatchError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
