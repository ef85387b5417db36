// README: Rider handlers for registration and lookup.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/modules/dispatch"
	"rideshare/internal/types"
)

type RiderHandler struct {
	dispatch *dispatch.Service
}

func NewRiderHandler(svc *dispatch.Service) *RiderHandler {
	return &RiderHandler{dispatch: svc}
}

type registerRiderReq struct {
	ID       string   `json:"rider_id"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Location pointReq `json:"location"`
	Rating   *float64 `json:"rating"`
}

func (h *RiderHandler) Register(c *gin.Context) {
	var req registerRiderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.ID) {
		writeError(c, http.StatusBadRequest, "invalid rider_id")
		return
	}
	rider, err := h.dispatch.RegisterRider(c.Request.Context(), dispatch.RegisterRiderCommand{
		ID:       types.ID(req.ID),
		Name:     req.Name,
		Phone:    req.Phone,
		Location: req.Location.point(),
		Rating:   req.Rating,
	})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toRiderResponse(rider))
}

func (h *RiderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	rider, err := h.dispatch.Rider(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRiderResponse(rider))
}
