// README: Dispatch handlers for policy switching and the status report.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/modules/dispatch"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/pricing"
)

type DispatchHandler struct {
	dispatch *dispatch.Service
}

func NewDispatchHandler(svc *dispatch.Service) *DispatchHandler {
	return &DispatchHandler{dispatch: svc}
}

type matchingReq struct {
	Policy string `json:"policy" binding:"required"`
}

func (h *DispatchHandler) SetMatching(c *gin.Context) {
	var req matchingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "missing policy")
		return
	}
	p, err := matching.ByName(req.Policy)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	if err := h.dispatch.SetMatchingPolicy(p); err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.dispatch.Status(c.Request.Context()))
}

func (h *DispatchHandler) SetFare(c *gin.Context) {
	// omitted fields keep their defaults; an explicit 0 is kept
	req := pricing.DefaultConfig()
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	chain, err := pricing.FromConfig(req)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	if err := h.dispatch.SetFareCalculator(chain); err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.dispatch.Status(c.Request.Context()))
}

type statusResponse struct {
	dispatch.SystemStatus
	Sinks []string `json:"sinks"`
}

func (h *DispatchHandler) Status(c *gin.Context) {
	resp := statusResponse{
		SystemStatus: h.dispatch.Status(c.Request.Context()),
		Sinks:        h.dispatch.Sinks(),
	}
	if resp.Sinks == nil {
		resp.Sinks = []string{}
	}
	writeJSON(c, http.StatusOK, resp)
}
