// README: Base handler utilities (JSON helpers, error mapping, response shapes).
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/modules/dispatch"
	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/pricing"
	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts letters, digits, '_' and '-' up to 64 characters.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '-' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDispatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dispatch.ErrBadRequest),
		errors.Is(err, fleet.ErrInvalidRating),
		errors.Is(err, fleet.ErrUnknownVehicleClass),
		errors.Is(err, matching.ErrUnknownPolicy),
		errors.Is(err, pricing.ErrInvalidAdjustment):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrRiderNotFound),
		errors.Is(err, dispatch.ErrDriverNotFound),
		errors.Is(err, dispatch.ErrRideNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrNoMatch),
		errors.Is(err, dispatch.ErrInvalidState),
		errors.Is(err, dispatch.ErrDriverBusy),
		errors.Is(err, dispatch.ErrDuplicateID):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type pointReq struct {
	Lat   float64 `json:"lat" binding:"min=-90,max=90"`
	Lng   float64 `json:"lng" binding:"min=-180,max=180"`
	Label string  `json:"label"`
}

func (p pointReq) point() types.Point {
	return types.Point{Lat: p.Lat, Lng: p.Lng, Label: p.Label}
}

type rideResponse struct {
	ID           types.ID    `json:"ride_id"`
	RiderID      types.ID    `json:"rider_id"`
	DriverID     types.ID    `json:"driver_id,omitempty"`
	Pickup       types.Point `json:"pickup"`
	Dropoff      types.Point `json:"dropoff"`
	VehicleClass string      `json:"vehicle_class"`
	Category     string      `json:"category"`
	Status       ride.Status `json:"status"`
	StatusLabel  string      `json:"status_label"`
	Fare         float64     `json:"fare"`
	DistanceKm   float64     `json:"distance_km"`
	RequestedAt  time.Time   `json:"requested_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CancelledAt  *time.Time  `json:"cancelled_at,omitempty"`
	CancelReason string      `json:"cancel_reason,omitempty"`
}

func toRideResponse(r ride.Ride) rideResponse {
	return rideResponse{
		ID:           r.ID,
		RiderID:      r.RiderID,
		DriverID:     r.DriverID,
		Pickup:       r.Pickup,
		Dropoff:      r.Dropoff,
		VehicleClass: string(r.VehicleClass),
		Category:     string(r.Category),
		Status:       r.Status,
		StatusLabel:  r.Status.Label(),
		Fare:         r.Fare,
		DistanceKm:   r.DistanceKm(),
		RequestedAt:  r.RequestedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		CancelledAt:  r.CancelledAt,
		CancelReason: r.CancelReason,
	}
}

type vehicleResponse struct {
	ID           types.ID `json:"vehicle_id"`
	Plate        string   `json:"plate,omitempty"`
	Class        string   `json:"class"`
	Label        string   `json:"label"`
	Capacity     int      `json:"capacity"`
	BaseFareRate float64  `json:"base_fare_rate"`
}

type driverResponse struct {
	ID       types.ID           `json:"driver_id"`
	Name     string             `json:"name"`
	Phone    string             `json:"phone,omitempty"`
	Location types.Point        `json:"location"`
	Rating   float64            `json:"rating"`
	Status   fleet.DriverStatus `json:"status"`
	Vehicle  vehicleResponse    `json:"vehicle"`
	History  []types.ID         `json:"history"`
}

func toDriverResponse(d fleet.Driver) driverResponse {
	return driverResponse{
		ID:       d.ID,
		Name:     d.Profile.Name,
		Phone:    d.Profile.Phone,
		Location: d.Profile.Location,
		Rating:   d.Rating,
		Status:   d.Status,
		Vehicle: vehicleResponse{
			ID:           d.Vehicle.ID,
			Plate:        d.Vehicle.Plate,
			Class:        string(d.Vehicle.Class),
			Label:        d.Vehicle.Class.Label(),
			Capacity:     d.Vehicle.Capacity,
			BaseFareRate: d.Vehicle.BaseFareRate,
		},
		History: nonNil(d.History),
	}
}

type riderResponse struct {
	ID       types.ID    `json:"rider_id"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone,omitempty"`
	Location types.Point `json:"location"`
	Rating   float64     `json:"rating"`
	History  []types.ID  `json:"history"`
}

func toRiderResponse(r fleet.Rider) riderResponse {
	return riderResponse{
		ID:       r.ID,
		Name:     r.Profile.Name,
		Phone:    r.Profile.Phone,
		Location: r.Profile.Location,
		Rating:   r.Rating,
		History:  nonNil(r.History),
	}
}

func nonNil(ids []types.ID) []types.ID {
	if ids == nil {
		return []types.ID{}
	}
	return ids
}
