// README: Commands, errors and status report of the dispatch service.
package dispatch

import (
	"errors"

	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

var (
	ErrRideNotFound = errors.New("ride not found")
	ErrNoMatch      = errors.New("no driver available")
	ErrDriverBusy   = errors.New("driver is on a trip")

	ErrRiderNotFound  = fleet.ErrRiderNotFound
	ErrDriverNotFound = fleet.ErrDriverNotFound
	ErrDuplicateID    = fleet.ErrDuplicateID
	ErrBadRequest     = fleet.ErrBadRequest
	ErrInvalidState   = ride.ErrInvalidState
)

const RideIDPrefix = "RIDE_"

type RegisterRiderCommand struct {
	ID       types.ID
	Name     string
	Phone    string
	Location types.Point
	// Rating defaults to fleet.DefaultRating when nil.
	Rating *float64
}

type RegisterDriverCommand struct {
	ID           types.ID
	Name         string
	Phone        string
	Location     types.Point
	Rating       *float64
	VehicleClass fleet.VehicleClass
	VehicleID    types.ID
	Plate        string
}

type RequestRideCommand struct {
	RiderID      types.ID
	Pickup       types.Point
	Dropoff      types.Point
	VehicleClass fleet.VehicleClass
	Category     ride.Category
}

type CancelRideCommand struct {
	RideID types.ID
	Reason string
}

type SystemStatus struct {
	Riders           int    `json:"riders"`
	Drivers          int    `json:"drivers"`
	AvailableDrivers int    `json:"available_drivers"`
	Rides            int    `json:"rides"`
	ActiveRides      int    `json:"active_rides"`
	MatchingPolicy   string `json:"matching_policy"`
	FareDescription  string `json:"fare_description"`
}

func ratingOrDefault(r *float64) float64 {
	if r == nil {
		return fleet.DefaultRating
	}
	return *r
}
