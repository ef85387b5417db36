// README: Receipt log of completed rides.
package ledger

import (
	"errors"
	"time"

	"rideshare/internal/modules/fleet"
	"rideshare/internal/types"
)

var ErrIncompleteReceipt = errors.New("receipt requires a completed ride with driver")

type Receipt struct {
	RideID          types.ID           `json:"ride_id"`
	RiderID         types.ID           `json:"rider_id"`
	DriverID        types.ID           `json:"driver_id"`
	VehicleClass    fleet.VehicleClass `json:"vehicle_class"`
	DistanceKm      float64            `json:"distance_km"`
	Fare            float64            `json:"fare"`
	FareDescription string             `json:"fare_description"`
	CompletedAt     time.Time          `json:"completed_at"`
}

func (r Receipt) validate() error {
	if r.RideID == "" || r.RiderID == "" || r.DriverID == "" || r.CompletedAt.IsZero() {
		return ErrIncompleteReceipt
	}
	return nil
}
