// README: Built-in matching policies (nearest driver, highest rated driver).
package matching

import (
	"math"

	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

// Nearest picks the eligible driver closest to the pickup point. Ties keep the
// first candidate seen.
type Nearest struct{}

func (Nearest) Name() string { return "Nearest Driver Strategy" }

func (Nearest) Select(candidates []fleet.Driver, r ride.Ride) (types.ID, bool) {
	var best types.ID
	minDistance := math.MaxFloat64
	for _, d := range Eligible(candidates, r.VehicleClass) {
		dist := d.Profile.Location.DistanceKm(r.Pickup)
		if dist < minDistance {
			minDistance = dist
			best = d.ID
		}
	}
	return best, best != ""
}

// HighestRated picks the eligible driver with the greatest rating. Ties keep the
// earliest candidate. The running best starts at zero, so a driver rated exactly
// 0 is never selected.
type HighestRated struct{}

func (HighestRated) Name() string { return "Highest Rated Driver Strategy" }

func (HighestRated) Select(candidates []fleet.Driver, r ride.Ride) (types.ID, bool) {
	var best types.ID
	highest := 0.0
	for _, d := range Eligible(candidates, r.VehicleClass) {
		if d.Rating > highest {
			highest = d.Rating
			best = d.ID
		}
	}
	return best, best != ""
}
