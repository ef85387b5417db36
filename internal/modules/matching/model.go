// README: Matching policy contract and the candidate eligibility filter.
package matching

import (
	"errors"
	"fmt"

	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

var ErrUnknownPolicy = errors.New("unknown matching policy")

const (
	PolicyNearest      = "nearest"
	PolicyHighestRated = "highest_rated"
)

// Policy selects at most one driver for a ride. Candidates arrive in registry
// order; policies must not mutate them.
type Policy interface {
	Name() string
	Select(candidates []fleet.Driver, r ride.Ride) (types.ID, bool)
}

// Eligible keeps available candidates whose vehicle class equals the requested
// class, preserving order.
func Eligible(candidates []fleet.Driver, class fleet.VehicleClass) []fleet.Driver {
	var out []fleet.Driver
	for _, d := range candidates {
		if !d.IsAvailable() || d.Vehicle.Class != class {
			continue
		}
		out = append(out, d)
	}
	return out
}

func ByName(name string) (Policy, error) {
	switch name {
	case PolicyNearest:
		return Nearest{}, nil
	case PolicyHighestRated:
		return HighestRated{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}
