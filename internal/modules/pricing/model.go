// README: Fare inputs and the calculator contract.
package pricing

import (
	"errors"

	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/ride"
)

var ErrInvalidAdjustment = errors.New("invalid fare adjustment")

const (
	DefaultBaseFare  = 50.0
	DefaultPerKmRate = 10.0
)

// Trip carries what a calculator needs from a ride. A zero RateCoefficient
// means no vehicle is attached.
type Trip struct {
	DistanceKm      float64
	RateCoefficient float64
}

func TripOf(r ride.Ride, v *fleet.Vehicle) Trip {
	t := Trip{DistanceKm: r.DistanceKm()}
	if v != nil {
		t.RateCoefficient = v.BaseFareRate
	}
	return t
}

// Calculator computes a non-negative fare and describes how it got there.
type Calculator interface {
	Calculate(t Trip) float64
	Description() string
}

// Config describes a fare chain. Zero is a valid base fare or rate; start from
// DefaultConfig to get the default ones.
type Config struct {
	BaseFare  float64 `json:"base_fare"`
	PerKmRate float64 `json:"per_km_rate"`
	// Surge multiplies the fare when > 0.
	Surge float64 `json:"surge"`
	// Discount removes this fraction of the fare when > 0.
	Discount float64 `json:"discount"`
}

func DefaultConfig() Config {
	return Config{BaseFare: DefaultBaseFare, PerKmRate: DefaultPerKmRate}
}
