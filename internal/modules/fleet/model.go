// README: Fleet records (vehicles, drivers, riders) and their status definitions.
package fleet

import (
	"errors"
	"fmt"
	"strings"

	"rideshare/internal/types"
)

var (
	ErrUnknownVehicleClass = errors.New("unknown vehicle class")
	ErrInvalidRating       = errors.New("rating out of range")
)

const (
	MinRating = 0.0
	MaxRating = 5.0
	// DefaultRating is used when a driver or rider registers without one.
	DefaultRating = 5.0
)

type VehicleClass string

const (
	VehicleBike  VehicleClass = "bike"
	VehicleSedan VehicleClass = "sedan"
	VehicleSUV   VehicleClass = "suv"
	VehicleAuto  VehicleClass = "auto"
)

func ParseVehicleClass(s string) (VehicleClass, error) {
	c := VehicleClass(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := vehicleSpecs[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVehicleClass, s)
	}
	return c, nil
}

// Label is the display name of the class.
func (c VehicleClass) Label() string {
	if spec, ok := vehicleSpecs[c]; ok {
		return spec.label
	}
	return string(c)
}

type vehicleSpec struct {
	label        string
	capacity     int
	baseFareRate float64
}

var vehicleSpecs = map[VehicleClass]vehicleSpec{
	VehicleBike:  {label: "Bike", capacity: 1, baseFareRate: 8.0},
	VehicleSedan: {label: "Sedan", capacity: 4, baseFareRate: 12.0},
	VehicleSUV:   {label: "SUV", capacity: 6, baseFareRate: 18.0},
	VehicleAuto:  {label: "Auto-Rickshaw", capacity: 3, baseFareRate: 6.0},
}

// Vehicle is immutable once built by NewVehicle.
type Vehicle struct {
	ID           types.ID
	Plate        string
	Class        VehicleClass
	Capacity     int
	BaseFareRate float64
}

// NewVehicle builds a vehicle with the capacity and fare rate of its class.
func NewVehicle(class VehicleClass, id types.ID, plate string) (Vehicle, error) {
	spec, ok := vehicleSpecs[class]
	if !ok {
		return Vehicle{}, fmt.Errorf("%w: %q", ErrUnknownVehicleClass, class)
	}
	return Vehicle{
		ID:           id,
		Plate:        plate,
		Class:        class,
		Capacity:     spec.capacity,
		BaseFareRate: spec.baseFareRate,
	}, nil
}

type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverOnTrip    DriverStatus = "on_trip"
	DriverOffline   DriverStatus = "offline"
)

func ParseDriverStatus(s string) (DriverStatus, error) {
	switch st := DriverStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case DriverAvailable, DriverOnTrip, DriverOffline:
		return st, nil
	}
	return "", fmt.Errorf("unknown driver status %q", s)
}

type Profile struct {
	Name     string
	Phone    string
	Location types.Point
}

type Driver struct {
	ID      types.ID
	Profile Profile
	Rating  float64
	Status  DriverStatus
	Vehicle Vehicle
	History []types.ID
}

func (d *Driver) IsAvailable() bool { return d.Status == DriverAvailable }

type Rider struct {
	ID      types.ID
	Profile Profile
	Rating  float64
	History []types.ID
}

func validateRating(r float64) error {
	if r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: %.2f not in [%.0f, %.0f]", ErrInvalidRating, r, MinRating, MaxRating)
	}
	return nil
}
