// README: In-memory registry of riders and drivers; owns the canonical records.
package fleet

import (
	"errors"
	"fmt"

	"rideshare/internal/types"
)

var (
	ErrRiderNotFound  = errors.New("rider not found")
	ErrDriverNotFound = errors.New("driver not found")
	ErrDuplicateID    = errors.New("duplicate id")
	ErrBadRequest     = errors.New("bad request")
)

// Registry is not safe for concurrent use; the dispatch service serializes access.
type Registry struct {
	riders      map[types.ID]*Rider
	drivers     map[types.ID]*Driver
	driverOrder []types.ID
}

func NewRegistry() *Registry {
	return &Registry{
		riders:  make(map[types.ID]*Rider),
		drivers: make(map[types.ID]*Driver),
	}
}

func (r *Registry) AddRider(rider Rider) error {
	if rider.ID == "" {
		return fmt.Errorf("%w: rider id is required", ErrBadRequest)
	}
	if err := validateRating(rider.Rating); err != nil {
		return err
	}
	if _, ok := r.riders[rider.ID]; ok {
		return fmt.Errorf("%w: rider %s", ErrDuplicateID, rider.ID)
	}
	rider.History = nil
	r.riders[rider.ID] = &rider
	return nil
}

// AddDriver registers a driver. Drivers keep registration order, which is the
// iteration order seen by matching policies.
func (r *Registry) AddDriver(d Driver) error {
	if d.ID == "" {
		return fmt.Errorf("%w: driver id is required", ErrBadRequest)
	}
	if err := validateRating(d.Rating); err != nil {
		return err
	}
	if _, ok := vehicleSpecs[d.Vehicle.Class]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVehicleClass, d.Vehicle.Class)
	}
	if _, ok := r.drivers[d.ID]; ok {
		return fmt.Errorf("%w: driver %s", ErrDuplicateID, d.ID)
	}
	if d.Status == "" {
		d.Status = DriverAvailable
	}
	d.History = nil
	r.drivers[d.ID] = &d
	r.driverOrder = append(r.driverOrder, d.ID)
	return nil
}

func (r *Registry) Rider(id types.ID) (*Rider, error) {
	rider, ok := r.riders[id]
	if !ok {
		return nil, ErrRiderNotFound
	}
	return rider, nil
}

func (r *Registry) Driver(id types.ID) (*Driver, error) {
	d, ok := r.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	return d, nil
}

// Drivers returns copies of every driver in registration order.
func (r *Registry) Drivers() []Driver {
	out := make([]Driver, 0, len(r.driverOrder))
	for _, id := range r.driverOrder {
		out = append(out, copyDriver(r.drivers[id]))
	}
	return out
}

// AvailableDrivers returns copies of available drivers of any vehicle class,
// in registration order.
func (r *Registry) AvailableDrivers() []Driver {
	var out []Driver
	for _, id := range r.driverOrder {
		if d := r.drivers[id]; d.IsAvailable() {
			out = append(out, copyDriver(d))
		}
	}
	return out
}

type Counts struct {
	Riders           int
	Drivers          int
	AvailableDrivers int
}

func (r *Registry) Counts() Counts {
	c := Counts{Riders: len(r.riders), Drivers: len(r.drivers)}
	for _, d := range r.drivers {
		if d.IsAvailable() {
			c.AvailableDrivers++
		}
	}
	return c
}

func copyDriver(d *Driver) Driver {
	cp := *d
	cp.History = append([]types.ID(nil), d.History...)
	return cp
}
