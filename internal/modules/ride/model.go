// README: Ride aggregate, status definitions and the lifecycle transition table.
package ride

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rideshare/internal/modules/fleet"
	"rideshare/internal/types"
)

var ErrInvalidState = errors.New("invalid state transition")

type Status string

const (
	StatusRequested      Status = "requested"
	StatusDriverAssigned Status = "driver_assigned"
	StatusDriverEnRoute  Status = "driver_en_route"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

var statusLabels = map[Status]string{
	StatusRequested:      "Requested",
	StatusDriverAssigned: "Driver Assigned",
	StatusDriverEnRoute:  "Driver En Route",
	StatusInProgress:     "In Progress",
	StatusCompleted:      "Completed",
	StatusCancelled:      "Cancelled",
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Category string

const (
	CategoryNormal Category = "normal"
	CategoryPooled Category = "pooled"
)

func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CategoryNormal, nil
	case CategoryNormal, CategoryPooled:
		return c, nil
	}
	return "", fmt.Errorf("unknown ride category %q", s)
}

// AllowedTransitions represents the ride state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusRequested:      {StatusDriverAssigned, StatusCancelled},
	StatusDriverAssigned: {StatusDriverEnRoute, StatusCancelled},
	StatusDriverEnRoute:  {StatusInProgress, StatusCancelled},
	StatusInProgress:     {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Ride is one trip from pickup to dropoff. DriverID is empty until a driver is assigned.
type Ride struct {
	ID           types.ID
	RiderID      types.ID
	DriverID     types.ID
	Pickup       types.Point
	Dropoff      types.Point
	VehicleClass fleet.VehicleClass
	Category     Category
	Status       Status
	Fare         float64
	RequestedAt  time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

func New(id, riderID types.ID, pickup, dropoff types.Point, class fleet.VehicleClass, category Category, now time.Time) *Ride {
	if category == "" {
		category = CategoryNormal
	}
	return &Ride{
		ID:           id,
		RiderID:      riderID,
		Pickup:       pickup,
		Dropoff:      dropoff,
		VehicleClass: class,
		Category:     category,
		Status:       StatusRequested,
		RequestedAt:  now,
	}
}

// Clone returns a copy that shares no memory with r.
func (r *Ride) Clone() Ride {
	cp := *r
	cp.StartedAt = cloneTime(r.StartedAt)
	cp.CompletedAt = cloneTime(r.CompletedAt)
	cp.CancelledAt = cloneTime(r.CancelledAt)
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (r *Ride) DistanceKm() float64 { return r.Pickup.DistanceKm(r.Dropoff) }

func (r *Ride) HasDriver() bool { return r.DriverID != "" }

func (r *Ride) IsActive() bool { return !r.Status.Terminal() }

func (r *Ride) AssignDriver(driverID types.ID) error {
	if driverID == "" {
		return fmt.Errorf("%w: empty driver id", ErrInvalidState)
	}
	if err := r.transition(StatusDriverAssigned); err != nil {
		return err
	}
	r.DriverID = driverID
	return nil
}

// MarkEnRoute records that the driver is heading to the pickup.
func (r *Ride) MarkEnRoute() error {
	return r.transition(StatusDriverEnRoute)
}

func (r *Ride) Begin(now time.Time) error {
	if err := r.transition(StatusInProgress); err != nil {
		return err
	}
	r.StartedAt = &now
	return nil
}

func (r *Ride) Complete(now time.Time, fare float64) error {
	if fare < 0 {
		return fmt.Errorf("%w: negative fare %.2f", ErrInvalidState, fare)
	}
	if err := r.transition(StatusCompleted); err != nil {
		return err
	}
	r.CompletedAt = &now
	r.Fare = fare
	return nil
}

func (r *Ride) Cancel(now time.Time, reason string) error {
	if err := r.transition(StatusCancelled); err != nil {
		return err
	}
	r.CancelledAt = &now
	r.CancelReason = reason
	return nil
}

func (r *Ride) transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, r.Status, to)
	}
	r.Status = to
	return nil
}
