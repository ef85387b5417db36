// README: Lifecycle events and the sink contract used by the notification fan-out.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

type Kind string

const (
	KindStatusChanged    Kind = "status_changed"
	KindDriverAssigned   Kind = "driver_assigned"
	KindPaymentCompleted Kind = "payment_completed"
)

// Event is a snapshot of a ride at the moment something happened to it.
type Event struct {
	ID         uuid.UUID
	Kind       Kind
	Ride       ride.Ride
	DriverName string
	// FareDescription names the fare chain used; set on payment events only.
	FareDescription string
	At              time.Time
}

func NewEvent(kind Kind, r *ride.Ride, driverName string, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		Ride:       r.Clone(),
		DriverName: driverName,
		At:         at,
	}
}

// Sink reacts to ride lifecycle events. Sinks observe only; they never change
// ride or driver state.
type Sink interface {
	OnStatusChanged(ctx context.Context, e Event) error
	OnDriverAssigned(ctx context.Context, e Event) error
	OnPaymentCompleted(ctx context.Context, e Event) error
}

// SinkFuncs adapts plain functions to Sink. Nil fields are no-ops.
type SinkFuncs struct {
	StatusChanged    func(ctx context.Context, e Event) error
	DriverAssigned   func(ctx context.Context, e Event) error
	PaymentCompleted func(ctx context.Context, e Event) error
}

func (f SinkFuncs) OnStatusChanged(ctx context.Context, e Event) error {
	if f.StatusChanged == nil {
		return nil
	}
	return f.StatusChanged(ctx, e)
}

func (f SinkFuncs) OnDriverAssigned(ctx context.Context, e Event) error {
	if f.DriverAssigned == nil {
		return nil
	}
	return f.DriverAssigned(ctx, e)
}

func (f SinkFuncs) OnPaymentCompleted(ctx context.Context, e Event) error {
	if f.PaymentCompleted == nil {
		return nil
	}
	return f.PaymentCompleted(ctx, e)
}

// payload is the wire form of an Event for brokers (Redis, MQTT).
type payload struct {
	ID              string      `json:"id"`
	Kind            Kind        `json:"kind"`
	RideID          types.ID    `json:"ride_id"`
	RiderID         types.ID    `json:"rider_id"`
	DriverID        types.ID    `json:"driver_id,omitempty"`
	DriverName      string      `json:"driver_name,omitempty"`
	Status          ride.Status `json:"status"`
	VehicleClass    string      `json:"vehicle_class"`
	Category        string      `json:"category"`
	Fare            float64     `json:"fare,omitempty"`
	FareDescription string      `json:"fare_description,omitempty"`
	At              time.Time   `json:"at"`
}

func payloadOf(e Event) payload {
	return payload{
		ID:              e.ID.String(),
		Kind:            e.Kind,
		RideID:          e.Ride.ID,
		RiderID:         e.Ride.RiderID,
		DriverID:        e.Ride.DriverID,
		DriverName:      e.DriverName,
		Status:          e.Ride.Status,
		VehicleClass:    string(e.Ride.VehicleClass),
		Category:        string(e.Ride.Category),
		Fare:            e.Ride.Fare,
		FareDescription: e.FareDescription,
		At:              e.At,
	}
}
