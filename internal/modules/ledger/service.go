// README: Adapts the receipt store to the notification fan-out.
package ledger

import (
	"context"

	"rideshare/internal/modules/notify"
)

type appender interface {
	Append(ctx context.Context, r Receipt) error
}

// Sink writes a receipt for every payment_completed event and ignores the rest.
type Sink struct {
	notify.SinkFuncs
}

func NewSink(store appender) *Sink {
	return &Sink{SinkFuncs: notify.SinkFuncs{
		PaymentCompleted: func(ctx context.Context, e notify.Event) error {
			return store.Append(ctx, ReceiptOf(e))
		},
	}}
}

func ReceiptOf(e notify.Event) Receipt {
	r := e.Ride
	completedAt := e.At
	if r.CompletedAt != nil {
		completedAt = *r.CompletedAt
	}
	return Receipt{
		RideID:          r.ID,
		RiderID:         r.RiderID,
		DriverID:        r.DriverID,
		VehicleClass:    r.VehicleClass,
		DistanceKm:      r.DistanceKm(),
		Fare:            r.Fare,
		FareDescription: e.FareDescription,
		CompletedAt:     completedAt,
	}
}
