// README: Console notifiers addressed to riders and drivers.
package notify

import (
	"context"
	"fmt"
	"io"
)

// RiderNotifier writes rider-facing messages to w.
type RiderNotifier struct {
	w io.Writer
}

func NewRiderNotifier(w io.Writer) *RiderNotifier { return &RiderNotifier{w: w} }

func (n *RiderNotifier) OnStatusChanged(_ context.Context, e Event) error {
	_, err := fmt.Fprintf(n.w, "[RIDER NOTIFICATION] Ride %s status changed to: %s\n", e.Ride.ID, e.Ride.Status.Label())
	return err
}

func (n *RiderNotifier) OnDriverAssigned(_ context.Context, e Event) error {
	_, err := fmt.Fprintf(n.w, "[RIDER NOTIFICATION] Driver %s has been assigned to your ride %s\n", e.DriverName, e.Ride.ID)
	return err
}

func (n *RiderNotifier) OnPaymentCompleted(_ context.Context, e Event) error {
	_, err := fmt.Fprintf(n.w, "[RIDER NOTIFICATION] Payment of $%.2f completed for ride %s\n", e.Ride.Fare, e.Ride.ID)
	return err
}

// DriverNotifier writes driver-facing messages to w.
type DriverNotifier struct {
	w io.Writer
}

func NewDriverNotifier(w io.Writer) *DriverNotifier { return &DriverNotifier{w: w} }

func (n *DriverNotifier) OnStatusChanged(_ context.Context, e Event) error {
	if !e.Ride.HasDriver() {
		return nil
	}
	_, err := fmt.Fprintf(n.w, "[DRIVER NOTIFICATION] Ride %s status changed to: %s\n", e.Ride.ID, e.Ride.Status.Label())
	return err
}

func (n *DriverNotifier) OnDriverAssigned(_ context.Context, e Event) error {
	_, err := fmt.Fprintf(n.w, "[DRIVER NOTIFICATION] You have been assigned to ride %s\n", e.Ride.ID)
	return err
}

func (n *DriverNotifier) OnPaymentCompleted(_ context.Context, e Event) error {
	_, err := fmt.Fprintf(n.w, "[DRIVER NOTIFICATION] Payment received for ride %s\n", e.Ride.ID)
	return err
}
